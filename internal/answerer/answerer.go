// Package answerer is the fallback for messages that are neither booking
// related nor session commands. Answers come from an external knowledge
// service over HTTP.
package answerer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// KnowledgeAnswerer answers a free-form question with plain text.
type KnowledgeAnswerer interface {
	Answer(ctx context.Context, question string) (string, error)
}

type answerRequest struct {
	Question string `json:"question"`
}

type answerResponse struct {
	Answer string `json:"answer"`
}

// Client talks to the knowledge service. Requests are retried a bounded
// number of times with exponential backoff; a 4xx response is not retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
}

func NewClient(baseURL string, timeout time.Duration, maxRetries int) *Client {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
	}
}

var _ KnowledgeAnswerer = (*Client)(nil)

func (c *Client) Answer(ctx context.Context, question string) (string, error) {
	body, err := json.Marshal(answerRequest{Question: question})
	if err != nil {
		return "", fmt.Errorf("encoding question: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff(attempt)):
			}
		}

		answer, retryable, err := c.post(ctx, body)
		if err == nil {
			return answer, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}
	return "", fmt.Errorf("knowledge service unavailable: %w", lastErr)
}

// Probe verifies the knowledge service is reachable at startup.
func (c *Client) Probe(ctx context.Context) error {
	_, err := c.Answer(ctx, "Hello, world!")
	return err
}

func (c *Client) post(ctx context.Context, body []byte) (answer string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/answer", bytes.NewReader(body))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		return "", true, fmt.Errorf("knowledge service returned %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", false, fmt.Errorf("knowledge service returned %d", resp.StatusCode)
	}

	var out answerResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", false, fmt.Errorf("decoding answer: %w", err)
	}
	return out.Answer, false, nil
}

var backoffBase = time.Second

func backoff(attempt int) time.Duration {
	d := backoffBase << (attempt - 1)
	if d > 10*time.Second {
		d = 10 * time.Second
	}
	return d
}
