package answerer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestMain(m *testing.M) {
	backoffBase = time.Millisecond
	m.Run()
}

func TestAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/answer" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req answerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		json.NewEncoder(w).Encode(answerResponse{Answer: "We are open 9 to 5."})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, 3)
	got, err := c.Answer(context.Background(), "What are your hours?")
	if err != nil {
		t.Fatal(err)
	}
	if got != "We are open 9 to 5." {
		t.Fatalf("Answer() = %q", got)
	}
}

func TestAnswerRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(answerResponse{Answer: "ok"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, 3)
	got, err := c.Answer(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if got != "ok" || calls.Load() != 3 {
		t.Fatalf("got %q after %d calls", got, calls.Load())
	}
}

func TestAnswerDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, 3)
	if _, err := c.Answer(context.Background(), "hello"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("client error retried %d times", calls.Load())
	}
}

func TestAnswerGivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, 2)
	if _, err := c.Answer(context.Background(), "hello"); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 2 {
		t.Fatalf("made %d calls, want 2", calls.Load())
	}
}
