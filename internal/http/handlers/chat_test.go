package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sajilotech/frontdesk/internal/chat"
	"github.com/sajilotech/frontdesk/internal/http/middleware"
	"github.com/sajilotech/frontdesk/internal/ledger/memory"
	"github.com/sajilotech/frontdesk/internal/session"
)

type stubAnswerer struct{ reply string }

func (s *stubAnswerer) Answer(_ context.Context, _ string) (string, error) {
	return s.reply, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *http.Client) {
	t.Helper()

	now := time.Date(2025, time.June, 3, 8, 0, 0, 0, time.UTC)
	store := memory.New()
	registry := session.NewRegistry(store, nil, 3*time.Hour, 30*time.Minute, func() time.Time { return now })
	transport := middleware.NewSessionTransport(registry, "test-secret", 30*time.Minute, "session_id", false)
	bot := chat.NewBot(registry, store, &stubAnswerer{reply: "We are open 9 to 5."}, nil, nil)

	h := NewChatHandler(bot, registry, store, transport)
	r := chi.NewRouter()
	r.Mount("/v1/chat", h.Routes())

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	return srv, &http.Client{Jar: jar}
}

func postMessage(t *testing.T, client *http.Client, url, message string) (*http.Response, string) {
	t.Helper()

	body, _ := json.Marshal(map[string]string{"message": message})
	resp, err := client.Post(url+"/v1/chat/messages", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	return resp, out.Response
}

func TestPostMessageCreatesSessionAndAnswers(t *testing.T) {
	srv, client := newTestServer(t)

	resp, reply := postMessage(t, client, srv.URL, "what are your hours?")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if reply != "We are open 9 to 5." {
		t.Fatalf("reply = %q", reply)
	}

	cookies := client.Jar.Cookies(mustParse(t, srv.URL))
	found := false
	for _, c := range cookies {
		if c.Name == "session_id" && c.Value != "" {
			found = true
		}
	}
	if !found {
		t.Fatal("session cookie not issued")
	}
}

func TestSessionPersistsAcrossMessages(t *testing.T) {
	srv, client := newTestServer(t)

	_, reply := postMessage(t, client, srv.URL, "I want to book an appointment")
	if reply != "Let's begin! What's your full name?" {
		t.Fatalf("reply = %q", reply)
	}

	_, reply = postMessage(t, client, srv.URL, "John Smith")
	if reply != "Thank you! Please provide your phone number." {
		t.Fatalf("collection did not continue across requests: %q", reply)
	}
}

func TestPostMessageRejectsEmptyBody(t *testing.T) {
	srv, client := newTestServer(t)

	body, _ := json.Marshal(map[string]string{"message": ""})
	resp, err := client.Post(srv.URL+"/v1/chat/messages", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHistoryReturnsLoggedTurns(t *testing.T) {
	srv, client := newTestServer(t)

	postMessage(t, client, srv.URL, "hello")
	postMessage(t, client, srv.URL, "what are your hours?")

	resp, err := client.Get(srv.URL + "/v1/chat/history")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out struct {
		History []struct {
			User string `json:"user"`
			Bot  string `json:"bot"`
		} `json:"history"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out.History) != 2 {
		t.Fatalf("history has %d turns, want 2", len(out.History))
	}
	if out.History[0].User != "hello" || out.History[0].Bot != "We are open 9 to 5." {
		t.Fatalf("unexpected first turn: %+v", out.History[0])
	}
}

func TestSessionInfo(t *testing.T) {
	srv, client := newTestServer(t)

	get := func() (active, collecting bool) {
		resp, err := client.Get(srv.URL + "/v1/chat/session")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		var out struct {
			Active     bool `json:"active"`
			Collecting bool `json:"collecting"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatal(err)
		}
		return out.Active, out.Collecting
	}

	if active, _ := get(); active {
		t.Fatal("no session yet, should be inactive")
	}

	postMessage(t, client, srv.URL, "book an appointment")
	active, collecting := get()
	if !active || !collecting {
		t.Fatalf("active=%v collecting=%v, want both true", active, collecting)
	}
}

func TestResetIssuesFreshSession(t *testing.T) {
	srv, client := newTestServer(t)

	postMessage(t, client, srv.URL, "book an appointment")

	resp, err := client.Post(srv.URL+"/v1/chat/reset", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if out.Response != "Your session has been reset. How can I help you today?" {
		t.Fatalf("reply = %q", out.Response)
	}

	// The old dialogue is gone; a new message starts from scratch.
	_, reply := postMessage(t, client, srv.URL, "John Smith")
	if reply == "Thank you! Please provide your phone number." {
		t.Fatal("collection state leaked across reset")
	}
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u
}
