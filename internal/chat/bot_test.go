package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sajilotech/frontdesk/internal/ledger/memory"
	"github.com/sajilotech/frontdesk/internal/session"
	"github.com/sajilotech/frontdesk/pkg/events"
)

type stubAnswerer struct {
	reply string
	err   error
	asked []string
}

func (s *stubAnswerer) Answer(_ context.Context, question string) (string, error) {
	s.asked = append(s.asked, question)
	return s.reply, s.err
}

type stubMailer struct {
	mu            sync.Mutex
	confirmations []string
	cancellations []string
}

func (s *stubMailer) SendConfirmationEmail(toEmail, _, _, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.confirmations = append(s.confirmations, toEmail)
	return nil
}

func (s *stubMailer) SendCancellationEmail(toEmail, _, _, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancellations = append(s.cancellations, toEmail)
	return nil
}

type stubPublisher struct {
	mu       sync.Mutex
	subjects []string
}

func (s *stubPublisher) Publish(_ context.Context, subject string, _ interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects = append(s.subjects, subject)
	return nil
}

func (s *stubPublisher) Close() error { return nil }

type botFixture struct {
	bot       *Bot
	store     *memory.Ledger
	registry  *session.Registry
	answerer  *stubAnswerer
	mailer    *stubMailer
	publisher *stubPublisher
}

func newBotFixture(t *testing.T) *botFixture {
	t.Helper()
	now := time.Date(2025, time.June, 3, 8, 0, 0, 0, time.UTC)
	store := memory.New()
	registry := session.NewRegistry(store, nil, 3*time.Hour, 30*time.Minute, func() time.Time { return now })
	ans := &stubAnswerer{reply: "We are open 9 to 5."}
	mail := &stubMailer{}
	pub := &stubPublisher{}
	return &botFixture{
		bot:       NewBot(registry, store, ans, mail, pub),
		store:     store,
		registry:  registry,
		answerer:  ans,
		mailer:    mail,
		publisher: pub,
	}
}

func (f *botFixture) newSession(t *testing.T) *session.Session {
	t.Helper()
	s, _, err := f.registry.GetOrCreate(context.Background(), "", "agent", "127.0.0.1")
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func (f *botFixture) say(t *testing.T, s *session.Session, message string) string {
	t.Helper()
	return f.bot.Process(context.Background(), s, message)
}

func (f *botFixture) bookThrough(t *testing.T, s *session.Session) {
	t.Helper()
	f.say(t, s, "I want to book an appointment")
	for _, in := range []string{"John Smith", "9812345678", "john@example.com", "2025-06-04", "10 AM"} {
		f.say(t, s, in)
	}
}

func TestFallbackGoesToAnswerer(t *testing.T) {
	f := newBotFixture(t)
	s := f.newSession(t)

	got := f.say(t, s, "what are your opening hours?")
	if got != "We are open 9 to 5." {
		t.Fatalf("got %q", got)
	}
	if len(f.answerer.asked) != 1 {
		t.Fatalf("answerer asked %d times", len(f.answerer.asked))
	}
}

func TestAnswererFailureIsSoft(t *testing.T) {
	f := newBotFixture(t)
	f.answerer.err = errors.New("connection refused")
	s := f.newSession(t)

	got := f.say(t, s, "hello there")
	if got != msgAnswerFailed {
		t.Fatalf("got %q", got)
	}
}

func TestBookingIntentStartsCollection(t *testing.T) {
	f := newBotFixture(t)
	s := f.newSession(t)

	got := f.say(t, s, "I want to book an appointment")
	if got != "Let's begin! What's your full name?" {
		t.Fatalf("got %q", got)
	}
	if !s.Collector.Collecting() {
		t.Fatal("collector should be active")
	}
}

func TestFullBookingConversation(t *testing.T) {
	f := newBotFixture(t)
	s := f.newSession(t)
	f.bookThrough(t, s)

	if !s.Profile.HasBooking() {
		t.Fatal("profile should hold the confirmed booking")
	}
	if len(f.mailer.confirmations) != 1 || f.mailer.confirmations[0] != "john@example.com" {
		t.Fatalf("confirmation emails: %v", f.mailer.confirmations)
	}
	found := false
	for _, subj := range f.publisher.subjects {
		if subj == events.AppointmentConfirmed {
			found = true
		}
	}
	if !found {
		t.Fatalf("confirmation event not published: %v", f.publisher.subjects)
	}

	history, err := f.store.History(context.Background(), s.Key)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 6 {
		t.Fatalf("logged %d turns, want 6", len(history))
	}
}

func TestBookingIntentBlockedByExistingBooking(t *testing.T) {
	f := newBotFixture(t)
	s := f.newSession(t)
	f.bookThrough(t, s)

	got := f.say(t, s, "I want to schedule a meeting")
	want := "You already have a confirmed appointment for 2025-06-04 at 10:00. If you'd like to book a new appointment, please cancel the previous booking first."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCancelDuringCollection(t *testing.T) {
	f := newBotFixture(t)
	s := f.newSession(t)

	f.say(t, s, "book me in")
	f.say(t, s, "John Smith")

	got := f.say(t, s, "actually, cancel that")
	if got != msgProcessCancelled {
		t.Fatalf("got %q", got)
	}
	if s.Collector.Collecting() {
		t.Fatal("collection should be abandoned")
	}
	if s.Profile.Name != "" {
		t.Fatal("profile should be cleared")
	}
}

func TestCancelConfirmedBooking(t *testing.T) {
	f := newBotFixture(t)
	s := f.newSession(t)
	f.bookThrough(t, s)

	got := f.say(t, s, "cancel my appointment")
	if got != msgBookingCancelled {
		t.Fatalf("got %q", got)
	}
	if len(f.mailer.cancellations) != 1 {
		t.Fatalf("cancellation emails: %v", f.mailer.cancellations)
	}
	found := false
	for _, subj := range f.publisher.subjects {
		if subj == events.AppointmentCanceled {
			found = true
		}
	}
	if !found {
		t.Fatalf("cancellation event not published: %v", f.publisher.subjects)
	}

	free, err := f.store.IsSlotFree(context.Background(), "2025-06-04", "10:00")
	if err != nil {
		t.Fatal(err)
	}
	if !free {
		t.Fatal("slot should be released")
	}

	got = f.say(t, s, "cancel my appointment")
	if got != msgSessionReset {
		t.Fatalf("second cancel: got %q", got)
	}
}

func TestResetIntent(t *testing.T) {
	f := newBotFixture(t)
	s := f.newSession(t)
	f.bookThrough(t, s)

	got := f.say(t, s, "please reset everything")
	if got != msgSessionReset {
		t.Fatalf("got %q", got)
	}
	if s.Profile.HasBooking() {
		t.Fatal("profile should be fresh after reset")
	}

	// Reset of a finished booking releases the slot.
	free, err := f.store.IsSlotFree(context.Background(), "2025-06-04", "10:00")
	if err != nil {
		t.Fatal(err)
	}
	if !free {
		t.Fatal("slot should be released on reset")
	}
}

func TestDirectBookingWithKnownProfile(t *testing.T) {
	f := newBotFixture(t)
	s := f.newSession(t)
	s.Profile.Name = "Jane Doe"
	s.Profile.Phone = "9712345678"
	s.Profile.Email = "jane@example.com"

	got := f.say(t, s, "book me tomorrow at 2 PM")
	if !strings.HasPrefix(got, "Appointment confirmed for Wednesday, June 04, 2025 at 14:00.") {
		t.Fatalf("got %q", got)
	}
	if len(f.mailer.confirmations) != 1 {
		t.Fatalf("confirmation emails: %v", f.mailer.confirmations)
	}
}
