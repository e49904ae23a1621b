package booking

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sajilotech/frontdesk/internal/domain"
	"github.com/sajilotech/frontdesk/internal/ledger/memory"
)

// refNow is a Tuesday morning.
var refNow = time.Date(2025, time.June, 3, 8, 0, 0, 0, time.UTC)

func newTestCoordinator(store *memory.Ledger) *Coordinator {
	slots := NewSlotLedger(store)
	return NewCoordinator(slots, func() time.Time { return refNow })
}

func fullProfile() *domain.UserProfile {
	return &domain.UserProfile{
		Name:  "John Smith",
		Phone: "9812345678",
		Email: "john@example.com",
	}
}

func book(t *testing.T, c *Coordinator, query string, profile *domain.UserProfile) Result {
	t.Helper()
	res, err := c.Book(context.Background(), query, profile, "session-1")
	if err != nil {
		t.Fatalf("Book(%q): %v", query, err)
	}
	return res
}

func TestBookNeedsProfile(t *testing.T) {
	c := newTestCoordinator(memory.New())
	res := book(t, c, "book me tomorrow at 2 PM", &domain.UserProfile{})
	if !res.NeedsProfile {
		t.Fatalf("expected NeedsProfile, got %+v", res)
	}
}

func TestBookWithoutTimeListsAvailability(t *testing.T) {
	store := memory.New()
	c := newTestCoordinator(store)

	taken := fullProfile()
	taken.Date, taken.Time = "2025-06-04", "10:00"
	if _, _, err := store.SaveAppointment(context.Background(), taken, "other"); err != nil {
		t.Fatal(err)
	}

	profile := &domain.UserProfile{Name: "Jane Doe", Phone: "9712345678", Email: "jane@example.com"}
	res := book(t, c, "book an appointment tomorrow", profile)

	if !strings.HasPrefix(res.Reply, "Available slots on Wednesday, June 04, 2025:") {
		t.Fatalf("unexpected reply: %q", res.Reply)
	}
	if strings.Contains(res.Reply, "- 10:00") {
		t.Fatalf("taken slot listed as available: %q", res.Reply)
	}
	if !strings.Contains(res.Reply, "- 09:00") || !strings.Contains(res.Reply, "- 17:00") {
		t.Fatalf("free slots missing: %q", res.Reply)
	}
	if !strings.HasSuffix(res.Reply, "Please specify a time (e.g., 'at 2:00 PM').") {
		t.Fatalf("missing time prompt: %q", res.Reply)
	}
}

func TestBookConfirms(t *testing.T) {
	store := memory.New()
	c := newTestCoordinator(store)
	profile := fullProfile()

	res := book(t, c, "book me tomorrow at 2 PM", profile)
	if !res.Committed || res.AppointmentID == 0 {
		t.Fatalf("expected commit, got %+v", res)
	}
	want := "Appointment confirmed for Wednesday, June 04, 2025 at 14:00.\nDetails:\n- Name: John Smith\n- Phone: 9812345678\n- Email: john@example.com"
	if res.Reply != want {
		t.Fatalf("got %q, want %q", res.Reply, want)
	}
	if !profile.HasBooking() || profile.Date != "2025-06-04" || profile.Time != "14:00" {
		t.Fatalf("profile not updated: %+v", profile)
	}
}

func TestBookRejectsWeekendAndUnknownDates(t *testing.T) {
	c := newTestCoordinator(memory.New())

	res := book(t, c, "book me on saturday at 10 AM", fullProfile())
	if res.Reply != "Appointments cannot be scheduled on weekends. Please choose a weekday." {
		t.Fatalf("got %q", res.Reply)
	}

	res = book(t, c, "book me whenever", fullProfile())
	if res.Reply != "Invalid date format. Use YYYY-MM-DD." {
		t.Fatalf("got %q", res.Reply)
	}
}

func TestBookUnavailableTimeListsAlternatives(t *testing.T) {
	store := memory.New()
	c := newTestCoordinator(store)

	taken := fullProfile()
	taken.Date, taken.Time = "2025-06-04", "10:00"
	if _, _, err := store.SaveAppointment(context.Background(), taken, "other"); err != nil {
		t.Fatal(err)
	}

	profile := &domain.UserProfile{Name: "Jane Doe", Phone: "9712345678", Email: "jane@example.com"}
	res := book(t, c, "book me tomorrow at 10 AM", profile)

	if !strings.HasPrefix(res.Reply, "Sorry, 10:00 is not available on Wednesday, June 04, 2025.") {
		t.Fatalf("got %q", res.Reply)
	}
	if strings.Contains(res.Reply, "- 10:00") {
		t.Fatalf("taken slot offered as alternative: %q", res.Reply)
	}
	if profile.HasBooking() {
		t.Fatal("profile must stay unbooked after rejection")
	}
}

func TestBookBlocksSecondActiveBooking(t *testing.T) {
	store := memory.New()
	c := newTestCoordinator(store)
	profile := fullProfile()

	book(t, c, "book me tomorrow at 2 PM", profile)

	res := book(t, c, "book me tomorrow at 3 PM", profile)
	if res.Reply != "You already have an active appointment booked. Please cancel your existing appointment before booking a new one." {
		t.Fatalf("got %q", res.Reply)
	}
	if res.Committed {
		t.Fatal("second booking must not commit")
	}
}

func TestCancelOn(t *testing.T) {
	store := memory.New()
	c := newTestCoordinator(store)
	profile := fullProfile()
	book(t, c, "book me tomorrow at 2 PM", profile)

	msg, err := c.CancelOn(context.Background(), profile, "2025-06-04")
	if err != nil {
		t.Fatal(err)
	}
	if msg != "Your appointment on Wednesday, June 04, 2025 has been cancelled." {
		t.Fatalf("got %q", msg)
	}

	// Identity survives on a fresh profile copy; the booking does not.
	msg, err = c.CancelOn(context.Background(), fullProfile(), "2025-06-04")
	if err != nil {
		t.Fatal(err)
	}
	if msg != "No confirmed appointment found for that date." {
		t.Fatalf("second cancel: got %q", msg)
	}

	free, err := store.IsSlotFree(context.Background(), "2025-06-04", "14:00")
	if err != nil {
		t.Fatal(err)
	}
	if !free {
		t.Fatal("cancelled slot should be free")
	}
}

func TestSlotLedgerExclusivity(t *testing.T) {
	store := memory.New()
	slots := NewSlotLedger(store)

	type outcome struct {
		res Result
		err error
	}
	results := make(chan outcome, 2)

	for i, p := range []*domain.UserProfile{
		{Name: "John Smith", Phone: "9812345678", Email: "john@example.com"},
		{Name: "Jane Doe", Phone: "9712345678", Email: "jane@example.com"},
	} {
		co := NewCoordinator(slots, func() time.Time { return refNow })
		go func(i int, p *domain.UserProfile) {
			res, err := co.Book(context.Background(), "book me tomorrow at 2 PM", p, "session")
			results <- outcome{res, err}
		}(i, p)
	}

	var committed, conflicted int
	for n := 0; n < 2; n++ {
		o := <-results
		if o.err != nil {
			t.Fatal(o.err)
		}
		switch {
		case o.res.Committed:
			committed++
		case strings.Contains(o.res.Reply, "already booked"):
			conflicted++
		}
	}
	if committed != 1 || conflicted != 1 {
		t.Fatalf("want exactly one winner, got committed=%d conflicted=%d", committed, conflicted)
	}

	available, err := slots.ListAvailable(context.Background(), "2025-06-04")
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range available {
		if s == "14:00" {
			t.Fatal("won slot still listed as available")
		}
	}
}
