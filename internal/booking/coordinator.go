package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sajilotech/frontdesk/internal/domain"
	"github.com/sajilotech/frontdesk/internal/extract"
	"github.com/sajilotech/frontdesk/internal/ledger"
)

// Result is the outcome of a booking-intent message. NeedsProfile asks the
// caller to start the field-by-field collection dialogue; Committed is set
// only on the turn that persisted an appointment.
type Result struct {
	Reply         string
	NeedsProfile  bool
	Committed     bool
	AppointmentID int64
}

// Coordinator serves booking requests phrased as a single message, such as
// "book me tomorrow at 2 PM". It extracts the date and time itself and
// falls back to the collection dialogue when the profile is incomplete.
type Coordinator struct {
	slots *SlotLedger
	now   func() time.Time
}

func NewCoordinator(slots *SlotLedger, now func() time.Time) *Coordinator {
	if now == nil {
		now = time.Now
	}
	return &Coordinator{slots: slots, now: now}
}

// Book processes one booking-intent message against the profile's identity.
func (c *Coordinator) Book(ctx context.Context, query string, profile *domain.UserProfile, sessionID string) (Result, error) {
	if profile.Name == "" || profile.Phone == "" || profile.Email == "" {
		return Result{NeedsProfile: true}, nil
	}

	date, outcome := extract.Date(query, c.now())
	switch outcome {
	case extract.DateWeekend:
		return Result{Reply: "Appointments cannot be scheduled on weekends. Please choose a weekday."}, nil
	case extract.DateNotFound:
		return Result{Reply: "Invalid date format. Use YYYY-MM-DD."}, nil
	}

	available, err := c.slots.ListAvailable(ctx, date)
	if err != nil {
		return Result{}, fmt.Errorf("listing availability: %w", err)
	}

	timeOfDay, ok := extract.TimeFromText(query)
	if !ok {
		return Result{Reply: fmt.Sprintf(
			"Available slots on %s:\n%s\n\nPlease specify a time (e.g., 'at 2:00 PM').",
			FormatDate(date), slotLines(available),
		)}, nil
	}

	if !contains(available, timeOfDay) {
		return Result{Reply: fmt.Sprintf(
			"Sorry, %s is not available on %s.\nAvailable times:\n%s",
			timeOfDay, FormatDate(date), slotLines(available),
		)}, nil
	}

	active, err := c.slots.HasActiveBooking(ctx, profile.Identity())
	if err != nil {
		return Result{}, fmt.Errorf("checking active booking: %w", err)
	}
	if active {
		return Result{Reply: "You already have an active appointment booked. Please cancel your existing appointment before booking a new one."}, nil
	}

	profile.Date = date
	profile.Time = timeOfDay
	id, reserveOutcome, err := c.slots.Reserve(ctx, profile, sessionID)
	if err != nil {
		profile.Date, profile.Time = "", ""
		return Result{}, fmt.Errorf("reserving slot: %w", err)
	}
	switch reserveOutcome {
	case ledger.SlotConflict:
		// Lost the race for the slot; show fresh availability instead of
		// retrying the insert.
		profile.Date, profile.Time = "", ""
		available, err = c.slots.ListAvailable(ctx, date)
		if err != nil {
			return Result{}, fmt.Errorf("listing availability: %w", err)
		}
		return Result{Reply: fmt.Sprintf(
			"Sorry, %s on %s is already booked. Please choose another time.\nAvailable times:\n%s",
			timeOfDay, FormatDate(date), slotLines(available),
		)}, nil
	case ledger.DuplicateBooking:
		profile.Date, profile.Time = "", ""
		return Result{Reply: "You already have an active appointment booked. Please cancel your existing appointment before booking a new one."}, nil
	}

	profile.Status = domain.ProfileConfirmed
	profile.CreatedAt = c.now()

	return Result{
		Reply: fmt.Sprintf(
			"Appointment confirmed for %s at %s.\nDetails:\n- Name: %s\n- Phone: %s\n- Email: %s",
			FormatDate(date), timeOfDay, profile.Name, profile.Phone, profile.Email,
		),
		Committed:     true,
		AppointmentID: id,
	}, nil
}

// CancelOn cancels the identity's confirmed booking on a specific date.
func (c *Coordinator) CancelOn(ctx context.Context, profile *domain.UserProfile, date string) (string, error) {
	if date == "" {
		return "Please provide the date of the appointment to cancel.", nil
	}
	if profile.Email == "" {
		return "We couldn't find your information.", nil
	}

	ok, err := c.slots.Cancel(ctx, profile.Identity(), date, "")
	if err != nil {
		return "", fmt.Errorf("cancelling appointment: %w", err)
	}
	if !ok {
		return "No confirmed appointment found for that date.", nil
	}
	profile.Clear()
	return fmt.Sprintf("Your appointment on %s has been cancelled.", FormatDate(date)), nil
}

// FormatDate renders 2006-01-02 as "Monday, January 02, 2006" for user
// facing messages, leaving unparseable values untouched.
func FormatDate(date string) string {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return t.Format("Monday, January 02, 2006")
}

func slotLines(slots []string) string {
	lines := make([]string, len(slots))
	for i, s := range slots {
		lines[i] = "- " + s
	}
	return strings.Join(lines, "\n")
}

func contains(slots []string, timeOfDay string) bool {
	for _, s := range slots {
		if s == timeOfDay {
			return true
		}
	}
	return false
}
