package collect

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sajilotech/frontdesk/internal/booking"
	"github.com/sajilotech/frontdesk/internal/domain"
	"github.com/sajilotech/frontdesk/internal/extract"
	"github.com/sajilotech/frontdesk/internal/ledger"
)

// Field is the profile field the collector is currently asking for.
type Field int

const (
	FieldNone Field = iota
	FieldName
	FieldPhone
	FieldEmail
	FieldDate
	FieldTime
)

// Result is the outcome of one dialogue turn. Committed is true only on
// the turn that persisted the appointment.
type Result struct {
	Reply         string
	Committed     bool
	AppointmentID int64
}

var (
	rebookWords = []string{"yes", "book", "schedule", "make", "new"}
	keepWords   = []string{"no", "keep", "maintain", "existing"}
)

// Collector walks a session through the booking questions one field at a
// time. It is not goroutine safe; the session registry serializes access.
type Collector struct {
	store     ledger.Store
	profile   *domain.UserProfile
	sessionID string
	field     Field
	minLead   time.Duration
	now       func() time.Time
}

func New(store ledger.Store, profile *domain.UserProfile, sessionID string, minLead time.Duration, now func() time.Time) *Collector {
	if now == nil {
		now = time.Now
	}
	return &Collector{
		store:     store,
		profile:   profile,
		sessionID: sessionID,
		minLead:   minLead,
		now:       now,
	}
}

// Start begins collection at the name question.
func (c *Collector) Start() string {
	c.field = FieldName
	return "Let's begin! What's your full name?"
}

// Collecting reports whether a question is pending an answer.
func (c *Collector) Collecting() bool {
	return c.field != FieldNone
}

// HandleInput consumes one user message and advances the dialogue.
func (c *Collector) HandleInput(ctx context.Context, input string) (Result, error) {
	lower := strings.ToLower(input)

	// Confirmed booking in hand and the user is talking about booking
	// again: offer a restart or point at cancellation.
	if c.profile.HasBooking() && containsAny(lower, rebookWords) {
		if strings.Contains(lower, "new") || strings.Contains(lower, "another") {
			c.profile.Clear()
			c.field = FieldName
			return Result{Reply: "Let's schedule a new appointment. What's your full name?"}, nil
		}
		return Result{Reply: fmt.Sprintf(
			"You already have an appointment scheduled for %s at %s. To schedule a new appointment, please cancel the current one by saying 'cancel appointment'.",
			c.profile.Date, c.profile.Time,
		)}, nil
	}

	if c.profile.HasBooking() && containsAny(lower, keepWords) {
		return Result{Reply: fmt.Sprintf(
			"Great! Your appointment for %s at %s is confirmed.",
			c.profile.Date, c.profile.Time,
		)}, nil
	}

	// Once email and phone are known, any turn can discover a booking made
	// earlier under the same identity.
	if c.profile.Email != "" && c.profile.Phone != "" && !c.profile.HasBooking() {
		existing, err := c.store.FindConfirmedAppointment(ctx, c.profile.Email, c.profile.Phone)
		if err != nil {
			return Result{}, fmt.Errorf("looking up existing appointment: %w", err)
		}
		if existing != nil {
			c.adoptExisting(existing)
			return Result{Reply: fmt.Sprintf(
				"You already have a confirmed appointment for %s at %s. Please contact support if you'd like to change it.",
				existing.Date, existing.Time,
			)}, nil
		}
	}

	switch c.field {
	case FieldName:
		return c.collectName(input), nil
	case FieldPhone:
		return c.collectPhone(input), nil
	case FieldEmail:
		return c.collectEmail(ctx, input)
	case FieldDate:
		return c.collectDate(input), nil
	case FieldTime:
		return c.collectTime(ctx, input)
	}
	return Result{}, nil
}

func (c *Collector) collectName(input string) Result {
	name := strings.TrimSpace(input)
	if name == "" {
		return Result{Reply: "Please provide your full name. This field cannot be empty."}
	}
	if !ValidName(name) {
		return Result{Reply: "Please provide your complete full name (e.g., 'John Smith')."}
	}
	c.profile.Name = name
	c.field = FieldPhone
	return Result{Reply: "Thank you! Please provide your phone number."}
}

func (c *Collector) collectPhone(input string) Result {
	phone := strings.TrimSpace(input)
	if phone == "" {
		c.profile.Phone = ""
		c.field = FieldEmail
		return Result{Reply: "We'll contact you by email then. What's your email address?"}
	}
	if !ValidPhone(phone) {
		return Result{Reply: "Please enter a valid phone number (Nepali or international with country code)."}
	}
	c.profile.Phone = phone
	c.field = FieldEmail
	return Result{Reply: "Great! What's your email address?"}
}

func (c *Collector) collectEmail(ctx context.Context, input string) (Result, error) {
	email := strings.TrimSpace(input)
	if email == "" {
		return Result{Reply: "Please provide your email address."}, nil
	}
	if !ValidEmail(email) {
		return Result{Reply: "Please enter a valid email address."}, nil
	}
	c.profile.Email = email

	existing, err := c.store.FindConfirmedAppointment(ctx, email, c.profile.Phone)
	if err != nil {
		return Result{}, fmt.Errorf("looking up existing appointment: %w", err)
	}
	if existing != nil {
		c.adoptExisting(existing)
		c.field = FieldNone
		return Result{Reply: fmt.Sprintf(
			"You already have a confirmed appointment for %s at %s. If you'd like to book a new appointment, please cancel the previous booking first.",
			existing.Date, existing.Time,
		)}, nil
	}

	c.field = FieldDate
	return Result{Reply: "Thanks! When would you like to schedule the appointment?"}, nil
}

func (c *Collector) collectDate(input string) Result {
	date, outcome := extract.Date(input, c.now())
	switch outcome {
	case extract.DateWeekend:
		return Result{Reply: "Appointments cannot be scheduled on weekends. Please choose a weekday."}
	case extract.DateFound:
		c.profile.Date = date
		c.field = FieldTime
		return Result{Reply: "What time would you prefer for the appointment?"}
	}
	return Result{Reply: "Couldn't understand the date. Try formats like 'next Friday' or '2025-01-01'."}
}

func (c *Collector) collectTime(ctx context.Context, input string) (Result, error) {
	timeOfDay, ok := extract.TimeOfDay(strings.TrimSpace(input))
	if !ok {
		return Result{Reply: "Invalid time format. Try formats like '10 AM' or '14:30'."}, nil
	}

	when, err := time.ParseInLocation("2006-01-02 15:04", c.profile.Date+" "+timeOfDay, c.now().Location())
	if err != nil {
		return Result{Reply: "Invalid date or time format. Please try again."}, nil
	}
	now := c.now()
	if when.Before(now) {
		return Result{Reply: "You cannot schedule an appointment in the past. Please select a future date and time."}, nil
	}
	if when.Before(now.Add(c.minLead)) {
		return Result{Reply: "Please schedule the appointment at least 3 hours from now."}, nil
	}

	free, err := c.store.IsSlotFree(ctx, c.profile.Date, timeOfDay)
	if err != nil {
		return Result{}, fmt.Errorf("checking slot: %w", err)
	}
	if !free {
		return Result{Reply: fmt.Sprintf(
			"Sorry, %s on %s is already booked. Please choose another time.",
			timeOfDay, c.profile.Date,
		)}, nil
	}
	if !booking.InSchedule(timeOfDay) {
		return Result{Reply: fmt.Sprintf(
			"%s is not available. Choose from: %s",
			timeOfDay, strings.Join(booking.Schedule, ", "),
		)}, nil
	}

	c.profile.Time = timeOfDay
	id, outcome, err := c.store.SaveAppointment(ctx, c.profile, c.sessionID)
	if err != nil {
		// A failed write must not leave the draft looking booked.
		c.profile.Time = ""
		return Result{}, fmt.Errorf("saving appointment: %w", err)
	}
	switch outcome {
	case ledger.SlotConflict:
		// Another session won the slot between the check and the insert.
		c.profile.Time = ""
		return Result{Reply: fmt.Sprintf(
			"Sorry, %s on %s is already booked. Please choose another time.",
			timeOfDay, c.profile.Date,
		)}, nil
	case ledger.DuplicateBooking:
		existing, err := c.store.FindConfirmedAppointment(ctx, c.profile.Email, c.profile.Phone)
		if err != nil {
			return Result{}, fmt.Errorf("looking up existing appointment: %w", err)
		}
		c.profile.Time = ""
		c.field = FieldNone
		if existing != nil {
			c.adoptExisting(existing)
			return Result{Reply: fmt.Sprintf(
				"You already have a confirmed appointment for %s at %s. If you'd like to book a new appointment, please cancel the previous booking first.",
				existing.Date, existing.Time,
			)}, nil
		}
		return Result{Reply: "You already have an active appointment booked. Please cancel your existing appointment before booking a new one."}, nil
	}

	c.profile.Status = domain.ProfileConfirmed
	c.profile.CreatedAt = now
	c.field = FieldNone

	return Result{
		Reply: fmt.Sprintf(
			"Thanks, %s! Your appointment is confirmed for:\n- Date: %s\n- Time: %s\nContact:\n- Email: %s\n- Phone: %s",
			c.profile.Name, c.profile.Date, timeOfDay, c.profile.Email, phoneOrPlaceholder(c.profile.Phone),
		),
		Committed:     true,
		AppointmentID: id,
	}, nil
}

// CancelBooking cancels the session's appointment: the exact (date, time)
// one when the profile knows it, otherwise whatever confirmed booking the
// identity holds.
func (c *Collector) CancelBooking(ctx context.Context) (bool, string, error) {
	if c.profile.Email == "" {
		return false, "No active booking found in current session.", nil
	}

	identity := c.profile.Identity()
	if c.profile.Date != "" && c.profile.Time != "" {
		ok, err := c.store.CancelAppointment(ctx, identity, c.profile.Date, c.profile.Time)
		if err != nil {
			return false, "", fmt.Errorf("cancelling appointment: %w", err)
		}
		if ok {
			c.profile.Clear()
			c.field = FieldNone
			return true, "Your appointment has been cancelled successfully.", nil
		}
	}

	ok, err := c.store.CancelAppointment(ctx, identity, "", "")
	if err != nil {
		return false, "", fmt.Errorf("cancelling appointment: %w", err)
	}
	if ok {
		c.profile.Clear()
		c.field = FieldNone
		return true, "Your appointment has been cancelled successfully.", nil
	}
	return false, "I couldn't find your appointment in our records.", nil
}

// Reset drops the draft and stops asking questions.
func (c *Collector) Reset() {
	c.profile.Clear()
	c.field = FieldNone
}

func (c *Collector) adoptExisting(a *domain.Appointment) {
	c.profile.Date = a.Date
	c.profile.Time = a.Time
	c.profile.Status = domain.ProfileConfirmed
	if c.profile.Email == "" {
		c.profile.Email = a.Email
	}
	if c.profile.Phone == "" {
		c.profile.Phone = a.Phone
	}
	if c.profile.Name == "" {
		c.profile.Name = a.Name
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func phoneOrPlaceholder(phone string) string {
	if phone == "" {
		return "Not provided"
	}
	return phone
}
