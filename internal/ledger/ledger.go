// Package ledger defines the durable record store the conversation core
// writes through: appointment rows, conversation history, and session
// metadata. Expected booking outcomes (slot taken, duplicate identity) are
// reported as result variants, not errors; the error return carries
// infrastructure failures only.
package ledger

import (
	"context"

	"github.com/sajilotech/frontdesk/internal/domain"
)

// ReserveOutcome is the result of an appointment commit attempt.
type ReserveOutcome int

const (
	// Reserved means the appointment row was inserted and the slot is now
	// owned by this identity.
	Reserved ReserveOutcome = iota
	// SlotConflict means another confirmed appointment already occupies the
	// (date, time) slot.
	SlotConflict
	// DuplicateBooking means this identity already has an active confirmed
	// appointment.
	DuplicateBooking
)

type Store interface {
	// SaveAppointment commits a confirmed appointment. The identity-active
	// check, the slot-free check and the insert are one atomic transaction:
	// of two concurrent attempts on the same slot exactly one observes
	// Reserved.
	SaveAppointment(ctx context.Context, profile *domain.UserProfile, sessionID string) (int64, ReserveOutcome, error)

	// CancelAppointment flips the identity's confirmed appointment to
	// cancelled. Date and time narrow the match independently; both empty
	// cancels the identity's sole active booking. Returns false when
	// nothing matched; cancelling twice is not an error.
	CancelAppointment(ctx context.Context, identity domain.Identity, date, timeOfDay string) (bool, error)

	// FindConfirmedAppointment returns the latest confirmed appointment for
	// the identity, or nil when there is none.
	FindConfirmedAppointment(ctx context.Context, email, phone string) (*domain.Appointment, error)

	// BookedTimes lists the occupied times of day for a date, ascending.
	BookedTimes(ctx context.Context, date string) ([]string, error)

	IsSlotFree(ctx context.Context, date, timeOfDay string) (bool, error)
	HasActiveBooking(ctx context.Context, identity domain.Identity) (bool, error)

	LogConversationTurn(ctx context.Context, sessionID, userMessage, botResponse string) error
	History(ctx context.Context, sessionID string) ([]domain.ConversationTurn, error)

	LogSessionStart(ctx context.Context, sessionID, userAgent, ipAddress string) error
	LogSessionEnd(ctx context.Context, sessionID string) error
}
