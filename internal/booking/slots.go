// Package booking owns the slot schedule and the booking-intent
// conversation path: availability listing, direct reservation from a
// single query, and cancellation.
package booking

import (
	"context"
	"time"

	"github.com/sajilotech/frontdesk/internal/domain"
	"github.com/sajilotech/frontdesk/internal/ledger"
)

// Schedule is the fixed set of bookable times, hourly from open to close.
var Schedule = []string{
	"09:00", "10:00", "11:00", "12:00",
	"13:00", "14:00", "15:00", "16:00", "17:00",
}

// SlotLedger answers availability questions against the record store.
type SlotLedger struct {
	store ledger.Store
}

func NewSlotLedger(store ledger.Store) *SlotLedger {
	return &SlotLedger{store: store}
}

// Availability reads are retried on transient store errors. Writes are
// never retried here; a reservation must re-check availability instead.
var (
	readRetries = 2
	readBackoff = 100 * time.Millisecond
)

// ListAvailable returns the schedule minus the date's confirmed bookings,
// in schedule order.
func (s *SlotLedger) ListAvailable(ctx context.Context, date string) ([]string, error) {
	booked, err := s.store.BookedTimes(ctx, date)
	for attempt := 0; err != nil && attempt < readRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(readBackoff << attempt):
		}
		booked, err = s.store.BookedTimes(ctx, date)
	}
	if err != nil {
		return nil, err
	}

	taken := make(map[string]struct{}, len(booked))
	for _, t := range booked {
		taken[t] = struct{}{}
	}

	available := make([]string, 0, len(Schedule))
	for _, t := range Schedule {
		if _, ok := taken[t]; !ok {
			available = append(available, t)
		}
	}
	return available, nil
}

// Reserve commits the profile's booking. The duplicate-identity and
// slot-free checks happen inside the store's transaction boundary.
func (s *SlotLedger) Reserve(ctx context.Context, profile *domain.UserProfile, sessionID string) (int64, ledger.ReserveOutcome, error) {
	return s.store.SaveAppointment(ctx, profile, sessionID)
}

// Cancel releases the identity's confirmed booking. Empty date and time
// cancel whatever active booking the identity holds. Returns false when
// there was nothing to cancel.
func (s *SlotLedger) Cancel(ctx context.Context, identity domain.Identity, date, timeOfDay string) (bool, error) {
	return s.store.CancelAppointment(ctx, identity, date, timeOfDay)
}

func (s *SlotLedger) HasActiveBooking(ctx context.Context, identity domain.Identity) (bool, error) {
	return s.store.HasActiveBooking(ctx, identity)
}

// InSchedule reports whether a time of day is one of the bookable slots.
func InSchedule(timeOfDay string) bool {
	for _, t := range Schedule {
		if t == timeOfDay {
			return true
		}
	}
	return false
}
