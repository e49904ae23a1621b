// Package memory holds an in-process ledger.Store backed by a mutex.
// It mirrors the atomic commit semantics of the Postgres ledger and backs
// the conversation-core tests, which must not need a database.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sajilotech/frontdesk/internal/domain"
	"github.com/sajilotech/frontdesk/internal/ledger"
)

type sessionRecord struct {
	startedAt    time.Time
	lastActivity time.Time
	expiredAt    *time.Time
	userAgent    string
	ipAddress    string
}

// Ledger is a mutex-guarded ledger.Store. The single lock gives the same
// guarantee the database indexes do: concurrent commits on one slot admit
// exactly one winner.
type Ledger struct {
	mu           sync.Mutex
	nextID       int64
	appointments []domain.Appointment
	turns        map[string][]domain.ConversationTurn
	sessions     map[string]*sessionRecord
}

func New() *Ledger {
	return &Ledger{
		nextID:   1,
		turns:    make(map[string][]domain.ConversationTurn),
		sessions: make(map[string]*sessionRecord),
	}
}

var _ ledger.Store = (*Ledger)(nil)

func (l *Ledger) SaveAppointment(_ context.Context, profile *domain.UserProfile, sessionID string) (int64, ledger.ReserveOutcome, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	identity := profile.Identity()
	for _, a := range l.appointments {
		if a.Status != domain.AppointmentConfirmed {
			continue
		}
		if a.Email == identity.Email && a.Phone == identity.Phone {
			return 0, ledger.DuplicateBooking, nil
		}
		if a.Date == profile.Date && a.Time == profile.Time {
			return 0, ledger.SlotConflict, nil
		}
	}

	id := l.nextID
	l.nextID++
	l.appointments = append(l.appointments, domain.Appointment{
		ID:        id,
		SessionID: sessionID,
		Name:      profile.Name,
		Email:     identity.Email,
		Phone:     identity.Phone,
		Date:      profile.Date,
		Time:      profile.Time,
		Status:    domain.AppointmentConfirmed,
		CreatedAt: time.Now(),
	})
	return id, ledger.Reserved, nil
}

func (l *Ledger) CancelAppointment(_ context.Context, identity domain.Identity, date, timeOfDay string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	cancelled := false
	for i := range l.appointments {
		a := &l.appointments[i]
		if a.Status != domain.AppointmentConfirmed || a.Email != identity.Email || a.Phone != identity.Phone {
			continue
		}
		if date != "" && a.Date != date {
			continue
		}
		if timeOfDay != "" && a.Time != timeOfDay {
			continue
		}
		a.Status = domain.AppointmentCancelled
		cancelled = true
	}
	return cancelled, nil
}

func (l *Ledger) FindConfirmedAppointment(_ context.Context, email, phone string) (*domain.Appointment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	email = domain.NormalizeEmail(email)
	phone = domain.NormalizePhone(phone)

	var latest *domain.Appointment
	for i := range l.appointments {
		a := l.appointments[i]
		if a.Status != domain.AppointmentConfirmed || a.Email != email || a.Phone != phone {
			continue
		}
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) || a.ID > latest.ID {
			latest = &a
		}
	}
	return latest, nil
}

func (l *Ledger) BookedTimes(_ context.Context, date string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var times []string
	for _, a := range l.appointments {
		if a.Status == domain.AppointmentConfirmed && a.Date == date {
			times = append(times, a.Time)
		}
	}
	return times, nil
}

func (l *Ledger) IsSlotFree(_ context.Context, date, timeOfDay string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, a := range l.appointments {
		if a.Status == domain.AppointmentConfirmed && a.Date == date && a.Time == timeOfDay {
			return false, nil
		}
	}
	return true, nil
}

func (l *Ledger) HasActiveBooking(_ context.Context, identity domain.Identity) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, a := range l.appointments {
		if a.Status == domain.AppointmentConfirmed && a.Email == identity.Email && a.Phone == identity.Phone {
			return true, nil
		}
	}
	return false, nil
}

func (l *Ledger) LogConversationTurn(_ context.Context, sessionID, userMessage, botResponse string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.turns[sessionID] = append(l.turns[sessionID], domain.ConversationTurn{
		UserMessage: userMessage,
		BotResponse: botResponse,
		CreatedAt:   time.Now(),
	})
	return nil
}

func (l *Ledger) History(_ context.Context, sessionID string) ([]domain.ConversationTurn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	turns := l.turns[sessionID]
	out := make([]domain.ConversationTurn, len(turns))
	copy(out, turns)
	return out, nil
}

func (l *Ledger) LogSessionStart(_ context.Context, sessionID, userAgent, ipAddress string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if rec, ok := l.sessions[sessionID]; ok {
		rec.lastActivity = now
		rec.expiredAt = nil
		rec.userAgent = userAgent
		rec.ipAddress = ipAddress
		return nil
	}
	l.sessions[sessionID] = &sessionRecord{
		startedAt:    now,
		lastActivity: now,
		userAgent:    userAgent,
		ipAddress:    ipAddress,
	}
	return nil
}

func (l *Ledger) LogSessionEnd(_ context.Context, sessionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec, ok := l.sessions[sessionID]; ok {
		now := time.Now()
		rec.expiredAt = &now
	}
	return nil
}
