// Package session tracks live conversations. Each session owns its draft
// profile and dialogue state; the registry hands out sessions keyed by an
// opaque id, retires idle ones, and serializes turns within a session.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sajilotech/frontdesk/internal/booking"
	"github.com/sajilotech/frontdesk/internal/collect"
	"github.com/sajilotech/frontdesk/internal/domain"
	"github.com/sajilotech/frontdesk/internal/ledger"
	"github.com/sajilotech/frontdesk/pkg/events"
	"github.com/sajilotech/frontdesk/pkg/logger"
)

// Session is one live conversation. Callers must hold the session lock for
// the duration of a turn; the dialogue state has no internal locking.
type Session struct {
	Key         string
	Profile     *domain.UserProfile
	Collector   *collect.Collector
	Coordinator *booking.Coordinator

	mu           sync.Mutex
	createdAt    time.Time
	lastActivity time.Time
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Registry is the in-process session table.
type Registry struct {
	store       ledger.Store
	publisher   events.Publisher
	slots       *booking.SlotLedger
	minLead     time.Duration
	idleTimeout time.Duration
	now         func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(store ledger.Store, publisher events.Publisher, minLead, idleTimeout time.Duration, now func() time.Time) *Registry {
	if now == nil {
		now = time.Now
	}
	return &Registry{
		store:       store,
		publisher:   publisher,
		slots:       booking.NewSlotLedger(store),
		minLead:     minLead,
		idleTimeout: idleTimeout,
		now:         now,
		sessions:    make(map[string]*Session),
	}
}

// GetOrCreate resolves a session key to a live session, minting a fresh key
// when the presented one is absent or idle-expired. The second return is
// true when a new session was created; callers then re-issue the key to the
// client.
func (r *Registry) GetOrCreate(ctx context.Context, key, userAgent, ipAddress string) (*Session, bool, error) {
	now := r.now()

	r.mu.Lock()
	s, ok := r.sessions[key]
	if ok && !r.expiredLocked(s, now) {
		s.lastActivity = now
		r.mu.Unlock()

		r.prefill(ctx, s)
		return s, false, nil
	}
	if ok {
		delete(r.sessions, key)
	}

	newKey := uuid.New().String()
	s = r.newSessionLocked(newKey, now)
	r.mu.Unlock()

	if ok {
		r.logEnd(ctx, key)
	}
	r.logStart(ctx, newKey, userAgent, ipAddress, now)
	return s, true, nil
}

// IsExpired reports whether the key is unknown or past the idle timeout.
func (r *Registry) IsExpired(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[key]
	if !ok {
		return true
	}
	return r.expiredLocked(s, r.now())
}

// Get returns the live session for a key, or nil.
func (r *Registry) Get(key string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[key]
}

// EndSession drops the session and records its end.
func (r *Registry) EndSession(ctx context.Context, key string) {
	r.mu.Lock()
	_, ok := r.sessions[key]
	delete(r.sessions, key)
	r.mu.Unlock()

	if ok {
		r.logEnd(ctx, key)
	}
}

// ResetComponents replaces the session's dialogue state with a fresh one,
// keeping the key.
func (r *Registry) ResetComponents(s *Session) {
	profile := &domain.UserProfile{}
	s.Profile = profile
	s.Collector = collect.New(r.store, profile, s.Key, r.minLead, r.now)
	s.Coordinator = booking.NewCoordinator(r.slots, r.now)
}

// SweepExpired evicts sessions idle longer than maxIdle. The cutoff is
// fixed before the scan, so a session touched while the sweep runs is
// never evicted by it.
func (r *Registry) SweepExpired(ctx context.Context, maxIdle time.Duration) int {
	cutoff := r.now().Add(-maxIdle)

	r.mu.Lock()
	var victims []string
	for key, s := range r.sessions {
		if s.lastActivity.Before(cutoff) {
			victims = append(victims, key)
			delete(r.sessions, key)
		}
	}
	r.mu.Unlock()

	for _, key := range victims {
		r.logEnd(ctx, key)
	}
	return len(victims)
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

func (r *Registry) expiredLocked(s *Session, now time.Time) bool {
	return now.Sub(s.lastActivity) > r.idleTimeout
}

func (r *Registry) newSessionLocked(key string, now time.Time) *Session {
	profile := &domain.UserProfile{}
	s := &Session{
		Key:          key,
		Profile:      profile,
		Collector:    collect.New(r.store, profile, key, r.minLead, r.now),
		Coordinator:  booking.NewCoordinator(r.slots, r.now),
		createdAt:    now,
		lastActivity: now,
	}
	r.sessions[key] = s
	return s
}

// prefill loads a confirmed appointment into a session whose identity is
// known but whose booking fields are empty, so a returning user is not
// offered a second booking.
func (r *Registry) prefill(ctx context.Context, s *Session) {
	s.Lock()
	defer s.Unlock()

	p := s.Profile
	if p.Email == "" || p.Phone == "" || p.Date != "" || p.Time != "" {
		return
	}

	existing, err := r.store.FindConfirmedAppointment(ctx, p.Email, p.Phone)
	if err != nil {
		logger.WarnContext(ctx, "failed to load existing appointment", "session_id", s.Key, "error", err)
		return
	}
	if existing != nil {
		p.Date = existing.Date
		p.Time = existing.Time
		p.Status = domain.ProfileConfirmed
	}
}

// logStart and logEnd record the lifecycle in the ledger and on the bus.
// Neither may fail the session operation itself.
func (r *Registry) logStart(ctx context.Context, key, userAgent, ipAddress string, at time.Time) {
	if err := r.store.LogSessionStart(ctx, key, userAgent, ipAddress); err != nil {
		logger.WarnContext(ctx, "failed to log session start", "session_id", key, "error", err)
	}
	if r.publisher == nil {
		return
	}
	err := r.publisher.Publish(ctx, events.SessionStarted, events.SessionStartedEvent{
		SessionID: key,
		UserAgent: userAgent,
		IPAddress: ipAddress,
		StartedAt: at,
	})
	if err != nil {
		logger.WarnContext(ctx, "failed to publish session start", "session_id", key, "error", err)
	}
}

func (r *Registry) logEnd(ctx context.Context, key string) {
	if err := r.store.LogSessionEnd(ctx, key); err != nil {
		logger.WarnContext(ctx, "failed to log session end", "session_id", key, "error", err)
	}
	if r.publisher == nil {
		return
	}
	err := r.publisher.Publish(ctx, events.SessionEnded, events.SessionEndedEvent{
		SessionID: key,
		EndedAt:   r.now(),
	})
	if err != nil {
		logger.WarnContext(ctx, "failed to publish session end", "session_id", key, "error", err)
	}
}
