// Package chat routes inbound messages: session commands first, then the
// in-progress collection dialogue, then booking intents, and finally the
// knowledge answerer for everything else.
package chat

import (
	"context"
	"strings"
	"time"

	"github.com/sajilotech/frontdesk/internal/answerer"
	"github.com/sajilotech/frontdesk/internal/ledger"
	"github.com/sajilotech/frontdesk/internal/mailer"
	"github.com/sajilotech/frontdesk/internal/session"
	"github.com/sajilotech/frontdesk/pkg/events"
	"github.com/sajilotech/frontdesk/pkg/logger"
)

var (
	resetWords   = []string{"reset", "start over", "begin again", "new session"}
	cancelWords  = []string{"cancel", "cancel appointment", "cancel booking", "cancel schedule"}
	bookingWords = []string{"book", "schedule", "appointment", "meeting"}
)

const (
	msgSessionReset     = "Your session has been reset. How can I help you today?"
	msgProcessCancelled = "Your booking process has been cancelled. How can I help you today?"
	msgBookingCancelled = "Your appointment has been cancelled. How can I help you today?"
	msgNotFound         = "I couldn't find your appointment in our records."
	msgAnswerFailed     = "I'm sorry, I encountered an error while answering. Please try again."
	msgTurnFailed       = "Sorry, something went wrong. Please try again."
)

// Bot is the conversation orchestrator. One Bot serves all sessions; the
// per-session lock is taken for the whole turn, so dialogue state never
// sees concurrent input.
type Bot struct {
	registry  *session.Registry
	store     ledger.Store
	answers   answerer.KnowledgeAnswerer
	mail      mailer.Service
	publisher events.Publisher
}

func NewBot(registry *session.Registry, store ledger.Store, answers answerer.KnowledgeAnswerer, mail mailer.Service, publisher events.Publisher) *Bot {
	return &Bot{
		registry:  registry,
		store:     store,
		answers:   answers,
		mail:      mail,
		publisher: publisher,
	}
}

// Process handles one user message for a session and returns the reply.
func (b *Bot) Process(ctx context.Context, sess *session.Session, message string) string {
	sess.Lock()
	defer sess.Unlock()

	reply := b.route(ctx, sess, message)
	b.logTurn(ctx, sess.Key, message, reply)
	return reply
}

func (b *Bot) route(ctx context.Context, sess *session.Session, message string) string {
	lower := strings.ToLower(message)

	if containsAny(lower, resetWords) {
		return b.resetSession(ctx, sess)
	}

	if containsAny(lower, cancelWords) {
		return b.cancelInProgress(ctx, sess)
	}

	if sess.Collector.Collecting() {
		res, err := sess.Collector.HandleInput(ctx, message)
		if err != nil {
			logger.ErrorContext(ctx, "collection turn failed", "session_id", sess.Key, "error", err)
			return msgTurnFailed
		}
		if res.Committed {
			b.announceConfirmed(ctx, sess, res.AppointmentID)
		}
		return res.Reply
	}

	if sess.Profile.HasBooking() && containsAny(lower, bookingWords) {
		return "You already have a confirmed appointment for " + sess.Profile.Date + " at " + sess.Profile.Time +
			". If you'd like to book a new appointment, please cancel the previous booking first."
	}

	if containsAny(lower, bookingWords) {
		res, err := sess.Coordinator.Book(ctx, message, sess.Profile, sess.Key)
		if err != nil {
			logger.ErrorContext(ctx, "booking turn failed", "session_id", sess.Key, "error", err)
			return msgTurnFailed
		}
		if res.NeedsProfile {
			return sess.Collector.Start()
		}
		if res.Committed {
			b.announceConfirmed(ctx, sess, res.AppointmentID)
		}
		return res.Reply
	}

	answer, err := b.answers.Answer(ctx, message)
	if err != nil {
		logger.ErrorContext(ctx, "knowledge answer failed", "session_id", sess.Key, "error", err)
		return msgAnswerFailed
	}
	return answer
}

// resetSession drops the dialogue state, cancelling a finished booking
// first so the slot is released.
func (b *Bot) resetSession(ctx context.Context, sess *session.Session) string {
	p := sess.Profile
	if p.Email != "" && p.Date != "" && p.Time != "" {
		if _, _, err := sess.Collector.CancelBooking(ctx); err != nil {
			logger.WarnContext(ctx, "cancel on reset failed", "session_id", sess.Key, "error", err)
		}
	}
	b.registry.ResetComponents(sess)
	return msgSessionReset
}

func (b *Bot) cancelInProgress(ctx context.Context, sess *session.Session) string {
	if sess.Collector.Collecting() {
		sess.Collector.Reset()
		b.registry.ResetComponents(sess)
		return msgProcessCancelled
	}

	p := sess.Profile
	if p.Email != "" && p.Date != "" && p.Time != "" {
		email, name, date, timeOfDay := p.Email, p.Name, p.Date, p.Time
		ok, _, err := sess.Collector.CancelBooking(ctx)
		if err != nil {
			logger.ErrorContext(ctx, "cancel failed", "session_id", sess.Key, "error", err)
			return msgTurnFailed
		}
		if !ok {
			return msgNotFound
		}
		b.registry.ResetComponents(sess)
		b.announceCanceled(ctx, email, name, date, timeOfDay)
		return msgBookingCancelled
	}

	b.registry.ResetComponents(sess)
	return msgSessionReset
}

func (b *Bot) announceConfirmed(ctx context.Context, sess *session.Session, appointmentID int64) {
	p := sess.Profile

	if b.publisher != nil {
		err := b.publisher.Publish(ctx, events.AppointmentConfirmed, events.AppointmentConfirmedEvent{
			AppointmentID: appointmentID,
			Email:         p.Email,
			Phone:         p.Phone,
			Name:          p.Name,
			Date:          p.Date,
			Time:          p.Time,
			SessionID:     sess.Key,
			CreatedAt:     time.Now(),
		})
		if err != nil {
			logger.WarnContext(ctx, "failed to publish confirmation event", "session_id", sess.Key, "error", err)
		}
	}

	if b.mail != nil {
		if err := b.mail.SendConfirmationEmail(p.Email, p.Name, p.Date, p.Time); err != nil {
			logger.WarnContext(ctx, "failed to send confirmation email", "email", p.Email, "error", err)
		}
	}
}

func (b *Bot) announceCanceled(ctx context.Context, email, name, date, timeOfDay string) {
	if b.publisher != nil {
		err := b.publisher.Publish(ctx, events.AppointmentCanceled, events.AppointmentCanceledEvent{
			Email:      email,
			Date:       date,
			Time:       timeOfDay,
			Reason:     "user_requested",
			CanceledAt: time.Now(),
		})
		if err != nil {
			logger.WarnContext(ctx, "failed to publish cancellation event", "email", email, "error", err)
		}
	}

	if b.mail != nil {
		if err := b.mail.SendCancellationEmail(email, name, date, timeOfDay); err != nil {
			logger.WarnContext(ctx, "failed to send cancellation email", "email", email, "error", err)
		}
	}
}

// Conversation logging never fails a turn.
func (b *Bot) logTurn(ctx context.Context, sessionKey, userMessage, botResponse string) {
	if err := b.store.LogConversationTurn(ctx, sessionKey, userMessage, botResponse); err != nil {
		logger.WarnContext(ctx, "failed to log conversation turn", "session_id", sessionKey, "error", err)
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
