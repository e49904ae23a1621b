package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sajilotech/frontdesk/pkg/logger"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data interface{}) error
	Close() error
}

type NATSEventBus struct {
	conn *nats.Conn
}

func NewNATSEventBus(url string) (*NATSEventBus, error) {
	conn, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSEventBus{conn: conn}, nil
}

func (n *NATSEventBus) Publish(ctx context.Context, subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	logger.DebugContext(ctx, "Publishing event", "subject", subject, "data", string(payload))

	return n.conn.Publish(subject, payload)
}

func (n *NATSEventBus) Close() error {
	n.conn.Close()
	return nil
}

// Event subjects
const (
	AppointmentConfirmed = "appointment.confirmed"
	AppointmentCanceled  = "appointment.canceled"

	SessionStarted = "session.started"
	SessionEnded   = "session.ended"
)

// Event payloads
type AppointmentConfirmedEvent struct {
	AppointmentID int64     `json:"appointment_id"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Name          string    `json:"name"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	SessionID     string    `json:"session_id"`
	CreatedAt     time.Time `json:"created_at"`
}

type AppointmentCanceledEvent struct {
	Email      string    `json:"email"`
	Date       string    `json:"date,omitempty"`
	Time       string    `json:"time,omitempty"`
	Reason     string    `json:"reason"`
	CanceledAt time.Time `json:"canceled_at"`
}

type SessionStartedEvent struct {
	SessionID string    `json:"session_id"`
	UserAgent string    `json:"user_agent,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

type SessionEndedEvent struct {
	SessionID string    `json:"session_id"`
	EndedAt   time.Time `json:"ended_at"`
}
