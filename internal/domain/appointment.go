package domain

import (
	"strings"
	"time"
	"unicode"
)

type AppointmentStatus string

const (
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCancelled AppointmentStatus = "cancelled"
)

// Identity is the (email, phone) pair used to deduplicate a person's
// bookings. Both parts are stored normalized; phone may be empty.
type Identity struct {
	Email string
	Phone string
}

func NewIdentity(email, phone string) Identity {
	return Identity{
		Email: NormalizeEmail(email),
		Phone: NormalizePhone(phone),
	}
}

// Appointment is the persisted booking record. Rows are never hard-deleted;
// a cancellation flips status to cancelled and leaves the row as audit trail.
type Appointment struct {
	ID        int64             `json:"id"`
	SessionID string            `json:"session_id"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Phone     string            `json:"phone"`
	Date      string            `json:"date"` // YYYY-MM-DD
	Time      string            `json:"time"` // HH:MM, 24-hour
	Status    AppointmentStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

func (a *Appointment) Identity() Identity {
	return NewIdentity(a.Email, a.Phone)
}

// NormalizeEmail lowercases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NormalizePhone strips everything but digits, keeping a leading +.
func NormalizePhone(phone string) string {
	cleaned := strings.TrimSpace(phone)
	if cleaned == "" {
		return ""
	}

	var result strings.Builder
	for i, r := range cleaned {
		if i == 0 && r == '+' {
			result.WriteRune(r)
		} else if unicode.IsDigit(r) {
			result.WriteRune(r)
		}
	}

	return result.String()
}
