package domain

import "time"

type ProfileStatus string

const (
	ProfileUnset      ProfileStatus = ""
	ProfileCollecting ProfileStatus = "collecting"
	ProfileConfirmed  ProfileStatus = "confirmed"
	ProfileCancelled  ProfileStatus = "cancelled"
)

// UserProfile is the per-session draft of a booking, filled field by field
// by the dialogue collector. status=confirmed implies email, date and time
// are all set and validated.
type UserProfile struct {
	Name      string
	Phone     string
	Email     string
	Date      string // YYYY-MM-DD
	Time      string // HH:MM, 24-hour
	Status    ProfileStatus
	CreatedAt time.Time
}

func (p *UserProfile) Identity() Identity {
	return NewIdentity(p.Email, p.Phone)
}

// HasBooking reports whether the profile carries a confirmed appointment.
func (p *UserProfile) HasBooking() bool {
	return p.Email != "" && p.Date != "" && p.Time != "" && p.Status == ProfileConfirmed
}

// Clear resets the draft to its initial empty state.
func (p *UserProfile) Clear() {
	*p = UserProfile{}
}
