package domain

import "time"

// Reminder is a recurring, user-opted-in nudge about a specific listing.
// At most one Reminder may exist per (user, listing) pair. LastSentAt is nil
// until the first send.
type Reminder struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	ListingID     string     `json:"listing_id"`
	IntervalHours int        `json:"interval_hours"`
	LastSentAt    *time.Time `json:"last_sent_at,omitempty"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`

	User    *User    `json:"user,omitempty"`
	Listing *Listing `json:"listing,omitempty"`
}

// Due reports whether the reminder is ready to send at now: never sent, or
// the interval has fully elapsed since the last send. The boundary is
// inclusive — a reminder is due exactly at lastSent+interval.
func (r *Reminder) Due(now time.Time) bool {
	if r.LastSentAt == nil {
		return true
	}
	interval := time.Duration(r.IntervalHours) * time.Hour
	return !now.Before(r.LastSentAt.Add(interval))
}
