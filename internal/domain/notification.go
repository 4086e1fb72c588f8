package domain

import "time"

// NotificationKind tags why a notification was sent.
type NotificationKind string

const (
	NotificationKindSkillMatch NotificationKind = "skill_match"
	NotificationKindReminder   NotificationKind = "reminder"
)

// Notification records that a message was sent to a user for a listing.
// At most one Notification may exist per (user, listing) pair — this is the
// at-most-once delivery contract. Rows are created once and never mutated.
type Notification struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"user_id"`
	ListingID string           `json:"listing_id"`
	Kind      NotificationKind `json:"kind"`
	SentAt    time.Time        `json:"sent_at"`
}
