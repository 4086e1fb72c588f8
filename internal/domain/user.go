package domain

import "time"

// User is an end user identified by their Telegram chat id. Created on first
// contact, mutated by onboarding/profile updates, never deleted.
type User struct {
	ID         int64     `json:"id"`
	TelegramID string    `json:"telegram_id"`
	UserName   string    `json:"user_name"`
	Expertise  []string  `json:"expertise"` // declared expertise categories, e.g. DEVELOPMENT
	Skills     []string  `json:"skills"`    // declared individual skills, e.g. FRONTEND
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
