package repository

import (
	"context"
	"time"

	"github.com/bobintern/bountybot/internal/domain"
)

// UserRepository defines persistence for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	GetByTelegramID(ctx context.Context, telegramID string) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	// GetUsersWithExpertise returns users that declared at least one
	// expertise category; only those participate in matching.
	GetUsersWithExpertise(ctx context.Context) ([]*domain.User, error)
}

// ListingRepository defines persistence for listings.
type ListingRepository interface {
	// Upsert inserts or refreshes a listing by its external id.
	Upsert(ctx context.Context, listing *domain.Listing) error
	GetByID(ctx context.Context, id string) (*domain.Listing, error)
	// GetActiveWithMappedSkills returns active listings whose mapped-skill
	// set is non-empty.
	GetActiveWithMappedSkills(ctx context.Context) ([]*domain.Listing, error)
	MarkInactive(ctx context.Context, id string) error
	// DeactivateExpired marks listings with deadline before now inactive and
	// returns how many rows were affected.
	DeactivateExpired(ctx context.Context, now time.Time) (int, error)
	GetStats(ctx context.Context) (*domain.ListingStats, error)
}

// MatchRepository defines persistence for user-listing matches.
type MatchRepository interface {
	// CreateIfAbsent inserts a match unless one already exists for the
	// (user, listing) pair. Returns true when a row was inserted. Existing
	// rows are never overwritten, so the score stays as computed at
	// first-match time.
	CreateIfAbsent(ctx context.Context, userID int64, listingID string, score int) (bool, error)
	Exists(ctx context.Context, userID int64, listingID string) (bool, error)
	// GetActive returns active matches joined with their user and listing,
	// oldest first.
	GetActive(ctx context.Context) ([]*domain.Match, error)
	Deactivate(ctx context.Context, userID int64, listingID string) error
	GetStats(ctx context.Context) (*domain.MatchingStats, error)
}

// NotificationRepository defines persistence for sent-notification records.
type NotificationRepository interface {
	// Create records that a notification was sent. Returns
	// domain.ErrDuplicateEntry if one already exists for the pair.
	Create(ctx context.Context, userID int64, listingID string, kind domain.NotificationKind) (*domain.Notification, error)
	Exists(ctx context.Context, userID int64, listingID string) (bool, error)
	// DeleteAll clears all notification records. Test/operator escape hatch.
	DeleteAll(ctx context.Context) (int, error)
}

// ReminderRepository defines persistence for reminder subscriptions.
type ReminderRepository interface {
	// Create registers a reminder unless one already exists for the pair.
	Create(ctx context.Context, userID int64, listingID string, intervalHours int) (*domain.Reminder, error)
	Exists(ctx context.Context, userID int64, listingID string) (bool, error)
	// GetDue returns active reminders due at now (never sent, or interval
	// elapsed), joined with user and listing, oldest-created first.
	GetDue(ctx context.Context, now time.Time) ([]*domain.Reminder, error)
	// GetActiveWithListings returns all active reminders joined with their
	// listing, for the expiry sweep.
	GetActiveWithListings(ctx context.Context) ([]*domain.Reminder, error)
	UpdateLastSent(ctx context.Context, userID int64, listingID string, sentAt time.Time) error
	Deactivate(ctx context.Context, userID int64, listingID string) error
	GetStats(ctx context.Context, now time.Time) (*domain.ReminderStats, error)
}
