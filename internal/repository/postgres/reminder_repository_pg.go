package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bobintern/bountybot/internal/domain"
	"github.com/bobintern/bountybot/internal/repository"
)

type pgReminderRepository struct {
	db *pgxpool.Pool
}

// NewPgReminderRepository creates a new ReminderRepository backed by PostgreSQL.
func NewPgReminderRepository(db *pgxpool.Pool) repository.ReminderRepository {
	return &pgReminderRepository{db: db}
}

func (r *pgReminderRepository) Create(ctx context.Context, userID int64, listingID string, intervalHours int) (*domain.Reminder, error) {
	rem := &domain.Reminder{
		UserID:        userID,
		ListingID:     listingID,
		IntervalHours: intervalHours,
		IsActive:      true,
		CreatedAt:     time.Now().UTC(),
	}
	query := `
		INSERT INTO user_reminders (user_id, listing_id, interval_hours, is_active, created_at)
		VALUES ($1, $2, $3, TRUE, $4)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query, rem.UserID, rem.ListingID, rem.IntervalHours, rem.CreatedAt).Scan(&rem.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateEntry
		}
		return nil, err
	}
	return rem, nil
}

func (r *pgReminderRepository) Exists(ctx context.Context, userID int64, listingID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM user_reminders WHERE user_id = $1 AND listing_id = $2)`
	if err := r.db.QueryRow(ctx, query, userID, listingID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *pgReminderRepository) GetDue(ctx context.Context, now time.Time) ([]*domain.Reminder, error) {
	query := `
		SELECT r.id, r.user_id, r.listing_id, r.interval_hours, r.last_sent_at, r.is_active, r.created_at,
		       u.id, u.telegram_id, u.user_name, u.expertise, u.skills, u.created_at, u.updated_at,
		       l.id, l.title, l.slug, l.deadline, l.token, l.usd_value, l.type, l.compensation_type,
		       l.sponsor_name, l.mapped_skills, l.is_active, l.last_fetched, l.created_at
		FROM user_reminders r
		JOIN users u ON u.id = r.user_id
		JOIN listings l ON l.id = r.listing_id
		WHERE r.is_active = TRUE
		  AND (r.last_sent_at IS NULL OR r.last_sent_at + make_interval(hours => r.interval_hours) <= $1)
		ORDER BY r.created_at ASC
	`
	return r.queryReminders(ctx, query, now)
}

func (r *pgReminderRepository) GetActiveWithListings(ctx context.Context) ([]*domain.Reminder, error) {
	query := `
		SELECT r.id, r.user_id, r.listing_id, r.interval_hours, r.last_sent_at, r.is_active, r.created_at,
		       u.id, u.telegram_id, u.user_name, u.expertise, u.skills, u.created_at, u.updated_at,
		       l.id, l.title, l.slug, l.deadline, l.token, l.usd_value, l.type, l.compensation_type,
		       l.sponsor_name, l.mapped_skills, l.is_active, l.last_fetched, l.created_at
		FROM user_reminders r
		JOIN users u ON u.id = r.user_id
		JOIN listings l ON l.id = r.listing_id
		WHERE r.is_active = TRUE
		ORDER BY r.created_at ASC
	`
	return r.queryReminders(ctx, query)
}

func (r *pgReminderRepository) queryReminders(ctx context.Context, query string, args ...any) ([]*domain.Reminder, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reminders []*domain.Reminder
	for rows.Next() {
		rem := &domain.Reminder{User: &domain.User{}, Listing: &domain.Listing{}}
		err := rows.Scan(
			&rem.ID, &rem.UserID, &rem.ListingID, &rem.IntervalHours, &rem.LastSentAt,
			&rem.IsActive, &rem.CreatedAt,
			&rem.User.ID, &rem.User.TelegramID, &rem.User.UserName, &rem.User.Expertise,
			&rem.User.Skills, &rem.User.CreatedAt, &rem.User.UpdatedAt,
			&rem.Listing.ID, &rem.Listing.Title, &rem.Listing.Slug, &rem.Listing.Deadline,
			&rem.Listing.Token, &rem.Listing.USDValue, &rem.Listing.Type,
			&rem.Listing.CompensationType, &rem.Listing.SponsorName, &rem.Listing.MappedSkills,
			&rem.Listing.IsActive, &rem.Listing.LastFetched, &rem.Listing.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, rem)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return reminders, nil
}

func (r *pgReminderRepository) UpdateLastSent(ctx context.Context, userID int64, listingID string, sentAt time.Time) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE user_reminders SET last_sent_at = $1 WHERE user_id = $2 AND listing_id = $3`,
		sentAt, userID, listingID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *pgReminderRepository) Deactivate(ctx context.Context, userID int64, listingID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE user_reminders SET is_active = FALSE WHERE user_id = $1 AND listing_id = $2`,
		userID, listingID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *pgReminderRepository) GetStats(ctx context.Context, now time.Time) (*domain.ReminderStats, error) {
	stats := &domain.ReminderStats{}
	query := `
		SELECT
			(SELECT count(*) FROM user_reminders),
			(SELECT count(*) FROM user_reminders WHERE is_active),
			(SELECT count(*) FROM user_reminders
				WHERE is_active
				  AND (last_sent_at IS NULL OR last_sent_at + make_interval(hours => interval_hours) <= $1)),
			(SELECT count(DISTINCT user_id) FROM user_reminders WHERE is_active)
	`
	err := r.db.QueryRow(ctx, query, now).Scan(
		&stats.TotalReminders, &stats.ActiveReminders,
		&stats.RemindersReadyToSend, &stats.UsersWithReminders,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
