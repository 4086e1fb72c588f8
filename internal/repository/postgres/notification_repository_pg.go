package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bobintern/bountybot/internal/domain"
	"github.com/bobintern/bountybot/internal/repository"
)

type pgNotificationRepository struct {
	db *pgxpool.Pool
}

// NewPgNotificationRepository creates a new NotificationRepository backed by PostgreSQL.
func NewPgNotificationRepository(db *pgxpool.Pool) repository.NotificationRepository {
	return &pgNotificationRepository{db: db}
}

func (r *pgNotificationRepository) Create(ctx context.Context, userID int64, listingID string, kind domain.NotificationKind) (*domain.Notification, error) {
	n := &domain.Notification{
		UserID:    userID,
		ListingID: listingID,
		Kind:      kind,
		SentAt:    time.Now().UTC(),
	}
	query := `
		INSERT INTO user_notifications (user_id, listing_id, kind, sent_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query, n.UserID, n.ListingID, n.Kind, n.SentAt).Scan(&n.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateEntry
		}
		return nil, err
	}
	return n, nil
}

func (r *pgNotificationRepository) Exists(ctx context.Context, userID int64, listingID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM user_notifications WHERE user_id = $1 AND listing_id = $2)`
	if err := r.db.QueryRow(ctx, query, userID, listingID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *pgNotificationRepository) DeleteAll(ctx context.Context) (int, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM user_notifications`)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
