package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bobintern/bountybot/internal/domain"
	"github.com/bobintern/bountybot/internal/repository"
)

type pgMatchRepository struct {
	db *pgxpool.Pool
}

// NewPgMatchRepository creates a new MatchRepository backed by PostgreSQL.
func NewPgMatchRepository(db *pgxpool.Pool) repository.MatchRepository {
	return &pgMatchRepository{db: db}
}

// CreateIfAbsent relies on the UNIQUE (user_id, listing_id) constraint:
// concurrent or repeated inserts for the same pair collapse to a no-op
// instead of producing duplicates that would need cleanup later.
func (r *pgMatchRepository) CreateIfAbsent(ctx context.Context, userID int64, listingID string, score int) (bool, error) {
	query := `
		INSERT INTO user_listing_matches (user_id, listing_id, score, is_active, created_at)
		VALUES ($1, $2, $3, TRUE, now())
		ON CONFLICT (user_id, listing_id) DO NOTHING
	`
	tag, err := r.db.Exec(ctx, query, userID, listingID, score)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *pgMatchRepository) Exists(ctx context.Context, userID int64, listingID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM user_listing_matches WHERE user_id = $1 AND listing_id = $2)`
	if err := r.db.QueryRow(ctx, query, userID, listingID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *pgMatchRepository) GetActive(ctx context.Context) ([]*domain.Match, error) {
	query := `
		SELECT m.id, m.user_id, m.listing_id, m.score, m.is_active, m.created_at,
		       u.id, u.telegram_id, u.user_name, u.expertise, u.skills, u.created_at, u.updated_at,
		       l.id, l.title, l.slug, l.deadline, l.token, l.usd_value, l.type, l.compensation_type,
		       l.sponsor_name, l.mapped_skills, l.is_active, l.last_fetched, l.created_at
		FROM user_listing_matches m
		JOIN users u ON u.id = m.user_id
		JOIN listings l ON l.id = m.listing_id
		WHERE m.is_active = TRUE
		ORDER BY m.created_at ASC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*domain.Match
	for rows.Next() {
		m := &domain.Match{User: &domain.User{}, Listing: &domain.Listing{}}
		err := rows.Scan(
			&m.ID, &m.UserID, &m.ListingID, &m.Score, &m.IsActive, &m.CreatedAt,
			&m.User.ID, &m.User.TelegramID, &m.User.UserName, &m.User.Expertise, &m.User.Skills,
			&m.User.CreatedAt, &m.User.UpdatedAt,
			&m.Listing.ID, &m.Listing.Title, &m.Listing.Slug, &m.Listing.Deadline, &m.Listing.Token,
			&m.Listing.USDValue, &m.Listing.Type, &m.Listing.CompensationType,
			&m.Listing.SponsorName, &m.Listing.MappedSkills, &m.Listing.IsActive,
			&m.Listing.LastFetched, &m.Listing.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

func (r *pgMatchRepository) Deactivate(ctx context.Context, userID int64, listingID string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE user_listing_matches SET is_active = FALSE WHERE user_id = $1 AND listing_id = $2`,
		userID, listingID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *pgMatchRepository) GetStats(ctx context.Context) (*domain.MatchingStats, error) {
	stats := &domain.MatchingStats{}
	query := `
		SELECT
			(SELECT count(*) FROM user_listing_matches),
			(SELECT count(*) FROM user_listing_matches WHERE is_active),
			(SELECT count(*) FROM user_notifications WHERE sent_at >= date_trunc('day', now())),
			(SELECT count(DISTINCT user_id) FROM user_listing_matches WHERE is_active)
	`
	err := r.db.QueryRow(ctx, query).Scan(
		&stats.TotalMatches, &stats.ActiveMatches,
		&stats.NotificationsSentToday, &stats.UsersWithMatches,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
