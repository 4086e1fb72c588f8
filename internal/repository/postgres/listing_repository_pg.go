package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bobintern/bountybot/internal/domain"
	"github.com/bobintern/bountybot/internal/repository"
)

type pgListingRepository struct {
	db *pgxpool.Pool
}

// NewPgListingRepository creates a new ListingRepository backed by PostgreSQL.
func NewPgListingRepository(db *pgxpool.Pool) repository.ListingRepository {
	return &pgListingRepository{db: db}
}

func (r *pgListingRepository) Upsert(ctx context.Context, listing *domain.Listing) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO listings (
			id, title, slug, deadline, token, usd_value, type, compensation_type,
			sponsor_name, mapped_skills, is_active, last_fetched, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE, $11, $11)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			slug = EXCLUDED.slug,
			deadline = EXCLUDED.deadline,
			token = EXCLUDED.token,
			usd_value = EXCLUDED.usd_value,
			type = EXCLUDED.type,
			compensation_type = EXCLUDED.compensation_type,
			sponsor_name = EXCLUDED.sponsor_name,
			mapped_skills = EXCLUDED.mapped_skills,
			last_fetched = EXCLUDED.last_fetched
	`
	_, err := r.db.Exec(ctx, query,
		listing.ID, listing.Title, listing.Slug, listing.Deadline, listing.Token,
		listing.USDValue, listing.Type, listing.CompensationType,
		listing.SponsorName, listing.MappedSkills, now,
	)
	return err
}

func (r *pgListingRepository) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	listing := &domain.Listing{}
	query := `
		SELECT id, title, slug, deadline, token, usd_value, type, compensation_type,
		       sponsor_name, mapped_skills, is_active, last_fetched, created_at
		FROM listings WHERE id = $1
	`
	err := r.db.QueryRow(ctx, query, id).Scan(
		&listing.ID, &listing.Title, &listing.Slug, &listing.Deadline, &listing.Token,
		&listing.USDValue, &listing.Type, &listing.CompensationType,
		&listing.SponsorName, &listing.MappedSkills, &listing.IsActive,
		&listing.LastFetched, &listing.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return listing, nil
}

func (r *pgListingRepository) GetActiveWithMappedSkills(ctx context.Context) ([]*domain.Listing, error) {
	query := `
		SELECT id, title, slug, deadline, token, usd_value, type, compensation_type,
		       sponsor_name, mapped_skills, is_active, last_fetched, created_at
		FROM listings
		WHERE is_active = TRUE AND cardinality(mapped_skills) > 0
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []*domain.Listing
	for rows.Next() {
		listing := &domain.Listing{}
		err := rows.Scan(
			&listing.ID, &listing.Title, &listing.Slug, &listing.Deadline, &listing.Token,
			&listing.USDValue, &listing.Type, &listing.CompensationType,
			&listing.SponsorName, &listing.MappedSkills, &listing.IsActive,
			&listing.LastFetched, &listing.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return listings, nil
}

func (r *pgListingRepository) MarkInactive(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `UPDATE listings SET is_active = FALSE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *pgListingRepository) DeactivateExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.db.Exec(ctx,
		`UPDATE listings SET is_active = FALSE WHERE is_active = TRUE AND deadline < $1`, now)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *pgListingRepository) GetStats(ctx context.Context) (*domain.ListingStats, error) {
	stats := &domain.ListingStats{}
	query := `
		SELECT
			count(*),
			count(*) FILTER (WHERE is_active),
			count(*) FILTER (WHERE is_active AND type = 'bounty'),
			count(*) FILTER (WHERE is_active AND type = 'project'),
			COALESCE(avg(usd_value) FILTER (WHERE is_active), 0)
		FROM listings
	`
	err := r.db.QueryRow(ctx, query).Scan(
		&stats.TotalListings, &stats.ActiveListings, &stats.Bounties,
		&stats.Projects, &stats.AverageUSDValue,
	)
	if err != nil {
		return nil, err
	}
	return stats, nil
}
