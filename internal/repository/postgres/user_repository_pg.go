package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bobintern/bountybot/internal/domain"
	"github.com/bobintern/bountybot/internal/repository"
)

const uniqueViolationCode = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}

type pgUserRepository struct {
	db *pgxpool.Pool
}

// NewPgUserRepository creates a new UserRepository backed by PostgreSQL.
func NewPgUserRepository(db *pgxpool.Pool) repository.UserRepository {
	return &pgUserRepository{db: db}
}

func (r *pgUserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (telegram_id, user_name, expertise, skills, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		user.TelegramID, user.UserName, user.Expertise, user.Skills, user.CreatedAt, user.UpdatedAt,
	).Scan(&user.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrDuplicateEntry
		}
		return nil, err
	}
	return user, nil
}

func (r *pgUserRepository) GetByTelegramID(ctx context.Context, telegramID string) (*domain.User, error) {
	user := &domain.User{}
	query := `
		SELECT id, telegram_id, user_name, expertise, skills, created_at, updated_at
		FROM users WHERE telegram_id = $1
	`
	err := r.db.QueryRow(ctx, query, telegramID).Scan(
		&user.ID, &user.TelegramID, &user.UserName, &user.Expertise, &user.Skills,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *pgUserRepository) Update(ctx context.Context, user *domain.User) error {
	now := time.Now().UTC()
	query := `
		UPDATE users
		SET user_name = $2, expertise = $3, skills = $4, updated_at = $5
		WHERE telegram_id = $1
	`
	tag, err := r.db.Exec(ctx, query, user.TelegramID, user.UserName, user.Expertise, user.Skills, now)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *pgUserRepository) GetUsersWithExpertise(ctx context.Context) ([]*domain.User, error) {
	query := `
		SELECT id, telegram_id, user_name, expertise, skills, created_at, updated_at
		FROM users
		WHERE expertise IS NOT NULL AND cardinality(expertise) > 0
		ORDER BY id
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user := &domain.User{}
		err := rows.Scan(
			&user.ID, &user.TelegramID, &user.UserName, &user.Expertise, &user.Skills,
			&user.CreatedAt, &user.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}
