package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"learning-diary/internal/models"
)

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// Upsert records a sign-in. A returning user keeps its original provider and
// creation time; only last_seen_at moves.
func (r *UserRepo) Upsert(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, provider, last_seen_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (id) DO UPDATE SET last_seen_at = NOW()
		RETURNING provider, created_at, last_seen_at`

	return r.pool.QueryRow(ctx, query, user.ID, user.Provider).Scan(
		&user.Provider, &user.CreatedAt, &user.LastSeenAt,
	)
}

func (r *UserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, provider, created_at, last_seen_at FROM users WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Provider, &user.CreatedAt, &user.LastSeenAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}
