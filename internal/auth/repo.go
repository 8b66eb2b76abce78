package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leadgate/leadgate/internal/shared"
)

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*Record, error)
}

// Record is the raw user row as stored, before role validation.
type Record struct {
	ID           int64
	Username     string
	Email        string
	FullName     string
	RoleName     string
	PasswordHash string
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByUsername fetches an active user together with its role name.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (*Record, error) {
	const query = `
		SELECT u.id, u.username, u.email, u.full_name, r.name, COALESCE(u.password_hash, '')
		FROM users u
		JOIN roles r ON u.role_id = r.id
		WHERE u.username = $1 AND u.is_active = true`

	var rec Record
	err := r.pool.QueryRow(ctx, query, username).
		Scan(&rec.ID, &rec.Username, &rec.Email, &rec.FullName, &rec.RoleName, &rec.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

var _ Repository = (*PGRepository)(nil)
