package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/scholaris-edu/scholaris/internal/authz"
	"github.com/scholaris-edu/scholaris/internal/platform/httpx"
)

// Repository provides PostgreSQL backed identity reads.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get resolves one identity by id. Inactive accounts resolve like missing
// ones; a disabled user must not retain any capability.
func (r *Repository) Get(ctx context.Context, id int64) (authz.Identity, error) {
	var rawRole string
	var active bool
	err := r.pool.QueryRow(ctx,
		`SELECT role, is_active FROM users WHERE id = $1`, id).Scan(&rawRole, &active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return authz.Identity{}, fmt.Errorf("%w: identity %d", httpx.ErrNotFound, id)
		}
		return authz.Identity{}, err
	}
	if !active {
		return authz.Identity{}, fmt.Errorf("%w: identity %d", httpx.ErrNotFound, id)
	}
	role, err := authz.ParseRole(rawRole)
	if err != nil {
		return authz.Identity{}, err
	}
	return authz.Identity{ID: id, Role: role}, nil
}

// ListUsers returns all accounts for the admin user view.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, email, name, role, is_active, created_at FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		var user User
		var rawRole string
		if err := rows.Scan(&user.ID, &user.Email, &user.Name, &rawRole, &user.IsActive, &user.CreatedAt); err != nil {
			return nil, err
		}
		role, err := authz.ParseRole(rawRole)
		if err != nil {
			return nil, err
		}
		user.Role = role
		users = append(users, user)
	}
	return users, rows.Err()
}

// ListActiveIDs returns the ids of active accounts, for cache warmup.
func (r *Repository) ListActiveIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM users WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
