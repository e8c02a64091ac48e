package modules

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListModules returns all modules in display order.
func (r *Repository) ListModules(ctx context.Context) ([]Module, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, slug, name, display_order, is_active, updated_at
		 FROM modules ORDER BY display_order, slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var mods []Module
	for rows.Next() {
		var mod Module
		if err := rows.Scan(&mod.ID, &mod.Slug, &mod.Name, &mod.DisplayOrder, &mod.IsActive, &mod.UpdatedAt); err != nil {
			return nil, err
		}
		mods = append(mods, mod)
	}
	return mods, rows.Err()
}

// SetActive flips the active flag for one module. Returns false when the slug
// is unknown.
func (r *Repository) SetActive(ctx context.Context, slug string, active bool) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE modules SET is_active = $2, updated_at = NOW() WHERE slug = $1`, slug, active)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
