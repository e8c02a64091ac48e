package patent

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

// Record inserts a registry entry for an approved filing.
func (r *Repository) Record(ctx context.Context, reg Registration) (Registration, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO patent_registrations (application_id, registry_number, jurisdiction, registered_by, registered_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 RETURNING id, registered_at`,
		reg.ApplicationID, reg.RegistryNumber, reg.Jurisdiction, reg.RegisteredBy).
		Scan(&reg.ID, &reg.RegisteredAt)
	return reg, err
}

// List returns registry entries newest first.
func (r *Repository) List(ctx context.Context) ([]Registration, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, application_id, registry_number, jurisdiction, registered_by, registered_at
		 FROM patent_registrations ORDER BY registered_at DESC LIMIT 200`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var regs []Registration
	for rows.Next() {
		var reg Registration
		if err := rows.Scan(&reg.ID, &reg.ApplicationID, &reg.RegistryNumber, &reg.Jurisdiction, &reg.RegisteredBy, &reg.RegisteredAt); err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	return regs, rows.Err()
}
