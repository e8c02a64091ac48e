package ipr

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
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

// CreateApplication inserts a new filing in submitted state.
func (r *Repository) CreateApplication(ctx context.Context, applicantID int64, title, abstract string) (Application, error) {
	var app Application
	err := r.pool.QueryRow(ctx,
		`INSERT INTO ipr_applications (applicant_id, title, abstract, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW())
		 RETURNING id, applicant_id, title, abstract, status, created_at, updated_at`,
		applicantID, title, abstract, string(StatusSubmitted)).
		Scan(&app.ID, &app.ApplicantID, &app.Title, &app.Abstract, &app.Status, &app.CreatedAt, &app.UpdatedAt)
	return app, err
}

// GetApplication fetches one filing.
func (r *Repository) GetApplication(ctx context.Context, id int64) (Application, error) {
	var app Application
	var reviewerID *int64
	var reviewNote *string
	err := r.pool.QueryRow(ctx,
		`SELECT id, applicant_id, title, abstract, status, reviewer_id, review_note, created_at, updated_at
		 FROM ipr_applications WHERE id = $1`, id).
		Scan(&app.ID, &app.ApplicantID, &app.Title, &app.Abstract, &app.Status, &reviewerID, &reviewNote, &app.CreatedAt, &app.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Application{}, ErrNotFound
		}
		return Application{}, err
	}
	if reviewerID != nil {
		app.ReviewerID = *reviewerID
	}
	if reviewNote != nil {
		app.ReviewNote = *reviewNote
	}
	return app, nil
}

// ListApplications returns filings newest first.
func (r *Repository) ListApplications(ctx context.Context) ([]Application, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, applicant_id, title, status, created_at, updated_at
		 FROM ipr_applications ORDER BY created_at DESC LIMIT 200`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var apps []Application
	for rows.Next() {
		var app Application
		if err := rows.Scan(&app.ID, &app.ApplicantID, &app.Title, &app.Status, &app.CreatedAt, &app.UpdatedAt); err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// UpdateStatus moves a filing to the given status only when it currently sits
// in one of the allowed source states. Returns false when the precondition
// did not hold.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, from []Status, to Status, reviewerID int64, note string) (bool, error) {
	states := make([]string, len(from))
	for i, s := range from {
		states[i] = string(s)
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE ipr_applications
		 SET status = $2, reviewer_id = $3, review_note = $4, updated_at = NOW()
		 WHERE id = $1 AND status = ANY($5)`,
		id, string(to), reviewerID, note, states)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
