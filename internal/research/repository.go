package research

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

// CreateSubmission inserts a new contribution in submitted state.
func (r *Repository) CreateSubmission(ctx context.Context, authorID int64, title, venue string) (Submission, error) {
	var sub Submission
	err := r.pool.QueryRow(ctx,
		`INSERT INTO research_submissions (author_id, title, venue, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, NOW(), NOW())
		 RETURNING id, author_id, title, venue, status, created_at, updated_at`,
		authorID, title, venue, string(StatusSubmitted)).
		Scan(&sub.ID, &sub.AuthorID, &sub.Title, &sub.Venue, &sub.Status, &sub.CreatedAt, &sub.UpdatedAt)
	return sub, err
}

// ListSubmissions returns contributions newest first.
func (r *Repository) ListSubmissions(ctx context.Context) ([]Submission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, author_id, title, venue, status, created_at, updated_at
		 FROM research_submissions ORDER BY created_at DESC LIMIT 200`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var subs []Submission
	for rows.Next() {
		var sub Submission
		if err := rows.Scan(&sub.ID, &sub.AuthorID, &sub.Title, &sub.Venue, &sub.Status, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// SetStatus moves a submission to the given status. Returns false when the
// submission does not exist.
func (r *Repository) SetStatus(ctx context.Context, id int64, to Status, reviewerID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE research_submissions SET status = $2, reviewer_id = $3, updated_at = NOW() WHERE id = $1`,
		id, string(to), reviewerID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
