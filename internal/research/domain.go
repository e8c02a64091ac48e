package research

import (
	"errors"
	"time"
)

// Status tracks a contribution through review.
type Status string

const (
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
)

// Submission is one research contribution (paper, dataset, artefact).
type Submission struct {
	ID          int64
	AuthorID    int64
	Title       string
	Venue       string
	Status      Status
	ReviewerID  int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ErrNotFound indicates the submission does not exist.
var ErrNotFound = errors.New("research: submission not found")
