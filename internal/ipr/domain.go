package ipr

import (
	"errors"
	"time"
)

// Status tracks an application through the filing workflow.
type Status string

const (
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under_review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
)

// Application is one intellectual property filing.
type Application struct {
	ID          int64
	ApplicantID int64
	Title       string
	Abstract    string
	Status      Status
	ReviewerID  int64
	ReviewNote  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

var (
	// ErrNotFound indicates the application does not exist.
	ErrNotFound = errors.New("ipr: application not found")
	// ErrBadTransition indicates the requested status change is not allowed
	// from the current state.
	ErrBadTransition = errors.New("ipr: status transition not allowed")
)
