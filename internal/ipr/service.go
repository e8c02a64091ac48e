package ipr

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// RepositoryPort defines data access methods for filings.
type RepositoryPort interface {
	CreateApplication(ctx context.Context, applicantID int64, title, abstract string) (Application, error)
	GetApplication(ctx context.Context, id int64) (Application, error)
	ListApplications(ctx context.Context) ([]Application, error)
	UpdateStatus(ctx context.Context, id int64, from []Status, to Status, reviewerID int64, note string) (bool, error)
}

// Service handles the filing workflow. Permission enforcement happens in the
// route-protection middleware before any of these run.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// File submits a new application.
func (s *Service) File(ctx context.Context, applicantID int64, title, abstract string) (Application, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Application{}, errors.New("ipr: title required")
	}
	return s.repo.CreateApplication(ctx, applicantID, title, strings.TrimSpace(abstract))
}

// List returns recent applications.
func (s *Service) List(ctx context.Context) ([]Application, error) {
	return s.repo.ListApplications(ctx)
}

// Review moves a submitted application under review, or straight to rejected.
func (s *Service) Review(ctx context.Context, id, reviewerID int64, reject bool, note string) (Application, error) {
	to := StatusUnderReview
	if reject {
		to = StatusRejected
	}
	ok, err := s.repo.UpdateStatus(ctx, id, []Status{StatusSubmitted, StatusUnderReview}, to, reviewerID, note)
	if err != nil {
		return Application{}, err
	}
	if !ok {
		return Application{}, s.transitionError(ctx, id)
	}
	return s.repo.GetApplication(ctx, id)
}

// Approve gives final approval to an application under review.
func (s *Service) Approve(ctx context.Context, id, approverID int64, note string) (Application, error) {
	ok, err := s.repo.UpdateStatus(ctx, id, []Status{StatusUnderReview}, StatusApproved, approverID, note)
	if err != nil {
		return Application{}, err
	}
	if !ok {
		return Application{}, s.transitionError(ctx, id)
	}
	return s.repo.GetApplication(ctx, id)
}

func (s *Service) transitionError(ctx context.Context, id int64) error {
	if _, err := s.repo.GetApplication(ctx, id); errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: application %d", ErrBadTransition, id)
}
