package audit

import (
	"context"
	"fmt"
	"time"
)

// Repository provides the queries the service needs.
type Repository interface {
	Query(ctx context.Context, filter Filter) ([]Record, error)
}

// QueryFilters describe a paged audit lookup as received from callers.
type QueryFilters struct {
	ActorID  int64
	TargetID int64
	From     time.Time
	To       time.Time
	Page     int
	PageSize int
}

// Result wraps a page of records with paging information.
type Result struct {
	Records []Record
	Paging  PagingInfo
}

// Service coordinates audit trail reads. Writes never go through here; they
// happen inside the grant service's transaction via AppendTx.
type Service struct {
	repo Repository
}

// NewService constructs an audit query service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Query returns one page of matching records, oldest first.
func (s *Service) Query(ctx context.Context, filters QueryFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	records, err := s.repo.Query(ctx, Filter{
		ActorID:  filters.ActorID,
		TargetID: filters.TargetID,
		From:     filters.From,
		To:       filters.To,
		Offset:   (page - 1) * pageSize,
		Limit:    pageSize + 1,
	})
	if err != nil {
		return Result{}, err
	}
	hasNext := len(records) > pageSize
	if hasNext {
		records = records[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Records: records, Paging: paging}, nil
}

// Export returns every matching record without paging, for CSV export and
// the nightly worker task.
func (s *Service) Export(ctx context.Context, filters QueryFilters) ([]Record, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	return s.repo.Query(ctx, Filter{
		ActorID:  filters.ActorID,
		TargetID: filters.TargetID,
		From:     filters.From,
		To:       filters.To,
		Limit:    100000,
	})
}
