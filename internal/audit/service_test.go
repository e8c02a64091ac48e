package audit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	records    []Record
	lastFilter Filter
}

func (f *fakeRepo) Query(_ context.Context, filter Filter) ([]Record, error) {
	f.lastFilter = filter
	start := filter.Offset
	if start > len(f.records) {
		start = len(f.records)
	}
	end := start + filter.Limit
	if end > len(f.records) {
		end = len(f.records)
	}
	return f.records[start:end], nil
}

func makeRecords(n int) []Record {
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	out := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Record{
			ID:           uuid.New(),
			ActorID:      1,
			Action:       ActionGrant,
			TargetID:     int64(i + 2),
			AffectedKeys: []string{"ipr_view"},
			At:           base.Add(time.Duration(i) * time.Minute),
		})
	}
	return out
}

func TestQueryPaging(t *testing.T) {
	repo := &fakeRepo{records: makeRecords(25)}
	svc := NewService(repo)

	result, err := svc.Query(context.Background(), QueryFilters{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, result.Records, 10)
	assert.True(t, result.Paging.HasNext)
	assert.Equal(t, 2, result.Paging.NextPage)
	assert.Equal(t, 0, result.Paging.PrevPage)
	assert.Equal(t, 11, repo.lastFilter.Limit, "one extra row probes for a next page")

	result, err = svc.Query(context.Background(), QueryFilters{Page: 3, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, result.Records, 5)
	assert.False(t, result.Paging.HasNext)
	assert.Equal(t, 2, result.Paging.PrevPage)
}

func TestQueryClampsPageSize(t *testing.T) {
	repo := &fakeRepo{records: makeRecords(5)}
	svc := NewService(repo)

	_, err := svc.Query(context.Background(), QueryFilters{Page: 0, PageSize: 0})
	require.NoError(t, err)
	assert.Equal(t, 21, repo.lastFilter.Limit, "default page size 20")
	assert.Equal(t, 0, repo.lastFilter.Offset)

	_, err = svc.Query(context.Background(), QueryFilters{Page: 1, PageSize: 9999})
	require.NoError(t, err)
	assert.Equal(t, 101, repo.lastFilter.Limit, "page size capped at 100")
}

func TestQueryForwardsFilters(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 7)
	_, err := svc.Query(context.Background(), QueryFilters{ActorID: 3, TargetID: 8, From: from, To: to})
	require.NoError(t, err)
	assert.Equal(t, int64(3), repo.lastFilter.ActorID)
	assert.Equal(t, int64(8), repo.lastFilter.TargetID)
	assert.Equal(t, from, repo.lastFilter.From)
	assert.Equal(t, to, repo.lastFilter.To)
}

func TestExportIsUnpaged(t *testing.T) {
	repo := &fakeRepo{records: makeRecords(30)}
	svc := NewService(repo)

	records, err := svc.Export(context.Background(), QueryFilters{Page: 5, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, records, 30)
	assert.Equal(t, 0, repo.lastFilter.Offset)
}
