package summary

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/internal/datastore"
	"github.com/huangsam/worktally/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

func TestSummarize(t *testing.T) {
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	rows := []schema.WorklogCategoryRow{
		{WorklogID: 1, TaskID: ptr(10), CategoryID: ptr(7), CategoryType: "billable", DurationSeconds: 3600},
		// Worklog 2 maps to two categories and is counted under the lower id only.
		{WorklogID: 2, TaskID: ptr(11), CategoryID: ptr(9), CategoryType: "non-billable", DurationSeconds: 1800},
		{WorklogID: 2, TaskID: ptr(11), CategoryID: ptr(7), CategoryType: "billable", DurationSeconds: 1800},
		{WorklogID: 3, TaskID: ptr(12), DurationSeconds: 600},
		{WorklogID: 4, DurationSeconds: 300},
		{WorklogID: 5, TaskID: ptr(13), CategoryID: ptr(9), CategoryType: "non-billable", DurationSeconds: 60},
	}

	out := Summarize(42, day, rows)
	require.Len(t, out, 3)

	assert.Nil(t, out[0].ReportCategoryID)
	assert.Equal(t, schema.Uncategorized, out[0].CategoryType)
	assert.Equal(t, int64(900), out[0].TotalDurationSeconds)
	assert.Equal(t, 2, out[0].EntriesCount)

	require.NotNil(t, out[1].ReportCategoryID)
	assert.Equal(t, int64(7), *out[1].ReportCategoryID)
	assert.Equal(t, schema.Billable, out[1].CategoryType)
	assert.Equal(t, int64(5400), out[1].TotalDurationSeconds)
	assert.Equal(t, 2, out[1].EntriesCount)

	assert.Equal(t, int64(9), *out[2].ReportCategoryID)
	assert.Equal(t, int64(60), out[2].TotalDurationSeconds)

	var total int64
	for _, s := range out {
		assert.Equal(t, int64(42), s.IvaUserID)
		assert.Equal(t, day, s.ReportDate)
		total += s.TotalDurationSeconds
	}
	assert.Equal(t, int64(3600+1800+600+300+60), total)
}

func TestSummarizeEmptyDay(t *testing.T) {
	assert.Empty(t, Summarize(1, time.Now(), nil))
}

type seeded struct {
	store    *datastore.SQLStore
	single   int64
	mixed    int64
	unmapped int64
}

func seedStore(t *testing.T) seeded {
	t.Helper()
	ctx := context.Background()
	store, err := datastore.NewStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	billable, err := store.CreateReportCategory(ctx, schema.ReportCategory{Name: "Client", Type: schema.Billable})
	require.NoError(t, err)
	internal, err := store.CreateReportCategory(ctx, schema.ReportCategory{Name: "Internal", Type: schema.NonBillable})
	require.NoError(t, err)

	single, err := store.CreateTask(ctx, schema.Task{Name: "Calls"})
	require.NoError(t, err)
	require.NoError(t, store.LinkTaskCategory(ctx, single, billable))
	both, err := store.CreateTask(ctx, schema.Task{Name: "Mixed"})
	require.NoError(t, err)
	require.NoError(t, store.LinkTaskCategory(ctx, both, billable))
	require.NoError(t, store.LinkTaskCategory(ctx, both, internal))
	unmapped, err := store.CreateTask(ctx, schema.Task{Name: "Unmapped"})
	require.NoError(t, err)

	return seeded{store: store, single: single, mixed: both, unmapped: unmapped}
}

func worklog(id string, start time.Time, seconds int64, taskID *int64, active bool) schema.RawWorklogRow {
	return schema.RawWorklogRow{
		ExternalWorklogID: id,
		APIVersion:        schema.APIv1,
		IvaUserID:         1,
		ExternalUserID:    "td-1",
		TaskID:            taskID,
		StartTime:         start,
		EndTime:           start.Add(time.Duration(seconds) * time.Second),
		DurationSeconds:   seconds,
		IsActive:          active,
	}
}

func activeTotal(t *testing.T, store contract.WorklogStore, start, end time.Time) int64 {
	t.Helper()
	userID := int64(1)
	rows, err := store.ListWorklogs(context.Background(), schema.WorklogFilter{UserID: &userID, Start: start, End: end, ActiveOnly: true})
	require.NoError(t, err)
	var total int64
	for _, r := range rows {
		total += r.DurationSeconds
	}
	return total
}

func summaryTotal(t *testing.T, store contract.SummaryStore, day time.Time) (int64, int) {
	t.Helper()
	rows, err := store.ListDailySummaries(context.Background(), day, day)
	require.NoError(t, err)
	var total int64
	entries := 0
	for _, r := range rows {
		total += r.TotalDurationSeconds
		entries += r.EntriesCount
	}
	return total, entries
}

func TestRecomputeDayMatchesRawWorklogs(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	at := day.Add(9 * time.Hour)

	rows := []schema.RawWorklogRow{
		worklog("w-1", at, 3600, &s.single, true),
		worklog("w-2", at.Add(time.Hour), 1800, &s.mixed, true),
		worklog("w-3", at.Add(2*time.Hour), 600, &s.unmapped, true),
		worklog("w-4", at.Add(3*time.Hour), 300, nil, true),
		worklog("w-5", at.Add(4*time.Hour), 999, &s.single, false),
		worklog("w-6", day.Add(24*time.Hour), 100, &s.single, true),
	}
	_, _, err := s.store.UpsertWorklogs(ctx, rows)
	require.NoError(t, err)

	agg := NewAggregator(s.store, time.UTC, 2)
	require.NoError(t, agg.RecomputeDay(ctx, 1, day))

	total, entries := summaryTotal(t, s.store, day)
	assert.Equal(t, activeTotal(t, s.store, day, day.Add(schema.Day)), total)
	assert.Equal(t, int64(6300), total)
	assert.Equal(t, 4, entries)

	billable, err := s.store.SumBillableSeconds(ctx, 1, day, day)
	require.NoError(t, err)
	assert.Equal(t, int64(5400), billable)

	// Edits followed by a recompute keep the totals consistent.
	rows[0].DurationSeconds = 1200
	rows[3].IsActive = false
	_, _, err = s.store.UpsertWorklogs(ctx, rows)
	require.NoError(t, err)
	require.NoError(t, agg.RecomputeDay(ctx, 1, day.Add(15*time.Hour)))

	total, entries = summaryTotal(t, s.store, day)
	assert.Equal(t, activeTotal(t, s.store, day, day.Add(schema.Day)), total)
	assert.Equal(t, int64(3600), total)
	assert.Equal(t, 3, entries)
}

func TestRecomputeDayUsesConfiguredTimezone(t *testing.T) {
	ctx := context.Background()
	s := seedStore(t)
	loc := time.FixedZone("UTC-5", -5*3600)
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	// 03:00 UTC on the 16th is still the 15th five hours west.
	late := worklog("w-1", time.Date(2024, 1, 16, 3, 0, 0, 0, time.UTC), 600, nil, true)
	early := worklog("w-2", time.Date(2024, 1, 15, 2, 0, 0, 0, time.UTC), 60, nil, true)
	_, _, err := s.store.UpsertWorklogs(ctx, []schema.RawWorklogRow{late, early})
	require.NoError(t, err)

	require.NoError(t, NewAggregator(s.store, loc, 1).RecomputeDay(ctx, 1, day))
	total, entries := summaryTotal(t, s.store, day)
	assert.Equal(t, int64(600), total)
	assert.Equal(t, 1, entries)
}

func TestRecomputeRangeCollectsFailures(t *testing.T) {
	store := &datastore.MockStore{}
	boom := errors.New("disk full")
	store.On("ReplaceDailySummaries", mock.Anything, int64(1), mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	store.On("ReplaceDailySummaries", mock.Anything, int64(2), mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.Join(contract.ErrPersistence, boom))

	agg := NewAggregator(store, time.UTC, 3)
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	done, err := agg.RecomputeRange(context.Background(), []int64{1, 2}, start, start.AddDate(0, 0, 2))
	assert.Equal(t, 3, done)
	require.Error(t, err)
	assert.ErrorIs(t, err, contract.ErrPersistence)
	assert.ErrorContains(t, err, "user 2")
	store.AssertNumberOfCalls(t, "ReplaceDailySummaries", 6)
}

func TestRecomputeRangeRejectsInvertedRange(t *testing.T) {
	agg := NewAggregator(&datastore.MockStore{}, nil, 1)
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	_, err := agg.RecomputeRange(context.Background(), []int64{1}, start, start.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, contract.ErrValidation)
}

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	var k keyedMutex
	var active, maxActive atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Go(func() {
			unlock := k.lock("1/2024-01-15")
			n := active.Add(1)
			for {
				m := maxActive.Load()
				if n <= m || maxActive.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			active.Add(-1)
			unlock()
		})
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxActive.Load())
	assert.Empty(t, k.locks)
}
