package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/huangsam/worktally/core/summary"
	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/internal/datastore"
	"github.com/huangsam/worktally/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day1 = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

type fetchCall struct {
	user   string
	day    string
	offset int
	limit  int
}

// fakeSource serves canned worklogs keyed by upstream user and date.
type fakeSource struct {
	items map[string][]schema.UpstreamWorklog
	fail  map[string]error
	calls []fetchCall

	ignoreOffset bool // serve the first page for every offset
}

func newFakeSource() *fakeSource {
	return &fakeSource{items: map[string][]schema.UpstreamWorklog{}, fail: map[string]error{}}
}

func (f *fakeSource) add(user string, d time.Time, items ...schema.UpstreamWorklog) {
	key := user + "/" + d.Format(schema.DateLayout)
	f.items[key] = append(f.items[key], items...)
}

func (f *fakeSource) APIVersion() schema.APIVersion { return schema.APIv1 }

func (f *fakeSource) GetUserWorklogs(_ context.Context, user string, dayStart, _ time.Time, offset, limit int) ([]schema.UpstreamWorklog, error) {
	d := dayStart.Format(schema.DateLayout)
	f.calls = append(f.calls, fetchCall{user: user, day: d, offset: offset, limit: limit})
	if err := f.fail[user]; err != nil {
		return nil, err
	}
	all := f.items[user+"/"+d]
	if f.ignoreOffset {
		offset = 0
	}
	if offset >= len(all) {
		return nil, nil
	}
	return all[offset:min(offset+limit, len(all))], nil
}

func item(id string, start time.Time, minutes int) schema.UpstreamWorklog {
	return schema.UpstreamWorklog{
		ID:              id,
		StartTime:       start,
		EndTime:         start.Add(time.Duration(minutes) * time.Minute),
		DurationSeconds: int64(minutes * 60),
		WorkMode:        "0",
	}
}

type fixture struct {
	store   *datastore.SQLStore
	source  *fakeSource
	service *Service
	sleeps  []time.Duration
	users   []schema.IvaUser
}

func newFixture(t *testing.T, pageSize int) *fixture {
	t.Helper()
	ctx := context.Background()
	store, err := datastore.NewStore(schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	f := &fixture{store: store, source: newFakeSource()}
	for _, u := range []schema.IvaUser{
		{FullName: "Ada", ExternalUserIDv1: "td-1", IsActive: true},
		{FullName: "Grace", ExternalUserIDv1: "td-2", IsActive: true},
		{FullName: "Linus", ExternalUserIDv2: "v2-only", IsActive: true},
	} {
		id, err := store.CreateUser(ctx, u)
		require.NoError(t, err)
		u.ID = id
		f.users = append(f.users, u)
	}

	cfg := contract.SyncConfig{PageSize: pageSize, PageDelay: 200 * time.Millisecond, MaxRangeDays: 31}
	f.service = NewService(cfg, time.UTC, f.source, store, summary.NewAggregator(store, time.UTC, 2))
	f.service.sleep = func(_ context.Context, d time.Duration) error {
		f.sleeps = append(f.sleeps, d)
		return nil
	}
	f.service.newRunID = func() string { return "run-test" }
	return f
}

func (f *fixture) worklogCount(t *testing.T) int {
	t.Helper()
	rows, err := f.store.ListWorklogs(context.Background(), schema.WorklogFilter{})
	require.NoError(t, err)
	return len(rows)
}

func TestSyncDayPaginatesAndResolves(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)

	projectID, err := f.store.CreateProject(ctx, schema.Project{ExternalProjectID: "p-1", APIVersion: schema.APIv1, Name: "Ops"})
	require.NoError(t, err)
	knownTask, err := f.store.CreateTask(ctx, schema.Task{Name: "Calls", Associations: []schema.TaskAssociation{{TaskID: "t-1", APIVersion: "v1"}}})
	require.NoError(t, err)
	namedTask, err := f.store.CreateTask(ctx, schema.Task{Name: "Email triage"})
	require.NoError(t, err)

	at := day1.Add(9 * time.Hour)
	a := item("a", at, 60)
	a.ProjectID, a.TaskID = "p-1", "t-1"
	b := item("b", at.Add(time.Hour), 30)
	b.TaskID, b.TaskName = "t-2", "Email triage"
	bad := schema.UpstreamWorklog{ID: "bad", StartTime: at}
	c := item("c", at.Add(2*time.Hour), 15)
	c.ProjectID, c.TaskID, c.TaskName = "p-404", "t-404", "Nobody"
	f.source.add("td-1", day1, a, b, bad, a, c)

	res, err := f.service.SyncDay(ctx, f.users, day1)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Users)
	assert.Equal(t, 3, res.Inserted)
	assert.Equal(t, 0, res.Updated)
	assert.Equal(t, 1, res.Errors)
	assert.Equal(t, 3, res.TotalProcessed)
	assert.Empty(t, res.UserFailures)
	assert.Equal(t, []int64{f.users[0].ID, f.users[1].ID}, res.SyncedUserIDs)

	var offsets []int
	for _, c := range f.source.calls {
		if c.user == "td-1" {
			offsets = append(offsets, c.offset)
			assert.Equal(t, 2, c.limit)
		}
	}
	assert.Equal(t, []int{0, 2, 4}, offsets)
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 200 * time.Millisecond}, f.sleeps)

	rows, err := f.store.ListWorklogs(ctx, schema.WorklogFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	byID := map[string]schema.RawWorklogRow{}
	for _, r := range rows {
		byID[r.ExternalWorklogID] = r
	}
	require.NotNil(t, byID["a"].ProjectID)
	assert.Equal(t, projectID, *byID["a"].ProjectID)
	assert.Equal(t, knownTask, *byID["a"].TaskID)
	require.NotNil(t, byID["b"].TaskID)
	assert.Equal(t, namedTask, *byID["b"].TaskID)
	assert.Nil(t, byID["c"].ProjectID)
	assert.Nil(t, byID["c"].TaskID)
	assert.Equal(t, "td-1", byID["c"].ExternalUserID)
	assert.True(t, byID["c"].IsActive)

	// The claimed name now resolves through its association.
	claimed, err := f.service.ResolveTask(ctx, "t-2", "")
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, namedTask, *claimed)
}

func TestSyncDayIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 250)
	at := day1.Add(8 * time.Hour)
	f.source.add("td-1", day1, item("a", at, 10), item("b", at.Add(time.Hour), 20))
	f.source.add("td-2", day1, item("c", at, 30))

	first, err := f.service.SyncDay(ctx, f.users, day1)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Inserted)
	countAfterFirst := f.worklogCount(t)

	second, err := f.service.SyncDay(ctx, f.users, day1)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 3, second.Updated)
	assert.Equal(t, countAfterFirst, f.worklogCount(t))
}

func TestSyncDayStopsWhenOffsetIsIgnored(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2)
	f.source.ignoreOffset = true
	at := day1.Add(8 * time.Hour)
	f.source.add("td-1", day1, item("a", at, 10), item("b", at.Add(time.Hour), 20))

	res, err := f.service.SyncDay(ctx, f.users[:1], day1)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	assert.Empty(t, res.UserFailures)
	assert.Equal(t, 2, f.worklogCount(t))

	// The second page repeats the first, so paging ends there.
	require.Len(t, f.source.calls, 2)
	assert.Equal(t, 2, f.source.calls[1].offset)
}

func TestSyncDayIsolatesUserFailures(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 250)
	f.source.add("td-2", day1, item("c", day1.Add(time.Hour), 30))
	f.source.fail["td-1"] = fmt.Errorf("%w: upstream HTTP 503", contract.ErrUpstreamTransient)

	res, err := f.service.SyncDay(ctx, f.users, day1)
	require.NoError(t, err)
	require.Len(t, res.UserFailures, 1)
	assert.Equal(t, f.users[0].ID, res.UserFailures[0].UserID)
	assert.Contains(t, res.UserFailures[0].Error, "503")
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, []int64{f.users[1].ID}, res.SyncedUserIDs)
}

func TestSyncRangeValidatesRange(t *testing.T) {
	f := newFixture(t, 250)
	_, err := f.service.SyncRange(context.Background(), day1, day1.AddDate(0, 0, 31), SyncOptions{})
	assert.ErrorIs(t, err, contract.ErrValidation)

	_, err = f.service.SyncRange(context.Background(), day1, day1.AddDate(0, 0, -1), SyncOptions{})
	assert.ErrorIs(t, err, contract.ErrValidation)
	assert.Empty(t, f.source.calls)
}

func TestSyncRangeResumesAndRecordsStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 250)
	day2, day3 := day1.AddDate(0, 0, 1), day1.AddDate(0, 0, 2)
	f.source.add("td-1", day1, item("a", day1.Add(9*time.Hour), 60))
	f.source.add("td-1", day2, item("b", day2.Add(9*time.Hour), 60))
	f.source.add("td-1", day3, item("c", day3.Add(9*time.Hour), 60))

	require.NoError(t, f.store.SaveSyncDay(ctx, schema.SyncDayMeta{SyncDate: day2, APIVersion: schema.APIv1, Status: schema.SyncCompleted, RunID: "earlier", TotalUsers: 2}))

	res, err := f.service.SyncRange(ctx, day1, day3, SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, "run-test", res.RunID)
	require.Len(t, res.Days, 3)
	assert.False(t, res.Days[0].Skipped)
	assert.True(t, res.Days[1].Skipped)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 2, res.Inserted)
	assert.Zero(t, res.Failed)

	for _, d := range []time.Time{day1, day3} {
		meta, err := f.store.GetSyncDay(ctx, d, schema.APIv1)
		require.NoError(t, err)
		require.NotNil(t, meta)
		assert.Equal(t, schema.SyncCompleted, meta.Status)
		assert.Equal(t, "run-test", meta.RunID)
		assert.Equal(t, 1, meta.Inserted)
		assert.NotNil(t, meta.CompletedAt)
	}

	// A second run has nothing left to do.
	res, err = f.service.SyncRange(ctx, day1, day3, SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Skipped)

	// Forcing re-syncs every day as updates.
	res, err = f.service.SyncRange(ctx, day1, day3, SyncOptions{Force: true})
	require.NoError(t, err)
	assert.Zero(t, res.Skipped)
	assert.Equal(t, 3, res.Updated)
}

func TestSyncRangeMarksFailedDays(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 250)
	f.source.fail["td-2"] = errors.New("connection reset")

	res, err := f.service.SyncRange(ctx, day1, day1, SyncOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2024-01-15")
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, schema.SyncFailed, res.Days[0].Status)

	meta, err := f.store.GetSyncDay(ctx, day1, schema.APIv1)
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, schema.SyncFailed, meta.Status)
	assert.Contains(t, meta.ErrorMessage, "1 of 2 users failed")

	// Failed days are retried on the next run.
	delete(f.source.fail, "td-2")
	res, err = f.service.SyncRange(ctx, day1, day1, SyncOptions{})
	require.NoError(t, err)
	assert.Zero(t, res.Skipped)
	assert.Equal(t, schema.SyncCompleted, res.Days[0].Status)
}

func TestSyncRangeDryRunWritesNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 250)
	at := day1.Add(9 * time.Hour)
	f.source.add("td-1", day1, item("a", at, 60), item("b", at.Add(time.Hour), 60))

	res, err := f.service.SyncRange(ctx, day1, day1, SyncOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Equal(t, 2, res.Inserted)
	assert.Zero(t, f.worklogCount(t))
	meta, err := f.store.GetSyncDay(ctx, day1, schema.APIv1)
	require.NoError(t, err)
	assert.Nil(t, meta)

	_, err = f.service.SyncDay(ctx, f.users, day1)
	require.NoError(t, err)
	f.source.add("td-1", day1, item("c", at.Add(2*time.Hour), 60))

	res, err = f.service.SyncRange(ctx, day1, day1, SyncOptions{DryRun: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, 2, f.worklogCount(t))
}

func TestSyncRangeRecomputesSummaries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 250)
	at := day1.Add(9 * time.Hour)
	f.source.add("td-1", day1, item("a", at, 60), item("b", at.Add(time.Hour), 30))

	_, err := f.service.SyncRange(ctx, day1, day1, SyncOptions{RecomputeSummaries: true})
	require.NoError(t, err)

	summaries, err := f.store.ListDailySummaries(ctx, day1, day1)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, f.users[0].ID, summaries[0].IvaUserID)
	assert.Equal(t, schema.Uncategorized, summaries[0].CategoryType)
	assert.Equal(t, int64(90*60), summaries[0].TotalDurationSeconds)
	assert.Equal(t, 2, summaries[0].EntriesCount)
}

func TestSyncDayStopsOnCanceledContext(t *testing.T) {
	f := newFixture(t, 250)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.service.SyncDay(ctx, f.users, day1)
	assert.ErrorIs(t, err, context.Canceled)
}
