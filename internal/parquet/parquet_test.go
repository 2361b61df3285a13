package parquet

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/worktally/schema"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Ptr(v int64) *int64 { return &v }

func sampleWorklogs() []schema.RawWorklogRow {
	start := time.Date(2024, 1, 15, 9, 0, 0, 123, time.UTC)
	return []schema.RawWorklogRow{
		{
			ID: 1, ExternalWorklogID: "w-1", APIVersion: schema.APIv1, IvaUserID: 7, ExternalUserID: "u-7",
			ExternalProjectID: "p-1", ExternalTaskID: "t-1", ProjectID: int64Ptr(3), TaskID: int64Ptr(4),
			WorkMode: "0", StartTime: start, EndTime: start.Add(time.Hour), DurationSeconds: 3600, IsActive: true,
		},
		{
			ID: 2, ExternalWorklogID: "w-2", APIVersion: schema.APIv1, IvaUserID: 7, ExternalUserID: "u-7",
			WorkMode: "0", StartTime: start.Add(2 * time.Hour), EndTime: start.Add(150 * time.Minute), DurationSeconds: 1800,
		},
	}
}

func sampleSummaries() []schema.DailyWorklogSummary {
	return []schema.DailyWorklogSummary{
		{IvaUserID: 7, ReportDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), CategoryType: schema.Uncategorized, TotalDurationSeconds: 1800, EntriesCount: 1},
		{IvaUserID: 7, ReportDate: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), ReportCategoryID: int64Ptr(2), CategoryType: schema.Billable, TotalDurationSeconds: 3600, EntriesCount: 1},
	}
}

func readAll[T any](t *testing.T, path string) []T {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[T](file)
	defer func() { _ = reader.Close() }()

	out := make([]T, reader.NumRows())
	n, err := reader.Read(out)
	if err != nil && err != io.EOF {
		require.NoError(t, err)
	}
	return out[:n]
}

func TestStructTags(t *testing.T) {
	tests := []struct {
		name    string
		model   any
		columns []string
	}{
		{"worklog", new(Worklog), []string{"id", "timedoctor_worklog_id", "api_version", "iva_user_id", "project_id", "task_id", "start_time", "end_time", "duration", "is_active"}},
		{"summary", new(DailySummary), []string{"iva_user_id", "report_date", "report_category_id", "category_type", "total_duration", "entries_count"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := parquet.SchemaOf(tt.model)
			for _, col := range tt.columns {
				_, ok := s.Lookup(col)
				assert.True(t, ok, "column %s should exist", col)
			}
		})
	}
}

func TestWriteWorklogsParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worklogs.parquet")
	data := ConvertWorklogRecords(sampleWorklogs())
	require.NoError(t, WriteWorklogsParquet(data, path))

	got := readAll[Worklog](t, path)
	require.Len(t, got, 2)
	assert.Equal(t, "w-1", got[0].ExternalWorklogID)
	require.NotNil(t, got[0].TaskID)
	assert.Equal(t, int64(4), *got[0].TaskID)
	assert.Nil(t, got[1].ProjectID)
	assert.Nil(t, got[1].TaskID)
	assert.WithinDuration(t, data[0].StartTime, got[0].StartTime, time.Nanosecond)
	assert.True(t, got[0].IsActive)
	assert.False(t, got[1].IsActive)
}

func TestWriteDailySummariesParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summaries.parquet")
	require.NoError(t, WriteDailySummariesParquet(ConvertDailySummaryRecords(sampleSummaries()), path))

	got := readAll[DailySummary](t, path)
	require.Len(t, got, 2)
	assert.Equal(t, "2024-01-15", got[0].ReportDate)
	assert.Nil(t, got[0].ReportCategoryID)
	assert.Equal(t, "billable", got[1].CategoryType)
	assert.Equal(t, int32(1), got[1].EntriesCount)
}

func TestWriteParquetEmptyAndInvalidPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.parquet")
	require.NoError(t, WriteDailySummariesParquet([]DailySummary{}, path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0), "file should contain the schema even if empty")

	assert.Error(t, WriteWorklogsParquet(nil, "/nonexistent/directory/output.parquet"))
}

type fakeSource struct {
	worklogs  []schema.RawWorklogRow
	summaries []schema.DailyWorklogSummary
	filter    schema.WorklogFilter
}

func (f *fakeSource) ListWorklogs(_ context.Context, filter schema.WorklogFilter) ([]schema.RawWorklogRow, error) {
	f.filter = filter
	return f.worklogs, nil
}

func (f *fakeSource) ListDailySummaries(context.Context, time.Time, time.Time) ([]schema.DailyWorklogSummary, error) {
	return f.summaries, nil
}

func TestExport(t *testing.T) {
	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 21, 0, 0, 0, 0, time.UTC)

	t.Run("writes both files", func(t *testing.T) {
		src := &fakeSource{worklogs: sampleWorklogs(), summaries: sampleSummaries()}
		base := filepath.Join(t.TempDir(), "export")
		res, err := Export(context.Background(), src, start, end, base)
		require.NoError(t, err)

		assert.Equal(t, base+".worklogs.parquet", res.WorklogsFile)
		assert.Equal(t, 2, res.WorklogCount)
		assert.Equal(t, 2, res.SummariesCount)
		assert.Equal(t, end.AddDate(0, 0, 1), src.filter.End)
		assert.Len(t, readAll[Worklog](t, res.WorklogsFile), 2)
		assert.Len(t, readAll[DailySummary](t, res.SummariesFile), 2)
	})

	t.Run("requires output file", func(t *testing.T) {
		_, err := Export(context.Background(), &fakeSource{}, start, end, "")
		assert.Error(t, err)
	})

	t.Run("nothing to export", func(t *testing.T) {
		_, err := Export(context.Background(), &fakeSource{}, start, end, filepath.Join(t.TempDir(), "x"))
		assert.ErrorContains(t, err, "no worklog data")
	})
}
