// Package parquet provides data structures and functions for exporting stored
// worklogs and daily summaries to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/huangsam/worktally/schema"
	"github.com/parquet-go/parquet-go"
)

// Worklog represents one raw worklog row.
// This struct maps to the worklogs_data database table.
type Worklog struct {
	// ID is the local row identifier
	ID int64 `parquet:"id,snappy"`

	// ExternalWorklogID is the upstream identifier, unique per API version
	ExternalWorklogID string `parquet:"timedoctor_worklog_id,snappy"`

	APIVersion string `parquet:"api_version,snappy,dict"`

	IvaUserID      int64  `parquet:"iva_user_id,snappy"`
	ExternalUserID string `parquet:"timedoctor_user_id,snappy"`

	ExternalProjectID string `parquet:"timedoctor_project_id,snappy"`
	ExternalTaskID    string `parquet:"timedoctor_task_id,snappy"`

	// ProjectID is nil when the upstream project is unknown locally
	ProjectID *int64 `parquet:"project_id,optional,snappy"`

	// TaskID is nil when the upstream task could not be resolved
	TaskID *int64 `parquet:"task_id,optional,snappy"`

	WorkMode string `parquet:"work_mode,snappy,dict"`

	// StartTime and EndTime are stored as TIMESTAMP with nanosecond precision
	StartTime time.Time `parquet:"start_time,snappy"`
	EndTime   time.Time `parquet:"end_time,snappy"`

	DurationSeconds int64 `parquet:"duration,snappy"`
	IsActive        bool  `parquet:"is_active,snappy"`
}

// DailySummary represents one (user, date, category) rollup.
// This struct maps to the daily_worklog_summaries database table.
type DailySummary struct {
	IvaUserID int64 `parquet:"iva_user_id,snappy"`

	// ReportDate is the calendar date formatted as YYYY-MM-DD
	ReportDate string `parquet:"report_date,snappy"`

	// ReportCategoryID is nil for uncategorized time
	ReportCategoryID *int64 `parquet:"report_category_id,optional,snappy"`

	CategoryType         string `parquet:"category_type,snappy,dict"`
	TotalDurationSeconds int64  `parquet:"total_duration,snappy"`
	EntriesCount         int32  `parquet:"entries_count,snappy"`
}

// writeParquet writes rows of any struct type to a Parquet file at outputPath.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// The schema is derived from the struct tags of T
	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// WriteWorklogsParquet writes a slice of Worklog structs to a Parquet file.
func WriteWorklogsParquet(data []Worklog, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteDailySummariesParquet writes a slice of DailySummary structs to a Parquet file.
func WriteDailySummariesParquet(data []DailySummary, outputPath string) error {
	return writeParquet(data, outputPath)
}

// ConvertWorklogRecords converts schema.RawWorklogRow to Worklog for Parquet export.
func ConvertWorklogRecords(records []schema.RawWorklogRow) []Worklog {
	result := make([]Worklog, len(records))
	for i, record := range records {
		result[i] = Worklog{
			ID:                record.ID,
			ExternalWorklogID: record.ExternalWorklogID,
			APIVersion:        string(record.APIVersion),
			IvaUserID:         record.IvaUserID,
			ExternalUserID:    record.ExternalUserID,
			ExternalProjectID: record.ExternalProjectID,
			ExternalTaskID:    record.ExternalTaskID,
			ProjectID:         record.ProjectID,
			TaskID:            record.TaskID,
			WorkMode:          record.WorkMode,
			StartTime:         record.StartTime.UTC(),
			EndTime:           record.EndTime.UTC(),
			DurationSeconds:   record.DurationSeconds,
			IsActive:          record.IsActive,
		}
	}
	return result
}

// ConvertDailySummaryRecords converts schema.DailyWorklogSummary to DailySummary for Parquet export.
func ConvertDailySummaryRecords(records []schema.DailyWorklogSummary) []DailySummary {
	result := make([]DailySummary, len(records))
	for i, record := range records {
		result[i] = DailySummary{
			IvaUserID:            record.IvaUserID,
			ReportDate:           record.ReportDate.Format(schema.DateLayout),
			ReportCategoryID:     record.ReportCategoryID,
			CategoryType:         string(record.CategoryType),
			TotalDurationSeconds: record.TotalDurationSeconds,
			EntriesCount:         int32(record.EntriesCount),
		}
	}
	return result
}

// Source is the read side of the store needed for an export.
type Source interface {
	ListWorklogs(ctx context.Context, filter schema.WorklogFilter) ([]schema.RawWorklogRow, error)
	ListDailySummaries(ctx context.Context, start, end time.Time) ([]schema.DailyWorklogSummary, error)
}

// ExportResult names the files an export produced.
type ExportResult struct {
	WorklogsFile   string
	WorklogCount   int
	SummariesFile  string
	SummariesCount int
}

// Export writes the worklogs and daily summaries of [start, end] to two Parquet files
// named after outputFile. Worklogs are selected by start time, inclusive of the end date.
func Export(ctx context.Context, src Source, start, end time.Time, outputFile string) (ExportResult, error) {
	if outputFile == "" {
		return ExportResult{}, errors.New("--output-file is required for export command")
	}

	worklogs, err := src.ListWorklogs(ctx, schema.WorklogFilter{Start: start, End: schema.AddDays(end, 1)})
	if err != nil {
		return ExportResult{}, fmt.Errorf("failed to retrieve worklogs: %w", err)
	}
	summaries, err := src.ListDailySummaries(ctx, start, end)
	if err != nil {
		return ExportResult{}, fmt.Errorf("failed to retrieve daily summaries: %w", err)
	}
	if len(worklogs) == 0 && len(summaries) == 0 {
		return ExportResult{}, errors.New("no worklog data found to export")
	}

	result := ExportResult{
		WorklogsFile:   outputFile + ".worklogs.parquet",
		WorklogCount:   len(worklogs),
		SummariesFile:  outputFile + ".daily_summaries.parquet",
		SummariesCount: len(summaries),
	}
	if err := WriteWorklogsParquet(ConvertWorklogRecords(worklogs), result.WorklogsFile); err != nil {
		return ExportResult{}, fmt.Errorf("failed to write worklogs: %w", err)
	}
	if err := WriteDailySummariesParquet(ConvertDailySummaryRecords(summaries), result.SummariesFile); err != nil {
		return ExportResult{}, fmt.Errorf("failed to write daily summaries: %w", err)
	}
	return result, nil
}
