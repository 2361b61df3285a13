package outwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	d, _ := schema.ParseDate(s)
	return d
}

func textConfig() *contract.Config {
	return &contract.Config{Output: schema.TextOut, Precision: 2, Width: 160}
}

func samplePerformance() []schema.PerformanceResponse {
	return []schema.PerformanceResponse{
		{
			Success:   true,
			UserID:    7,
			FullName:  "Jordan Lee",
			StartDate: date("2024-01-15"),
			EndDate:   date("2024-01-21"),
			Results: []schema.PerformanceResult{
				{CombinationIndex: 0, Label: "Default", TargetHours: 35, ActualHours: 30, Percentage: 85.71, ActualVsTarget: -5, Status: schema.StatusBelow, StatusLabel: "Below target"},
			},
		},
		{Success: false, UserID: 9, StartDate: date("2024-01-15"), EndDate: date("2024-01-21"), Error: "user not found"},
	}
}

func TestWriteCSVPerformance(t *testing.T) {
	fmtFloat, _ := createFormatters(2)
	var buf bytes.Buffer
	require.NoError(t, writeCSVPerformance(&buf, samplePerformance(), fmtFloat))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "iva_user_id", records[0][0])
	assert.Equal(t, []string{"7", "Jordan Lee", "2024-01-15", "2024-01-21", "0", "Default", "35.00", "30.00", "85.71", "-5.00", "BELOW", ""}, records[1])
	assert.Equal(t, "9", records[2][0])
	assert.Equal(t, "user not found", records[2][len(records[2])-1])
}

func TestPrintPerformanceTable(t *testing.T) {
	fmtFloat, _ := createFormatters(2)
	var buf bytes.Buffer
	require.NoError(t, printPerformanceTable(&buf, samplePerformance(), textConfig(), fmtFloat))

	out := buf.String()
	assert.Contains(t, out, "Jordan Lee")
	assert.Contains(t, out, "85.71")
	assert.Contains(t, out, "Below target")
	assert.Contains(t, out, "user not found")
	assert.Contains(t, out, "Evaluated 2 users (1 failed)")
}

func sampleTargets() []schema.TargetHoursResult {
	override := int64(4)
	return []schema.TargetHoursResult{{
		Success: true,
		UserID:  7,
		TargetCalculations: []schema.TargetCalculation{{
			CombinationIndex: 1,
			Label:            "Override #4",
			OverrideIDs:      []int64{4},
			TargetTotalHours: 30,
			TotalDays:        7,
			Breakdown: []schema.TargetPeriodBreakdown{{
				StartDate:    date("2024-01-15"),
				EndDate:      date("2024-01-21"),
				Days:         7,
				WorkStatus:   schema.FullTime,
				HoursPerWeek: 30,
				Source:       schema.OverrideSetting,
				OverrideID:   &override,
				TargetHours:  30,
			}},
		}},
		Truncated: true,
	}}
}

func TestWriteCSVTargets(t *testing.T) {
	fmtFloat, _ := createFormatters(1)
	var buf bytes.Buffer
	require.NoError(t, writeCSVTargets(&buf, sampleTargets(), fmtFloat))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"7", "1", "Override #4", "2024-01-15", "2024-01-21", "7", "full-time", "30.0", "override", "#4", "30.0", "30.0"}, records[1])
}

func TestPrintTargetTable(t *testing.T) {
	fmtFloat, _ := createFormatters(2)
	var buf bytes.Buffer
	require.NoError(t, printTargetTable(&buf, sampleTargets(), textConfig(), fmtFloat))

	out := buf.String()
	assert.Contains(t, out, "2024-01-15..2024-01-21")
	assert.Contains(t, out, "override #4")
	assert.Contains(t, out, "total")
	assert.Contains(t, out, "more combinations omitted")
}

func TestSyncOutputs(t *testing.T) {
	result := schema.SyncRangeResult{
		RunID:      "run-1",
		APIVersion: schema.APIv1,
		DryRun:     true,
		Days: []schema.SyncDayReport{
			{SyncDayResult: schema.SyncDayResult{Date: date("2024-01-15"), Users: 2, Inserted: 3}, Status: schema.SyncCompleted},
			{SyncDayResult: schema.SyncDayResult{Date: date("2024-01-16")}, Status: schema.SyncCompleted, Skipped: true},
		},
		Inserted: 3,
		Skipped:  1,
	}

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeCSVSyncDays(&buf, result))
		records, err := csv.NewReader(&buf).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "2024-01-15", records[1][0])
		assert.Equal(t, "true", records[2][2])
	})

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, printSyncTable(&buf, result, textConfig()))
		out := buf.String()
		assert.Contains(t, out, "completed (skipped)")
		assert.Contains(t, out, "Run run-1 (v1): 3 inserted")
		assert.Contains(t, out, "dry run")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeJSON(&buf, result))
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, "run-1", decoded["run_id"])
		assert.Len(t, decoded["days"], 2)
	})
}

func TestSyncMetaTable(t *testing.T) {
	days := []schema.SyncDayMeta{{SyncDate: date("2024-01-15"), APIVersion: schema.APIv2, Status: schema.SyncFailed, RunID: "run-9", TotalUsers: 4, Errors: 1}}
	var buf bytes.Buffer
	require.NoError(t, printSyncMetaTable(&buf, days, textConfig()))
	assert.Contains(t, buf.String(), "failed")
	assert.Contains(t, buf.String(), "run-9")

	buf.Reset()
	require.NoError(t, writeCSVSyncMeta(&buf, days))
	assert.True(t, strings.HasPrefix(buf.String(), "sync_date,api_version,status"))
}

func TestCalendarOutputs(t *testing.T) {
	weeks := []schema.WeekPeriod{
		{WeekNumber: 1, Year: 2024, StartDate: date("2024-01-15"), EndDate: date("2024-01-21"), Label: "Week 1 (2024-01-15 - 2024-01-21)"},
		{WeekNumber: 2, Year: 2024, StartDate: date("2024-01-22"), EndDate: date("2024-01-28"), Label: "Week 2 (2024-01-22 - 2024-01-28)"},
	}

	var buf bytes.Buffer
	require.NoError(t, writeCSVWeeks(&buf, weeks))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"2024", "2", "2024-01-22", "2024-01-28", "Week 2 (2024-01-22 - 2024-01-28)"}, records[2])

	months := []schema.MonthPeriod{{Value: 1, Title: "Month 1", StartDate: date("2024-01-15"), EndDate: date("2024-02-11")}}
	buf.Reset()
	require.NoError(t, renderTable(&buf, []string{"Month", "Title", "Start", "End"}, monthRows(months)))
	assert.Contains(t, buf.String(), "Month 1")
	assert.Contains(t, buf.String(), "2024-02-11")
}

func TestSummaryOutputs(t *testing.T) {
	cat := int64(3)
	rows := []schema.DailyWorklogSummary{
		{IvaUserID: 7, ReportDate: date("2024-01-15"), CategoryType: schema.Uncategorized, TotalDurationSeconds: 1800, EntriesCount: 1},
		{IvaUserID: 7, ReportDate: date("2024-01-15"), ReportCategoryID: &cat, CategoryType: schema.Billable, TotalDurationSeconds: 5400, EntriesCount: 2},
	}
	fmtFloat, intFmt := createFormatters(2)

	var buf bytes.Buffer
	require.NoError(t, printSummaryTable(&buf, rows, fmtFloat, intFmt))
	out := buf.String()
	assert.Contains(t, out, "1.50")
	assert.Contains(t, out, "uncategorized")
	assert.Contains(t, out, "Showing 2 summary rows (2.00 hours total)")

	buf.Reset()
	require.NoError(t, writeCSVSummaries(&buf, rows))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, "", records[1][2])
	assert.Equal(t, "3", records[2][2])
}

func TestGetMaxTableLabelWidth(t *testing.T) {
	assert.Equal(t, 60, GetMaxTableLabelWidth(&contract.Config{Width: 300}, 60))
	assert.Equal(t, 12, GetMaxTableLabelWidth(&contract.Config{Width: 40}, 60))
	assert.Equal(t, 20, GetMaxTableLabelWidth(&contract.Config{Width: 100}, 60))
}

func TestWriteWithFile(t *testing.T) {
	path := t.TempDir() + "/weeks.json"
	err := writeWithFile(path, func(w io.Writer) error {
		return writeJSON(w, map[string]int{"weeks": 2})
	}, "Wrote JSON")
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"weeks": 2}`, string(raw))
}
