// Package outwriter has output and writer logic.
package outwriter

import (
	"os"

	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/schema"
	"golang.org/x/term"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the commands.
type OutWriter struct{}

// NewOutWriter creates a new instance of the output writer.
func NewOutWriter() *OutWriter {
	return &OutWriter{}
}

// WritePerformance prints performance envelopes using the configured output format.
func (ow *OutWriter) WritePerformance(results []schema.PerformanceResponse, cfg *contract.Config) error {
	return PrintPerformanceResults(results, cfg)
}

// WriteTargets prints target-hours envelopes using the configured output format.
func (ow *OutWriter) WriteTargets(results []schema.TargetHoursResult, cfg *contract.Config) error {
	return PrintTargetResults(results, cfg)
}

// WriteSync prints a sync run using the configured output format.
func (ow *OutWriter) WriteSync(result schema.SyncRangeResult, cfg *contract.Config) error {
	return PrintSyncResult(result, cfg)
}

// WriteWeeks prints reporting weeks using the configured output format.
func (ow *OutWriter) WriteWeeks(weeks []schema.WeekPeriod, cfg *contract.Config) error {
	return PrintWeeks(weeks, cfg)
}

// WriteMonths prints reporting months using the configured output format.
func (ow *OutWriter) WriteMonths(months []schema.MonthPeriod, cfg *contract.Config) error {
	return PrintMonths(months, cfg)
}

// WriteSummaries prints daily summaries using the configured output format.
func (ow *OutWriter) WriteSummaries(rows []schema.DailyWorklogSummary, cfg *contract.Config) error {
	return PrintSummaries(rows, cfg)
}

// WriteSyncDays prints the per-day sync history using the configured output format.
func (ow *OutWriter) WriteSyncDays(days []schema.SyncDayMeta, cfg *contract.Config) error {
	return PrintSyncDays(days, cfg)
}

// GetMaxTableLabelWidth calculates the maximum width for free-text labels in table output
// based on terminal width and the fixed columns around them.
func GetMaxTableLabelWidth(cfg *contract.Config, fixedWidth int) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 { // Not set by override
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Reserve generous space for table borders, separators, and padding
	available := termWidth - fixedWidth - 20
	if available < 12 {
		return 12
	}
	if available > 60 {
		return 60
	}
	return available
}
