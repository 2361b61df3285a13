package cmd

import (
	"slices"

	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/internal/outwriter"
	"github.com/huangsam/worktally/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// summaryCmd groups daily summary maintenance.
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Inspect and rebuild daily worklog summaries",
	Long: `Daily summaries hold one row per user, day and report category, with the
total duration and entry count of the worklogs started that day.

Subcommands:
  recompute - Rebuild summaries from stored worklogs
  list      - Show stored summaries`,
}

// summaryRecomputeCmd rebuilds summaries from raw worklogs.
var summaryRecomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Rebuild daily summaries from stored worklogs",
	Long: `Replace the daily summaries of each user and day in the range with a fresh
aggregation of the stored worklogs. Safe to run repeatedly.

Examples:
  # Rebuild every active user for one week
  worktally summary recompute --start 2024-01-15 --end 2024-01-21

  # Rebuild two users after a category remap
  worktally summary recompute --users 3,7 --start 2024-01-01 --end 2024-03-31`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		start, end, err := contract.ParseDateRange(viper.GetString("start"), viper.GetString("end"))
		if err != nil {
			contract.LogFatal("Invalid date range", err)
		}
		ids, err := contract.ParseUserIDs(viper.GetString("users"))
		if err != nil {
			contract.LogFatal("Invalid --users", err)
		}
		n, err := services().RecomputeSummaries(rootCtx, ids, start, end)
		if err != nil {
			contract.LogFatal("Summary recompute failed", err)
		}
		contract.LogInfo("Recomputed %d user-days of summaries.", n)
	},
}

// summaryListCmd prints stored summaries.
var summaryListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show stored daily summaries for a date range",
	Long: `List daily summaries in the range, optionally narrowed with --users.

Examples:
  worktally summary list --start 2024-01-15 --end 2024-01-21
  worktally summary list --users 1 --start 2024-01-15 --end 2024-01-21 --output csv`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		start, end, err := contract.ParseDateRange(viper.GetString("start"), viper.GetString("end"))
		if err != nil {
			contract.LogFatal("Invalid date range", err)
		}
		ids, err := contract.ParseUserIDs(viper.GetString("users"))
		if err != nil {
			contract.LogFatal("Invalid --users", err)
		}
		rows, err := services().Store.ListDailySummaries(rootCtx, start, end)
		if err != nil {
			contract.LogFatal("Failed to list summaries", err)
		}
		if len(ids) > 0 {
			rows = slices.DeleteFunc(rows, func(r schema.DailyWorklogSummary) bool {
				return !slices.Contains(ids, r.IvaUserID)
			})
		}
		if err := outwriter.NewOutWriter().WriteSummaries(rows, cfg); err != nil {
			contract.LogFatal("Failed to write summaries", err)
		}
	},
}
