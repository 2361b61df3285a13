package cmd

import (
	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/internal/outwriter"
	"github.com/spf13/cobra"
)

// targetCmd computes expected working hours.
var targetCmd = &cobra.Command{
	Use:   "target",
	Short: "Compute target hours per user and override combination",
	Long: `Compute how many hours each user was expected to work in the range.

The range is clipped to the hire date, split at work-status changes, and priced
with the weekly hours of each status. Overlapping hour overrides produce one
calculation per combination.

Examples:
  # One user for a 4-week month
  worktally target --users 1 --start 2024-01-15 --end 2024-02-11

  # Every active user as JSON
  worktally target --all --start 2024-01-15 --end 2024-01-21 --output json`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		req := calculationRequest()
		results, err := services().Targets(rootCtx, req)
		if err != nil {
			contract.LogFatal("Target calculation failed", err)
		}
		if err := outwriter.NewOutWriter().WriteTargets(results, cfg); err != nil {
			contract.LogFatal("Failed to write target results", err)
		}
	},
}
