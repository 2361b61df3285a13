package cmd

import (
	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/internal/outwriter"
	"github.com/huangsam/worktally/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// calculationRequest builds a request from --users/--all and --start/--end.
func calculationRequest() schema.CalculationRequest {
	start, end, err := contract.ParseDateRange(viper.GetString("start"), viper.GetString("end"))
	if err != nil {
		contract.LogFatal("Invalid date range", err)
	}
	ids, err := contract.ParseUserIDs(viper.GetString("users"))
	if err != nil {
		contract.LogFatal("Invalid --users", err)
	}
	req := schema.CalculationRequest{UserIDs: ids, StartDate: start, EndDate: end, CalculateAll: viper.GetBool("all")}
	if !req.CalculateAll && len(req.UserIDs) == 0 {
		contract.LogFatal("Invalid request", contract.Validationf("--users is required unless --all is set"))
	}
	return req
}

// performanceCmd compares billable hours against target hours.
var performanceCmd = &cobra.Command{
	Use:   "performance",
	Short: "Classify users as EXCEEDED, MEET or BELOW their target hours",
	Long: `Compare billable hours in the range against every target-hours combination.

Billable hours come from the daily summaries, so run 'sync' (or 'summary recompute')
first. One result is produced per target combination; users whose target is zero
report 0%.

Thresholds and labels come from the performance section of the config file.

Examples:
  # Two users for one reporting week
  worktally performance --users 1,2 --start 2024-01-15 --end 2024-01-21

  # Every active user as CSV
  worktally performance --all --start 2024-01-15 --end 2024-02-11 --output csv

  # What-if for one user with a given number of billable hours
  worktally performance --users 1 --start 2024-01-15 --end 2024-01-21 --actual 30`,
	PreRunE: sharedSetupWrapper,
	Run: func(cmd *cobra.Command, _ []string) {
		req := calculationRequest()
		svc := services()

		var results []schema.PerformanceResponse
		if cmd.Flags().Changed("actual") {
			if req.CalculateAll || len(req.UserIDs) != 1 {
				contract.LogFatal("Invalid request", contract.Validationf("--actual requires exactly one user id"))
			}
			actual := viper.GetFloat64("actual")
			results = []schema.PerformanceResponse{
				svc.Performance.CalculatePerformance(rootCtx, req.UserIDs[0], req.StartDate, req.EndDate, &actual),
			}
		} else {
			var err error
			if results, err = svc.PerformanceFor(rootCtx, req); err != nil {
				contract.LogFatal("Performance calculation failed", err)
			}
		}
		if err := outwriter.NewOutWriter().WritePerformance(results, cfg); err != nil {
			contract.LogFatal("Failed to write performance results", err)
		}
	},
}
