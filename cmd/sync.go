package cmd

import (
	"fmt"

	"github.com/huangsam/worktally/core/ingest"
	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/internal/outwriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// syncCmd pulls worklogs for a date range into the store.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull worklogs from the upstream API into the store",
	Long: `Fetch every active user's worklogs for each day of the range and upsert them.

Days already marked completed are skipped unless --force is given. A day is only
marked completed when every user synced; failed days are retried on the next run.
Daily summaries for the touched users are recomputed after each day.

Credentials are read from flags, the config file, or WORKTALLY_* env variables.

Examples:
  # Sync one week with the v1 API
  WORKTALLY_V1_COMPANY_ID=123 WORKTALLY_V1_TOKEN=... worktally sync --start 2024-01-15 --end 2024-01-21

  # Count what would change without writing
  worktally sync --start 2024-01-15 --end 2024-01-15 --dry-run

  # Re-sync a completed day with the v2 API
  worktally sync --api-version v2 --start 2024-01-15 --end 2024-01-15 --force`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		start, end, err := contract.ParseDateRange(viper.GetString("start"), viper.GetString("end"))
		if err != nil {
			contract.LogFatal("Invalid date range", err)
		}

		svc := services()
		syncSvc, err := svc.SyncService()
		if err != nil {
			contract.LogFatal("Invalid upstream configuration", err)
		}

		opts := ingest.SyncOptions{
			DryRun:             viper.GetBool("dry-run"),
			Force:              viper.GetBool("force"),
			RecomputeSummaries: !viper.GetBool("skip-summaries"),
		}
		result, err := svc.Sync(rootCtx, syncSvc, start, end, opts)
		if len(result.Days) > 0 {
			if werr := outwriter.NewOutWriter().WriteSync(result, cfg); werr != nil {
				contract.LogFatal("Failed to write sync result", werr)
			}
		}
		if err != nil {
			contract.LogFatal("Sync failed", err)
		}
		if result.Failed > 0 {
			contract.LogFatal("Sync incomplete", fmt.Errorf("%d of %d days failed", result.Failed, len(result.Days)))
		}
	},
}
