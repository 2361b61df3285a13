// Package cmd defines the command-line interface for worktally.
package cmd

import (
	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(performanceCmd)
	rootCmd.AddCommand(targetCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(calendarCmd)
	rootCmd.AddCommand(storeCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)

	summaryCmd.AddCommand(summaryRecomputeCmd)
	summaryCmd.AddCommand(summaryListCmd)

	calendarCmd.AddCommand(calendarWeeksCmd)
	calendarCmd.AddCommand(calendarMonthsCmd)
	calendarCmd.AddCommand(calendarCurrentCmd)

	storeCmd.AddCommand(storeStatusCmd)
	storeCmd.AddCommand(storeClearCmd)
	storeCmd.AddCommand(storeMigrateCmd)
	storeCmd.AddCommand(storeExportCmd)
	storeCmd.AddCommand(storeImportCmd)
	storeCmd.AddCommand(storeSyncDaysCmd)

	def := contract.DefaultRawInput()

	// Bind all persistent flags of rootCmd to Viper
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Path to config file")
	pf.String("start", "", "Start date (YYYY-MM-DD)")
	pf.String("end", "", "End date, inclusive (YYYY-MM-DD)")
	pf.String("users", "", "Comma-separated IVA user ids")
	pf.Bool("all", false, "Operate on every active user")
	pf.String("output", string(schema.TextOut), "Output format: text or csv or json")
	pf.String("output-file", "", "Optional path to write output to")
	pf.Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	pf.Int("width", 0, "Terminal width override (0 = auto-detect)")
	pf.String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	pf.Int("workers", contract.DefaultWorkers, "Number of concurrent workers")
	pf.String("timezone", contract.DefaultTimezone, "IANA timezone that defines calendar days")
	pf.Int("max-combinations", contract.DefaultMaxCombinations, "Maximum override combinations per target calculation")
	pf.String("store-backend", string(schema.SQLiteBackend), "Store backend: sqlite or mysql or postgresql")
	pf.String("store-db-connect", "", "Database connection string (sqlite path, or mysql/postgresql DSN)")

	// Upstream and sync settings are shared by sync and mcp.
	pf.String("api-version", def.APIVersion, "Upstream API version: v1 or v2")
	pf.String("v1-base-url", def.V1BaseURL, "Base URL of the v1 API")
	pf.String("v1-company-id", "", "Company id for the v1 API")
	pf.String("v1-token", "", "Access token for the v1 API (prefer WORKTALLY_V1_TOKEN)")
	pf.String("v1-refresh-token", "", "Refresh token for the v1 API")
	pf.String("v1-client-id", "", "OAuth client id for v1 token refresh")
	pf.String("v1-client-secret", "", "OAuth client secret for v1 token refresh")
	pf.String("v1-token-url", def.V1TokenURL, "OAuth token endpoint for the v1 API")
	pf.String("v2-base-url", def.V2BaseURL, "Base URL of the v2 API")
	pf.String("v2-token", "", "Access token for the v2 API (prefer WORKTALLY_V2_TOKEN)")
	pf.String("v2-company", "", "Company id for the v2 API")
	pf.Int("max-retries", def.MaxRetries, "Retries for transient upstream failures")
	pf.String("retry-backoff", def.RetryBackoff, "Base backoff between retries")
	pf.String("connect-timeout", def.ConnectTimeout, "Upstream connect timeout")
	pf.String("request-timeout", def.RequestTimeout, "Upstream request timeout")
	pf.Float64("rate-limit", def.RateLimit, "Upstream requests per second")
	pf.Int("page-size", def.PageSize, "Worklogs requested per page")
	pf.String("page-delay", def.PageDelay, "Pause between page requests")
	pf.String("job-timeout", def.JobTimeout, "Upper bound for one sync run")
	pf.Int("max-range-days", def.MaxRangeDays, "Maximum days per sync run")
	if err := viper.BindPFlags(pf); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of syncCmd to Viper
	syncCmd.Flags().Bool("dry-run", false, "Fetch and count worklogs without writing")
	syncCmd.Flags().Bool("force", false, "Re-sync days already marked completed")
	syncCmd.Flags().Bool("skip-summaries", false, "Do not recompute daily summaries after writing")
	if err := viper.BindPFlags(syncCmd.Flags()); err != nil {
		contract.LogFatal("Error binding sync flags", err)
	}

	// Bind all flags of performanceCmd to Viper
	performanceCmd.Flags().Float64("actual", 0, "Billable hours to use instead of stored summaries (single user only)")
	if err := viper.BindPFlags(performanceCmd.Flags()); err != nil {
		contract.LogFatal("Error binding performance flags", err)
	}

	// Bind all persistent flags of calendarCmd to Viper
	calendarCmd.PersistentFlags().Int("year", 0, "Reporting year (0 = year of today)")
	calendarCmd.PersistentFlags().Int("month", 0, "4-week month number to narrow weeks (0 = whole year)")
	if err := viper.BindPFlags(calendarCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding calendar flags", err)
	}

	// Bind all flags of storeMigrateCmd to Viper
	storeMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(storeMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding store migrate flags", err)
	}
}
