package cmd

import (
	"fmt"

	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/internal/datastore"
	"github.com/huangsam/worktally/internal/outwriter"
	"github.com/huangsam/worktally/internal/parquet"
	"github.com/huangsam/worktally/internal/refdata"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// storeOpenSetup loads the store settings and opens the store.
func storeOpenSetup(cmd *cobra.Command, args []string) error {
	if err := storeSetup(cmd, args); err != nil {
		return err
	}
	if err := datastore.InitStore(cfg.StoreBackend, cfg.StoreDBConnect); err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	if storeManager == nil {
		storeManager = datastore.Manager
	}
	return nil
}

// openStore returns the initialized store or exits.
func openStore() contract.Store {
	store := storeManager.GetStore()
	if store == nil {
		contract.LogFatal("Store unavailable", fmt.Errorf("%w: store is not initialized", contract.ErrPersistence))
	}
	return store
}

// storeCmd focused on store management.
//
// Note: most store subcommands use minimal initialization (storeSetup) instead of
// the full sharedSetup. This avoids calendar and upstream validation for simple
// maintenance operations.
var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Manage the worklog store",
	Long: `Manage the relational store that holds users, settings, worklogs, summaries
and sync state.

Supported backends: SQLite (default), MySQL, PostgreSQL

Subcommands:
  status    - Show row counts and the latest sync
  clear     - Remove all stored data
  migrate   - Apply or roll back schema migrations
  export    - Write worklogs and summaries to Parquet files
  import    - Load reference data from a YAML file
  sync-days - Show per-day sync history

Examples:
  # Check store status
  worktally store status

  # Use PostgreSQL (set connection string via env variable)
  WORKTALLY_STORE_BACKEND=postgresql WORKTALLY_STORE_DB_CONNECT="host=... dbname=..." worktally store status`,
}

var storeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display row counts and connection details",
	Long: `Show the backend, connection state, the row count of each table and the
most recent sync day.

Examples:
  worktally store status`,
	PreRunE: storeOpenSetup,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := openStore().GetStatus(rootCtx)
		if err != nil {
			contract.LogFatal("Failed to get store status", err)
		}
		datastore.PrintStoreStatus(status)
	},
}

var storeClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stored data",
	Long: `Delete all stored data from the configured backend.

For SQLite: Deletes the database file
For MySQL/PostgreSQL: Drops every table, including migration state

Examples:
  # Clear SQLite store (default)
  worktally store clear

  # Clear MySQL store (set connection string via env variable)
  WORKTALLY_STORE_BACKEND=mysql WORKTALLY_STORE_DB_CONNECT="..." worktally store clear`,
	PreRunE: storeSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := datastore.ClearStore(cfg.StoreBackend, cfg.StoreDBConnect); err != nil {
			contract.LogFatal("Failed to clear store", err)
		}
		fmt.Println("Store cleared successfully.")
	},
}

var storeMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back schema migrations",
	Long: `Run schema migrations against the configured backend.

The store migrates to the latest version automatically on open; use this
command to roll back or pin a specific version.

Examples:
  # Migrate to latest
  worktally store migrate

  # Roll back to version 1
  worktally store migrate --target-version 1`,
	PreRunE: storeSetup,
	Run: func(_ *cobra.Command, _ []string) {
		if err := datastore.MigrateStore(cfg.StoreBackend, cfg.StoreDBConnect, viper.GetInt("target-version")); err != nil {
			contract.LogFatal("Failed to migrate store", err)
		}
	},
}

var storeExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export worklogs and daily summaries to Parquet",
	Long: `Write the worklogs and daily summaries of a date range to two Parquet files:
<output-file>.worklogs.parquet and <output-file>.daily_summaries.parquet.

Examples:
  worktally store export --start 2024-01-15 --end 2024-02-11 --output-file jan`,
	PreRunE: storeOpenSetup,
	Run: func(_ *cobra.Command, _ []string) {
		start, end, err := contract.ParseDateRange(viper.GetString("start"), viper.GetString("end"))
		if err != nil {
			contract.LogFatal("Invalid date range", err)
		}
		res, err := parquet.Export(rootCtx, openStore(), start, end, viper.GetString("output-file"))
		if err != nil {
			contract.LogFatal("Failed to export store", err)
		}
		fmt.Printf("Wrote %d worklogs to %s\n", res.WorklogCount, res.WorklogsFile)
		fmt.Printf("Wrote %d daily summaries to %s\n", res.SummariesCount, res.SummariesFile)
	},
}

var storeImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Load users, settings, categories and tasks from YAML",
	Long: `Import reference data from a YAML document. The whole document is validated
before anything is written; settings are upserted by work status, all other
entries are created.

Examples:
  worktally store import reference.yaml`,
	Args:    cobra.ExactArgs(1),
	PreRunE: storeOpenSetup,
	Run: func(_ *cobra.Command, args []string) {
		doc, err := refdata.LoadFile(args[0])
		if err != nil {
			contract.LogFatal("Failed to load reference data", err)
		}
		res, err := refdata.Import(rootCtx, openStore(), doc)
		if err != nil {
			contract.LogFatal("Failed to import reference data", err)
		}
		fmt.Printf("Imported %d settings, %d users (%d changes, %d overrides), %d categories, %d projects, %d tasks.\n",
			res.Settings, res.Users, res.Changes, res.Overrides, res.Categories, res.Projects, res.Tasks)
	},
}

var storeSyncDaysCmd = &cobra.Command{
	Use:   "sync-days",
	Short: "Show per-day sync history",
	Long: `List the sync state of each day in the range for every API version.

Examples:
  worktally store sync-days --start 2024-01-15 --end 2024-01-21`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		start, end, err := contract.ParseDateRange(viper.GetString("start"), viper.GetString("end"))
		if err != nil {
			contract.LogFatal("Invalid date range", err)
		}
		days, err := openStore().ListSyncDays(rootCtx, start, end)
		if err != nil {
			contract.LogFatal("Failed to list sync days", err)
		}
		if err := outwriter.NewOutWriter().WriteSyncDays(days, cfg); err != nil {
			contract.LogFatal("Failed to write sync days", err)
		}
	},
}
