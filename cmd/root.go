package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/huangsam/worktally/core"
	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/internal/datastore"
	"github.com/huangsam/worktally/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// storeManager is the global persistence manager instance.
var storeManager contract.StoreManager

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:   "worktally",
	Short: "Sync worklogs and measure billable performance against target hours.",
	Long: `Worktally pulls worklogs from the time-tracking API into a relational store,
rolls them up into daily summaries, and compares billable hours against each
user's target hours on a 4-week reporting calendar.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	setConfigSource()

	// Set environment variable prefix
	viper.SetEnvPrefix("WORKTALLY")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Nested config sections have no flags, so their defaults live here.
	def := contract.DefaultRawInput()
	viper.SetDefault("calendar.epoch_year", def.Calendar.EpochYear)
	viper.SetDefault("calendar.epoch_start_date", def.Calendar.EpochStartDate)
	viper.SetDefault("calendar.weeks_per_year", def.Calendar.WeeksPerYear)
	viper.SetDefault("hours.full_time", def.Hours.FullTime)
	viper.SetDefault("hours.part_time", def.Hours.PartTime)
	viper.SetDefault("performance.exceeded", def.Performance.Exceeded)
	viper.SetDefault("performance.meet", def.Performance.Meet)
	viper.SetDefault("performance.labels.exceeded", "")
	viper.SetDefault("performance.labels.meet", "")
	viper.SetDefault("performance.labels.below", "")
}

// setConfigSource points viper at --config or the default search paths.
func setConfigSource() {
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
		return
	}
	viper.SetConfigName(".worktally") // Name of config file (without extension)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")     // Look in the current directory
	viper.AddConfigPath("$HOME") // Look in the home directory
}

// loadConfigFile handles config file loading logic common to all setup functions.
func loadConfigFile() error {
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}
	return nil
}

// loadConfig merges defaults, file, env and flags into the validated cfg.
func loadConfig() error {
	if err := loadConfigFile(); err != nil {
		return err
	}
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}
	return contract.ProcessAndValidate(cfg, input)
}

// sharedSetup validates config and opens the store.
func sharedSetup(_ context.Context, _ *cobra.Command, _ []string) error {
	if err := loadConfig(); err != nil {
		return err
	}
	if err := datastore.InitStore(cfg.StoreBackend, cfg.StoreDBConnect); err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}
	if storeManager == nil {
		storeManager = datastore.Manager
	}
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// configOnlySetup validates config without touching the store.
func configOnlySetup(_ *cobra.Command, _ []string) error {
	return loadConfig()
}

// storeSetup loads minimal configuration needed for store maintenance.
// This is used by commands that must work even when the rest of the config is invalid.
func storeSetup(_ *cobra.Command, _ []string) error {
	if err := loadConfigFile(); err != nil {
		return err
	}
	backend := schema.DatabaseBackend(strings.ToLower(viper.GetString("store-backend")))
	connStr := viper.GetString("store-db-connect")
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return err
	}
	cfg.StoreBackend = backend
	cfg.StoreDBConnect = connStr
	return nil
}

// services builds the component bundle over the initialized store.
func services() *core.Services {
	svc, err := core.NewServicesFromManager(cfg, storeManager)
	if err != nil {
		contract.LogFatal("Store unavailable", err)
	}
	return svc
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetStoreManager sets the global store manager.
func SetStoreManager(mgr contract.StoreManager) {
	storeManager = mgr
}
