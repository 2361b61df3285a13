package cmd

import (
	"time"

	"github.com/huangsam/worktally/core"
	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/internal/outwriter"
	"github.com/huangsam/worktally/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// calendarYear resolves --year, defaulting to the reporting year of today.
func calendarYear(svc *core.Services) int {
	if year := viper.GetInt("year"); year != 0 {
		return year
	}
	if week, err := svc.CurrentWeek(); err == nil {
		return week.Year
	}
	return time.Now().In(cfg.Calendar.Location).Year()
}

// calendarCmd groups reporting calendar queries.
var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Show the 4-week reporting calendar",
	Long: `The reporting calendar starts at calendar.epoch_start_date and splits each year
into consecutive Monday-to-Sunday weeks, grouped four at a time into months.

Subcommands:
  weeks   - List the weeks of a year or month
  months  - List the 4-week months of a year
  current - Show the week containing today`,
}

var calendarWeeksCmd = &cobra.Command{
	Use:   "weeks",
	Short: "List reporting weeks",
	Long: `List the weeks of a reporting year, or of one 4-week month with --month.

Examples:
  worktally calendar weeks --year 2024
  worktally calendar weeks --year 2024 --month 3 --output csv`,
	PreRunE: configOnlySetup,
	Run: func(_ *cobra.Command, _ []string) {
		svc := core.NewServices(cfg, nil)
		weeks, err := svc.Weeks(calendarYear(svc), viper.GetInt("month"))
		if err != nil {
			contract.LogFatal("Invalid calendar query", err)
		}
		if err := outwriter.NewOutWriter().WriteWeeks(weeks, cfg); err != nil {
			contract.LogFatal("Failed to write weeks", err)
		}
	},
}

var calendarMonthsCmd = &cobra.Command{
	Use:   "months",
	Short: "List 4-week reporting months",
	Long: `List the 4-week months of a reporting year with their date bounds.

Examples:
  worktally calendar months --year 2025`,
	PreRunE: configOnlySetup,
	Run: func(_ *cobra.Command, _ []string) {
		svc := core.NewServices(cfg, nil)
		months, err := svc.Calendar.MonthsForYear(calendarYear(svc))
		if err != nil {
			contract.LogFatal("Invalid calendar query", err)
		}
		if err := outwriter.NewOutWriter().WriteMonths(months, cfg); err != nil {
			contract.LogFatal("Failed to write months", err)
		}
	},
}

var calendarCurrentCmd = &cobra.Command{
	Use:     "current",
	Short:   "Show the reporting week containing today",
	PreRunE: configOnlySetup,
	Run: func(_ *cobra.Command, _ []string) {
		week, err := core.NewServices(cfg, nil).CurrentWeek()
		if err != nil {
			contract.LogFatal("No current week", err)
		}
		if err := outwriter.NewOutWriter().WriteWeeks([]schema.WeekPeriod{week}, cfg); err != nil {
			contract.LogFatal("Failed to write week", err)
		}
	},
}
