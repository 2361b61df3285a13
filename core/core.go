// Package core wires the calendar, calculators, aggregator and sync service
// into the operations used by the CLI and the MCP server.
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/worktally/core/calendar"
	"github.com/huangsam/worktally/core/ingest"
	"github.com/huangsam/worktally/core/performance"
	"github.com/huangsam/worktally/core/summary"
	"github.com/huangsam/worktally/core/target"
	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/internal/upstream"
	"github.com/huangsam/worktally/schema"
)

// Services bundles every component built from one validated config and store.
type Services struct {
	Config      *contract.Config
	Store       contract.Store
	Calendar    *calendar.Calendar
	Target      *target.Calculator
	Performance *performance.Composer
	Summaries   *summary.Aggregator
}

// NewServices builds the calculation components on top of store.
func NewServices(cfg *contract.Config, store contract.Store) *Services {
	tc := target.NewCalculator(store, cfg.Hours, cfg.MaxCombinations)
	return &Services{
		Config:      cfg,
		Store:       store,
		Calendar:    calendar.New(cfg.Calendar),
		Target:      tc,
		Performance: performance.NewComposer(tc, store, cfg.Performance),
		Summaries:   summary.NewAggregator(store, cfg.Calendar.Location, cfg.Workers),
	}
}

// NewServicesFromManager resolves the store from mgr.
func NewServicesFromManager(cfg *contract.Config, mgr contract.StoreManager) (*Services, error) {
	store := mgr.GetStore()
	if store == nil {
		return nil, fmt.Errorf("%w: store is not initialized", contract.ErrPersistence)
	}
	return NewServices(cfg, store), nil
}

// SyncService builds the sync service for the configured upstream version.
func (s *Services) SyncService() (*ingest.Service, error) {
	if err := contract.ValidateUpstreamCredentials(s.Config.Upstream); err != nil {
		return nil, err
	}
	source, err := upstream.New(s.Config.Upstream)
	if err != nil {
		return nil, err
	}
	return s.SyncServiceWith(source), nil
}

// SyncServiceWith builds a sync service around an explicit worklog source.
func (s *Services) SyncServiceWith(source contract.WorklogSource) *ingest.Service {
	return ingest.NewService(s.Config.Sync, s.Config.Calendar.Location, source, s.Store, s.Summaries)
}

// Sync runs a range sync. The job timeout from config bounds the whole run.
func (s *Services) Sync(ctx context.Context, svc *ingest.Service, start, end time.Time, opts ingest.SyncOptions) (schema.SyncRangeResult, error) {
	if s.Config.Sync.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Config.Sync.JobTimeout)
		defer cancel()
	}
	return svc.SyncRange(ctx, start, end, opts)
}

// Targets computes target hours for the requested users.
func (s *Services) Targets(ctx context.Context, req schema.CalculationRequest) ([]schema.TargetHoursResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.Target.Calculate(ctx, req)
}

// PerformanceFor computes performance envelopes for the requested users.
func (s *Services) PerformanceFor(ctx context.Context, req schema.CalculationRequest) ([]schema.PerformanceResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	return s.Performance.Calculate(ctx, req)
}

// RecomputeSummaries rebuilds daily summaries for userIDs, or all active users when empty.
func (s *Services) RecomputeSummaries(ctx context.Context, userIDs []int64, start, end time.Time) (int, error) {
	if end.Before(start) {
		return 0, contract.Validationf("end date %s is before start date %s", end.Format(schema.DateLayout), start.Format(schema.DateLayout))
	}
	if len(userIDs) == 0 {
		users, err := s.Store.ListActiveUsers(ctx)
		if err != nil {
			return 0, err
		}
		for _, u := range users {
			userIDs = append(userIDs, u.ID)
		}
	}
	return s.Summaries.RecomputeRange(ctx, userIDs, start, end)
}

// Weeks returns the reporting weeks of a year, optionally narrowed to one month (1-based).
func (s *Services) Weeks(year, month int) ([]schema.WeekPeriod, error) {
	if month == 0 {
		return s.Calendar.WeeksForYear(year)
	}
	months, err := s.Calendar.MonthsForYear(year)
	if err != nil {
		return nil, err
	}
	if month < 1 || month > len(months) {
		return nil, contract.Validationf("month %d is out of range 1..%d", month, len(months))
	}
	return months[month-1].Weeks[:], nil
}

// CurrentWeek returns the reporting week containing today, or a validation error
// when today falls outside the calendar.
func (s *Services) CurrentWeek() (schema.WeekPeriod, error) {
	w := s.Calendar.CurrentWeek()
	if w == nil {
		return schema.WeekPeriod{}, contract.Validationf("today is outside the reporting calendar")
	}
	return *w, nil
}

func validateRequest(req schema.CalculationRequest) error {
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return contract.Validationf("start and end dates are required")
	}
	if req.EndDate.Before(req.StartDate) {
		return contract.Validationf("end date %s is before start date %s", req.EndDate.Format(schema.DateLayout), req.StartDate.Format(schema.DateLayout))
	}
	if !req.CalculateAll && len(req.UserIDs) == 0 {
		return contract.Validationf("either user ids or all users must be requested")
	}
	return nil
}
