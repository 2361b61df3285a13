// Package ingest pulls worklogs from the upstream API into the store.
package ingest

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/schema"
)

// SummaryRecomputer rebuilds one user's daily summaries.
type SummaryRecomputer interface {
	RecomputeDay(ctx context.Context, userID int64, date time.Time) error
}

// SyncOptions tweaks a range sync.
type SyncOptions struct {
	DryRun             bool // Fetch and count without writing anything
	Force              bool // Re-sync days already marked completed
	RecomputeSummaries bool // Rebuild daily summaries for each synced day
}

// Service is the single sync entry point shared by the CLI and MCP server.
type Service struct {
	cfg       contract.SyncConfig
	loc       *time.Location
	source    contract.WorklogSource
	store     contract.Store
	summaries SummaryRecomputer

	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
	newRunID func() string
}

// NewService wires a sync service. summaries may be nil when no recompute is wanted.
func NewService(cfg contract.SyncConfig, loc *time.Location, source contract.WorklogSource, store contract.Store, summaries SummaryRecomputer) *Service {
	if cfg.PageSize <= 0 {
		cfg.PageSize = contract.DefaultPageSize
	}
	if cfg.MaxRangeDays <= 0 {
		cfg.MaxRangeDays = contract.DefaultMaxRangeDays
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		cfg:       cfg,
		loc:       loc,
		source:    source,
		store:     store,
		summaries: summaries,
		sleep:     sleepContext,
		now:       time.Now,
		newRunID:  uuid.NewString,
	}
}

// APIVersion is the upstream generation this service syncs.
func (s *Service) APIVersion() schema.APIVersion {
	return s.source.APIVersion()
}

// SyncDay ingests every user's worklogs for one calendar date.
// A failing user is recorded in UserFailures and does not stop the others.
// The error is only non-nil when the context ends.
func (s *Service) SyncDay(ctx context.Context, users []schema.IvaUser, date time.Time) (schema.SyncDayResult, error) {
	return s.syncDay(ctx, users, date, false)
}

func (s *Service) syncDay(ctx context.Context, users []schema.IvaUser, date time.Time, dryRun bool) (schema.SyncDayResult, error) {
	date = schema.DateOf(date)
	result := schema.SyncDayResult{Date: date}
	run := &dayRun{
		service:  s,
		version:  s.source.APIVersion(),
		projects: make(map[string]*int64),
		tasks:    make(map[string]*int64),
		dryRun:   dryRun,
	}
	run.dayStart, run.dayEnd = contract.DayBounds(date, s.loc)

	for _, user := range users {
		externalID := user.ExternalID(run.version)
		if externalID == "" {
			continue
		}
		result.Users++

		counts, err := run.syncUser(ctx, user, externalID)
		result.Inserted += counts.inserted
		result.Updated += counts.updated
		result.Errors += counts.invalid
		result.TotalProcessed += counts.processed
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, ctxErr
		}
		if err != nil {
			result.Errors++
			result.UserFailures = append(result.UserFailures, schema.UserFailure{UserID: user.ID, Error: err.Error()})
			contract.LogWarn(fmt.Sprintf("sync user %d on %s", user.ID, date.Format(schema.DateLayout)), err)
			continue
		}
		result.SyncedUserIDs = append(result.SyncedUserIDs, user.ID)
	}
	return result, nil
}

// ResolveTask maps an upstream task onto a local task.
//
// The lookup goes through recorded associations first. When none matches, a
// task with the exact same name is claimed: the association is written under
// a row lock and only if it is still missing.
func (s *Service) ResolveTask(ctx context.Context, externalTaskID, taskName string) (*int64, error) {
	return s.resolveTask(ctx, externalTaskID, taskName, false)
}

func (s *Service) resolveTask(ctx context.Context, externalTaskID, taskName string, dryRun bool) (*int64, error) {
	if externalTaskID == "" {
		return nil, nil
	}
	version := s.source.APIVersion()
	id, err := s.store.FindTaskByExternalID(ctx, externalTaskID, version)
	if err != nil || id != nil {
		return id, err
	}
	if taskName == "" || dryRun {
		return nil, nil
	}
	return s.store.ClaimTaskByName(ctx, taskName, externalTaskID, version)
}

// SyncRange syncs [start, end] day by day in chronological order.
//
// Days already completed are skipped unless forced, which makes an interrupted
// run resumable. Each day's status is persisted before moving on. The returned
// error joins every failed day.
func (s *Service) SyncRange(ctx context.Context, start, end time.Time, opts SyncOptions) (schema.SyncRangeResult, error) {
	start, end = schema.DateOf(start), schema.DateOf(end)
	result := schema.SyncRangeResult{
		RunID:      s.newRunID(),
		APIVersion: s.source.APIVersion(),
		StartDate:  start,
		EndDate:    end,
		DryRun:     opts.DryRun,
		Days:       []schema.SyncDayReport{},
	}
	if start.After(end) {
		return result, contract.Validationf("start date (%s) cannot be after end date (%s)",
			start.Format(schema.DateLayout), end.Format(schema.DateLayout))
	}
	if days := schema.DaysInclusive(start, end); days > s.cfg.MaxRangeDays {
		return result, contract.Validationf("date range spans %d days, maximum is %d", days, s.cfg.MaxRangeDays)
	}

	users, err := s.store.ListActiveUsers(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list active users: %w", err)
	}
	slices.SortStableFunc(users, func(a, b schema.IvaUser) int { return cmp.Compare(a.ID, b.ID) })

	var failures []error
	for day := start; !day.After(end); day = schema.AddDays(day, 1) {
		if ctx.Err() != nil {
			failures = append(failures, ctx.Err())
			break
		}
		report, err := s.syncRangeDay(ctx, users, day, result.RunID, opts)
		result.Days = append(result.Days, report)
		result.Inserted += report.Inserted
		result.Updated += report.Updated
		result.Errors += report.Errors
		if report.Skipped {
			result.Skipped++
		}
		if report.Status == schema.SyncFailed {
			result.Failed++
		}
		if err != nil {
			failures = append(failures, fmt.Errorf("sync %s: %w", day.Format(schema.DateLayout), err))
		}
	}
	return result, errors.Join(failures...)
}

func (s *Service) syncRangeDay(ctx context.Context, users []schema.IvaUser, day time.Time, runID string, opts SyncOptions) (schema.SyncDayReport, error) {
	version := s.source.APIVersion()
	report := schema.SyncDayReport{SyncDayResult: schema.SyncDayResult{Date: day}}

	if !opts.DryRun && !opts.Force {
		meta, err := s.store.GetSyncDay(ctx, day, version)
		if err != nil {
			report.Status = schema.SyncFailed
			report.Error = err.Error()
			return report, err
		}
		if meta != nil && meta.Status == schema.SyncCompleted {
			report.Status = schema.SyncCompleted
			report.Skipped = true
			report.Users = meta.TotalUsers
			return report, nil
		}
	}

	startedAt := s.now().UTC()
	meta := schema.SyncDayMeta{
		SyncDate:   day,
		APIVersion: version,
		Status:     schema.SyncInProgress,
		RunID:      runID,
		TotalUsers: len(users),
		StartedAt:  &startedAt,
	}
	if !opts.DryRun {
		if err := s.store.SaveSyncDay(ctx, meta); err != nil {
			report.Status = schema.SyncFailed
			report.Error = err.Error()
			return report, err
		}
	}

	res, dayErr := s.syncDay(ctx, users, day, opts.DryRun)
	report.SyncDayResult = res

	if dayErr == nil && len(res.UserFailures) > 0 {
		dayErr = fmt.Errorf("%d of %d users failed", len(res.UserFailures), res.Users)
	}
	if dayErr == nil && !opts.DryRun && opts.RecomputeSummaries && s.summaries != nil {
		dayErr = s.recompute(ctx, res.SyncedUserIDs, day)
	}

	report.Status = schema.SyncCompleted
	if dayErr != nil {
		report.Status = schema.SyncFailed
		report.Error = dayErr.Error()
	}
	if opts.DryRun {
		return report, dayErr
	}

	completedAt := s.now().UTC()
	meta.Status = report.Status
	meta.Inserted = res.Inserted
	meta.Updated = res.Updated
	meta.Errors = res.Errors
	meta.ErrorMessage = report.Error
	meta.CompletedAt = &completedAt
	// The day's outcome is recorded even when the job was canceled midway.
	if err := s.store.SaveSyncDay(context.WithoutCancel(ctx), meta); err != nil {
		dayErr = errors.Join(dayErr, err)
		report.Status = schema.SyncFailed
		report.Error = dayErr.Error()
	}
	return report, dayErr
}

func (s *Service) recompute(ctx context.Context, userIDs []int64, day time.Time) error {
	var errs []error
	for _, id := range userIDs {
		if err := s.summaries.RecomputeDay(ctx, id, day); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
