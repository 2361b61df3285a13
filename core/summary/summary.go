// Package summary rebuilds the per-day, per-category worklog rollups.
package summary

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/schema"
)

// Aggregator recomputes daily summaries from the stored worklogs.
// Recomputations of the same (user, date) never overlap.
type Aggregator struct {
	store   contract.SummaryStore
	loc     *time.Location
	workers int
	locks   keyedMutex
}

// NewAggregator creates an aggregator. Day bounds are taken in loc.
func NewAggregator(store contract.SummaryStore, loc *time.Location, workers int) *Aggregator {
	if loc == nil {
		loc = time.UTC
	}
	if workers <= 0 {
		workers = 1
	}
	return &Aggregator{store: store, loc: loc, workers: workers}
}

// RecomputeDay replaces one user's summaries for date with fresh totals.
func (a *Aggregator) RecomputeDay(ctx context.Context, userID int64, date time.Time) error {
	date = schema.DateOf(date)
	unlock := a.locks.lock(fmt.Sprintf("%d/%s", userID, date.Format(schema.DateLayout)))
	defer unlock()

	dayStart, dayEnd := contract.DayBounds(date, a.loc)
	build := func(rows []schema.WorklogCategoryRow) []schema.DailyWorklogSummary {
		return Summarize(userID, date, rows)
	}
	if err := a.store.ReplaceDailySummaries(ctx, userID, date, dayStart, dayEnd, build); err != nil {
		return fmt.Errorf("recompute summaries for user %d on %s: %w", userID, date.Format(schema.DateLayout), err)
	}
	return nil
}

// RecomputeRange recomputes every (user, date) in [start, end] using the worker pool.
// It returns how many keys succeeded together with every failure joined.
func (a *Aggregator) RecomputeRange(ctx context.Context, userIDs []int64, start, end time.Time) (int, error) {
	start, end = schema.DateOf(start), schema.DateOf(end)
	if start.After(end) {
		return 0, contract.Validationf("start date (%s) cannot be after end date (%s)",
			start.Format(schema.DateLayout), end.Format(schema.DateLayout))
	}

	type job struct {
		userID int64
		date   time.Time
	}
	days := schema.DaysInclusive(start, end)
	jobCh := make(chan job, len(userIDs)*days)
	for _, id := range userIDs {
		for d := range days {
			jobCh <- job{userID: id, date: schema.AddDays(start, d)}
		}
	}
	close(jobCh)

	var (
		mu   sync.Mutex
		errs []error
		done int
		wg   sync.WaitGroup
	)
	for range a.workers {
		wg.Go(func() {
			for j := range jobCh {
				if ctx.Err() != nil {
					return
				}
				err := a.RecomputeDay(ctx, j.userID, j.date)
				mu.Lock()
				if err != nil {
					errs = append(errs, err)
				} else {
					done++
				}
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return done, errors.Join(errs...)
}

// Summarize groups a day's categorized worklogs into summary rows.
//
// A worklog whose task maps to several categories is counted once, under its
// lowest category id. Worklogs without a task or category land in the
// uncategorized bucket, which has no category id.
func Summarize(userID int64, date time.Time, rows []schema.WorklogCategoryRow) []schema.DailyWorklogSummary {
	chosen := make(map[int64]schema.WorklogCategoryRow, len(rows))
	for _, r := range rows {
		prev, seen := chosen[r.WorklogID]
		if !seen || lowerCategory(r.CategoryID, prev.CategoryID) {
			chosen[r.WorklogID] = r
		}
	}

	buckets := make(map[int64]*schema.DailyWorklogSummary)
	var uncategorized *schema.DailyWorklogSummary
	for _, r := range chosen {
		var bucket *schema.DailyWorklogSummary
		if r.CategoryID == nil {
			if uncategorized == nil {
				uncategorized = newSummary(userID, date, nil, schema.Uncategorized)
			}
			bucket = uncategorized
		} else {
			bucket = buckets[*r.CategoryID]
			if bucket == nil {
				categoryType := schema.CategoryType(r.CategoryType)
				if categoryType == "" {
					categoryType = schema.Uncategorized
				}
				bucket = newSummary(userID, date, r.CategoryID, categoryType)
				buckets[*r.CategoryID] = bucket
			}
		}
		bucket.TotalDurationSeconds += r.DurationSeconds
		bucket.EntriesCount++
	}

	out := make([]schema.DailyWorklogSummary, 0, len(buckets)+1)
	if uncategorized != nil {
		out = append(out, *uncategorized)
	}
	for _, b := range buckets {
		out = append(out, *b)
	}
	slices.SortFunc(out, func(a, b schema.DailyWorklogSummary) int {
		return cmp.Compare(categoryOrder(a.ReportCategoryID), categoryOrder(b.ReportCategoryID))
	})
	return out
}

func newSummary(userID int64, date time.Time, categoryID *int64, categoryType schema.CategoryType) *schema.DailyWorklogSummary {
	var id *int64
	if categoryID != nil {
		v := *categoryID
		id = &v
	}
	return &schema.DailyWorklogSummary{
		IvaUserID:        userID,
		ReportDate:       date,
		ReportCategoryID: id,
		CategoryType:     categoryType,
	}
}

// lowerCategory reports whether a sorts before b. A nil category sorts last.
func lowerCategory(a, b *int64) bool {
	switch {
	case a == nil:
		return false
	case b == nil:
		return true
	default:
		return *a < *b
	}
}

func categoryOrder(id *int64) int64 {
	if id == nil {
		return -1
	}
	return *id
}

// keyedMutex serializes work per key while letting distinct keys run in parallel.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedEntry)
	}
	e := k.locks[key]
	if e == nil {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
