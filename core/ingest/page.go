package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/schema"
)

// dayRun carries the state shared by every user of one day's sync.
type dayRun struct {
	service  *Service
	version  schema.APIVersion
	dayStart time.Time
	dayEnd   time.Time
	dryRun   bool

	projects map[string]*int64 // upstream project id -> local id
	tasks    map[string]*int64 // upstream task id -> local id
}

type userCounts struct {
	inserted  int
	updated   int
	invalid   int
	processed int
}

// syncUser pages through one user's worklogs until a short or empty page,
// or a full page that adds no new worklog ids. Each page is written in one
// transaction; a failed page stops this user.
func (r *dayRun) syncUser(ctx context.Context, user schema.IvaUser, externalID string) (userCounts, error) {
	var counts userCounts
	seen := make(map[string]struct{})
	limit := r.service.cfg.PageSize

	for offset := 0; ; offset += limit {
		items, err := r.service.source.GetUserWorklogs(ctx, externalID, r.dayStart, r.dayEnd, offset, limit)
		if err != nil {
			return counts, fmt.Errorf("fetch worklogs at offset %d: %w", offset, err)
		}

		rows, invalid, err := r.buildRows(ctx, user, externalID, items, seen)
		counts.invalid += invalid
		if err != nil {
			return counts, err
		}

		inserted, updated, err := r.write(ctx, rows)
		if err != nil {
			return counts, err
		}
		counts.inserted += inserted
		counts.updated += updated
		counts.processed += len(rows)

		if len(items) < limit {
			return counts, nil
		}
		if len(rows) == 0 {
			contract.LogWarn(fmt.Sprintf("stop paging user %d at offset %d", user.ID, offset),
				fmt.Errorf("%w: full page of %d items added no new worklogs", contract.ErrDataIntegrity, len(items)))
			return counts, nil
		}
		if err := r.service.sleep(ctx, r.service.cfg.PageDelay); err != nil {
			return counts, err
		}
	}
}

// buildRows validates, dedupes and resolves one page of upstream items.
func (r *dayRun) buildRows(ctx context.Context, user schema.IvaUser, externalID string, items []schema.UpstreamWorklog, seen map[string]struct{}) ([]schema.RawWorklogRow, int, error) {
	rows := make([]schema.RawWorklogRow, 0, len(items))
	invalid := 0
	for _, item := range items {
		if !item.Valid() {
			invalid++
			contract.LogWarn(fmt.Sprintf("skip worklog %q for user %d", item.ID, user.ID),
				fmt.Errorf("%w: missing id, start or end time", contract.ErrDataIntegrity))
			continue
		}
		if _, dup := seen[item.ID]; dup {
			continue
		}
		seen[item.ID] = struct{}{}

		projectID, err := r.project(ctx, item.ProjectID)
		if err != nil {
			return nil, invalid, fmt.Errorf("resolve project %s: %w", item.ProjectID, err)
		}
		taskID, err := r.task(ctx, item.TaskID, item.TaskName)
		if err != nil {
			return nil, invalid, fmt.Errorf("resolve task %s: %w", item.TaskID, err)
		}

		userID := item.UserID
		if userID == "" {
			userID = externalID
		}
		duration := item.DurationSeconds
		if duration < 0 {
			duration = 0
		}
		rows = append(rows, schema.RawWorklogRow{
			ExternalWorklogID: item.ID,
			APIVersion:        r.version,
			IvaUserID:         user.ID,
			ExternalUserID:    userID,
			ExternalProjectID: item.ProjectID,
			ExternalTaskID:    item.TaskID,
			ProjectID:         projectID,
			TaskID:            taskID,
			WorkMode:          item.WorkMode,
			StartTime:         item.StartTime.UTC(),
			EndTime:           item.EndTime.UTC(),
			DurationSeconds:   duration,
			IsActive:          true,
		})
	}
	return rows, invalid, nil
}

// write upserts a page, or in dry-run mode counts what an upsert would do.
func (r *dayRun) write(ctx context.Context, rows []schema.RawWorklogRow) (int, int, error) {
	if len(rows) == 0 {
		return 0, 0, nil
	}
	store := r.service.store
	if !r.dryRun {
		return store.UpsertWorklogs(ctx, rows)
	}

	ids := make([]string, len(rows))
	for i, row := range rows {
		ids[i] = row.ExternalWorklogID
	}
	existing, err := store.ExistingWorklogIDs(ctx, ids, r.version)
	if err != nil {
		return 0, 0, fmt.Errorf("check existing worklogs: %w", err)
	}
	updated := 0
	for _, id := range ids {
		if _, ok := existing[id]; ok {
			updated++
		}
	}
	return len(ids) - updated, updated, nil
}

func (r *dayRun) project(ctx context.Context, externalProjectID string) (*int64, error) {
	if externalProjectID == "" {
		return nil, nil
	}
	if id, ok := r.projects[externalProjectID]; ok {
		return id, nil
	}
	id, err := r.service.store.FindProjectID(ctx, externalProjectID, r.version)
	if err != nil {
		return nil, err
	}
	r.projects[externalProjectID] = id
	return id, nil
}

// task caches resolved tasks for the day, including misses.
func (r *dayRun) task(ctx context.Context, externalTaskID, taskName string) (*int64, error) {
	if externalTaskID == "" {
		return nil, nil
	}
	if id, ok := r.tasks[externalTaskID]; ok {
		return id, nil
	}
	id, err := r.service.resolveTask(ctx, externalTaskID, taskName, r.dryRun)
	if err != nil {
		return nil, err
	}
	r.tasks[externalTaskID] = id
	return id, nil
}
