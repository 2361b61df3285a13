package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/huangsam/worktally/schema"
)

// UpsertWorklogs writes one page of worklogs in a single transaction.
// Rows are matched on (timedoctor_worklog_id, api_version); existing rows are updated in place.
func (s *SQLStore) UpsertWorklogs(ctx context.Context, rows []schema.RawWorklogRow) (int, int, error) {
	if len(rows) == 0 {
		return 0, 0, nil
	}
	lookup := s.rebind(fmt.Sprintf("SELECT id FROM %s WHERE timedoctor_worklog_id = ? AND api_version = ?", worklogsTable))
	update := s.rebind(fmt.Sprintf(`UPDATE %s SET iva_user_id = ?, timedoctor_user_id = ?, timedoctor_project_id = ?,
		timedoctor_task_id = ?, project_id = ?, task_id = ?, work_mode = ?, start_time = ?, end_time = ?,
		duration = ?, is_active = ?, updated_at = ? WHERE id = ?`, worklogsTable))
	insert := s.rebind(fmt.Sprintf(`INSERT INTO %s (timedoctor_worklog_id, api_version, iva_user_id, timedoctor_user_id,
		timedoctor_project_id, timedoctor_task_id, project_id, task_id, work_mode, start_time, end_time, duration,
		is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, worklogsTable))

	now := formatTimestamp(s.now())
	inserted, updated := 0, 0
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, r := range rows {
			var id int64
			err := tx.QueryRowContext(ctx, lookup, r.ExternalWorklogID, string(r.APIVersion)).Scan(&id)
			switch {
			case err == nil:
				if _, err := tx.ExecContext(ctx, update, r.IvaUserID, r.ExternalUserID, r.ExternalProjectID,
					r.ExternalTaskID, nullInt64(r.ProjectID), nullInt64(r.TaskID), r.WorkMode,
					formatTimestamp(r.StartTime), formatTimestamp(r.EndTime), r.DurationSeconds, r.IsActive, now, id); err != nil {
					return fmt.Errorf("failed to update worklog %s: %w", r.ExternalWorklogID, err)
				}
				updated++
			case errors.Is(err, sql.ErrNoRows):
				if _, err := tx.ExecContext(ctx, insert, r.ExternalWorklogID, string(r.APIVersion), r.IvaUserID,
					r.ExternalUserID, r.ExternalProjectID, r.ExternalTaskID, nullInt64(r.ProjectID), nullInt64(r.TaskID),
					r.WorkMode, formatTimestamp(r.StartTime), formatTimestamp(r.EndTime), r.DurationSeconds,
					r.IsActive, now, now); err != nil {
					return fmt.Errorf("failed to insert worklog %s: %w", r.ExternalWorklogID, err)
				}
				inserted++
			default:
				return fmt.Errorf("failed to look up worklog %s: %w", r.ExternalWorklogID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return inserted, updated, nil
}

// ExistingWorklogIDs reports which upstream worklog ids are already stored.
func (s *SQLStore) ExistingWorklogIDs(ctx context.Context, externalIDs []string, version schema.APIVersion) (map[string]struct{}, error) {
	found := make(map[string]struct{}, len(externalIDs))
	if len(externalIDs) == 0 {
		return found, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(externalIDs)), ", ")
	query := s.rebind(fmt.Sprintf("SELECT timedoctor_worklog_id FROM %s WHERE api_version = ? AND timedoctor_worklog_id IN (%s)",
		worklogsTable, placeholders))
	args := make([]any, 0, len(externalIDs)+1)
	args = append(args, string(version))
	for _, id := range externalIDs {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing worklogs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan worklog id: %w", err)
		}
		found[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating worklog ids: %w", err)
	}
	return found, nil
}

// ListWorklogs returns stored worklogs matching the filter ordered by start time.
func (s *SQLStore) ListWorklogs(ctx context.Context, filter schema.WorklogFilter) ([]schema.RawWorklogRow, error) {
	var where []string
	var args []any
	if filter.UserID != nil {
		where = append(where, "iva_user_id = ?")
		args = append(args, *filter.UserID)
	}
	if filter.APIVersion != "" {
		where = append(where, "api_version = ?")
		args = append(args, string(filter.APIVersion))
	}
	if !filter.Start.IsZero() {
		where = append(where, "start_time >= ?")
		args = append(args, formatTimestamp(filter.Start))
	}
	if !filter.End.IsZero() {
		where = append(where, "start_time < ?")
		args = append(args, formatTimestamp(filter.End))
	}
	if filter.ActiveOnly {
		where = append(where, "is_active = TRUE")
	}
	query := fmt.Sprintf(`SELECT id, timedoctor_worklog_id, api_version, iva_user_id, timedoctor_user_id,
		timedoctor_project_id, timedoctor_task_id, project_id, task_id, work_mode, start_time, end_time,
		duration, is_active FROM %s`, worklogsTable)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_time, id"

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query worklogs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []schema.RawWorklogRow
	for rows.Next() {
		var r schema.RawWorklogRow
		var version string
		var projectID, taskID sql.NullInt64
		var start, end dbTime
		if err := rows.Scan(&r.ID, &r.ExternalWorklogID, &version, &r.IvaUserID, &r.ExternalUserID,
			&r.ExternalProjectID, &r.ExternalTaskID, &projectID, &taskID, &r.WorkMode, &start, &end,
			&r.DurationSeconds, &r.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan worklog: %w", err)
		}
		r.APIVersion = schema.APIVersion(version)
		r.ProjectID = int64Ptr(projectID)
		r.TaskID = int64Ptr(taskID)
		r.StartTime = start.Time
		r.EndTime = end.Time
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating worklogs: %w", err)
	}
	return out, nil
}
