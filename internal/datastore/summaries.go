package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/schema"
)

// ReplaceDailySummaries rebuilds one user's summaries for a report date in a single transaction.
func (s *SQLStore) ReplaceDailySummaries(ctx context.Context, userID int64, reportDate, dayStart, dayEnd time.Time, build contract.SummaryBuilder) error {
	date := formatDate(reportDate)
	del := s.rebind(fmt.Sprintf("DELETE FROM %s WHERE iva_user_id = ? AND report_date = ?", summariesTable))
	read := s.rebind(fmt.Sprintf(`SELECT w.id, w.task_id, trc.report_category_id, COALESCE(rc.category_type, ''), w.duration
		FROM %s w
		LEFT JOIN %s trc ON trc.task_id = w.task_id
		LEFT JOIN %s rc ON rc.id = trc.report_category_id
		WHERE w.iva_user_id = ? AND w.is_active = TRUE AND w.start_time >= ? AND w.start_time < ?
		ORDER BY w.id, trc.report_category_id`, worklogsTable, taskCategoriesTable, categoriesTable))
	insert := s.rebind(fmt.Sprintf(`INSERT INTO %s (iva_user_id, report_date, report_category_id, category_type,
		total_duration, entries_count, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`, summariesTable))

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, del, userID, date); err != nil {
			return fmt.Errorf("failed to clear summaries for user %d on %s: %w", userID, date, err)
		}

		rows, err := tx.QueryContext(ctx, read, userID, formatTimestamp(dayStart), formatTimestamp(dayEnd))
		if err != nil {
			return fmt.Errorf("failed to read worklogs for user %d on %s: %w", userID, date, err)
		}
		var input []schema.WorklogCategoryRow
		for rows.Next() {
			var r schema.WorklogCategoryRow
			var taskID, categoryID sql.NullInt64
			if err := rows.Scan(&r.WorklogID, &taskID, &categoryID, &r.CategoryType, &r.DurationSeconds); err != nil {
				_ = rows.Close()
				return fmt.Errorf("failed to scan worklog: %w", err)
			}
			r.TaskID = int64Ptr(taskID)
			r.CategoryID = int64Ptr(categoryID)
			input = append(input, r)
		}
		_ = rows.Close()
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating worklogs: %w", err)
		}

		now := formatTimestamp(s.now())
		for _, sum := range build(input) {
			if _, err := tx.ExecContext(ctx, insert, userID, date, nullInt64(sum.ReportCategoryID),
				string(sum.CategoryType), sum.TotalDurationSeconds, sum.EntriesCount, now); err != nil {
				return fmt.Errorf("failed to insert summary for user %d on %s: %w", userID, date, err)
			}
		}
		return nil
	})
}

// SumBillableSeconds totals the billable summary durations within [start, end].
func (s *SQLStore) SumBillableSeconds(ctx context.Context, userID int64, start, end time.Time) (int64, error) {
	query := s.rebind(fmt.Sprintf(`SELECT COALESCE(SUM(total_duration), 0) FROM %s
		WHERE iva_user_id = ? AND report_date >= ? AND report_date <= ? AND category_type LIKE 'billable%%'`, summariesTable))
	var total float64
	if err := s.db.QueryRowContext(ctx, query, userID, formatDate(start), formatDate(end)).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum billable time for user %d: %w", userID, err)
	}
	return int64(total), nil
}

// ListDailySummaries returns every summary row within [start, end].
func (s *SQLStore) ListDailySummaries(ctx context.Context, start, end time.Time) ([]schema.DailyWorklogSummary, error) {
	query := s.rebind(fmt.Sprintf(`SELECT iva_user_id, report_date, report_category_id, category_type, total_duration, entries_count
		FROM %s WHERE report_date >= ? AND report_date <= ?
		ORDER BY report_date, iva_user_id, category_type, report_category_id`, summariesTable))
	rows, err := s.db.QueryContext(ctx, query, formatDate(start), formatDate(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query summaries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []schema.DailyWorklogSummary
	for rows.Next() {
		var d schema.DailyWorklogSummary
		var date dbTime
		var categoryID sql.NullInt64
		var categoryType string
		if err := rows.Scan(&d.IvaUserID, &date, &categoryID, &categoryType, &d.TotalDurationSeconds, &d.EntriesCount); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		d.ReportDate = date.Date()
		d.ReportCategoryID = int64Ptr(categoryID)
		d.CategoryType = schema.CategoryType(categoryType)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating summaries: %w", err)
	}
	return out, nil
}
