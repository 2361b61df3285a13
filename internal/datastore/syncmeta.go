package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/huangsam/worktally/schema"
)

const syncMetaColumns = `sync_date, api_version, status, run_id, total_users, inserted, updated, errors,
	COALESCE(error_message, ''), started_at, completed_at`

func scanSyncDay(row rowScanner) (schema.SyncDayMeta, error) {
	var m schema.SyncDayMeta
	var date, started, completed dbTime
	var version, status string
	if err := row.Scan(&date, &version, &status, &m.RunID, &m.TotalUsers, &m.Inserted, &m.Updated,
		&m.Errors, &m.ErrorMessage, &started, &completed); err != nil {
		return m, err
	}
	m.SyncDate = date.Date()
	m.APIVersion = schema.APIVersion(version)
	m.Status = schema.SyncStatus(status)
	m.StartedAt = started.Ptr()
	m.CompletedAt = completed.Ptr()
	return m, nil
}

// GetSyncDay returns the sync state of a day, or nil if it was never synced.
func (s *SQLStore) GetSyncDay(ctx context.Context, date time.Time, version schema.APIVersion) (*schema.SyncDayMeta, error) {
	query := s.rebind(fmt.Sprintf("SELECT %s FROM %s WHERE sync_date = ? AND api_version = ?", syncMetaColumns, syncMetaTable))
	m, err := scanSyncDay(s.db.QueryRowContext(ctx, query, formatDate(date), string(version)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state for %s: %w", formatDate(date), err)
	}
	return &m, nil
}

// SaveSyncDay inserts or replaces the sync state of a day.
func (s *SQLStore) SaveSyncDay(ctx context.Context, m schema.SyncDayMeta) error {
	var query string
	switch s.backend {
	case schema.MySQLBackend:
		query = fmt.Sprintf(`INSERT INTO %s (sync_date, api_version, status, run_id, total_users, inserted, updated,
			errors, error_message, started_at, completed_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE status = new.status, run_id = new.run_id, total_users = new.total_users,
			inserted = new.inserted, updated = new.updated, errors = new.errors, error_message = new.error_message,
			started_at = new.started_at, completed_at = new.completed_at`, syncMetaTable)
	default: // SQLite and PostgreSQL
		query = fmt.Sprintf(`INSERT INTO %s (sync_date, api_version, status, run_id, total_users, inserted, updated,
			errors, error_message, started_at, completed_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (sync_date, api_version) DO UPDATE SET status = excluded.status, run_id = excluded.run_id,
			total_users = excluded.total_users, inserted = excluded.inserted, updated = excluded.updated,
			errors = excluded.errors, error_message = excluded.error_message, started_at = excluded.started_at,
			completed_at = excluded.completed_at`, syncMetaTable)
	}
	_, err := s.db.ExecContext(ctx, s.rebind(query), formatDate(m.SyncDate), string(m.APIVersion), string(m.Status),
		m.RunID, m.TotalUsers, m.Inserted, m.Updated, m.Errors, m.ErrorMessage,
		nullTimestamp(m.StartedAt), nullTimestamp(m.CompletedAt))
	if err != nil {
		return fmt.Errorf("failed to save sync state for %s: %w", formatDate(m.SyncDate), err)
	}
	return nil
}

// ListSyncDays returns sync states within [start, end] ordered by date.
func (s *SQLStore) ListSyncDays(ctx context.Context, start, end time.Time) ([]schema.SyncDayMeta, error) {
	query := s.rebind(fmt.Sprintf("SELECT %s FROM %s WHERE sync_date >= ? AND sync_date <= ? ORDER BY sync_date, api_version",
		syncMetaColumns, syncMetaTable))
	rows, err := s.db.QueryContext(ctx, query, formatDate(start), formatDate(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query sync states: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []schema.SyncDayMeta
	for rows.Next() {
		m, err := scanSyncDay(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync state: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync states: %w", err)
	}
	return out, nil
}
