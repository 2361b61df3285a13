package datastore

import (
	"context"
	"fmt"

	"github.com/huangsam/worktally/schema"
)

// ListWorkStatusSettings returns all weekly-hour settings ordered by id.
func (s *SQLStore) ListWorkStatusSettings(ctx context.Context) ([]schema.WorkStatusSetting, error) {
	query := fmt.Sprintf("SELECT id, setting_key, work_status, hours_per_week, is_active FROM %s ORDER BY id", settingsTable)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var settings []schema.WorkStatusSetting
	for rows.Next() {
		var st schema.WorkStatusSetting
		var status string
		if err := rows.Scan(&st.ID, &st.Key, &status, &st.HoursPerWeek, &st.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		st.WorkStatus = schema.WorkStatus(status)
		settings = append(settings, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating settings: %w", err)
	}
	return settings, nil
}

// ListUserOverrides returns the user's custom hours joined with the setting they replace.
func (s *SQLStore) ListUserOverrides(ctx context.Context, userID int64) ([]schema.UserHourOverride, error) {
	query := s.rebind(fmt.Sprintf(`SELECT c.id, c.iva_user_id, c.setting_id, s.work_status, c.custom_value, c.start_date, c.end_date
		FROM %s c JOIN %s s ON s.id = c.setting_id
		WHERE c.iva_user_id = ? ORDER BY c.id`, customizeTable, settingsTable))
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query overrides: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var overrides []schema.UserHourOverride
	for rows.Next() {
		var o schema.UserHourOverride
		var status string
		var start, end dbTime
		if err := rows.Scan(&o.ID, &o.UserID, &o.SettingID, &status, &o.HoursPerWeek, &start, &end); err != nil {
			return nil, fmt.Errorf("failed to scan override: %w", err)
		}
		o.WorkStatus = schema.WorkStatus(status)
		o.StartDate = start.DatePtr()
		o.EndDate = end.DatePtr()
		overrides = append(overrides, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating overrides: %w", err)
	}
	return overrides, nil
}

// UpsertWorkStatusSetting inserts or updates a setting by key and returns its id.
func (s *SQLStore) UpsertWorkStatusSetting(ctx context.Context, st schema.WorkStatusSetting) (int64, error) {
	var query string
	switch s.backend {
	case schema.MySQLBackend:
		query = fmt.Sprintf(`INSERT INTO %s (setting_key, work_status, hours_per_week, is_active) VALUES (?, ?, ?, ?) AS new
			ON DUPLICATE KEY UPDATE work_status = new.work_status, hours_per_week = new.hours_per_week, is_active = new.is_active`, settingsTable)
	default: // SQLite and PostgreSQL
		query = fmt.Sprintf(`INSERT INTO %s (setting_key, work_status, hours_per_week, is_active) VALUES (?, ?, ?, ?)
			ON CONFLICT (setting_key) DO UPDATE SET work_status = excluded.work_status,
			hours_per_week = excluded.hours_per_week, is_active = excluded.is_active`, settingsTable)
	}
	if _, err := s.db.ExecContext(ctx, s.rebind(query), st.Key, string(st.WorkStatus), st.HoursPerWeek, st.IsActive); err != nil {
		return 0, fmt.Errorf("failed to upsert setting %q: %w", st.Key, err)
	}

	var id int64
	idQuery := s.rebind(fmt.Sprintf("SELECT id FROM %s WHERE setting_key = ?", settingsTable))
	if err := s.db.QueryRowContext(ctx, idQuery, st.Key).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to read setting id for %q: %w", st.Key, err)
	}
	return id, nil
}

// CreateUserOverride inserts a per-user custom hours row.
func (s *SQLStore) CreateUserOverride(ctx context.Context, o schema.UserHourOverride) (int64, error) {
	query := fmt.Sprintf(`INSERT INTO %s (iva_user_id, setting_id, custom_value, start_date, end_date)
		VALUES (?, ?, ?, ?, ?)`, customizeTable)
	id, err := s.insertReturningID(ctx, s.db, query, o.UserID, o.SettingID, o.HoursPerWeek,
		nullDate(o.StartDate), nullDate(o.EndDate))
	if err != nil {
		return 0, fmt.Errorf("failed to insert override for user %d: %w", o.UserID, err)
	}
	return id, nil
}
