package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/schema"
)

const userColumns = `id, full_name, email, work_status, hire_date, end_date,
	COALESCE(timedoctor_v1_user_id, ''), COALESCE(timedoctor_v2_user_id, ''), is_active`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (schema.IvaUser, error) {
	var u schema.IvaUser
	var status string
	var hire, end dbTime
	if err := row.Scan(&u.ID, &u.FullName, &u.Email, &status, &hire, &end,
		&u.ExternalUserIDv1, &u.ExternalUserIDv2, &u.IsActive); err != nil {
		return u, err
	}
	u.WorkStatus = schema.WorkStatus(status)
	u.HireDate = hire.DatePtr()
	u.EndDate = end.DatePtr()
	return u, nil
}

// GetUser returns one user by id, wrapping contract.ErrNotFound when missing.
func (s *SQLStore) GetUser(ctx context.Context, userID int64) (schema.IvaUser, error) {
	query := s.rebind(fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", userColumns, usersTable))
	u, err := scanUser(s.db.QueryRowContext(ctx, query, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return u, fmt.Errorf("user %d: %w", userID, contract.ErrNotFound)
	}
	if err != nil {
		return u, fmt.Errorf("failed to get user %d: %w", userID, err)
	}
	return u, nil
}

// ListActiveUsers returns active users ordered by id.
func (s *SQLStore) ListActiveUsers(ctx context.Context) ([]schema.IvaUser, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE is_active = TRUE ORDER BY id", userColumns, usersTable)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []schema.IvaUser
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// ListWorkStatusChanges returns the user's work status changelog ordered by effective date.
func (s *SQLStore) ListWorkStatusChanges(ctx context.Context, userID int64) ([]schema.WorkStatusChange, error) {
	query := s.rebind(fmt.Sprintf(`SELECT id, iva_user_id, COALESCE(old_value, ''), COALESCE(new_value, ''), effective_date
		FROM %s WHERE iva_user_id = ? AND field_changed = ? ORDER BY effective_date, id`, changelogsTable))
	rows, err := s.db.QueryContext(ctx, query, userID, schema.WorkStatusField)
	if err != nil {
		return nil, fmt.Errorf("failed to query work status changes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var changes []schema.WorkStatusChange
	for rows.Next() {
		var c schema.WorkStatusChange
		var oldValue, newValue string
		var effective dbTime
		if err := rows.Scan(&c.ID, &c.UserID, &oldValue, &newValue, &effective); err != nil {
			return nil, fmt.Errorf("failed to scan work status change: %w", err)
		}
		c.OldValue = schema.WorkStatus(oldValue)
		c.NewValue = schema.WorkStatus(newValue)
		c.EffectiveDate = effective.Date()
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating work status changes: %w", err)
	}
	return changes, nil
}

// CreateUser inserts a user and returns its id.
func (s *SQLStore) CreateUser(ctx context.Context, u schema.IvaUser) (int64, error) {
	status := u.WorkStatus
	if status == "" {
		status = schema.FullTime
	}
	query := fmt.Sprintf(`INSERT INTO %s (full_name, email, work_status, hire_date, end_date,
		timedoctor_v1_user_id, timedoctor_v2_user_id, is_active) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, usersTable)
	id, err := s.insertReturningID(ctx, s.db, query, u.FullName, u.Email, string(status),
		nullDate(u.HireDate), nullDate(u.EndDate), nullString(u.ExternalUserIDv1), nullString(u.ExternalUserIDv2), u.IsActive)
	if err != nil {
		return 0, fmt.Errorf("failed to insert user %q: %w", u.FullName, err)
	}
	return id, nil
}

// AddWorkStatusChange records a work status changelog entry.
func (s *SQLStore) AddWorkStatusChange(ctx context.Context, c schema.WorkStatusChange) (int64, error) {
	query := fmt.Sprintf(`INSERT INTO %s (iva_user_id, field_changed, old_value, new_value, effective_date)
		VALUES (?, ?, ?, ?, ?)`, changelogsTable)
	id, err := s.insertReturningID(ctx, s.db, query, c.UserID, schema.WorkStatusField,
		nullString(string(c.OldValue)), string(c.NewValue), formatDate(c.EffectiveDate))
	if err != nil {
		return 0, fmt.Errorf("failed to insert work status change for user %d: %w", c.UserID, err)
	}
	return id, nil
}
