package datastore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/huangsam/worktally/schema"
)

// FindProjectID returns the local project id for an upstream project, or nil.
func (s *SQLStore) FindProjectID(ctx context.Context, externalProjectID string, version schema.APIVersion) (*int64, error) {
	if externalProjectID == "" {
		return nil, nil
	}
	query := s.rebind(fmt.Sprintf("SELECT id FROM %s WHERE timedoctor_project_id = ? AND api_version = ?", projectsTable))
	var id int64
	err := s.db.QueryRowContext(ctx, query, externalProjectID, string(version)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find project %s: %w", externalProjectID, err)
	}
	return &id, nil
}

func decodeAssociations(raw string) ([]schema.TaskAssociation, error) {
	if raw == "" {
		return nil, nil
	}
	var list []schema.TaskAssociation
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("invalid task user_list %q: %w", raw, err)
	}
	return list, nil
}

func hasAssociation(list []schema.TaskAssociation, externalTaskID string, version schema.APIVersion) bool {
	return slices.Contains(list, schema.TaskAssociation{TaskID: externalTaskID, APIVersion: string(version)})
}

// FindTaskByExternalID finds the task whose user_list carries the upstream task id.
// The LIKE clause only narrows candidates; the JSON is checked in Go.
func (s *SQLStore) FindTaskByExternalID(ctx context.Context, externalTaskID string, version schema.APIVersion) (*int64, error) {
	if externalTaskID == "" {
		return nil, nil
	}
	pattern := "%" + externalTaskID + "%"
	query := s.rebind(fmt.Sprintf("SELECT id, user_list FROM %s WHERE user_list LIKE ? ORDER BY id", tasksTable))
	rows, err := s.db.QueryContext(ctx, query, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id int64
		var raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		list, err := decodeAssociations(raw)
		if err != nil {
			continue
		}
		if hasAssociation(list, externalTaskID, version) {
			return &id, nil
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return nil, nil
}

// ClaimTaskByName looks a task up by exact name and appends the upstream association
// if it is still missing once the row is locked. SQLite relies on its single writer.
func (s *SQLStore) ClaimTaskByName(ctx context.Context, taskName, externalTaskID string, version schema.APIVersion) (*int64, error) {
	if taskName == "" {
		return nil, nil
	}
	lock := ""
	if s.backend != schema.SQLiteBackend {
		lock = " FOR UPDATE"
	}
	query := s.rebind(fmt.Sprintf("SELECT id, user_list FROM %s WHERE task_name = ? ORDER BY id LIMIT 1%s", tasksTable, lock))
	update := s.rebind(fmt.Sprintf("UPDATE %s SET user_list = ? WHERE id = ?", tasksTable))

	var claimed *int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var id int64
		var raw string
		err := tx.QueryRowContext(ctx, query, taskName).Scan(&id, &raw)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to lock task %q: %w", taskName, err)
		}
		claimed = &id

		list, err := decodeAssociations(raw)
		if err != nil {
			return err
		}
		if externalTaskID == "" || hasAssociation(list, externalTaskID, version) {
			return nil
		}
		list = append(list, schema.TaskAssociation{TaskID: externalTaskID, APIVersion: string(version)})
		encoded, err := json.Marshal(list)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, update, string(encoded), id); err != nil {
			return fmt.Errorf("failed to enrich task %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// CreateProject inserts a project.
func (s *SQLStore) CreateProject(ctx context.Context, p schema.Project) (int64, error) {
	query := fmt.Sprintf("INSERT INTO %s (timedoctor_project_id, api_version, project_name) VALUES (?, ?, ?)", projectsTable)
	id, err := s.insertReturningID(ctx, s.db, query, p.ExternalProjectID, string(p.APIVersion), p.Name)
	if err != nil {
		return 0, fmt.Errorf("failed to insert project %s: %w", p.ExternalProjectID, err)
	}
	return id, nil
}

// CreateTask inserts a task with its initial associations.
func (s *SQLStore) CreateTask(ctx context.Context, t schema.Task) (int64, error) {
	list := t.Associations
	if list == nil {
		list = []schema.TaskAssociation{}
	}
	encoded, err := json.Marshal(list)
	if err != nil {
		return 0, err
	}
	query := fmt.Sprintf("INSERT INTO %s (task_name, user_list) VALUES (?, ?)", tasksTable)
	id, err := s.insertReturningID(ctx, s.db, query, t.Name, string(encoded))
	if err != nil {
		return 0, fmt.Errorf("failed to insert task %q: %w", t.Name, err)
	}
	return id, nil
}

// CreateReportCategory inserts a report category.
func (s *SQLStore) CreateReportCategory(ctx context.Context, c schema.ReportCategory) (int64, error) {
	query := fmt.Sprintf("INSERT INTO %s (category_name, category_type) VALUES (?, ?)", categoriesTable)
	id, err := s.insertReturningID(ctx, s.db, query, c.Name, string(c.Type))
	if err != nil {
		return 0, fmt.Errorf("failed to insert category %q: %w", c.Name, err)
	}
	return id, nil
}

// LinkTaskCategory maps a task onto a report category.
func (s *SQLStore) LinkTaskCategory(ctx context.Context, taskID, categoryID int64) error {
	query := s.rebind(fmt.Sprintf("INSERT INTO %s (task_id, report_category_id) VALUES (?, ?)", taskCategoriesTable))
	if _, err := s.db.ExecContext(ctx, query, taskID, categoryID); err != nil {
		return fmt.Errorf("failed to link task %d to category %d: %w", taskID, categoryID, err)
	}
	return nil
}
