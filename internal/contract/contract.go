// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/worktally/schema"
)

// WorklogSource fetches worklogs from one upstream API version.
// Implementations normalize their wire format into schema.UpstreamWorklog.
type WorklogSource interface {
	// APIVersion identifies which upstream generation this source talks to.
	APIVersion() schema.APIVersion

	// GetUserWorklogs returns one page of worklogs for a user within [dayStart, dayEnd).
	GetUserWorklogs(ctx context.Context, externalUserID string, dayStart, dayEnd time.Time, offset, limit int) ([]schema.UpstreamWorklog, error)
}

// UserStore reads IVA users and their work status history.
type UserStore interface {
	GetUser(ctx context.Context, userID int64) (schema.IvaUser, error)
	ListActiveUsers(ctx context.Context) ([]schema.IvaUser, error)

	// ListWorkStatusChanges returns the user's work status changes ordered by effective date.
	ListWorkStatusChanges(ctx context.Context, userID int64) ([]schema.WorkStatusChange, error)
}

// SettingsStore reads weekly-hour defaults and per-user overrides.
type SettingsStore interface {
	ListWorkStatusSettings(ctx context.Context) ([]schema.WorkStatusSetting, error)
	ListUserOverrides(ctx context.Context, userID int64) ([]schema.UserHourOverride, error)
}

// WorklogStore persists raw worklogs and resolves their project and task references.
type WorklogStore interface {
	// FindProjectID returns nil when no project matches.
	FindProjectID(ctx context.Context, externalProjectID string, version schema.APIVersion) (*int64, error)

	// FindTaskByExternalID looks the task up through its upstream associations.
	FindTaskByExternalID(ctx context.Context, externalTaskID string, version schema.APIVersion) (*int64, error)

	// ClaimTaskByName finds a task by exact name and records the upstream association
	// on it under a row lock. The association is only written if it is still missing
	// once the lock is held.
	ClaimTaskByName(ctx context.Context, taskName, externalTaskID string, version schema.APIVersion) (*int64, error)

	// UpsertWorklogs writes one page of rows in a single transaction keyed by
	// (external worklog id, api version).
	UpsertWorklogs(ctx context.Context, rows []schema.RawWorklogRow) (inserted int, updated int, err error)

	// ExistingWorklogIDs returns which of the given external IDs are already stored.
	ExistingWorklogIDs(ctx context.Context, externalIDs []string, version schema.APIVersion) (map[string]struct{}, error)

	ListWorklogs(ctx context.Context, filter schema.WorklogFilter) ([]schema.RawWorklogRow, error)
}

// SummaryBuilder turns a day's categorized worklogs into summary rows.
type SummaryBuilder func(rows []schema.WorklogCategoryRow) []schema.DailyWorklogSummary

// SummaryStore persists daily worklog summaries.
type SummaryStore interface {
	// ReplaceDailySummaries deletes the (user, date) summaries, reads the active worklogs
	// that started within [dayStart, dayEnd), and inserts what build returns. All of it
	// happens in one transaction.
	ReplaceDailySummaries(ctx context.Context, userID int64, reportDate, dayStart, dayEnd time.Time, build SummaryBuilder) error

	// SumBillableSeconds totals summaries whose category type starts with "billable".
	SumBillableSeconds(ctx context.Context, userID int64, start, end time.Time) (int64, error)

	ListDailySummaries(ctx context.Context, start, end time.Time) ([]schema.DailyWorklogSummary, error)
}

// SyncMetaStore persists per-day sync status.
type SyncMetaStore interface {
	// GetSyncDay returns nil when the day has never been synced.
	GetSyncDay(ctx context.Context, date time.Time, version schema.APIVersion) (*schema.SyncDayMeta, error)
	SaveSyncDay(ctx context.Context, meta schema.SyncDayMeta) error
	ListSyncDays(ctx context.Context, start, end time.Time) ([]schema.SyncDayMeta, error)
}

// ReferenceStore writes the reference data that the pipeline reads.
type ReferenceStore interface {
	CreateUser(ctx context.Context, user schema.IvaUser) (int64, error)
	AddWorkStatusChange(ctx context.Context, change schema.WorkStatusChange) (int64, error)
	UpsertWorkStatusSetting(ctx context.Context, setting schema.WorkStatusSetting) (int64, error)
	CreateUserOverride(ctx context.Context, override schema.UserHourOverride) (int64, error)
	CreateProject(ctx context.Context, project schema.Project) (int64, error)
	CreateTask(ctx context.Context, task schema.Task) (int64, error)
	CreateReportCategory(ctx context.Context, category schema.ReportCategory) (int64, error)
	LinkTaskCategory(ctx context.Context, taskID, categoryID int64) error
}

// Store is the full persistence surface used by the pipeline.
type Store interface {
	UserStore
	SettingsStore
	WorklogStore
	SummaryStore
	SyncMetaStore
	ReferenceStore

	Backend() schema.DatabaseBackend
	GetStatus(ctx context.Context) (schema.StoreStatus, error)
	Close() error
}

// StoreManager hands out the configured store.
// This allows the persistence layer to be mocked for testing.
type StoreManager interface {
	GetStore() Store
}
