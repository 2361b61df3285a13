package schema

import "time"

// UpstreamWorklog is a worklog item normalized from either upstream API version.
// Zero StartTime or EndTime means the upstream field was missing or unparsable.
type UpstreamWorklog struct {
	ID              string
	UserID          string
	ProjectID       string
	ProjectName     string
	TaskID          string
	TaskName        string
	WorkMode        string
	StartTime       time.Time
	EndTime         time.Time
	DurationSeconds int64
}

// Valid reports whether the item carries the fields required for ingestion.
func (w UpstreamWorklog) Valid() bool {
	return w.ID != "" && !w.StartTime.IsZero() && !w.EndTime.IsZero()
}

// RawWorklogRow is one row of worklogs_data.
type RawWorklogRow struct {
	ID                int64      `json:"id"`
	ExternalWorklogID string     `json:"timedoctor_worklog_id"`
	APIVersion        APIVersion `json:"api_version"`
	IvaUserID         int64      `json:"iva_user_id"`
	ExternalUserID    string     `json:"timedoctor_user_id"`
	ExternalProjectID string     `json:"timedoctor_project_id"`
	ExternalTaskID    string     `json:"timedoctor_task_id"`
	ProjectID         *int64     `json:"project_id,omitempty"`
	TaskID            *int64     `json:"task_id,omitempty"`
	WorkMode          string     `json:"work_mode"`
	StartTime         time.Time  `json:"start_time"`
	EndTime           time.Time  `json:"end_time"`
	DurationSeconds   int64      `json:"duration"`
	IsActive          bool       `json:"is_active"`
}

// WorklogFilter narrows worklog listings.
type WorklogFilter struct {
	UserID     *int64
	APIVersion APIVersion
	Start      time.Time // inclusive, zero means unbounded
	End        time.Time // exclusive, zero means unbounded
	ActiveOnly bool
}

// WorklogCategoryRow is a worklog joined with its task's report category.
// A worklog appears once per category its task is mapped to.
type WorklogCategoryRow struct {
	WorklogID       int64
	TaskID          *int64
	CategoryID      *int64
	CategoryType    string
	DurationSeconds int64
}

// DailyWorklogSummary is the per (user, date, category) rollup.
type DailyWorklogSummary struct {
	IvaUserID            int64        `json:"iva_user_id"`
	ReportDate           time.Time    `json:"report_date"`
	ReportCategoryID     *int64       `json:"report_category_id,omitempty"`
	CategoryType         CategoryType `json:"category_type"`
	TotalDurationSeconds int64        `json:"total_duration"`
	EntriesCount         int          `json:"entries_count"`
}

// TaskAssociation links a local task to an upstream task ID for one API version.
type TaskAssociation struct {
	TaskID     string `json:"tId"`
	APIVersion string `json:"vId"`
}

// Project is a local project known by its upstream ID.
type Project struct {
	ID                int64      `json:"id"`
	ExternalProjectID string     `json:"timedoctor_project_id"`
	APIVersion        APIVersion `json:"api_version"`
	Name              string     `json:"project_name"`
}

// Task is a local task with its upstream associations.
type Task struct {
	ID           int64             `json:"id"`
	Name         string            `json:"task_name"`
	Associations []TaskAssociation `json:"user_list"`
}

// ReportCategory classifies tasks for reporting.
type ReportCategory struct {
	ID   int64        `json:"id"`
	Name string       `json:"category_name"`
	Type CategoryType `json:"category_type"`
}

// SyncDayMeta is one row of the per-day sync metadata.
type SyncDayMeta struct {
	SyncDate     time.Time  `json:"sync_date"`
	APIVersion   APIVersion `json:"api_version"`
	Status       SyncStatus `json:"status"`
	RunID        string     `json:"run_id"`
	TotalUsers   int        `json:"total_users"`
	Inserted     int        `json:"inserted"`
	Updated      int        `json:"updated"`
	Errors       int        `json:"errors"`
	ErrorMessage string     `json:"error_message,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}
