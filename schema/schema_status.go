package schema

import "time"

// StoreStatus represents the status of the worklog store.
type StoreStatus struct {
	Backend        string           `json:"backend"`
	Connected      bool             `json:"connected"`
	TableRows      map[string]int64 `json:"table_rows"`
	LastSyncDate   *time.Time       `json:"last_sync_date,omitempty"`
	LastSyncStatus SyncStatus       `json:"last_sync_status,omitempty"`
}

// UserFailure records one user whose worklogs could not be fetched.
type UserFailure struct {
	UserID int64  `json:"iva_user_id"`
	Error  string `json:"error"`
}

// SyncDayResult holds the counts of one day's sync.
type SyncDayResult struct {
	Date           time.Time     `json:"date"`
	Users          int           `json:"users"`
	Inserted       int           `json:"inserted"`
	Updated        int           `json:"updated"`
	Errors         int           `json:"errors"`
	TotalProcessed int           `json:"total_processed"`
	UserFailures   []UserFailure `json:"user_failures,omitempty"`
	SyncedUserIDs  []int64       `json:"-"`
}

// SyncDayReport is the outcome of one day inside a range sync.
type SyncDayReport struct {
	SyncDayResult
	Status  SyncStatus `json:"status"`
	Skipped bool       `json:"skipped"`
	Error   string     `json:"error,omitempty"`
}

// SyncRangeResult is the outcome of a multi-day sync run.
type SyncRangeResult struct {
	RunID      string          `json:"run_id"`
	APIVersion APIVersion      `json:"api_version"`
	StartDate  time.Time       `json:"start_date"`
	EndDate    time.Time       `json:"end_date"`
	DryRun     bool            `json:"dry_run"`
	Days       []SyncDayReport `json:"days"`
	Inserted   int             `json:"inserted"`
	Updated    int             `json:"updated"`
	Errors     int             `json:"errors"`
	Failed     int             `json:"failed_days"`
	Skipped    int             `json:"skipped_days"`
}
