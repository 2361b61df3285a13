package schema

// Custom string types for type safety.
type (
	// WorkStatus represents the employment status of an IVA user.
	WorkStatus string

	// CategoryType represents how a report category counts toward targets.
	CategoryType string

	// SyncStatus represents the lifecycle of one day's worklog sync.
	SyncStatus string

	// PerformanceStatus represents the classification of actual vs target hours.
	PerformanceStatus string

	// APIVersion represents the upstream worklog API generation.
	APIVersion string

	// SettingSource represents where an hours-per-week value came from.
	SettingSource string

	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for the store.
	DatabaseBackend string
)

// All work statuses supported.
const (
	FullTime WorkStatus = "full-time" // default
	PartTime WorkStatus = "part-time"
)

// All category types supported.
const (
	Billable      CategoryType = "billable"
	NonBillable   CategoryType = "non-billable"
	Uncategorized CategoryType = "uncategorized"
)

// All sync statuses supported.
const (
	SyncPending    SyncStatus = "pending"
	SyncInProgress SyncStatus = "in_progress"
	SyncCompleted  SyncStatus = "completed"
	SyncFailed     SyncStatus = "failed"
)

// All performance statuses supported.
const (
	StatusExceeded PerformanceStatus = "EXCEEDED"
	StatusMeet     PerformanceStatus = "MEET"
	StatusBelow    PerformanceStatus = "BELOW"
)

// All upstream API versions supported.
const (
	APIv1 APIVersion = "v1" // default
	APIv2 APIVersion = "v2"
)

// All setting sources.
const (
	DefaultSetting  SettingSource = "default"
	OverrideSetting SettingSource = "override"
)

// All output modes supported.
const (
	CSVOut  OutputMode = "csv"
	TextOut OutputMode = "text" // default
	JSONOut OutputMode = "json"
)

// All store backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
)

// WorkStatusField is the changelog field name that tracks work status changes.
const WorkStatusField = "work_status"

// ValidWorkStatuses lists all valid work statuses.
var ValidWorkStatuses = map[WorkStatus]struct{}{
	FullTime: {},
	PartTime: {},
}

// ValidAPIVersions lists all valid upstream API versions.
var ValidAPIVersions = map[APIVersion]struct{}{
	APIv1: {},
	APIv2: {},
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:  {},
	TextOut: {},
	JSONOut: {},
}

// ValidDatabaseBackends lists all valid store backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
}
