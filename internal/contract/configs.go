package contract

import (
	"fmt"
	"maps"
	"runtime"
	"strings"
	"time"

	"github.com/huangsam/worktally/schema"
)

// Default values for configuration.
const (
	DefaultEpochYear       = 2024
	DefaultEpochStartDate  = "2024-01-15"
	DefaultWeeksPerYear    = 52
	DefaultTimezone        = "UTC"
	DefaultFullTimeHours   = 35.0
	DefaultPartTimeHours   = 20.0
	DefaultExceededPercent = 101.0
	DefaultMeetPercent     = 99.0
	DefaultPageSize        = 250
	MaxPageSize            = 1000
	DefaultPageDelay       = 200 * time.Millisecond
	DefaultMaxRetries      = 3
	DefaultRetryBackoff    = 500 * time.Millisecond
	DefaultMaxRetryAfter   = 60 * time.Second
	DefaultConnectTimeout  = 10 * time.Second
	DefaultRequestTimeout  = 60 * time.Second
	DefaultJobTimeout      = 2 * time.Hour
	DefaultRateLimit       = 5.0
	DefaultMaxRangeDays    = 31
	DefaultMaxCombinations = 16
	DefaultPrecision       = 2
	DefaultV1BaseURL       = "https://webapi.timedoctor.com/v1.1"
	DefaultV1TokenURL      = "https://webapi.timedoctor.com/oauth/v2/token"
	DefaultV2BaseURL       = "https://api2.timedoctor.com/api/1.0"
)

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// CalendarConfig anchors the reporting calendar.
type CalendarConfig struct {
	EpochYear      int
	EpochStartDate time.Time
	WeeksPerYear   int
	Location       *time.Location
}

// HoursConfig holds fallback weekly hours used when no setting row exists.
type HoursConfig struct {
	FullTime float64
	PartTime float64
}

// ForStatus returns the configured fallback hours for a work status.
func (h HoursConfig) ForStatus(status schema.WorkStatus) float64 {
	if status == schema.PartTime {
		return h.PartTime
	}
	return h.FullTime
}

// PerformanceConfig holds classification thresholds (in percent) and display labels.
type PerformanceConfig struct {
	ExceededThreshold float64
	MeetThreshold     float64
	Labels            map[schema.PerformanceStatus]string
}

// Label returns the configured label for a status, falling back to the status itself.
func (p PerformanceConfig) Label(status schema.PerformanceStatus) string {
	if l, ok := p.Labels[status]; ok && l != "" {
		return l
	}
	return string(status)
}

// UpstreamConfig configures the worklog API client.
type UpstreamConfig struct {
	APIVersion schema.APIVersion

	V1BaseURL      string
	V1CompanyID    string
	V1Token        string // Please use env var as this is plaintext
	V1RefreshToken string
	V1ClientID     string
	V1ClientSecret string
	V1TokenURL     string

	V2BaseURL string
	V2Token   string // Please use env var as this is plaintext
	V2Company string

	MaxRetries     int
	RetryBackoff   time.Duration
	ConnectTimeout time.Duration
	RequestTimeout time.Duration
	RateLimit      float64 // requests per second
}

// SyncConfig configures the ingestion engine.
type SyncConfig struct {
	PageSize     int
	PageDelay    time.Duration
	MaxRangeDays int
	JobTimeout   time.Duration
}

// Config holds the runtime configuration.
// This struct remains the "final, validated" config.
type Config struct {
	Calendar    CalendarConfig
	Hours       HoursConfig
	Performance PerformanceConfig
	Upstream    UpstreamConfig
	Sync        SyncConfig

	StoreBackend   schema.DatabaseBackend
	StoreDBConnect string // Please use env var as this is plaintext

	MaxCombinations int
	Workers         int
	Precision       int
	Output          schema.OutputMode
	OutputFile      string
	Width           int // Terminal width override (0 = auto-detect)
	UseColors       bool
}

// CalendarRawInput holds calendar settings from the YAML config file.
type CalendarRawInput struct {
	EpochYear      int    `mapstructure:"epoch_year"`
	EpochStartDate string `mapstructure:"epoch_start_date"`
	WeeksPerYear   int    `mapstructure:"weeks_per_year"`
}

// HoursRawInput holds fallback weekly hours from the YAML config file.
type HoursRawInput struct {
	FullTime float64 `mapstructure:"full_time"`
	PartTime float64 `mapstructure:"part_time"`
}

// LabelsRawInput holds status labels from the YAML config file.
type LabelsRawInput struct {
	Exceeded string `mapstructure:"exceeded"`
	Meet     string `mapstructure:"meet"`
	Below    string `mapstructure:"below"`
}

// PerformanceRawInput holds classification settings from the YAML config file.
type PerformanceRawInput struct {
	Exceeded float64        `mapstructure:"exceeded"`
	Meet     float64        `mapstructure:"meet"`
	Labels   LabelsRawInput `mapstructure:"labels"`
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	StoreBackend   string `mapstructure:"store-backend"`
	StoreDBConnect string `mapstructure:"store-db-connect"`
	Timezone       string `mapstructure:"timezone"`
	Workers        int    `mapstructure:"workers"`
	Precision      int    `mapstructure:"precision"`
	Output         string `mapstructure:"output"`
	OutputFile     string `mapstructure:"output-file"`
	Width          int    `mapstructure:"width"`
	Color          string `mapstructure:"color"`

	// --- Upstream fields (flags on syncCmd, usually set via env) ---
	APIVersion     string  `mapstructure:"api-version"`
	V1BaseURL      string  `mapstructure:"v1-base-url"`
	V1CompanyID    string  `mapstructure:"v1-company-id"`
	V1Token        string  `mapstructure:"v1-token"`
	V1RefreshToken string  `mapstructure:"v1-refresh-token"`
	V1ClientID     string  `mapstructure:"v1-client-id"`
	V1ClientSecret string  `mapstructure:"v1-client-secret"`
	V1TokenURL     string  `mapstructure:"v1-token-url"`
	V2BaseURL      string  `mapstructure:"v2-base-url"`
	V2Token        string  `mapstructure:"v2-token"`
	V2Company      string  `mapstructure:"v2-company"`
	MaxRetries     int     `mapstructure:"max-retries"`
	RetryBackoff   string  `mapstructure:"retry-backoff"`
	ConnectTimeout string  `mapstructure:"connect-timeout"`
	RequestTimeout string  `mapstructure:"request-timeout"`
	RateLimit      float64 `mapstructure:"rate-limit"`

	// --- Sync fields ---
	PageSize     int    `mapstructure:"page-size"`
	PageDelay    string `mapstructure:"page-delay"`
	JobTimeout   string `mapstructure:"job-timeout"`
	MaxRangeDays int    `mapstructure:"max-range-days"`

	// --- Calculation fields ---
	MaxCombinations int `mapstructure:"max-combinations"`

	// --- Nested sections from config file ---
	Calendar    CalendarRawInput    `mapstructure:"calendar"`
	Hours       HoursRawInput       `mapstructure:"hours"`
	Performance PerformanceRawInput `mapstructure:"performance"`
}

// DefaultConfig returns a validated config populated with defaults.
func DefaultConfig() *Config {
	cfg := &Config{}
	if err := ProcessAndValidate(cfg, DefaultRawInput()); err != nil {
		panic(fmt.Sprintf("default config must validate: %v", err))
	}
	return cfg
}

// DefaultRawInput returns the raw input that mirrors every flag default.
func DefaultRawInput() *ConfigRawInput {
	return &ConfigRawInput{
		StoreBackend:    string(schema.SQLiteBackend),
		Timezone:        DefaultTimezone,
		Workers:         DefaultWorkers,
		Precision:       DefaultPrecision,
		Output:          string(schema.TextOut),
		Color:           "yes",
		APIVersion:      string(schema.APIv1),
		V1BaseURL:       DefaultV1BaseURL,
		V1TokenURL:      DefaultV1TokenURL,
		V2BaseURL:       DefaultV2BaseURL,
		MaxRetries:      DefaultMaxRetries,
		RetryBackoff:    DefaultRetryBackoff.String(),
		ConnectTimeout:  DefaultConnectTimeout.String(),
		RequestTimeout:  DefaultRequestTimeout.String(),
		RateLimit:       DefaultRateLimit,
		PageSize:        DefaultPageSize,
		PageDelay:       DefaultPageDelay.String(),
		JobTimeout:      DefaultJobTimeout.String(),
		MaxRangeDays:    DefaultMaxRangeDays,
		MaxCombinations: DefaultMaxCombinations,
		Calendar: CalendarRawInput{
			EpochYear:      DefaultEpochYear,
			EpochStartDate: DefaultEpochStartDate,
			WeeksPerYear:   DefaultWeeksPerYear,
		},
		Hours: HoursRawInput{
			FullTime: DefaultFullTimeHours,
			PartTime: DefaultPartTimeHours,
		},
		Performance: PerformanceRawInput{
			Exceeded: DefaultExceededPercent,
			Meet:     DefaultMeetPercent,
		},
	}
}

// Clone returns a copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Performance.Labels != nil {
		clone.Performance.Labels = make(map[schema.PerformanceStatus]string, len(c.Performance.Labels))
		maps.Copy(clone.Performance.Labels, c.Performance.Labels)
	}
	return &clone
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processStoreBackend(cfg, input); err != nil {
		return err
	}
	if err := processCalendar(cfg, input); err != nil {
		return err
	}
	if err := processHours(cfg, input); err != nil {
		return err
	}
	if err := processPerformance(cfg, input); err != nil {
		return err
	}
	if err := processUpstream(cfg, input); err != nil {
		return err
	}
	if err := processSync(cfg, input); err != nil {
		return err
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return Validationf("store-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return Validationf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return Validationf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return Validationf("store-db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return Validationf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return Validationf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	default:
		return Validationf("invalid store backend '%s'. must be sqlite, mysql, postgresql", backend)
	}
	return nil
}

// ValidateUpstreamCredentials checks that the selected API version can authenticate.
// It is only needed by commands that talk to the upstream API.
func ValidateUpstreamCredentials(up UpstreamConfig) error {
	switch up.APIVersion {
	case schema.APIv1:
		if up.V1CompanyID == "" {
			return Validationf("v1-company-id is required for the v1 API")
		}
		if up.V1Token == "" && up.V1RefreshToken == "" {
			return Validationf("v1-token or v1-refresh-token is required for the v1 API")
		}
	case schema.APIv2:
		if up.V2Token == "" {
			return Validationf("v2-token is required for the v2 API")
		}
		if up.V2Company == "" {
			return Validationf("v2-company is required for the v2 API")
		}
	}
	return nil
}

// validateSimpleInputs processes and validates output and worker fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.OutputFile = input.OutputFile
	cfg.Width = input.Width

	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return Validationf("invalid --color value: %v", err)
	}
	cfg.UseColors = colors

	if input.Workers <= 0 {
		return Validationf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.Workers = input.Workers

	if input.Precision < 0 || input.Precision > 4 {
		return Validationf("precision must be between 0 and 4 (received %d)", input.Precision)
	}
	cfg.Precision = input.Precision

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return Validationf("invalid output format '%s'. must be text, csv, json", input.Output)
	}

	if input.MaxCombinations <= 0 {
		return Validationf("max-combinations must be greater than 0 (received %d)", input.MaxCombinations)
	}
	cfg.MaxCombinations = input.MaxCombinations
	return nil
}

// processStoreBackend validates the store backend and its connection string.
func processStoreBackend(cfg *Config, input *ConfigRawInput) error {
	cfg.StoreBackend = schema.DatabaseBackend(strings.ToLower(input.StoreBackend))
	if _, ok := schema.ValidDatabaseBackends[cfg.StoreBackend]; !ok {
		return Validationf("invalid store backend '%s'. must be sqlite, mysql, postgresql", input.StoreBackend)
	}
	cfg.StoreDBConnect = input.StoreDBConnect
	return ValidateDatabaseConnectionString(cfg.StoreBackend, cfg.StoreDBConnect)
}

// processCalendar parses the epoch and timezone.
func processCalendar(cfg *Config, input *ConfigRawInput) error {
	loc, err := time.LoadLocation(input.Timezone)
	if err != nil {
		return Validationf("invalid timezone %q: %v", input.Timezone, err)
	}
	cfg.Calendar.Location = loc

	epoch, err := schema.ParseDate(input.Calendar.EpochStartDate)
	if err != nil {
		return Validationf("invalid calendar.epoch_start_date: %v", err)
	}
	cfg.Calendar.EpochStartDate = epoch

	if input.Calendar.EpochYear <= 0 {
		return Validationf("calendar.epoch_year must be positive (received %d)", input.Calendar.EpochYear)
	}
	cfg.Calendar.EpochYear = input.Calendar.EpochYear

	if input.Calendar.WeeksPerYear < 4 {
		return Validationf("calendar.weeks_per_year must be at least 4 (received %d)", input.Calendar.WeeksPerYear)
	}
	cfg.Calendar.WeeksPerYear = input.Calendar.WeeksPerYear
	return nil
}

// processHours validates fallback weekly hours.
func processHours(cfg *Config, input *ConfigRawInput) error {
	if input.Hours.FullTime <= 0 || input.Hours.FullTime > 168 {
		return Validationf("hours.full_time must be within (0, 168] (received %v)", input.Hours.FullTime)
	}
	if input.Hours.PartTime <= 0 || input.Hours.PartTime > 168 {
		return Validationf("hours.part_time must be within (0, 168] (received %v)", input.Hours.PartTime)
	}
	cfg.Hours = HoursConfig{FullTime: input.Hours.FullTime, PartTime: input.Hours.PartTime}
	return nil
}

// processPerformance validates thresholds and resolves labels.
func processPerformance(cfg *Config, input *ConfigRawInput) error {
	p := input.Performance
	if p.Meet <= 0 {
		return Validationf("performance.meet must be positive (received %v)", p.Meet)
	}
	if p.Exceeded < p.Meet {
		return Validationf("performance.exceeded (%v) cannot be below performance.meet (%v)", p.Exceeded, p.Meet)
	}
	cfg.Performance = PerformanceConfig{
		ExceededThreshold: p.Exceeded,
		MeetThreshold:     p.Meet,
		Labels: map[schema.PerformanceStatus]string{
			schema.StatusExceeded: firstNonEmpty(p.Labels.Exceeded, string(schema.StatusExceeded)),
			schema.StatusMeet:     firstNonEmpty(p.Labels.Meet, string(schema.StatusMeet)),
			schema.StatusBelow:    firstNonEmpty(p.Labels.Below, string(schema.StatusBelow)),
		},
	}
	return nil
}

// processUpstream validates client settings. Credentials are checked separately.
func processUpstream(cfg *Config, input *ConfigRawInput) error {
	up := UpstreamConfig{
		APIVersion:     schema.APIVersion(strings.ToLower(input.APIVersion)),
		V1BaseURL:      strings.TrimSuffix(input.V1BaseURL, "/"),
		V1CompanyID:    input.V1CompanyID,
		V1Token:        input.V1Token,
		V1RefreshToken: input.V1RefreshToken,
		V1ClientID:     input.V1ClientID,
		V1ClientSecret: input.V1ClientSecret,
		V1TokenURL:     input.V1TokenURL,
		V2BaseURL:      strings.TrimSuffix(input.V2BaseURL, "/"),
		V2Token:        input.V2Token,
		V2Company:      input.V2Company,
		RateLimit:      input.RateLimit,
	}
	if _, ok := schema.ValidAPIVersions[up.APIVersion]; !ok {
		return Validationf("invalid api version '%s'. must be v1, v2", input.APIVersion)
	}
	if input.MaxRetries < 0 {
		return Validationf("max-retries cannot be negative (received %d)", input.MaxRetries)
	}
	up.MaxRetries = input.MaxRetries
	if up.RateLimit <= 0 {
		return Validationf("rate-limit must be positive (received %v)", input.RateLimit)
	}

	var err error
	if up.RetryBackoff, err = parsePositiveDuration("retry-backoff", input.RetryBackoff); err != nil {
		return err
	}
	if up.ConnectTimeout, err = parsePositiveDuration("connect-timeout", input.ConnectTimeout); err != nil {
		return err
	}
	if up.RequestTimeout, err = parsePositiveDuration("request-timeout", input.RequestTimeout); err != nil {
		return err
	}
	cfg.Upstream = up
	return nil
}

// processSync validates pagination and job settings.
func processSync(cfg *Config, input *ConfigRawInput) error {
	if input.PageSize <= 0 || input.PageSize > MaxPageSize {
		return Validationf("page-size must be greater than 0 and cannot exceed %d (received %d)", MaxPageSize, input.PageSize)
	}
	if input.MaxRangeDays <= 0 {
		return Validationf("max-range-days must be greater than 0 (received %d)", input.MaxRangeDays)
	}
	delay, err := time.ParseDuration(input.PageDelay)
	if err != nil || delay < 0 {
		return Validationf("invalid page-delay %q", input.PageDelay)
	}
	jobTimeout, err := parsePositiveDuration("job-timeout", input.JobTimeout)
	if err != nil {
		return err
	}
	cfg.Sync = SyncConfig{
		PageSize:     input.PageSize,
		PageDelay:    delay,
		MaxRangeDays: input.MaxRangeDays,
		JobTimeout:   jobTimeout,
	}
	return nil
}

func parsePositiveDuration(name, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, Validationf("invalid %s %q: %v", name, value, err)
	}
	if d <= 0 {
		return 0, Validationf("%s must be positive (received %s)", name, value)
	}
	return d, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
