package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/huangsam/worktally/schema"
)

// Color variables for console output.
var (
	ExceededColor = color.New(color.FgGreen, color.Bold) // ExceededColor marks users above target.
	MeetColor     = color.New(color.FgCyan)              // MeetColor marks users on target.
	BelowColor    = color.New(color.FgRed, color.Bold)   // BelowColor marks users under target.
	FailedColor   = color.New(color.FgRed)
	OKColor       = color.New(color.FgGreen)
)

// GetColorLabel returns a colored label for console output (table).
func GetColorLabel(status schema.PerformanceStatus, label string) string {
	switch status {
	case schema.StatusExceeded:
		return ExceededColor.Sprint(label)
	case schema.StatusMeet:
		return MeetColor.Sprint(label)
	default:
		return BelowColor.Sprint(label)
	}
}

// GetSyncStatusLabel returns a colored sync status for console output.
func GetSyncStatusLabel(status schema.SyncStatus) string {
	switch status {
	case schema.SyncCompleted:
		return OKColor.Sprint(status)
	case schema.SyncFailed:
		return FailedColor.Sprint(status)
	default:
		return string(status)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path means os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// LogInfo logs a progress message to stderr so stdout stays parseable.
func LogInfo(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
}

// GetDBFilePath returns the path to the default SQLite DB file.
func GetDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".worktally.db"
	}
	return filepath.Join(homeDir, ".worktally.db")
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}

// ParseDateRange parses and orders a start/end pair of YYYY-MM-DD strings.
func ParseDateRange(startStr, endStr string) (time.Time, time.Time, error) {
	if startStr == "" || endStr == "" {
		return time.Time{}, time.Time{}, Validationf("both --start and --end are required")
	}
	start, err := schema.ParseDate(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, Validationf("%v", err)
	}
	end, err := schema.ParseDate(endStr)
	if err != nil {
		return time.Time{}, time.Time{}, Validationf("%v", err)
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, Validationf("start date (%s) cannot be after end date (%s)", startStr, endStr)
	}
	return start, end, nil
}

// ParseUserIDs parses a comma-separated list of numeric user IDs.
func ParseUserIDs(s string) ([]int64, error) {
	var ids []int64
	for part := range strings.SplitSeq(s, ",") {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil || id <= 0 {
			return nil, Validationf("invalid user id %q", p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// DayBounds returns [start, end) of a calendar date in loc, expressed in UTC.
func DayBounds(date time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start.UTC(), start.AddDate(0, 0, 1).UTC()
}

// TruncateLabel shortens a label to maxWidth runes with an ellipsis suffix.
func TruncateLabel(label string, maxWidth int) string {
	runes := []rune(label)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return label
}
