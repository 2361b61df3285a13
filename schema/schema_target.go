package schema

import "time"

// IvaUser is a tracked worker with their upstream identities.
type IvaUser struct {
	ID               int64      `json:"id"`
	FullName         string     `json:"full_name"`
	Email            string     `json:"email"`
	WorkStatus       WorkStatus `json:"work_status"`
	HireDate         *time.Time `json:"hire_date,omitempty"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	ExternalUserIDv1 string     `json:"timedoctor_v1_user_id,omitempty"`
	ExternalUserIDv2 string     `json:"timedoctor_v2_user_id,omitempty"`
	IsActive         bool       `json:"is_active"`
}

// ExternalID returns the upstream user ID for the given API version.
func (u IvaUser) ExternalID(version APIVersion) string {
	if version == APIv2 {
		return u.ExternalUserIDv2
	}
	return u.ExternalUserIDv1
}

// WorkStatusChange is one entry of a user's work status history.
type WorkStatusChange struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"iva_user_id"`
	OldValue      WorkStatus `json:"old_value"`
	NewValue      WorkStatus `json:"new_value"`
	EffectiveDate time.Time  `json:"effective_date"`
}

// WorkStatusPeriod is a maximal sub-range with a single effective work status.
type WorkStatusPeriod struct {
	StartDate  time.Time  `json:"start_date"`
	EndDate    time.Time  `json:"end_date"`
	WorkStatus WorkStatus `json:"work_status"`
	Days       int        `json:"days"`
}

// WorkStatusSetting is the system default weekly hours for a work status.
type WorkStatusSetting struct {
	ID           int64      `json:"id"`
	Key          string     `json:"setting_key"`
	WorkStatus   WorkStatus `json:"work_status"`
	HoursPerWeek float64    `json:"hours_per_week"`
	IsActive     bool       `json:"is_active"`
}

// UserHourOverride replaces a setting's weekly hours for one user within
// [StartDate, EndDate]. Either bound may be open.
type UserHourOverride struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"iva_user_id"`
	SettingID    int64      `json:"setting_id"`
	WorkStatus   WorkStatus `json:"work_status"`
	HoursPerWeek float64    `json:"hours_per_week"`
	StartDate    *time.Time `json:"start_date,omitempty"`
	EndDate      *time.Time `json:"end_date,omitempty"`
}

// ActiveDuring reports whether the override covers all of [start, end].
func (o UserHourOverride) ActiveDuring(start, end time.Time) bool {
	if o.StartDate != nil && o.StartDate.After(start) {
		return false
	}
	if o.EndDate != nil && o.EndDate.Before(end) {
		return false
	}
	return true
}

// TargetPeriodBreakdown is the audit row for one period of a combination.
type TargetPeriodBreakdown struct {
	StartDate    time.Time     `json:"start_date"`
	EndDate      time.Time     `json:"end_date"`
	Days         int           `json:"days"`
	WorkStatus   WorkStatus    `json:"work_status"`
	HoursPerWeek float64       `json:"hours_per_week"`
	Source       SettingSource `json:"source"`
	OverrideID   *int64        `json:"override_id,omitempty"`
	TargetHours  float64       `json:"target_hours"`
}

// TargetCalculation is the result for one setting combination.
type TargetCalculation struct {
	CombinationIndex int                     `json:"combination_index"`
	Label            string                  `json:"label"`
	OverrideIDs      []int64                 `json:"override_ids"`
	TargetTotalHours float64                 `json:"target_total_hours"`
	TotalDays        int                     `json:"total_days"`
	Breakdown        []TargetPeriodBreakdown `json:"breakdown"`
}

// TargetHoursResult is the envelope returned by the target-hours calculator.
// Callers must check Success before reading the calculations.
type TargetHoursResult struct {
	Success            bool                `json:"success"`
	Error              string              `json:"error,omitempty"`
	UserID             int64               `json:"iva_user_id"`
	StartDate          time.Time           `json:"start_date"`
	EndDate            time.Time           `json:"end_date"`
	EffectiveStart     time.Time           `json:"effective_start"`
	EffectiveEnd       time.Time           `json:"effective_end"`
	Periods            []WorkStatusPeriod  `json:"periods"`
	TargetCalculations []TargetCalculation `json:"target_calculations"`
	Truncated          bool                `json:"truncated,omitempty"`
}
