package schema

import "time"

// PerformanceResult compares actual billable hours with one target combination.
type PerformanceResult struct {
	CombinationIndex int               `json:"combination_index"`
	Label            string            `json:"label"`
	TargetHours      float64           `json:"target_hours"`
	ActualHours      float64           `json:"actual_hours"`
	Percentage       float64           `json:"percentage"`
	ActualVsTarget   float64           `json:"actual_vs_target"`
	Status           PerformanceStatus `json:"status"`
	StatusLabel      string            `json:"status_label"`
}

// PerformanceResponse is the envelope returned by the performance composer.
type PerformanceResponse struct {
	Success     bool                `json:"success"`
	Error       string              `json:"error,omitempty"`
	UserID      int64               `json:"iva_user_id"`
	FullName    string              `json:"full_name,omitempty"`
	StartDate   time.Time           `json:"start_date"`
	EndDate     time.Time           `json:"end_date"`
	ActualHours float64             `json:"actual_hours"`
	Results     []PerformanceResult `json:"results"`
	Target      *TargetHoursResult  `json:"target,omitempty"`
}

// CalculationRequest selects which users to compute performance for.
type CalculationRequest struct {
	UserIDs      []int64
	StartDate    time.Time
	EndDate      time.Time
	CalculateAll bool
}
