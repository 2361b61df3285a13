// Package performance compares billable hours against target hours.
package performance

import (
	"context"
	"fmt"
	"time"

	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/schema"
)

// TargetCalculator yields the target-hours envelope for a user.
type TargetCalculator interface {
	CalculateTargetHours(ctx context.Context, userID int64, start, end time.Time) schema.TargetHoursResult
}

// Store is the persistence the composer reads.
type Store interface {
	contract.UserStore
	SumBillableSeconds(ctx context.Context, userID int64, start, end time.Time) (int64, error)
}

// Composer classifies actual billable hours against every target combination.
type Composer struct {
	target TargetCalculator
	store  Store
	cfg    contract.PerformanceConfig
}

// NewComposer creates a performance composer.
func NewComposer(target TargetCalculator, store Store, cfg contract.PerformanceConfig) *Composer {
	return &Composer{target: target, store: store, cfg: cfg}
}

// CalculatePerformance builds one user's performance envelope for [start, end].
// When actualBillableHours is nil the hours are summed from the billable daily summaries.
func (c *Composer) CalculatePerformance(ctx context.Context, userID int64, start, end time.Time, actualBillableHours *float64) schema.PerformanceResponse {
	resp := schema.PerformanceResponse{
		UserID:    userID,
		StartDate: schema.DateOf(start),
		EndDate:   schema.DateOf(end),
		Results:   []schema.PerformanceResult{},
	}

	target := c.target.CalculateTargetHours(ctx, userID, start, end)
	if !target.Success {
		resp.Error = target.Error
		return resp
	}
	resp.Target = &target

	if user, err := c.store.GetUser(ctx, userID); err == nil {
		resp.FullName = user.FullName
	}

	actual, err := c.actualHours(ctx, userID, resp.StartDate, resp.EndDate, actualBillableHours)
	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	resp.ActualHours = schema.Round2(actual)

	for _, calc := range target.TargetCalculations {
		resp.Results = append(resp.Results, c.compare(calc, actual))
	}
	resp.Success = true
	return resp
}

// Calculate runs CalculatePerformance for every requested user, or every active user.
func (c *Composer) Calculate(ctx context.Context, req schema.CalculationRequest) ([]schema.PerformanceResponse, error) {
	if req.StartDate.After(req.EndDate) {
		return nil, contract.Validationf("start date (%s) cannot be after end date (%s)",
			req.StartDate.Format(schema.DateLayout), req.EndDate.Format(schema.DateLayout))
	}
	ids := req.UserIDs
	if req.CalculateAll {
		users, err := c.store.ListActiveUsers(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list active users: %w", err)
		}
		ids = make([]int64, 0, len(users))
		for _, u := range users {
			ids = append(ids, u.ID)
		}
	} else if len(ids) == 0 {
		return nil, contract.Validationf("no user ids given")
	}

	out := make([]schema.PerformanceResponse, 0, len(ids))
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		out = append(out, c.CalculatePerformance(ctx, id, req.StartDate, req.EndDate, nil))
	}
	return out, nil
}

// Classify maps a percentage onto a performance status using the configured thresholds.
func (c *Composer) Classify(percentage float64) schema.PerformanceStatus {
	return Classify(percentage, c.cfg)
}

// Classify maps a percentage onto a performance status.
func Classify(percentage float64, cfg contract.PerformanceConfig) schema.PerformanceStatus {
	switch {
	case percentage >= cfg.ExceededThreshold:
		return schema.StatusExceeded
	case percentage >= cfg.MeetThreshold:
		return schema.StatusMeet
	default:
		return schema.StatusBelow
	}
}

// compare classifies on the unrounded percentage and rounds only what is reported.
func (c *Composer) compare(calc schema.TargetCalculation, actual float64) schema.PerformanceResult {
	target := calc.TargetTotalHours
	percentage := 0.0
	if target > 0 {
		percentage = actual / target * 100
	}
	status := c.Classify(percentage)
	return schema.PerformanceResult{
		CombinationIndex: calc.CombinationIndex,
		Label:            calc.Label,
		TargetHours:      target,
		ActualHours:      schema.Round2(actual),
		Percentage:       schema.Round2(percentage),
		ActualVsTarget:   schema.Round2(actual - target),
		Status:           status,
		StatusLabel:      c.cfg.Label(status),
	}
}

func (c *Composer) actualHours(ctx context.Context, userID int64, start, end time.Time, given *float64) (float64, error) {
	if given != nil {
		if *given < 0 {
			return 0, contract.Validationf("actual billable hours cannot be negative (received %v)", *given)
		}
		return *given, nil
	}
	secs, err := c.store.SumBillableSeconds(ctx, userID, start, end)
	if err != nil {
		return 0, fmt.Errorf("failed to sum billable hours for user %d: %w", userID, err)
	}
	return float64(secs) / 3600, nil
}
