// Package target computes expected working hours for a user over a date range.
package target

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/worktally/core/period"
	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/schema"
)

// Store is the read-only persistence the calculator needs.
type Store interface {
	contract.UserStore
	contract.SettingsStore
}

// Calculator resolves weekly-hour settings per work status period and
// turns them into target hours.
type Calculator struct {
	store           Store
	hours           contract.HoursConfig
	maxCombinations int
}

// NewCalculator creates a Calculator with fallback hours and a combination cap.
func NewCalculator(store Store, hours contract.HoursConfig, maxCombinations int) *Calculator {
	if maxCombinations <= 0 {
		maxCombinations = contract.DefaultMaxCombinations
	}
	return &Calculator{store: store, hours: hours, maxCombinations: maxCombinations}
}

// slot is a sub-period whose override candidates are constant.
type slot struct {
	start, end time.Time
	status     schema.WorkStatus
	candidates []schema.UserHourOverride
}

// CalculateTargetHours returns one target calculation per setting combination.
// Failures are reported through the Success and Error fields.
func (c *Calculator) CalculateTargetHours(ctx context.Context, userID int64, start, end time.Time) schema.TargetHoursResult {
	start, end = schema.DateOf(start), schema.DateOf(end)
	result := schema.TargetHoursResult{UserID: userID, StartDate: start, EndDate: end}
	if err := c.calculate(ctx, &result); err != nil {
		result.Success = false
		result.Error = err.Error()
		result.Periods = nil
		result.TargetCalculations = nil
		return result
	}
	result.Success = true
	return result
}

// Calculate runs CalculateTargetHours for every requested user.
func (c *Calculator) Calculate(ctx context.Context, req schema.CalculationRequest) ([]schema.TargetHoursResult, error) {
	ids, err := resolveUserIDs(ctx, c.store, req)
	if err != nil {
		return nil, err
	}
	results := make([]schema.TargetHoursResult, 0, len(ids))
	for _, id := range ids {
		results = append(results, c.CalculateTargetHours(ctx, id, req.StartDate, req.EndDate))
	}
	return results, nil
}

func (c *Calculator) calculate(ctx context.Context, result *schema.TargetHoursResult) error {
	if result.StartDate.After(result.EndDate) {
		return contract.Validationf("start date %s is after end date %s",
			result.StartDate.Format(schema.DateLayout), result.EndDate.Format(schema.DateLayout))
	}
	user, err := c.store.GetUser(ctx, result.UserID)
	if err != nil {
		return fmt.Errorf("failed to load user %d: %w", result.UserID, err)
	}

	effStart, effEnd := result.StartDate, result.EndDate
	if user.HireDate != nil {
		effStart = schema.MaxDate(effStart, schema.DateOf(*user.HireDate))
	}
	if user.EndDate != nil {
		effEnd = schema.MinDate(effEnd, schema.DateOf(*user.EndDate))
	}
	result.EffectiveStart, result.EffectiveEnd = effStart, effEnd
	if effStart.After(effEnd) {
		// Not employed during the range.
		result.Periods = []schema.WorkStatusPeriod{}
		result.TargetCalculations = []schema.TargetCalculation{{
			Label:       string(schema.DefaultSetting),
			OverrideIDs: []int64{},
			Breakdown:   []schema.TargetPeriodBreakdown{},
		}}
		return nil
	}

	changes, err := c.store.ListWorkStatusChanges(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to load work status changes: %w", err)
	}
	periods, err := period.SegmentChanges(user.WorkStatus, changes, effStart, effEnd)
	if err != nil {
		return err
	}
	settings, err := c.store.ListWorkStatusSettings(ctx)
	if err != nil {
		return fmt.Errorf("failed to load work status settings: %w", err)
	}
	overrides, err := c.store.ListUserOverrides(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("failed to load hour overrides: %w", err)
	}

	slots := splitAtOverrides(periods, overrides)
	choices, truncated := combinations(slots, c.maxCombinations)
	defaults := c.defaultHours(settings)

	result.Periods = periods
	result.Truncated = truncated
	result.TargetCalculations = make([]schema.TargetCalculation, 0, len(choices))
	for i, choice := range choices {
		result.TargetCalculations = append(result.TargetCalculations, buildCalculation(i, slots, choice, defaults))
	}
	return nil
}

// defaultHours maps each work status to its system default weekly hours.
// Active setting rows win over configured fallbacks.
func (c *Calculator) defaultHours(settings []schema.WorkStatusSetting) map[schema.WorkStatus]float64 {
	out := map[schema.WorkStatus]float64{
		schema.FullTime: c.hours.ForStatus(schema.FullTime),
		schema.PartTime: c.hours.ForStatus(schema.PartTime),
	}
	for _, s := range settings {
		if !s.IsActive || s.HoursPerWeek <= 0 {
			continue
		}
		if _, ok := schema.ValidWorkStatuses[s.WorkStatus]; ok {
			out[s.WorkStatus] = s.HoursPerWeek
		}
	}
	return out
}

// splitAtOverrides cuts each period wherever an override of the same status
// starts or ends, so every slot has a constant set of active overrides.
func splitAtOverrides(periods []schema.WorkStatusPeriod, overrides []schema.UserHourOverride) []slot {
	var slots []slot
	for _, p := range periods {
		cuts := []time.Time{p.StartDate}
		addCut := func(d time.Time) {
			d = schema.DateOf(d)
			if d.After(p.StartDate) && !d.After(p.EndDate) && !slices.ContainsFunc(cuts, d.Equal) {
				cuts = append(cuts, d)
			}
		}
		for _, o := range overrides {
			if o.WorkStatus != p.WorkStatus {
				continue
			}
			if o.StartDate != nil {
				addCut(*o.StartDate)
			}
			if o.EndDate != nil {
				addCut(schema.AddDays(*o.EndDate, 1))
			}
		}
		slices.SortFunc(cuts, func(a, b time.Time) int { return a.Compare(b) })

		for i, cut := range cuts {
			end := p.EndDate
			if i+1 < len(cuts) {
				end = schema.AddDays(cuts[i+1], -1)
			}
			s := slot{start: cut, end: end, status: p.WorkStatus}
			for _, o := range overrides {
				if o.WorkStatus == p.WorkStatus && o.ActiveDuring(cut, end) {
					s.candidates = append(s.candidates, o)
				}
			}
			slices.SortFunc(s.candidates, func(a, b schema.UserHourOverride) int { return cmp.Compare(a.ID, b.ID) })
			slots = append(slots, s)
		}
	}
	return slots
}

// choiceKey identifies a set of overlapping overrides.
func choiceKey(candidates []schema.UserHourOverride) string {
	ids := make([]string, len(candidates))
	for i, o := range candidates {
		ids[i] = fmt.Sprint(o.ID)
	}
	return strings.Join(ids, ",")
}

// combinations enumerates one pick per distinct ambiguous override set.
// Each returned map goes from choice key to the chosen override ID.
func combinations(slots []slot, limit int) ([]map[string]int64, bool) {
	var keys []string
	sets := map[string][]schema.UserHourOverride{}
	for _, s := range slots {
		if len(s.candidates) < 2 {
			continue
		}
		k := choiceKey(s.candidates)
		if _, ok := sets[k]; !ok {
			keys = append(keys, k)
			sets[k] = s.candidates
		}
	}

	out := []map[string]int64{{}}
	truncated := false
	for _, k := range keys {
		var next []map[string]int64
		for _, base := range out {
			for _, o := range sets[k] {
				if len(next) == limit {
					truncated = true
					break
				}
				m := make(map[string]int64, len(base)+1)
				maps.Copy(m, base)
				m[k] = o.ID
				next = append(next, m)
			}
		}
		out = next
	}
	return out, truncated
}

func buildCalculation(index int, slots []slot, choice map[string]int64, defaults map[schema.WorkStatus]float64) schema.TargetCalculation {
	calc := schema.TargetCalculation{
		CombinationIndex: index,
		OverrideIDs:      []int64{},
		Breakdown:        make([]schema.TargetPeriodBreakdown, 0, len(slots)),
	}
	var total float64
	for _, s := range slots {
		days := schema.DaysInclusive(s.start, s.end)
		row := schema.TargetPeriodBreakdown{
			StartDate:    s.start,
			EndDate:      s.end,
			Days:         days,
			WorkStatus:   s.status,
			HoursPerWeek: defaults[s.status],
			Source:       schema.DefaultSetting,
		}
		if o := pick(s.candidates, choice); o != nil {
			id := o.ID
			row.HoursPerWeek = o.HoursPerWeek
			row.Source = schema.OverrideSetting
			row.OverrideID = &id
			if !slices.Contains(calc.OverrideIDs, id) {
				calc.OverrideIDs = append(calc.OverrideIDs, id)
			}
		}
		hours := row.HoursPerWeek * float64(days) / 7
		total += hours
		row.TargetHours = schema.Round2(hours)
		calc.TotalDays += days
		calc.Breakdown = append(calc.Breakdown, row)
	}
	slices.Sort(calc.OverrideIDs)
	calc.TargetTotalHours = schema.Round2(total)
	calc.Label = label(calc.OverrideIDs)
	return calc
}

func pick(candidates []schema.UserHourOverride, choice map[string]int64) *schema.UserHourOverride {
	switch len(candidates) {
	case 0:
		return nil
	case 1:
		return &candidates[0]
	}
	id := choice[choiceKey(candidates)]
	for i := range candidates {
		if candidates[i].ID == id {
			return &candidates[i]
		}
	}
	return &candidates[0]
}

func label(ids []int64) string {
	if len(ids) == 0 {
		return string(schema.DefaultSetting)
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("override #%d", id)
	}
	return strings.Join(parts, " + ")
}

// resolveUserIDs expands a request into concrete user IDs.
func resolveUserIDs(ctx context.Context, users contract.UserStore, req schema.CalculationRequest) ([]int64, error) {
	if !req.CalculateAll {
		if len(req.UserIDs) == 0 {
			return nil, contract.Validationf("no user ids given")
		}
		return req.UserIDs, nil
	}
	active, err := users.ListActiveUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}
	ids := make([]int64, 0, len(active))
	for _, u := range active {
		ids = append(ids, u.ID)
	}
	return ids, nil
}
