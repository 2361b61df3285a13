// Package period splits date ranges into sub-periods of constant work status.
package period

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/schema"
)

// Segmenter derives work status periods from a user's change history.
type Segmenter struct {
	users contract.UserStore
}

// NewSegmenter creates a Segmenter reading from the given store.
func NewSegmenter(users contract.UserStore) *Segmenter {
	return &Segmenter{users: users}
}

// Segment returns the contiguous work status periods covering [start, end].
func (s *Segmenter) Segment(ctx context.Context, userID int64, start, end time.Time) ([]schema.WorkStatusPeriod, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	changes, err := s.users.ListWorkStatusChanges(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load work status changes for user %d: %w", userID, err)
	}
	return SegmentChanges(user.WorkStatus, changes, start, end)
}

// SegmentChanges splits [start, end] at every change that alters the effective status.
//
// The status in effect at start is the new value of the latest change on or before
// start; failing that, the old value of the earliest later change; failing that,
// current. Changes take effect on their effective date; when several share a date
// only the last one counts. Adjacent runs with the same status are merged and day
// counts are inclusive.
func SegmentChanges(current schema.WorkStatus, changes []schema.WorkStatusChange, start, end time.Time) ([]schema.WorkStatusPeriod, error) {
	start, end = schema.DateOf(start), schema.DateOf(end)
	if start.After(end) {
		return nil, contract.Validationf("start date %s is after end date %s", start.Format(schema.DateLayout), end.Format(schema.DateLayout))
	}
	if current == "" {
		current = schema.FullTime
	}

	ordered := validChanges(changes)
	status := statusAt(current, ordered, start)

	var periods []schema.WorkStatusPeriod
	segStart := start
	for i, ch := range ordered {
		eff := schema.DateOf(ch.EffectiveDate)
		if !eff.After(start) || eff.After(end) {
			continue
		}
		// Only the last change on a given day takes effect.
		if i+1 < len(ordered) && schema.DateOf(ordered[i+1].EffectiveDate).Equal(eff) {
			continue
		}
		if ch.NewValue == status || !eff.After(segStart) {
			continue
		}
		periods = append(periods, newPeriod(segStart, schema.AddDays(eff, -1), status))
		segStart, status = eff, ch.NewValue
	}
	periods = append(periods, newPeriod(segStart, end, status))
	return periods, nil
}

// validChanges drops entries with unknown statuses and orders the rest chronologically.
func validChanges(changes []schema.WorkStatusChange) []schema.WorkStatusChange {
	out := make([]schema.WorkStatusChange, 0, len(changes))
	for _, ch := range changes {
		if _, ok := schema.ValidWorkStatuses[ch.NewValue]; !ok {
			continue
		}
		out = append(out, ch)
	}
	slices.SortStableFunc(out, func(a, b schema.WorkStatusChange) int {
		if c := a.EffectiveDate.Compare(b.EffectiveDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func statusAt(current schema.WorkStatus, ordered []schema.WorkStatusChange, day time.Time) schema.WorkStatus {
	var last *schema.WorkStatusChange
	for i := range ordered {
		if schema.DateOf(ordered[i].EffectiveDate).After(day) {
			if last != nil {
				return last.NewValue
			}
			if _, ok := schema.ValidWorkStatuses[ordered[i].OldValue]; ok {
				return ordered[i].OldValue
			}
			return current
		}
		last = &ordered[i]
	}
	if last != nil {
		return last.NewValue
	}
	return current
}

func newPeriod(start, end time.Time, status schema.WorkStatus) schema.WorkStatusPeriod {
	return schema.WorkStatusPeriod{
		StartDate:  start,
		EndDate:    end,
		WorkStatus: status,
		Days:       schema.DaysInclusive(start, end),
	}
}
