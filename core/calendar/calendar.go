// Package calendar computes the fixed 7-day reporting weeks and 4-week months
// anchored to the configured epoch date. Nothing here touches storage.
package calendar

import (
	"fmt"
	"time"

	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/schema"
)

// weeksPerMonth is the number of weeks grouped into one reporting month.
const weeksPerMonth = 4

// ErrInvalidRange is returned for years before the epoch or inverted ranges.
var ErrInvalidRange = fmt.Errorf("%w: invalid range", contract.ErrValidation)

// Calendar generates week and month periods from the epoch.
// Year buckets roll over every weeksPerYear weeks, not on January 1st.
type Calendar struct {
	epochYear    int
	epoch        time.Time
	weeksPerYear int
	loc          *time.Location
	now          func() time.Time
}

// New creates a Calendar from validated configuration.
func New(cfg contract.CalendarConfig) *Calendar {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Calendar{
		epochYear:    cfg.EpochYear,
		epoch:        schema.DateOf(cfg.EpochStartDate),
		weeksPerYear: cfg.WeeksPerYear,
		loc:          loc,
		now:          time.Now,
	}
}

// WithClock replaces the clock used by CurrentWeek.
func (c *Calendar) WithClock(now func() time.Time) *Calendar {
	c.now = now
	return c
}

// week builds the i-th week counted from the epoch (0-based).
func (c *Calendar) week(i int) schema.WeekPeriod {
	start := schema.AddDays(c.epoch, 7*i)
	end := schema.AddDays(start, 6)
	number := i%c.weeksPerYear + 1
	return schema.WeekPeriod{
		WeekNumber: number,
		StartDate:  start,
		EndDate:    end,
		Year:       c.epochYear + i/c.weeksPerYear,
		Label:      fmt.Sprintf("Week %d (%s - %s)", number, start.Format("Jan 02"), end.Format("Jan 02, 2006")),
	}
}

func (c *Calendar) checkYear(year int) error {
	if year < c.epochYear {
		return fmt.Errorf("%w: year %d precedes epoch year %d", ErrInvalidRange, year, c.epochYear)
	}
	return nil
}

// WeeksForYear returns the weeksPerYear weeks of a nominal year.
func (c *Calendar) WeeksForYear(year int) ([]schema.WeekPeriod, error) {
	if err := c.checkYear(year); err != nil {
		return nil, err
	}
	first := (year - c.epochYear) * c.weeksPerYear
	weeks := make([]schema.WeekPeriod, 0, c.weeksPerYear)
	for i := first; i < first+c.weeksPerYear; i++ {
		weeks = append(weeks, c.week(i))
	}
	return weeks, nil
}

// MonthsForYear groups the year's weeks into runs of four.
// A trailing group with fewer than four weeks is dropped.
func (c *Calendar) MonthsForYear(year int) ([]schema.MonthPeriod, error) {
	weeks, err := c.WeeksForYear(year)
	if err != nil {
		return nil, err
	}
	months := make([]schema.MonthPeriod, 0, len(weeks)/weeksPerMonth)
	for i := 0; i+weeksPerMonth <= len(weeks); i += weeksPerMonth {
		var group [weeksPerMonth]schema.WeekPeriod
		copy(group[:], weeks[i:i+weeksPerMonth])
		value := i/weeksPerMonth + 1
		start, end := group[0].StartDate, group[weeksPerMonth-1].EndDate
		months = append(months, schema.MonthPeriod{
			Value:     value,
			Title:     fmt.Sprintf("Month %d (%s - %s)", value, start.Format("Jan 02"), end.Format("Jan 02, 2006")),
			Weeks:     group,
			StartDate: start,
			EndDate:   end,
		})
	}
	return months, nil
}

// WeekContaining returns the week that contains date, or nil before the epoch.
func (c *Calendar) WeekContaining(date time.Time) *schema.WeekPeriod {
	d := schema.DateOf(date)
	if d.Before(c.epoch) {
		return nil
	}
	w := c.week(int(d.Sub(c.epoch)/schema.Day) / 7)
	return &w
}

// CurrentWeek returns the week containing today in the configured timezone.
func (c *Calendar) CurrentWeek() *schema.WeekPeriod {
	return c.WeekContaining(c.now().In(c.loc))
}

// WeekByNumber returns week n (1-based) of a nominal year, or nil if out of range.
func (c *Calendar) WeekByNumber(n, year int) *schema.WeekPeriod {
	if year < c.epochYear || n < 1 || n > c.weeksPerYear {
		return nil
	}
	w := c.week((year-c.epochYear)*c.weeksPerYear + n - 1)
	return &w
}

// WeeksIntersecting returns the weeks of a year overlapping [start, end],
// including weeks that only partially overlap at either boundary.
func (c *Calendar) WeeksIntersecting(start, end time.Time, year int) ([]schema.WeekPeriod, error) {
	start, end = schema.DateOf(start), schema.DateOf(end)
	if start.After(end) {
		return nil, fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange, start.Format(schema.DateLayout), end.Format(schema.DateLayout))
	}
	weeks, err := c.WeeksForYear(year)
	if err != nil {
		return nil, err
	}
	var out []schema.WeekPeriod
	for _, w := range weeks {
		if !w.StartDate.After(end) && !w.EndDate.Before(start) {
			out = append(out, w)
		}
	}
	return out, nil
}
