package calendar

import (
	"testing"
	"time"

	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	d, err := schema.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestCalendar(weeksPerYear int) *Calendar {
	return New(contract.CalendarConfig{
		EpochYear:      2024,
		EpochStartDate: date("2024-01-15"),
		WeeksPerYear:   weeksPerYear,
		Location:       time.UTC,
	})
}

func TestWeeksForYearDeterminism(t *testing.T) {
	cal := newTestCalendar(52)
	for _, year := range []int{2024, 2025, 2030} {
		weeks, err := cal.WeeksForYear(year)
		require.NoError(t, err)
		require.Len(t, weeks, 52)

		for i, w := range weeks {
			assert.Equal(t, i+1, w.WeekNumber)
			assert.Equal(t, year, w.Year)
			assert.Equal(t, schema.AddDays(w.StartDate, 6), w.EndDate)
			if i > 0 {
				assert.Equal(t, schema.AddDays(weeks[i-1].EndDate, 1), w.StartDate, "weeks must be contiguous")
			}
		}
	}
}

func TestWeeksForYearBoundaries(t *testing.T) {
	cal := newTestCalendar(52)

	weeks, err := cal.WeeksForYear(2024)
	require.NoError(t, err)
	assert.Equal(t, date("2024-01-15"), weeks[0].StartDate)
	assert.Equal(t, date("2024-01-21"), weeks[0].EndDate)
	assert.Equal(t, "Week 1 (Jan 15 - Jan 21, 2024)", weeks[0].Label)

	next, err := cal.WeeksForYear(2025)
	require.NoError(t, err)
	assert.Equal(t, date("2025-01-13"), next[0].StartDate, "year rolls over after 52 weeks, not on the calendar year")
	assert.Equal(t, schema.AddDays(weeks[51].EndDate, 1), next[0].StartDate)
}

func TestWeeksForYearBeforeEpoch(t *testing.T) {
	cal := newTestCalendar(52)
	_, err := cal.WeeksForYear(2023)
	assert.ErrorIs(t, err, ErrInvalidRange)
	assert.ErrorIs(t, err, contract.ErrValidation)

	_, err = cal.MonthsForYear(2023)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestMonthsForYear(t *testing.T) {
	tests := []struct {
		weeksPerYear int
		months       int
	}{
		{52, 13},
		{10, 2},
		{4, 1},
		{7, 1},
	}
	for _, tt := range tests {
		cal := newTestCalendar(tt.weeksPerYear)
		months, err := cal.MonthsForYear(2024)
		require.NoError(t, err)
		assert.Len(t, months, tt.months)
		for i, m := range months {
			assert.Equal(t, i+1, m.Value)
			assert.Len(t, m.Weeks, 4)
			assert.Equal(t, m.Weeks[0].StartDate, m.StartDate)
			assert.Equal(t, m.Weeks[3].EndDate, m.EndDate)
			assert.Equal(t, 28, schema.DaysInclusive(m.StartDate, m.EndDate))
		}
	}

	cal := newTestCalendar(52)
	months, err := cal.MonthsForYear(2024)
	require.NoError(t, err)
	assert.Equal(t, date("2024-02-11"), months[0].EndDate)
	assert.Equal(t, "Month 1 (Jan 15 - Feb 11, 2024)", months[0].Title)
}

func TestCurrentWeek(t *testing.T) {
	cal := newTestCalendar(52).WithClock(func() time.Time {
		return time.Date(2024, 1, 17, 10, 0, 0, 0, time.UTC)
	})
	w := cal.CurrentWeek()
	require.NotNil(t, w)
	assert.Equal(t, 1, w.WeekNumber)

	cal.WithClock(func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) })
	assert.Nil(t, cal.CurrentWeek())
}

func TestCurrentWeekUsesConfiguredTimezone(t *testing.T) {
	manila, err := time.LoadLocation("Asia/Manila")
	require.NoError(t, err)
	cal := New(contract.CalendarConfig{
		EpochYear:      2024,
		EpochStartDate: date("2024-01-15"),
		WeeksPerYear:   52,
		Location:       manila,
	}).WithClock(func() time.Time {
		// Sunday evening UTC is already Monday in Manila.
		return time.Date(2024, 1, 21, 20, 0, 0, 0, time.UTC)
	})
	w := cal.CurrentWeek()
	require.NotNil(t, w)
	assert.Equal(t, 2, w.WeekNumber)
}

func TestWeekByNumber(t *testing.T) {
	cal := newTestCalendar(52)

	w := cal.WeekByNumber(52, 2024)
	require.NotNil(t, w)
	assert.Equal(t, date("2025-01-06"), w.StartDate)
	assert.Equal(t, date("2025-01-12"), w.EndDate)
	assert.Equal(t, 2024, w.Year)

	assert.Nil(t, cal.WeekByNumber(0, 2024))
	assert.Nil(t, cal.WeekByNumber(53, 2024))
	assert.Nil(t, cal.WeekByNumber(1, 2023))
}

func TestWeeksIntersecting(t *testing.T) {
	cal := newTestCalendar(52)

	weeks, err := cal.WeeksIntersecting(date("2024-01-20"), date("2024-01-23"), 2024)
	require.NoError(t, err)
	require.Len(t, weeks, 2)
	assert.Equal(t, 1, weeks[0].WeekNumber)
	assert.Equal(t, 2, weeks[1].WeekNumber)

	weeks, err = cal.WeeksIntersecting(date("2024-01-21"), date("2024-01-21"), 2024)
	require.NoError(t, err)
	require.Len(t, weeks, 1, "a range touching only the last day of a week still intersects it")

	weeks, err = cal.WeeksIntersecting(date("2023-01-01"), date("2023-12-31"), 2024)
	require.NoError(t, err)
	assert.Empty(t, weeks)

	_, err = cal.WeeksIntersecting(date("2024-02-01"), date("2024-01-01"), 2024)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestWeekContaining(t *testing.T) {
	cal := newTestCalendar(52)
	w := cal.WeekContaining(time.Date(2025, 1, 13, 8, 0, 0, 0, time.UTC))
	require.NotNil(t, w)
	assert.Equal(t, 1, w.WeekNumber)
	assert.Equal(t, 2025, w.Year)
	assert.Nil(t, cal.WeekContaining(date("2024-01-14")))
}
