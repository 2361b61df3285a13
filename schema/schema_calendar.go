package schema

import "time"

// WeekPeriod is one 7-day reporting week anchored to the calendar epoch.
type WeekPeriod struct {
	WeekNumber int       `json:"week_number"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	Year       int       `json:"year"`
	Label      string    `json:"label"`
}

// Contains reports whether date falls inside the week.
func (w WeekPeriod) Contains(date time.Time) bool {
	d := DateOf(date)
	return !d.Before(w.StartDate) && !d.After(w.EndDate)
}

// MonthPeriod groups exactly four consecutive weeks.
type MonthPeriod struct {
	Value     int           `json:"value"`
	Title     string        `json:"title"`
	Weeks     [4]WeekPeriod `json:"weeks"`
	StartDate time.Time     `json:"start_date"`
	EndDate   time.Time     `json:"end_date"`
}
