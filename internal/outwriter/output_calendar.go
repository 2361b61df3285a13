package outwriter

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/schema"
)

// PrintWeeks outputs reporting weeks, dispatching based on the output format configured.
func PrintWeeks(weeks []schema.WeekPeriod, cfg *contract.Config) error {
	return dispatch(cfg, "weeks",
		func(w io.Writer) error { return writeJSON(w, weeks) },
		func(w io.Writer) error { return writeCSVWeeks(w, weeks) },
		func(w io.Writer) error { return renderTable(w, []string{"Year", "Week", "Start", "End"}, weekRows(weeks)) },
	)
}

func weekRows(weeks []schema.WeekPeriod) [][]string {
	data := make([][]string, 0, len(weeks))
	for _, wk := range weeks {
		data = append(data, []string{
			strconv.Itoa(wk.Year),
			strconv.Itoa(wk.WeekNumber),
			wk.StartDate.Format(schema.DateLayout),
			wk.EndDate.Format(schema.DateLayout),
		})
	}
	return data
}

func writeCSVWeeks(w io.Writer, weeks []schema.WeekPeriod) error {
	header := []string{"year", "week_number", "start_date", "end_date", "label"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for i, row := range weekRows(weeks) {
			if err := cw.Write(append(row, weeks[i].Label)); err != nil {
				return err
			}
		}
		return nil
	})
}

// PrintMonths outputs 4-week reporting months, dispatching based on the output format configured.
func PrintMonths(months []schema.MonthPeriod, cfg *contract.Config) error {
	return dispatch(cfg, "months",
		func(w io.Writer) error { return writeJSON(w, months) },
		func(w io.Writer) error { return writeCSVMonths(w, months) },
		func(w io.Writer) error { return renderTable(w, []string{"Month", "Title", "Start", "End"}, monthRows(months)) },
	)
}

func monthRows(months []schema.MonthPeriod) [][]string {
	data := make([][]string, 0, len(months))
	for _, m := range months {
		data = append(data, []string{
			strconv.Itoa(m.Value),
			m.Title,
			m.StartDate.Format(schema.DateLayout),
			m.EndDate.Format(schema.DateLayout),
		})
	}
	return data
}

func writeCSVMonths(w io.Writer, months []schema.MonthPeriod) error {
	header := []string{"month", "title", "start_date", "end_date"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, row := range monthRows(months) {
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}
