package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/schema"
)

// PrintSummaries outputs daily worklog summaries, dispatching based on the output format configured.
func PrintSummaries(rows []schema.DailyWorklogSummary, cfg *contract.Config) error {
	fmtFloat, intFmt := createFormatters(cfg.Precision)
	return dispatch(cfg, "summaries",
		func(w io.Writer) error { return writeJSON(w, rows) },
		func(w io.Writer) error { return writeCSVSummaries(w, rows) },
		func(w io.Writer) error { return printSummaryTable(w, rows, fmtFloat, intFmt) },
	)
}

func categoryRef(id *int64) string {
	if id == nil {
		return "-"
	}
	return strconv.FormatInt(*id, 10)
}

func writeCSVSummaries(w io.Writer, rows []schema.DailyWorklogSummary) error {
	header := []string{"iva_user_id", "report_date", "report_category_id", "category_type", "total_duration", "entries_count"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, r := range rows {
			category := ""
			if r.ReportCategoryID != nil {
				category = strconv.FormatInt(*r.ReportCategoryID, 10)
			}
			row := []string{
				strconv.FormatInt(r.IvaUserID, 10),
				r.ReportDate.Format(schema.DateLayout),
				category,
				string(r.CategoryType),
				strconv.FormatInt(r.TotalDurationSeconds, 10),
				strconv.Itoa(r.EntriesCount),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func printSummaryTable(w io.Writer, rows []schema.DailyWorklogSummary, fmtFloat func(float64) string, intFmt string) error {
	headers := []string{"Date", "User", "Category", "Type", "Hours", "Entries"}
	var data [][]string
	var total int64
	for _, r := range rows {
		total += r.TotalDurationSeconds
		data = append(data, []string{
			r.ReportDate.Format(schema.DateLayout),
			strconv.FormatInt(r.IvaUserID, 10),
			categoryRef(r.ReportCategoryID),
			string(r.CategoryType),
			hours(r.TotalDurationSeconds, fmtFloat),
			fmt.Sprintf(intFmt, r.EntriesCount),
		})
	}
	if err := renderTable(w, headers, data); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing %d summary rows (%s hours total)\n", len(rows), hours(total, fmtFloat))
	return err
}
