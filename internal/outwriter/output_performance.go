package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/schema"
)

// PrintPerformanceResults outputs performance envelopes, dispatching based on the output format configured.
func PrintPerformanceResults(results []schema.PerformanceResponse, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(cfg.Precision)
	return dispatch(cfg, "performance",
		func(w io.Writer) error { return writeJSON(w, results) },
		func(w io.Writer) error { return writeCSVPerformance(w, results, fmtFloat) },
		func(w io.Writer) error { return printPerformanceTable(w, results, cfg, fmtFloat) },
	)
}

// writeCSVPerformance writes one row per (user, combination).
func writeCSVPerformance(w io.Writer, results []schema.PerformanceResponse, fmtFloat func(float64) string) error {
	header := []string{
		"iva_user_id", "full_name", "start_date", "end_date", "combination", "label",
		"target_hours", "actual_hours", "percentage", "actual_vs_target", "status", "error",
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, r := range results {
			base := []string{
				strconv.FormatInt(r.UserID, 10),
				r.FullName,
				r.StartDate.Format(schema.DateLayout),
				r.EndDate.Format(schema.DateLayout),
			}
			if !r.Success {
				row := append(base, "", "", "", "", "", "", "", r.Error)
				if err := cw.Write(row); err != nil {
					return err
				}
				continue
			}
			for _, res := range r.Results {
				row := append(append([]string{}, base...),
					strconv.Itoa(res.CombinationIndex),
					res.Label,
					fmtFloat(res.TargetHours),
					fmtFloat(res.ActualHours),
					fmtFloat(res.Percentage),
					fmtFloat(res.ActualVsTarget),
					string(res.Status),
					"",
				)
				if err := cw.Write(row); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// printPerformanceTable prints one row per (user, combination) with colored status labels.
func printPerformanceTable(w io.Writer, results []schema.PerformanceResponse, cfg *contract.Config, fmtFloat func(float64) string) error {
	headers := []string{"User", "Name", "Combination", "Target", "Actual", "%", "+/-", "Status"}
	labelWidth := GetMaxTableLabelWidth(cfg, 60)

	var data [][]string
	failed := 0
	for _, r := range results {
		id := strconv.FormatInt(r.UserID, 10)
		if !r.Success {
			failed++
			data = append(data, []string{id, r.FullName, contract.TruncateLabel(r.Error, labelWidth), "-", "-", "-", "-", contract.FailedColor.Sprint("ERROR")})
			continue
		}
		for _, res := range r.Results {
			status := res.StatusLabel
			if cfg.UseColors {
				status = contract.GetColorLabel(res.Status, res.StatusLabel)
			}
			data = append(data, []string{
				id,
				r.FullName,
				contract.TruncateLabel(res.Label, labelWidth),
				fmtFloat(res.TargetHours),
				fmtFloat(res.ActualHours),
				fmtFloat(res.Percentage),
				fmtFloat(res.ActualVsTarget),
				status,
			})
		}
	}

	if err := renderTable(w, headers, data); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Evaluated %d users (%d failed)\n", len(results), failed)
	return err
}
