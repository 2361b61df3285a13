package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/schema"
)

// PrintTargetResults outputs target-hours envelopes, dispatching based on the output format configured.
func PrintTargetResults(results []schema.TargetHoursResult, cfg *contract.Config) error {
	fmtFloat, _ := createFormatters(cfg.Precision)
	return dispatch(cfg, "target",
		func(w io.Writer) error { return writeJSON(w, results) },
		func(w io.Writer) error { return writeCSVTargets(w, results, fmtFloat) },
		func(w io.Writer) error { return printTargetTable(w, results, cfg, fmtFloat) },
	)
}

func overrideRef(id *int64) string {
	if id == nil {
		return ""
	}
	return "#" + strconv.FormatInt(*id, 10)
}

// writeCSVTargets writes one row per breakdown period of every combination.
func writeCSVTargets(w io.Writer, results []schema.TargetHoursResult, fmtFloat func(float64) string) error {
	header := []string{
		"iva_user_id", "combination", "label", "period_start", "period_end", "days",
		"work_status", "hours_per_week", "source", "override_id", "target_hours", "combination_total",
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, r := range results {
			if !r.Success {
				continue
			}
			for _, calc := range r.TargetCalculations {
				for _, b := range calc.Breakdown {
					row := []string{
						strconv.FormatInt(r.UserID, 10),
						strconv.Itoa(calc.CombinationIndex),
						calc.Label,
						b.StartDate.Format(schema.DateLayout),
						b.EndDate.Format(schema.DateLayout),
						strconv.Itoa(b.Days),
						string(b.WorkStatus),
						fmtFloat(b.HoursPerWeek),
						string(b.Source),
						overrideRef(b.OverrideID),
						fmtFloat(b.TargetHours),
						fmtFloat(calc.TargetTotalHours),
					}
					if err := cw.Write(row); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
}

// printTargetTable prints each combination's breakdown followed by its total.
func printTargetTable(w io.Writer, results []schema.TargetHoursResult, cfg *contract.Config, fmtFloat func(float64) string) error {
	headers := []string{"User", "Combination", "Period", "Days", "Status", "Hours/Week", "Source", "Target"}
	labelWidth := GetMaxTableLabelWidth(cfg, 70)

	var data [][]string
	for _, r := range results {
		id := strconv.FormatInt(r.UserID, 10)
		if !r.Success {
			data = append(data, []string{id, contract.FailedColor.Sprint("ERROR"), contract.TruncateLabel(r.Error, labelWidth), "", "", "", "", ""})
			continue
		}
		for _, calc := range r.TargetCalculations {
			label := contract.TruncateLabel(calc.Label, labelWidth)
			for _, b := range calc.Breakdown {
				source := string(b.Source)
				if b.OverrideID != nil {
					source += " " + overrideRef(b.OverrideID)
				}
				data = append(data, []string{
					id,
					label,
					fmt.Sprintf("%s..%s", b.StartDate.Format(schema.DateLayout), b.EndDate.Format(schema.DateLayout)),
					strconv.Itoa(b.Days),
					string(b.WorkStatus),
					fmtFloat(b.HoursPerWeek),
					source,
					fmtFloat(b.TargetHours),
				})
			}
			data = append(data, []string{id, label, "total", strconv.Itoa(calc.TotalDays), "", "", "", fmtFloat(calc.TargetTotalHours)})
		}
		if r.Truncated {
			data = append(data, []string{id, "(more combinations omitted)", "", "", "", "", "", ""})
		}
	}
	return renderTable(w, headers, data)
}
