package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/worktally/internal/contract"
	"github.com/huangsam/worktally/schema"
)

// PrintSyncResult outputs a sync run, dispatching based on the output format configured.
func PrintSyncResult(result schema.SyncRangeResult, cfg *contract.Config) error {
	return dispatch(cfg, "sync",
		func(w io.Writer) error { return writeJSON(w, result) },
		func(w io.Writer) error { return writeCSVSyncDays(w, result) },
		func(w io.Writer) error { return printSyncTable(w, result, cfg) },
	)
}

func writeCSVSyncDays(w io.Writer, result schema.SyncRangeResult) error {
	header := []string{"date", "status", "skipped", "users", "inserted", "updated", "errors", "processed", "error"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, d := range result.Days {
			row := []string{
				d.Date.Format(schema.DateLayout),
				string(d.Status),
				strconv.FormatBool(d.Skipped),
				strconv.Itoa(d.Users),
				strconv.Itoa(d.Inserted),
				strconv.Itoa(d.Updated),
				strconv.Itoa(d.Errors),
				strconv.Itoa(d.TotalProcessed),
				d.Error,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func syncStatusCell(status schema.SyncStatus, skipped bool, cfg *contract.Config) string {
	label := string(status)
	if cfg.UseColors {
		label = contract.GetSyncStatusLabel(status)
	}
	if skipped {
		label += " (skipped)"
	}
	return label
}

func printSyncTable(w io.Writer, result schema.SyncRangeResult, cfg *contract.Config) error {
	headers := []string{"Date", "Status", "Users", "Inserted", "Updated", "Errors", "Detail"}
	detailWidth := GetMaxTableLabelWidth(cfg, 60)

	var data [][]string
	for _, d := range result.Days {
		data = append(data, []string{
			d.Date.Format(schema.DateLayout),
			syncStatusCell(d.Status, d.Skipped, cfg),
			strconv.Itoa(d.Users),
			strconv.Itoa(d.Inserted),
			strconv.Itoa(d.Updated),
			strconv.Itoa(d.Errors),
			contract.TruncateLabel(d.Error, detailWidth),
		})
	}
	if err := renderTable(w, headers, data); err != nil {
		return err
	}

	mode := ""
	if result.DryRun {
		mode = " [dry run, nothing written]"
	}
	_, err := fmt.Fprintf(w, "Run %s (%s): %d inserted, %d updated, %d errors, %d days skipped, %d days failed%s\n",
		result.RunID, result.APIVersion, result.Inserted, result.Updated, result.Errors, result.Skipped, result.Failed, mode)
	return err
}

// PrintSyncDays outputs the stored per-day sync history.
func PrintSyncDays(days []schema.SyncDayMeta, cfg *contract.Config) error {
	return dispatch(cfg, "sync history",
		func(w io.Writer) error { return writeJSON(w, days) },
		func(w io.Writer) error { return writeCSVSyncMeta(w, days) },
		func(w io.Writer) error { return printSyncMetaTable(w, days, cfg) },
	)
}

func writeCSVSyncMeta(w io.Writer, days []schema.SyncDayMeta) error {
	header := []string{"sync_date", "api_version", "status", "run_id", "total_users", "inserted", "updated", "errors", "error_message"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, d := range days {
			row := []string{
				d.SyncDate.Format(schema.DateLayout),
				string(d.APIVersion),
				string(d.Status),
				d.RunID,
				strconv.Itoa(d.TotalUsers),
				strconv.Itoa(d.Inserted),
				strconv.Itoa(d.Updated),
				strconv.Itoa(d.Errors),
				d.ErrorMessage,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func printSyncMetaTable(w io.Writer, days []schema.SyncDayMeta, cfg *contract.Config) error {
	headers := []string{"Date", "API", "Status", "Users", "Inserted", "Updated", "Errors", "Run"}
	var data [][]string
	for _, d := range days {
		data = append(data, []string{
			d.SyncDate.Format(schema.DateLayout),
			string(d.APIVersion),
			syncStatusCell(d.Status, false, cfg),
			strconv.Itoa(d.TotalUsers),
			strconv.Itoa(d.Inserted),
			strconv.Itoa(d.Updated),
			strconv.Itoa(d.Errors),
			d.RunID,
		})
	}
	return renderTable(w, headers, data)
}
