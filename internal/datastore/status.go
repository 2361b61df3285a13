package datastore

import (
	"context"
	"fmt"

	"github.com/huangsam/worktally/schema"
)

// GetStatus returns row counts per table and the most recent sync.
func (s *SQLStore) GetStatus(ctx context.Context) (schema.StoreStatus, error) {
	status := schema.StoreStatus{
		Backend:   string(s.backend),
		Connected: s.db != nil,
		TableRows: make(map[string]int64),
	}
	if s.db == nil {
		return status, nil
	}

	for _, table := range allTables {
		var count int64
		if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableRows[table] = count
	}

	if status.TableRows[syncMetaTable] > 0 {
		query := fmt.Sprintf("SELECT %s FROM %s ORDER BY sync_date DESC, id DESC LIMIT 1", syncMetaColumns, syncMetaTable)
		last, err := scanSyncDay(s.db.QueryRowContext(ctx, query))
		if err != nil {
			return status, fmt.Errorf("failed to get last sync: %w", err)
		}
		status.LastSyncDate = &last.SyncDate
		status.LastSyncStatus = last.Status
	}
	return status, nil
}

// PrintStoreStatus prints store status information.
func PrintStoreStatus(status schema.StoreStatus) {
	fmt.Printf("Store Backend: %s\n", status.Backend)
	fmt.Printf("Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	if status.LastSyncDate != nil {
		fmt.Printf("Last Sync: %s (%s)\n", status.LastSyncDate.Format(schema.DateLayout), status.LastSyncStatus)
	}
	fmt.Println("Table Sizes:")
	for _, table := range allTables {
		fmt.Printf("  %s: %d rows\n", table, status.TableRows[table])
	}
}
