package core

import (
	"database/sql"
	"fmt"
	"log/slog"

	"oncotab/config"
)

// DataFetcher returns one query's result set: column names in select order
// plus one map per row. Project-info sheets of the deliverable are filled from
// these.
type DataFetcher interface {
	Fetch(query string, args ...interface{}) ([]string, []map[string]interface{}, error)
}

// SQLDataFetcher implements DataFetcher over database/sql (MySQL, PostgreSQL).
type SQLDataFetcher struct {
	DB         *sql.DB
	DriverName string // "mysql" or "postgres"
}

// NewSQLDataFetcher creates a new fetcher.
func NewSQLDataFetcher(db *sql.DB, driverName string) *SQLDataFetcher {
	return &SQLDataFetcher{
		DB:         db,
		DriverName: driverName,
	}
}

// Fetch runs the query and materializes the rows.
func (f *SQLDataFetcher) Fetch(query string, args ...interface{}) ([]string, []map[string]interface{}, error) {
	rows, err := f.DB.Query(query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get columns: %w", err)
	}

	var result []map[string]interface{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, nil, fmt.Errorf("scan failed: %w", err)
		}

		entry := make(map[string]interface{})
		for i, col := range columns {
			val := values[i]
			// MySQL driver often returns strings as []byte.
			if b, ok := val.([]byte); ok {
				entry[col] = string(b)
			} else {
				entry[col] = val
			}
		}
		result = append(result, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return columns, result, nil
}

// ExportQuerySheets runs each configured query and writes its result set as a
// sheet of the destination workbook (replace semantics). Failures are
// per-sheet: a broken query logs and skips, the remaining sheets still write.
// The returned messages describe the sheets that failed.
func ExportQuerySheets(fetcher DataFetcher, dst string, sheets []config.QuerySheetConfig, log *slog.Logger) []string {
	if log == nil {
		log = slog.Default()
	}
	if fetcher == nil || len(sheets) == 0 {
		return nil
	}

	f, _, err := openDestination(dst, false)
	if err != nil {
		return []string{fmt.Sprintf("open destination: %v", err)}
	}
	defer f.Close()

	var failures []string
	wrote := false
	for _, qs := range sheets {
		columns, rows, err := fetcher.Fetch(qs.Query)
		if err != nil {
			log.Warn("query sheet failed", "sheet", qs.Sheet, "error", err)
			failures = append(failures, fmt.Sprintf("sheet %s: %v", qs.Sheet, err))
			continue
		}

		cells := make([][]string, len(rows))
		for i, row := range rows {
			line := make([]string, len(columns))
			for j, col := range columns {
				if v, ok := row[col]; ok && v != nil {
					line[j] = fmt.Sprintf("%v", v)
				}
			}
			cells[i] = line
		}
		if err := WriteSummarySheet(f, qs.Sheet, columns, cells); err != nil {
			failures = append(failures, fmt.Sprintf("sheet %s: %v", qs.Sheet, err))
			continue
		}
		wrote = true
	}

	if wrote {
		if err := f.SaveAs(dst); err != nil {
			failures = append(failures, fmt.Sprintf("save destination: %v", err))
		}
	}
	return failures
}
