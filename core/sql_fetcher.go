package core

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
)

// SQLDataFetcher reads tables through database/sql (MySQL or PostgreSQL).
type SQLDataFetcher struct {
	DB         *sql.DB
	DriverName string // "mysql" or "postgres"
}

func NewSQLDataFetcher(db *sql.DB, driverName string) *SQLDataFetcher {
	return &SQLDataFetcher{DB: db, DriverName: driverName}
}

// Fetch runs SELECT * on table with one equality condition per parameter.
// Table and column names must be plain identifiers.
func (f *SQLDataFetcher) Fetch(ctx context.Context, table string, params map[string]string) ([]map[string]any, error) {
	query, args, err := f.buildQuery(table, params)
	if err != nil {
		return nil, err
	}

	rows, err := f.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	var result []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		entry := make(map[string]any, len(columns))
		for i, col := range columns {
			// the MySQL driver returns text columns as []byte
			if b, ok := values[i].([]byte); ok {
				entry[col] = string(b)
			} else {
				entry[col] = values[i]
			}
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return result, nil
}

func (f *SQLDataFetcher) buildQuery(table string, params map[string]string) (string, []any, error) {
	if !isIdentifier(table) {
		return "", nil, fmt.Errorf("invalid table name %q", table)
	}
	query := "SELECT * FROM " + table
	if len(params) == 0 {
		return query, nil, nil
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		if !isIdentifier(k) {
			return "", nil, fmt.Errorf("invalid column name %q", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conditions := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for i, k := range keys {
		if f.DriverName == "postgres" {
			conditions = append(conditions, fmt.Sprintf("%s = $%d", k, i+1))
		} else {
			conditions = append(conditions, k+" = ?")
		}
		args = append(args, params[k])
	}
	return query + " WHERE " + strings.Join(conditions, " AND "), args, nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c == '.', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
