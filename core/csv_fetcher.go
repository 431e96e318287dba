package core

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// CsvDataFetcher reads tables from <RootDir>/<table>.csv; the first record
// is the header.
type CsvDataFetcher struct {
	RootDir string
}

func NewCsvDataFetcher(rootDir string) *CsvDataFetcher {
	return &CsvDataFetcher{RootDir: rootDir}
}

func (f *CsvDataFetcher) Fetch(ctx context.Context, table string, params map[string]string) ([]map[string]any, error) {
	path := filepath.Join(f.RootDir, table+".csv")
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv file %s: %w", path, err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv content: %w", err)
	}
	if len(records) < 1 {
		return nil, nil
	}

	header := records[0]
	var result []map[string]any
	for _, rec := range records[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := make(map[string]any, len(header))
		for j, col := range rec {
			if j < len(header) {
				item[header[j]] = col
			}
		}
		if matchesParams(item, params) {
			result = append(result, item)
		}
	}
	return result, nil
}

// matchesParams reports whether every parameter naming a column of row
// equals that column's text.
func matchesParams(row map[string]any, params map[string]string) bool {
	for k, want := range params {
		if got, ok := row[k]; ok && fmt.Sprintf("%v", got) != want {
			return false
		}
	}
	return true
}
