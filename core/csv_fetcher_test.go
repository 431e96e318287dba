package core

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeCSV(t *testing.T, dir, table, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, table+".csv"), []byte(content), 0644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
}

func TestCsvDataFetcher_Fetch(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "staff", "dept,name\nD1,Alice\nD2,Bob\n")

	fetcher := NewCsvDataFetcher(dir)
	rows, err := fetcher.Fetch(context.Background(), "staff", map[string]string{"dept": "D2", "unknown": "x"})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	if rows[0]["name"] != "Bob" {
		t.Fatalf("name = %v, want Bob", rows[0]["name"])
	}

	rows, err = fetcher.Fetch(context.Background(), "staff", nil)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
}

func TestCsvDataFetcher_Errors(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "staff", "dept,name\nD1,Alice\n")
	fetcher := NewCsvDataFetcher(dir)

	if _, err := fetcher.Fetch(context.Background(), "missing", nil); err == nil {
		t.Fatal("expected an error for a missing table")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := fetcher.Fetch(ctx, "staff", nil); err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
}

func TestCsvDataFetcher_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "empty", "")
	rows, err := NewCsvDataFetcher(dir).Fetch(context.Background(), "empty", nil)
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("rows = %d, want 0", len(rows))
	}
}
