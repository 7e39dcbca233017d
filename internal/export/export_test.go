package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"cmpfetch/cli/internal/table"
)

func TestFormatCell(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected string
	}{
		{name: "nil", input: nil, expected: ""},
		{name: "string", input: "BACM 2006-1 A4", expected: "BACM 2006-1 A4"},
		{name: "bool", input: true, expected: "true"},
		{name: "int64", input: int64(42), expected: "42"},
		{name: "float", input: 3.14, expected: "3.14"},
		{
			name:     "timestamp",
			input:    time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
			expected: "2024-03-15T10:30:00",
		},
		{name: "nested list", input: []any{"a", int64(1)}, expected: `["a",1]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatCell(tt.input)
			if result != tt.expected {
				t.Errorf("FormatCell(%v) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	src := table.Table{
		Columns: []string{"loan", "balance"},
		Rows:    [][]any{{"L1", 100.5}, {"L2", nil}},
	}

	if err := WriteCSV(path, src); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}

	want := [][]string{
		{"loan", "balance"},
		{"L1", "100.5"},
		{"L2", ""},
	}
	if !reflect.DeepEqual(records, want) {
		t.Errorf("csv records = %v, want %v", records, want)
	}
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	src := table.Table{
		Columns: []string{"loan"},
		Rows:    [][]any{{"L1"}},
	}

	if err := WriteXLSX(path, src); err != nil {
		t.Fatalf("WriteXLSX() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("artifact missing: %v", err)
	}
	if info.Size() == 0 {
		t.Error("artifact is empty")
	}
}
