package table

import (
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"cmpfetch/cli/internal/errors"
)

func TestBuild(t *testing.T) {
	log := zerolog.Nop()

	tests := []struct {
		name     string
		input    any
		expected Table
	}{
		{
			name:  "header row plus data rows",
			input: []any{[]any{"loan", "balance"}, []any{"L1", 100.0}, []any{"L2", 200.0}},
			expected: Table{
				Columns: []string{"loan", "balance"},
				Rows:    [][]any{{"L1", 100.0}, {"L2", 200.0}},
			},
		},
		{
			name:     "not a list",
			input:    "oops",
			expected: Table{},
		},
		{
			name:     "header only",
			input:    []any{[]any{"loan"}},
			expected: Table{},
		},
		{
			name:     "row is not a list",
			input:    []any{[]any{"loan"}, "oops"},
			expected: Table{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Build(tt.input, log)
			if !reflect.DeepEqual(result, tt.expected) {
				t.Errorf("Build() = %+v, want %+v", result, tt.expected)
			}
		})
	}
}

func TestStackUnionFillsMissingColumns(t *testing.T) {
	a := Table{Columns: []string{"A", "B"}, Rows: [][]any{{1, 2}}}
	b := Table{Columns: []string{"A", "C"}, Rows: [][]any{{3, 4}}}

	out, err := Stack([]Table{a, b}, nil, false)
	if err != nil {
		t.Fatalf("Stack() error = %v", err)
	}

	wantCols := []string{"A", "B", "C"}
	if !reflect.DeepEqual(out.Columns, wantCols) {
		t.Errorf("Stack() columns = %v, want %v", out.Columns, wantCols)
	}
	wantRows := [][]any{{1, 2, nil}, {3, nil, 4}}
	if !reflect.DeepEqual(out.Rows, wantRows) {
		t.Errorf("Stack() rows = %v, want %v", out.Rows, wantRows)
	}
}

func TestStackReordersToTargetColumns(t *testing.T) {
	a := Table{Columns: []string{"B", "A"}, Rows: [][]any{{2, 1}}}

	out, err := Stack([]Table{a}, []string{"A", "B"}, false)
	if err != nil {
		t.Fatalf("Stack() error = %v", err)
	}
	wantRows := [][]any{{1, 2}}
	if !reflect.DeepEqual(out.Rows, wantRows) {
		t.Errorf("Stack() rows = %v, want %v", out.Rows, wantRows)
	}
}

func TestStackStrictRejectsMismatch(t *testing.T) {
	a := Table{Columns: []string{"A", "B"}, Rows: [][]any{{1, 2}}}
	b := Table{Columns: []string{"A", "C"}, Rows: [][]any{{3, 4}}}

	_, err := Stack([]Table{a, b}, nil, true)
	if err == nil {
		t.Fatal("Stack() expected error, got nil")
	}
	if !errors.IsKind(err, errors.SchemaMismatch) {
		t.Errorf("Stack() error = %v, want SchemaMismatch kind", err)
	}
}

func TestStackStrictAcceptsSameSetDifferentOrder(t *testing.T) {
	a := Table{Columns: []string{"A", "B"}, Rows: [][]any{{1, 2}}}
	b := Table{Columns: []string{"B", "A"}, Rows: [][]any{{20, 10}}}

	out, err := Stack([]Table{a, b}, nil, true)
	if err != nil {
		t.Fatalf("Stack() error = %v", err)
	}
	wantRows := [][]any{{1, 2}, {10, 20}}
	if !reflect.DeepEqual(out.Rows, wantRows) {
		t.Errorf("Stack() rows = %v, want %v", out.Rows, wantRows)
	}
}

func TestStackEmptyInput(t *testing.T) {
	out, err := Stack(nil, nil, false)
	if err != nil {
		t.Fatalf("Stack() error = %v", err)
	}
	if !out.Empty() {
		t.Errorf("Stack() = %+v, want empty table", out)
	}
}
