// Package table turns flattened CMP report data into structured tables and
// stacks per-security tables into one aggregate.
package table

import (
	"fmt"

	"github.com/rs/zerolog"

	"cmpfetch/cli/internal/errors"
)

// Table is an ordered set of columns plus data rows. The header row of the
// source data is never part of Rows.
type Table struct {
	Columns []string
	Rows    [][]any
}

// Empty reports whether the table has no columns and no rows.
func (t Table) Empty() bool { return len(t.Columns) == 0 && len(t.Rows) == 0 }

// columnIndex maps column name to its position.
func (t Table) columnIndex() map[string]int {
	idx := make(map[string]int, len(t.Columns))
	for i, c := range t.Columns {
		idx[c] = i
	}
	return idx
}

// Build converts a list-of-lists report value into a Table, using row 0 as
// column names. Malformed input (not a list of lists, or fewer than two rows)
// yields an empty Table with a warning; Build never fails.
func Build(data any, log zerolog.Logger) Table {
	rows, ok := data.([]any)
	if !ok || len(rows) < 2 {
		log.Warn().Msg("invalid table format, expected a header row plus data rows")
		return Table{}
	}

	lists := make([][]any, 0, len(rows))
	for _, r := range rows {
		inner, ok := r.([]any)
		if !ok {
			log.Warn().Msg("invalid table format, row is not a list")
			return Table{}
		}
		lists = append(lists, inner)
	}

	header := make([]string, len(lists[0]))
	for i, h := range lists[0] {
		header[i] = fmt.Sprint(h)
	}
	return Table{Columns: header, Rows: lists[1:]}
}

// Stack concatenates tables vertically. With a nil column list the target
// columns are the ordered union of every table's columns, first-seen order
// preserved. In strict mode every table's column set must equal the target
// set exactly; otherwise missing columns are null-filled and each table is
// reordered to the target order before concatenation.
func Stack(tables []Table, columns []string, strict bool) (Table, error) {
	if columns == nil {
		seen := make(map[string]struct{})
		for _, t := range tables {
			for _, c := range t.Columns {
				if _, ok := seen[c]; !ok {
					seen[c] = struct{}{}
					columns = append(columns, c)
				}
			}
		}
	}

	out := Table{Columns: append([]string(nil), columns...)}
	for _, t := range tables {
		if strict {
			if err := sameColumnSet(t.Columns, columns); err != nil {
				return Table{}, err
			}
		}
		idx := t.columnIndex()
		for _, row := range t.Rows {
			aligned := make([]any, len(columns))
			for i, c := range columns {
				j, ok := idx[c]
				if !ok || j >= len(row) {
					continue // missing cell stays nil
				}
				aligned[i] = row[j]
			}
			out.Rows = append(out.Rows, aligned)
		}
	}
	return out, nil
}

func sameColumnSet(got, want []string) error {
	if len(got) != len(want) {
		return errors.New(errors.SchemaMismatch, "table columns do not match the specified columns")
	}
	set := make(map[string]struct{}, len(want))
	for _, c := range want {
		set[c] = struct{}{}
	}
	for _, c := range got {
		if _, ok := set[c]; !ok {
			return errors.New(errors.SchemaMismatch, "table columns do not match the specified columns")
		}
	}
	return nil
}
