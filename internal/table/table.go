// Package table defines the rectangular in-memory dataset passed between
// pipeline stages: an ordered list of column names plus one Record per row.
//
// Tables are value-like: each stage produces a new Table rather than mutating
// its input, so independent tasks can run concurrently without locking.
package table

import (
	"fmt"

	"healthetl/pkg/records"
)

// Table is an ordered set of named columns with one Record per row. Every row
// holds exactly the declared columns; missing values are nil.
type Table struct {
	Columns []string
	Rows    []records.Record
}

// New returns an empty Table with the given column order. Column names must
// be unique; New returns an error on duplicates so malformed sources fail at
// the boundary instead of corrupting joins later.
func New(columns ...string) (Table, error) {
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if _, dup := seen[c]; dup {
			return Table{}, fmt.Errorf("duplicate column %q", c)
		}
		seen[c] = struct{}{}
	}
	return Table{Columns: append([]string(nil), columns...)}, nil
}

// HasColumn reports whether the table declares the named column.
func (t Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Append adds a row. Keys not present in the column set are ignored; declared
// columns absent from the record are filled with nil, preserving the
// rectangular invariant.
func (t *Table) Append(r records.Record) {
	row := make(records.Record, len(t.Columns))
	for _, c := range t.Columns {
		if v, ok := r[c]; ok {
			row[c] = v
		} else {
			row[c] = nil
		}
	}
	t.Rows = append(t.Rows, row)
}

// Project returns a new Table containing only the named columns, in the given
// order, with rows copied. Unknown names are skipped.
func (t Table) Project(columns ...string) Table {
	keep := make([]string, 0, len(columns))
	for _, c := range columns {
		if t.HasColumn(c) {
			keep = append(keep, c)
		}
	}
	out := Table{Columns: keep}
	for _, r := range t.Rows {
		out.Append(r)
	}
	return out
}

// Empty returns a Table with the same columns and no rows.
func (t Table) Empty() Table {
	return Table{Columns: append([]string(nil), t.Columns...)}
}
