package transform

// Shared cleaning steps used by the dataset policies. Every helper returns a
// new Table built from copies of the input rows, so policies stay pure.

import (
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/zeebo/xxh3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"healthetl/internal/table"
	"healthetl/pkg/records"
)

var titleCaser = cases.Title(language.English)

// rename returns a Table with columns renamed per the mapping; unmapped
// columns keep their names. Row keys are rewritten to match.
func rename(t table.Table, mapping map[string]string) table.Table {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		if m, ok := mapping[c]; ok {
			cols[i] = m
		} else {
			cols[i] = c
		}
	}
	out := table.Table{Columns: cols}
	for _, r := range t.Rows {
		rec := make(records.Record, len(cols))
		for i, c := range t.Columns {
			rec[cols[i]] = r[c]
		}
		out.Rows = append(out.Rows, rec)
	}
	return out
}

// drop removes the named columns (ignored when absent).
func drop(t table.Table, names ...string) table.Table {
	gone := make(map[string]struct{}, len(names))
	for _, n := range names {
		gone[n] = struct{}{}
	}
	keep := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if _, skip := gone[c]; !skip {
			keep = append(keep, c)
		}
	}
	return t.Project(keep...)
}

// require drops rows that lack a non-empty value in any of the given columns.
// This is what guarantees that key columns are never null downstream.
func require(t table.Table, fields ...string) table.Table {
	out := t.Empty()
	for _, r := range t.Rows {
		ok := true
		for _, f := range fields {
			if !r.Has(f) {
				ok = false
				break
			}
		}
		if ok {
			out.Rows = append(out.Rows, r.Clone())
		}
	}
	return out
}

// rowKey builds a 128-bit hash over the given columns of a row. A \x1f
// separator and a \x00 nil marker keep distinct tuples from colliding
// structurally; xxh3 keeps the map keys compact.
func rowKey(r records.Record, cols []string) xxh3.Uint128 {
	var b strings.Builder
	for i, c := range cols {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		v, ok := r[c]
		if !ok || v == nil {
			b.WriteByte('\x00')
			continue
		}
		switch t := v.(type) {
		case string:
			b.WriteString(t)
		case time.Time:
			b.WriteString(t.UTC().Format(time.RFC3339Nano))
		default:
			b.WriteString(fmt.Sprint(t))
		}
	}
	return xxh3.HashString128(b.String())
}

// dedupBy keeps the first occurrence per key tuple, preserving input order.
// With all columns as the key it collapses exact-duplicate rows.
func dedupBy(t table.Table, keys ...string) table.Table {
	if len(keys) == 0 {
		keys = t.Columns
	}
	seen := make(map[xxh3.Uint128]struct{}, len(t.Rows))
	out := t.Empty()
	for _, r := range t.Rows {
		k := rowKey(r, keys)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out.Rows = append(out.Rows, r.Clone())
	}
	return out
}

// mapColumn applies fn to every non-nil value of the named columns.
func mapColumn(t table.Table, fn func(any) any, cols ...string) table.Table {
	out := t.Empty()
	for _, r := range t.Rows {
		rec := r.Clone()
		for _, c := range cols {
			if v, ok := rec[c]; ok && v != nil {
				rec[c] = fn(v)
			}
		}
		out.Rows = append(out.Rows, rec)
	}
	return out
}

// lower lowercases string values in the given columns (identifiers).
func lower(t table.Table, cols ...string) table.Table {
	return mapColumn(t, func(v any) any {
		if s, ok := v.(string); ok {
			return strings.ToLower(s)
		}
		return v
	}, cols...)
}

// title Title-Cases string values in the given columns (descriptions).
func title(t table.Table, cols ...string) table.Table {
	return mapColumn(t, func(v any) any {
		if s, ok := v.(string); ok {
			return titleCaser.String(strings.ToLower(s))
		}
		return v
	}, cols...)
}

// upperTrim trims and uppercases string values (canonical codes).
func upperTrim(t table.Table, cols ...string) table.Table {
	return mapColumn(t, func(v any) any {
		if s, ok := v.(string); ok {
			return strings.ToUpper(strings.TrimSpace(s))
		}
		return v
	}, cols...)
}

// dateLayouts are tried in order when parsing date strings. Sources mix
// RFC3339 timestamps and bare dates.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// toDate parses string values in the given columns into time.Time. Values
// already typed as time.Time (columnar sources) pass through; unparsable
// strings become nil rather than failing the batch.
func toDate(t table.Table, cols ...string) table.Table {
	return mapColumn(t, func(v any) any {
		switch x := v.(type) {
		case time.Time:
			return x
		case string:
			for _, layout := range dateLayouts {
				if ts, err := time.Parse(layout, x); err == nil {
					return ts
				}
			}
			return nil
		default:
			return v
		}
	}, cols...)
}

// toInt coerces string values to int64; unparsable values become nil.
// Numeric values from columnar sources pass through.
func toInt(t table.Table, cols ...string) table.Table {
	return mapColumn(t, func(v any) any {
		switch x := v.(type) {
		case int64, int:
			return v
		case float64:
			return int64(x)
		case string:
			if i, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
				return i
			}
			return nil
		default:
			return v
		}
	}, cols...)
}

// toFloat coerces string values to float64; unparsable values become nil.
func toFloat(t table.Table, cols ...string) table.Table {
	return mapColumn(t, func(v any) any {
		switch x := v.(type) {
		case float64, int64, int:
			return v
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
				return f
			}
			return nil
		default:
			return v
		}
	}, cols...)
}

// logDropped emits one summary line when a cleaning step removed rows.
func logDropped(policy, step string, before, after int) {
	if before != after {
		log.Printf("clean_%s: %s dropped=%d kept=%d", policy, step, before-after, after)
	}
}
