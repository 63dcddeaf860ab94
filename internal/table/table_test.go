package table

import (
	"reflect"
	"testing"

	"healthetl/pkg/records"
)

func TestNew_RejectsDuplicateColumns(t *testing.T) {
	t.Parallel()

	if _, err := New("a", "b", "a"); err == nil {
		t.Fatalf("expected error on duplicate column")
	}
	tbl, err := New("a", "b")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(tbl.Columns, []string{"a", "b"}) {
		t.Fatalf("columns = %v", tbl.Columns)
	}
}

func TestAppend_KeepsRowsRectangular(t *testing.T) {
	t.Parallel()

	tbl, _ := New("a", "b")
	tbl.Append(records.Record{"a": "1", "extra": "ignored"})

	if tbl.Len() != 1 {
		t.Fatalf("len = %d", tbl.Len())
	}
	row := tbl.Rows[0]
	if row["a"] != "1" {
		t.Fatalf("a = %v", row["a"])
	}
	if v, ok := row["b"]; !ok || v != nil {
		t.Fatalf("missing declared column should be nil, got %v (present=%v)", v, ok)
	}
	if _, ok := row["extra"]; ok {
		t.Fatalf("undeclared column kept")
	}
}

func TestProject(t *testing.T) {
	t.Parallel()

	tbl, _ := New("a", "b", "c")
	tbl.Append(records.Record{"a": "1", "b": "2", "c": "3"})

	got := tbl.Project("c", "a", "nope")
	if !reflect.DeepEqual(got.Columns, []string{"c", "a"}) {
		t.Fatalf("columns = %v", got.Columns)
	}
	if got.Rows[0]["c"] != "3" || got.Rows[0]["a"] != "1" {
		t.Fatalf("row = %v", got.Rows[0])
	}
	if _, ok := got.Rows[0]["b"]; ok {
		t.Fatalf("projected-out column kept")
	}
}

func TestEmpty(t *testing.T) {
	t.Parallel()

	tbl, _ := New("a")
	tbl.Append(records.Record{"a": "1"})

	e := tbl.Empty()
	if e.Len() != 0 {
		t.Fatalf("len = %d", e.Len())
	}
	if !reflect.DeepEqual(e.Columns, tbl.Columns) {
		t.Fatalf("columns = %v", e.Columns)
	}
}
