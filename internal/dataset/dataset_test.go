package dataset

import (
	"reflect"
	"testing"

	"healthetl/internal/config"
)

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry([]config.Dataset{
		{Name: "patients", Path: "p.csv", Format: "delimited"},
		{Name: "encounters", Path: "e.parquet", Format: "columnar"},
		{Name: "patients_gender", Path: "g.csv", Format: "delimited", Lookup: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reg.Len() != 3 {
		t.Fatalf("len = %d", reg.Len())
	}

	s, ok := reg.Get("encounters")
	if !ok || s.Format != Columnar {
		t.Fatalf("encounters = %+v (ok=%v)", s, ok)
	}
	g, _ := reg.Get("patients_gender")
	if !g.Lookup {
		t.Fatalf("lookup flag lost")
	}
	if g.Options == nil {
		t.Fatalf("options must never be nil")
	}

	if got := reg.Names(); !reflect.DeepEqual(got, []string{"patients", "encounters", "patients_gender"}) {
		t.Fatalf("names = %v", got)
	}
	if got := reg.SortedNames(); !reflect.DeepEqual(got, []string{"encounters", "patients", "patients_gender"}) {
		t.Fatalf("sorted = %v", got)
	}
}

func TestNewRegistry_DuplicateName(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry([]config.Dataset{
		{Name: "patients", Path: "a.csv", Format: "delimited"},
		{Name: "patients", Path: "b.csv", Format: "delimited"},
	})
	if err == nil {
		t.Fatalf("expected error on duplicate name")
	}
}

func TestNewRegistry_UnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry([]config.Dataset{
		{Name: "patients", Path: "a.xlsx", Format: "excel"},
	})
	if err == nil {
		t.Fatalf("expected error on unknown format")
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	for _, ok := range []string{"delimited", "columnar"} {
		if _, err := ParseFormat(ok); err != nil {
			t.Errorf("ParseFormat(%q) = %v", ok, err)
		}
	}
	if _, err := ParseFormat("avro"); err == nil {
		t.Errorf("expected error for unsupported format")
	}
}
