package transform

import (
	"testing"

	"healthetl/pkg/records"
)

func TestMedications_Clean(t *testing.T) {
	t.Parallel()

	in := mk(t, []string{"PATIENT", "ENCOUNTER", "CODE", "DESCRIPTION", "DISPENSES", "TOTALCOST", "DOSAGE", "REASONCODE"},
		records.Record{
			"PATIENT": "P1", "ENCOUNTER": "E1", "CODE": "313782",
			"DESCRIPTION": "ACETAMINOPHEN 325 MG", "DISPENSES": "12",
			"TOTALCOST": "9.99", "DOSAGE": "2 g", "REASONCODE": "whatever",
		},
	)
	got, err := Medications{}.Clean(in, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := got.Rows[0]
	if r["patient_id"] != "p1" || r["encounter_id"] != "e1" {
		t.Fatalf("ids = %v", r)
	}
	if r["drug_code"] != int64(313782) {
		t.Fatalf("drug_code = %v", r["drug_code"])
	}
	if r["dispensed_quantity"] != int64(12) {
		t.Fatalf("dispensed_quantity = %v", r["dispensed_quantity"])
	}
	if r["total_cost"] != 9.99 {
		t.Fatalf("total_cost = %v", r["total_cost"])
	}
	if r["dosage"] != "2000 mg" {
		t.Fatalf("dosage = %v", r["dosage"])
	}
	if got.HasColumn("reason_code") {
		t.Fatalf("reason_code must be dropped, got %v", got.Columns)
	}
}

func TestNormalizeDosage(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   any
		want any
	}{
		{"500 mg", "500 mg"},
		{"2 g", "2000 mg"},
		{"250 mcg", "0.25 mg"},
		{"250 ug", "0.25 mg"},
		{"5 ml", "5 ml"}, // volume, not convertible
		{"500", "500"},   // no unit
		{"two tablets", "two tablets"},
		{int64(5), int64(5)}, // non-string passes through
	}
	for _, tc := range cases {
		if got := normalizeDosage(tc.in); got != tc.want {
			t.Errorf("normalizeDosage(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestMedications_DropsRowsMissingDrugCode(t *testing.T) {
	t.Parallel()

	in := mk(t, []string{"PATIENT", "CODE"},
		records.Record{"PATIENT": "p1", "CODE": "1"},
		records.Record{"PATIENT": "p2"},
	)
	got, err := Medications{}.Clean(in, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Len() != 1 {
		t.Fatalf("len = %d, want 1", got.Len())
	}
}
