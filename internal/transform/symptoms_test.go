package transform

import (
	"testing"

	"healthetl/pkg/records"
)

func TestSymptoms_Clean(t *testing.T) {
	t.Parallel()

	in := mk(t, []string{"PATIENT", "GENDER", "RACE", "PATHOLOGY", "AGE_BEGIN", "NUM_SYMPTOMS", "SYMPTOMS"},
		records.Record{
			"PATIENT": "P1", "GENDER": "F", "RACE": "white",
			"PATHOLOGY": "LUNG cancer", "AGE_BEGIN": "45",
			"NUM_SYMPTOMS": "3", "SYMPTOMS": "cough;fatigue;fever",
		},
	)
	got, err := Symptoms{}.Clean(in, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r := got.Rows[0]
	if r["patient_id"] != "p1" {
		t.Fatalf("patient_id = %v", r["patient_id"])
	}
	if r["pathology"] != "Lung Cancer" {
		t.Fatalf("pathology = %v", r["pathology"])
	}
	if r["age_begin"] != int64(45) || r["num_symptoms"] != int64(3) {
		t.Fatalf("ages = %v / %v", r["age_begin"], r["num_symptoms"])
	}
	if got.HasColumn("GENDER") || got.HasColumn("race") {
		t.Fatalf("demographic columns must be dropped, got %v", got.Columns)
	}
}

func TestSymptoms_DedupsRepeatedTriples(t *testing.T) {
	t.Parallel()

	in := mk(t, []string{"PATIENT", "PATHOLOGY", "AGE_BEGIN", "SYMPTOMS"},
		records.Record{"PATIENT": "p1", "PATHOLOGY": "flu", "AGE_BEGIN": "30", "SYMPTOMS": "a"},
		records.Record{"PATIENT": "p1", "PATHOLOGY": "flu", "AGE_BEGIN": "30", "SYMPTOMS": "b"},
		records.Record{"PATIENT": "p1", "PATHOLOGY": "flu", "AGE_BEGIN": "31", "SYMPTOMS": "c"},
	)
	got, err := Symptoms{}.Clean(in, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("len = %d, want 2", got.Len())
	}
	if got.Rows[0]["symptoms"] != "a" {
		t.Fatalf("keep-first violated: %v", got.Rows[0])
	}
}

func TestSymptoms_DropsRowsWithoutSymptoms(t *testing.T) {
	t.Parallel()

	in := mk(t, []string{"PATIENT", "SYMPTOMS"},
		records.Record{"PATIENT": "p1", "SYMPTOMS": "cough"},
		records.Record{"PATIENT": "p2"},
	)
	got, err := Symptoms{}.Clean(in, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Len() != 1 {
		t.Fatalf("len = %d, want 1", got.Len())
	}
}
