package transform

import "healthetl/internal/table"

// Symptoms cleans the symptom survey dataset: canonical columns and
// per-(patient, pathology, age) deduplication.
type Symptoms struct{}

func (Symptoms) Name() string      { return "symptoms" }
func (Symptoms) Lookups() []string { return nil }

// Clean drops rows missing the patient identifier or symptom list, and
// deduplicates repeated (patient, pathology, age_begin) triples. The source
// has no per-record date column; age_begin is the temporal stand-in.
func (Symptoms) Clean(in table.Table, _ map[string]table.Table) (table.Table, error) {
	t := rename(in, map[string]string{
		"PATIENT":      "patient_id",
		"RACE":         "race",
		"ETHNICITY":    "ethnicity",
		"AGE_BEGIN":    "age_begin",
		"AGE_END":      "age_end",
		"PATHOLOGY":    "pathology",
		"NUM_SYMPTOMS": "num_symptoms",
		"SYMPTOMS":     "symptoms",
	})

	before := t.Len()
	t = require(t, "patient_id", "symptoms")
	logDropped("symptoms", "missing identifiers", before, t.Len())

	t = lower(t, "patient_id")
	t = title(t, "pathology")
	t = toInt(t, "age_begin", "age_end", "num_symptoms")
	t = drop(t, "GENDER", "race", "ethnicity")

	before = t.Len()
	t = dedupBy(t, "patient_id", "pathology", "age_begin")
	logDropped("symptoms", "repeated triples", before, t.Len())

	return t, nil
}
