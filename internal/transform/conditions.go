package transform

import "healthetl/internal/table"

// Conditions cleans the condition records dataset: canonical snake_case
// columns, uppercase condition codes, and exact-duplicate removal.
type Conditions struct{}

func (Conditions) Name() string      { return "conditions" }
func (Conditions) Lookups() []string { return nil }

// Clean drops rows missing the patient or condition identifier, normalizes
// the condition code to its canonical trimmed-uppercase form, and collapses
// exact-duplicate rows.
func (Conditions) Clean(in table.Table, _ map[string]table.Table) (table.Table, error) {
	t := rename(in, map[string]string{
		"PATIENT":     "patient_id",
		"ENCOUNTER":   "encounter_id",
		"CODE":        "condition_code",
		"DESCRIPTION": "condition_description",
	})

	before := t.Len()
	t = require(t, "patient_id", "condition_code")
	logDropped("conditions", "missing identifiers", before, t.Len())

	t = lower(t, "patient_id", "encounter_id")
	t = upperTrim(t, "condition_code")
	t = title(t, "condition_description")
	t = drop(t, "START", "STOP")

	before = t.Len()
	t = dedupBy(t) // exact duplicates across all remaining columns
	logDropped("conditions", "exact duplicates", before, t.Len())

	return t, nil
}
