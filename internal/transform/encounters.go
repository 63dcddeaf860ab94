package transform

import (
	"time"

	"healthetl/internal/table"
)

// Encounters cleans the encounter dataset: canonical columns, parsed start
// and stop timestamps, and removal of rows whose date range is inverted.
type Encounters struct{}

func (Encounters) Name() string      { return "encounters" }
func (Encounters) Lookups() []string { return nil }

// Clean drops rows missing the encounter or patient identifier, parses the
// encounter start/stop into time values, and discards rows where the stop
// precedes the start. Inverted ranges are a data-integrity violation: they
// are logged and dropped, never fatal.
func (Encounters) Clean(in table.Table, _ map[string]table.Table) (table.Table, error) {
	t := rename(in, map[string]string{
		"Id":                  "encounter_id",
		"START":               "start_date",
		"STOP":                "stop_date",
		"PATIENT":             "patient_id",
		"ORGANIZATION":        "organization",
		"PROVIDER":            "provider_id",
		"PAYER":               "payer_id",
		"ENCOUNTERCLASS":      "encounter_class",
		"CODE":                "code",
		"DESCRIPTION":         "description",
		"BASE_ENCOUNTER_COST": "base_encounter_cost",
		"TOTAL_CLAIM_COST":    "total_claim_cost",
		"PAYER_COVERAGE":      "payer_coverage",
		"REASONCODE":          "reason_code",
		"REASONDESCRIPTION":   "encounter_description",
	})

	before := t.Len()
	t = require(t, "encounter_id", "patient_id")
	logDropped("encounters", "missing identifiers", before, t.Len())

	t = lower(t, "patient_id", "encounter_id", "payer_id", "provider_id")
	t = toDate(t, "start_date", "stop_date")
	t = toFloat(t, "base_encounter_cost", "total_claim_cost", "payer_coverage")
	t = toInt(t, "code", "reason_code")
	t = drop(t, "encounter_description")

	before = t.Len()
	t = dropInvertedRanges(t)
	logDropped("encounters", "stop before start", before, t.Len())

	return t, nil
}

// dropInvertedRanges removes rows where both dates parsed and stop < start.
// Rows with an unparsable or open-ended stop date are kept.
func dropInvertedRanges(t table.Table) table.Table {
	out := t.Empty()
	for _, r := range t.Rows {
		start, okStart := r["start_date"].(time.Time)
		stop, okStop := r["stop_date"].(time.Time)
		if okStart && okStop && stop.Before(start) {
			continue
		}
		out.Rows = append(out.Rows, r.Clone())
	}
	return out
}
