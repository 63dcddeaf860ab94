package transform

import (
	"fmt"
	"strconv"
	"strings"

	"healthetl/internal/table"
)

// Medications cleans the medication dataset: canonical columns, numeric
// coercion of codes and costs, and dosage-unit normalization.
type Medications struct{}

func (Medications) Name() string      { return "medications" }
func (Medications) Lookups() []string { return nil }

// Clean drops rows missing the patient identifier or medication code,
// coerces numeric columns, and normalizes dosage values to milligrams where
// the unit is convertible; non-convertible dosages pass through with their
// unit retained.
func (Medications) Clean(in table.Table, _ map[string]table.Table) (table.Table, error) {
	t := rename(in, map[string]string{
		"START":             "start_date",
		"STOP":              "end_date",
		"PATIENT":           "patient_id",
		"PAYER":             "payer_id",
		"ENCOUNTER":         "encounter_id",
		"CODE":              "drug_code",
		"DESCRIPTION":       "drug_description",
		"BASE_COST":         "base_cost",
		"PAYER_COVERAGE":    "payer_coverage",
		"DISPENSES":         "dispensed_quantity",
		"TOTALCOST":         "total_cost",
		"DOSAGE":            "dosage",
		"REASONCODE":        "reason_code",
		"REASONDESCRIPTION": "reason_description",
	})

	before := t.Len()
	t = require(t, "patient_id", "drug_code")
	logDropped("medications", "missing identifiers", before, t.Len())

	t = lower(t, "patient_id", "payer_id", "encounter_id")
	t = title(t, "drug_description")
	t = toInt(t, "drug_code", "dispensed_quantity")
	t = toFloat(t, "base_cost", "total_cost")
	if t.HasColumn("dosage") {
		t = mapColumn(t, normalizeDosage, "dosage")
	}
	t = drop(t, "reason_description", "reason_code", "payer_coverage", "start_date", "end_date")

	return t, nil
}

// dosageFactors maps convertible mass units to milligrams.
var dosageFactors = map[string]float64{
	"mg":  1,
	"g":   1000,
	"mcg": 0.001,
	"ug":  0.001,
}

// normalizeDosage rewrites "<value> <unit>" dosages into milligrams when the
// unit is a convertible mass unit. Anything else (ml, IU, free text, bare
// numbers) is returned unchanged so no information is lost.
func normalizeDosage(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) != 2 {
		return v
	}
	amount, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return v
	}
	factor, ok := dosageFactors[strings.ToLower(fields[1])]
	if !ok {
		return v
	}
	return fmt.Sprintf("%s mg", strconv.FormatFloat(amount*factor, 'f', -1, 64))
}
