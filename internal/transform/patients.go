package transform

import (
	"fmt"
	"strings"

	"healthetl/internal/table"
)

// GenderUnknown is the explicit marker used when the gender lookup has no
// entry for a patient. It is a real value, never a missing one: clean_patients
// is total over the gender attribute.
const GenderUnknown = "unknown"

// Patients cleans the patient dataset and enriches it with the gender lookup
// table, so every output row carries a gender attribute.
type Patients struct {
	// GenderLookup is the registry name of the lookup dataset.
	GenderLookup string
}

func (Patients) Name() string        { return "patients" }
func (p Patients) Lookups() []string { return []string{p.GenderLookup} }

// Clean drops rows missing the patient identifier, normalizes names and
// geography, and left-joins the gender lookup on patient identifier. Patients
// absent from the lookup get the explicit "unknown" marker.
func (p Patients) Clean(in table.Table, aux map[string]table.Table) (table.Table, error) {
	lookup, ok := aux[p.GenderLookup]
	if !ok {
		return table.Table{}, fmt.Errorf("clean_patients: auxiliary table %q not provided", p.GenderLookup)
	}

	t := rename(in, map[string]string{
		"PATIENT_ID": "patient_id",
		"BIRTHDATE":  "birth_date",
		"DEATHDATE":  "death_date",
		"FIRST":      "first_name",
		"LAST":       "last_name",
		"BIRTHPLACE": "birth_place",
		"COUNTY":     "county",
		"LAT":        "latitude",
		"LON":        "longitude",
		"INCOME":     "income",
	})

	before := t.Len()
	t = require(t, "patient_id")
	logDropped("patients", "missing identifiers", before, t.Len())

	// The source GENDER column is unreliable; the lookup table is authoritative.
	t = drop(t, "GENDER")
	t = lower(t, "patient_id")
	t = toDate(t, "birth_date", "death_date")
	t = mapColumn(t, stripTrailingDigitsAndCapitalize, "first_name", "last_name")
	t = title(t, "birth_place")
	t = mapColumn(t, trimCountySuffix, "county")
	t = mapColumn(t, stripLeadingQuote, "latitude")
	t = toFloat(t, "latitude", "longitude", "income")

	return joinGender(t, lookup)
}

// joinGender left-joins the gender lookup on patient identifier. Every output
// row gains a gender column: the looked-up value, or GenderUnknown.
func joinGender(t table.Table, lookup table.Table) (table.Table, error) {
	idCol, genderCol, err := lookupColumns(lookup)
	if err != nil {
		return table.Table{}, err
	}

	genders := make(map[string]any, lookup.Len())
	for _, r := range lookup.Rows {
		id, ok := r[idCol].(string)
		if !ok || id == "" {
			continue
		}
		genders[strings.ToLower(id)] = r[genderCol]
	}

	cols := append(append([]string(nil), t.Columns...), "gender")
	out := table.Table{Columns: cols}
	for _, r := range t.Rows {
		rec := r.Clone()
		g, found := genders[rec.String("patient_id")]
		if !found || g == nil || g == "" {
			rec["gender"] = GenderUnknown
		} else {
			rec["gender"] = g
		}
		out.Rows = append(out.Rows, rec)
	}
	return out, nil
}

// lookupColumns resolves the identifier and gender column names in the lookup
// table, tolerating header-case differences across exports.
func lookupColumns(lookup table.Table) (idCol, genderCol string, err error) {
	for _, c := range lookup.Columns {
		switch strings.ToLower(c) {
		case "id", "patient_id":
			idCol = c
		case "gender":
			genderCol = c
		}
	}
	if idCol == "" || genderCol == "" {
		return "", "", fmt.Errorf("clean_patients: gender lookup missing id/gender columns (have %v)", lookup.Columns)
	}
	return idCol, genderCol, nil
}

// stripTrailingDigitsAndCapitalize removes synthetic trailing digits from a
// name ("Jane294" -> "Jane") and capitalizes the first letter.
func stripTrailingDigitsAndCapitalize(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	s = strings.TrimRight(s, "0123456789")
	if s == "" {
		return nil
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// trimCountySuffix removes a trailing " County" from county names.
func trimCountySuffix(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if strings.HasSuffix(s, "County") {
		return strings.TrimSpace(strings.TrimSuffix(s, "County"))
	}
	return s
}

// stripLeadingQuote removes the stray leading apostrophe some spreadsheet
// exports prepend to coordinates.
func stripLeadingQuote(v any) any {
	if s, ok := v.(string); ok {
		return strings.TrimLeft(s, "'")
	}
	return v
}
