// Package merge combines the cleaned dataset tables into the single master
// record table: one row per (patient, encounter) pair, or per patient for
// encounter-less attributes.
//
// The engine runs an ordered left-join chain anchored on patients. Every join
// aligns on the patient identifier; once encounters are joined, detail rows
// carrying an encounter identifier attach to their exact (patient, encounter)
// row, while rows without one attach at patient level. Column-name collisions
// are resolved by prefixing the column with its source dataset name — never
// by silent overwrite.
//
// The output order is deterministic: patient identifier, then encounter
// identifier, then original row order of the last table joined, so identical
// inputs always produce byte-identical output.
package merge

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"healthetl/internal/table"
	"healthetl/pkg/records"
)

// ErrJoinKeyMissing reports that a declared join key column is absent from
// one side of a join. This is fatal for the merge step: producing a master
// record from a broken join would silently corrupt downstream consumers.
var ErrJoinKeyMissing = errors.New("join key missing")

const (
	// PatientKey is the column every merged table must carry.
	PatientKey = "patient_id"
	// EncounterKey attaches detail rows to a specific encounter when present.
	EncounterKey = "encounter_id"
)

// KeyColumns is the master-record key used for the idempotent load.
var KeyColumns = []string{PatientKey, EncounterKey}

// chain is the join order after the patients anchor.
var chain = []string{"encounters", "conditions", "medications", "symptoms"}

// Master merges the cleaned tables (keyed by dataset name) into the master
// record table. Every patient in the cleaned patients table appears in the
// result, with nil in columns that have no matching detail rows.
func Master(cleaned map[string]table.Table) (table.Table, error) {
	master, ok := cleaned["patients"]
	if !ok {
		return table.Table{}, fmt.Errorf("merge: cleaned patients table missing")
	}
	if !master.HasColumn(PatientKey) {
		return table.Table{}, fmt.Errorf("merge: patients: %w: no %s column", ErrJoinKeyMissing, PatientKey)
	}

	for _, name := range chain {
		right, ok := cleaned[name]
		if !ok {
			return table.Table{}, fmt.Errorf("merge: cleaned %s table missing", name)
		}
		var err error
		master, err = leftJoin(master, right, name)
		if err != nil {
			return table.Table{}, err
		}
	}

	sortMaster(&master)
	master = collapseByKey(master)
	return master, nil
}

// collapseByKey enforces the master invariant of at most one row per
// (patient, encounter): after the deterministic sort, the first row per key
// wins. The sort's tertiary order (last join's row order) makes the winner
// stable across runs.
func collapseByKey(t table.Table) table.Table {
	out := t.Empty()
	seen := make(map[string]struct{}, len(t.Rows))
	for _, r := range t.Rows {
		k := keyString(r[PatientKey]) + "\x1f" + keyString(r[EncounterKey])
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out.Rows = append(out.Rows, r)
	}
	return out
}

// leftJoin joins right onto left on the patient identifier, attaching rows
// with an encounter identifier to their exact (patient, encounter) row.
// Every left row survives; unmatched rows get nil right-side columns.
func leftJoin(left, right table.Table, rightName string) (table.Table, error) {
	if !right.HasColumn(PatientKey) {
		return table.Table{}, fmt.Errorf("merge: %s: %w: no %s column", rightName, ErrJoinKeyMissing, PatientKey)
	}

	rightHasEncounter := right.HasColumn(EncounterKey)
	leftHasEncounter := left.HasColumn(EncounterKey)
	// Encounter-exact matching only applies once both sides carry the grain;
	// the encounters join itself introduces it and aligns on patient alone.
	joinOnEncounter := rightHasEncounter && leftHasEncounter
	addCols, colRename := joinColumns(left, right, rightName)

	// Index right rows: encounter-specific rows by (patient, encounter),
	// patient-level rows by patient alone. Row indexes keep input order so
	// match emission stays deterministic.
	byEncounter := make(map[string][]int)
	byPatient := make(map[string][]int)
	for i, r := range right.Rows {
		p := keyString(r[PatientKey])
		if p == "" {
			continue
		}
		if joinOnEncounter && keyString(r[EncounterKey]) != "" {
			k := p + "\x1f" + keyString(r[EncounterKey])
			byEncounter[k] = append(byEncounter[k], i)
		} else {
			byPatient[p] = append(byPatient[p], i)
		}
	}

	outCols := append(append([]string(nil), left.Columns...), addCols...)
	out := table.Table{Columns: outCols}

	emit := func(l records.Record, r records.Record) {
		rec := l.Clone()
		for _, c := range addCols {
			rec[c] = nil
		}
		if r != nil {
			for src, dst := range colRename {
				rec[dst] = r[src]
			}
			// The grain-introducing join carries the right side's encounter id
			// into the output so downstream joins can attach exactly.
			if rightHasEncounter && !leftHasEncounter {
				rec[EncounterKey] = r[EncounterKey]
			}
		}
		out.Rows = append(out.Rows, rec)
	}

	for _, l := range left.Rows {
		p := keyString(l[PatientKey])
		var matches []int
		if joinOnEncounter && keyString(l[EncounterKey]) != "" {
			matches = byEncounter[p+"\x1f"+keyString(l[EncounterKey])]
		}
		matches = mergeOrdered(matches, byPatient[p])

		if len(matches) == 0 {
			emit(l, nil)
			continue
		}
		for _, i := range matches {
			emit(l, right.Rows[i])
		}
	}
	return out, nil
}

// joinColumns decides which right-side columns join the output and under what
// names. Join keys are shared, not duplicated; any other right column whose
// name already exists on the left is namespaced as "<dataset>_<column>".
func joinColumns(left, right table.Table, rightName string) (added []string, mapping map[string]string) {
	mapping = make(map[string]string, len(right.Columns))
	for _, c := range right.Columns {
		if c == PatientKey || c == EncounterKey {
			continue
		}
		dst := c
		if left.HasColumn(c) {
			dst = rightName + "_" + c
		}
		added = append(added, dst)
		mapping[c] = dst
	}
	// New encounter grain introduced by this table (e.g., the encounters join
	// itself) adds the encounter key as a regular output column.
	if right.HasColumn(EncounterKey) && !left.HasColumn(EncounterKey) {
		added = append([]string{EncounterKey}, added...)
	}
	return added, mapping
}

// mergeOrdered merges two ascending index slices without duplicates.
func mergeOrdered(a, b []int) []int {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

// sortMaster orders rows by patient, then encounter, stable within ties so
// the last join's row order is preserved.
func sortMaster(t *table.Table) {
	sort.SliceStable(t.Rows, func(i, j int) bool {
		pi, pj := keyString(t.Rows[i][PatientKey]), keyString(t.Rows[j][PatientKey])
		if pi != pj {
			return pi < pj
		}
		return keyString(t.Rows[i][EncounterKey]) < keyString(t.Rows[j][EncounterKey])
	})
}

// keyString renders a join key value for map lookup; nil keys render empty.
func keyString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	default:
		return fmt.Sprint(x)
	}
}
