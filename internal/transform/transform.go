// Package transform implements the per-dataset transformation policies. Each
// policy is a pure function from an extracted Table (plus optional auxiliary
// lookup tables) to a cleaned Table: rows with missing keys are dropped,
// values are normalized, and duplicates are collapsed. A policy never fails
// on malformed rows; failure is reserved for structurally invalid input such
// as an entirely missing key column.
package transform

import (
	"fmt"
	"sort"

	"healthetl/internal/table"
)

// Policy cleans one dataset's extracted Table into its canonical form.
type Policy interface {
	// Name returns the dataset name the policy is bound to.
	Name() string

	// Lookups lists auxiliary datasets whose extracted tables the policy
	// consumes (e.g., the gender lookup used by patients).
	Lookups() []string

	// Clean returns a new Table; the input is never mutated. aux holds the
	// extracted lookup tables keyed by dataset name.
	Clean(in table.Table, aux map[string]table.Table) (table.Table, error)
}

// policies maps dataset name to its transformation policy. Adding a dataset
// means adding a registry entry plus one entry here.
var policies = map[string]Policy{
	"conditions":  Conditions{},
	"encounters":  Encounters{},
	"medications": Medications{},
	"patients":    Patients{GenderLookup: "patients_gender"},
	"symptoms":    Symptoms{},
}

// For returns the policy registered for the dataset name.
func For(name string) (Policy, bool) {
	p, ok := policies[name]
	return p, ok
}

// Names returns all dataset names with a registered policy, sorted.
func Names() []string {
	out := make([]string, 0, len(policies))
	for name := range policies {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// CheckComplete verifies that every non-lookup dataset name has a policy.
// It is called at pipeline-build time so a registry/policy mismatch fails
// before any extraction work starts.
func CheckComplete(datasets []string) error {
	for _, name := range datasets {
		if _, ok := policies[name]; !ok {
			return fmt.Errorf("dataset %q has no transformation policy", name)
		}
	}
	return nil
}
