// Package dataset defines the declarative dataset registry: the mapping of
// logical dataset name to source location and format that drives pipeline
// construction. The registry is pure data; it has no behavior beyond lookup.
package dataset

import (
	"fmt"
	"sort"

	"healthetl/internal/config"
)

// Format identifies the on-disk encoding of a source dataset.
type Format string

const (
	// Delimited covers header-first delimited text (CSV and friends).
	Delimited Format = "delimited"
	// Columnar covers columnar binary files (Parquet).
	Columnar Format = "columnar"
)

// ParseFormat maps a config format string to a Format, rejecting unknown values.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case Delimited, Columnar:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unrecognized dataset format %q", s)
	}
}

// Spec describes one input dataset. Identity is Name. Specs are immutable
// after registry construction.
type Spec struct {
	Name    string
	Path    string
	Format  Format
	Lookup  bool
	Options config.Options
}

// Registry is the full set of dataset specs for a run, keyed by name.
type Registry struct {
	specs map[string]Spec
	order []string
}

// NewRegistry builds a Registry from config entries. It fails on duplicate
// names and unrecognized formats so misconfiguration surfaces at build time,
// before any extraction work starts.
func NewRegistry(entries []config.Dataset) (*Registry, error) {
	r := &Registry{specs: make(map[string]Spec, len(entries))}
	for _, e := range entries {
		if _, dup := r.specs[e.Name]; dup {
			return nil, fmt.Errorf("duplicate dataset %q", e.Name)
		}
		format, err := ParseFormat(e.Format)
		if err != nil {
			return nil, fmt.Errorf("dataset %q: %w", e.Name, err)
		}
		opts := e.Options
		if opts == nil {
			opts = config.Options{}
		}
		r.specs[e.Name] = Spec{
			Name:    e.Name,
			Path:    e.Path,
			Format:  format,
			Lookup:  e.Lookup,
			Options: opts,
		}
		r.order = append(r.order, e.Name)
	}
	return r, nil
}

// Get returns the spec for name.
func (r *Registry) Get(name string) (Spec, bool) {
	s, ok := r.specs[name]
	return s, ok
}

// Names returns all dataset names in registry order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// SortedNames returns all dataset names sorted lexically; used where a
// deterministic order independent of config order is needed.
func (r *Registry) SortedNames() []string {
	out := append([]string(nil), r.order...)
	sort.Strings(out)
	return out
}

// Len returns the number of registered datasets.
func (r *Registry) Len() int { return len(r.specs) }
