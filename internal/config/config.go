// Package config defines the canonical, JSON-serializable configuration model
// for the healthcare ETL pipeline. It is intentionally small, explicit, and
// dependency-free so that run definitions can be loaded from disk (or other
// sources) and passed through the program without additional glue code.
//
// Design goals:
//
//  1. Stability: Changes to this package should be additive and backwards-
//     compatible whenever possible.
//  2. Clarity: Field names in Go mirror the JSON structure used in run files
//     under configs/*.json.
//  3. Minimalism: No third-party config libraries; decoding is performed by the
//     standard library, with a light Options helper for typed access.
//
// Example (trimmed):
//
//	{
//	  "job": "century_health",
//	  "datasets": [
//	    { "name": "patients",   "path": "data/patients.csv",       "format": "delimited" },
//	    { "name": "encounters", "path": "data/encounters.parquet", "format": "columnar" },
//	    { "name": "patients_gender", "path": "data/patient_gender.csv",
//	      "format": "delimited", "lookup": true }
//	  ],
//	  "storage": { "kind": "postgres", "db": { "dsn": "...", "table": "public.master_records" } }
//	}
package config

import "encoding/json"

// Pipeline describes one full ETL run definition. It is the top-level object
// decoded from a run file.
type Pipeline struct {
	// Job names the run for logging and metrics labeling.
	Job string `json:"job"`

	// Datasets is the dataset registry: one entry per input source. Adding a
	// dataset here (plus a matching transformation policy) is the only change
	// needed to extend the pipeline.
	Datasets []Dataset `json:"datasets"`

	// Storage describes where the merged master table is written.
	Storage Storage `json:"storage"`

	// Export optionally mirrors the master table to a local CSV after a
	// successful load.
	Export Export `json:"export"`

	// Runtime controls parallelism of independent tasks.
	Runtime RuntimeConfig `json:"runtime"`
}

// Dataset is one registry entry: a named input source with its location and
// format. Identity is Name; entries are never mutated after decode.
type Dataset struct {
	// Name is the logical dataset name (e.g., "patients", "conditions").
	Name string `json:"name"`

	// Path is the local filesystem path to the input file.
	Path string `json:"path"`

	// Format selects the reader: "delimited" (CSV and friends) or
	// "columnar" (Parquet).
	Format string `json:"format"`

	// Lookup marks reference datasets that feed another dataset's policy
	// instead of carrying their own transformation task (e.g., the gender
	// lookup consumed by the patients policy).
	Lookup bool `json:"lookup,omitempty"`

	// Options is a free-form bag interpreted by the reader. For delimited
	// sources, typical keys include: comma (string), encoding (string,
	// "latin1" or "utf8"), trim_space (bool), header_map (object).
	Options Options `json:"options,omitempty"`
}

// Storage selects the sink used to persist the master table.
type Storage struct {
	// Kind selects the storage backend: "postgres", "sqlite", "mysql",
	// or "mssql".
	Kind string `json:"kind"`

	// DB configures the selected backend.
	DB DBConfig `json:"db"`
}

// DBConfig configures the database sink.
type DBConfig struct {
	// DSN is the backend connection string (e.g., postgresql://... for
	// pgxpool, a file path for sqlite).
	DSN string `json:"dsn"`

	// Table is the fully qualified target table name (e.g., "public.master_records").
	Table string `json:"table"`

	// AutoCreateTable creates the master table if it does not exist.
	AutoCreateTable bool `json:"auto_create_table"`
}

// Export mirrors the loaded master table to a local CSV file when Path is set.
type Export struct {
	Path string `json:"path,omitempty"`
}

// RuntimeConfig controls concurrency of independent extract/transform tasks.
// Zero values fall back to sensible defaults at run time.
type RuntimeConfig struct {
	// Workers caps how many tasks of one execution level run concurrently.
	// 0 means one goroutine per task in the level.
	Workers int `json:"workers"`
}

// Options is a small helper to fetch typed values from arbitrary JSON maps
// without introducing third-party configuration libraries. It purposefully
// performs only minimal type coercion and returns provided defaults when a key
// is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty. This is useful for single-character reader settings such
// as a CSV delimiter.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns a map[string]string for key when the value is an object
// whose values are strings. Non-string values are ignored. Returns an empty
// map when the key is missing or the value is not an object.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		if m, ok := v.(map[string]any); ok {
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		}
	}
	return res
}

// UnmarshalJSON implements json.Unmarshaler so that a missing or null
// "options" object in JSON decodes to a non-nil, empty Options map. This
// simplifies call sites by removing the need to nil-check Options values.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
