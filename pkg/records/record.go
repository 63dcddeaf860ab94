// Package records defines the row value type shared by parsers, transforms,
// and storage. A Record maps column names to values; a nil value is the
// explicit missing marker throughout the pipeline.
package records

// Record is a single row of data flowing through the pipeline.
type Record map[string]any

// Clone returns a shallow copy of the record. Values are shared; transforms
// that replace values must assign into the clone, never the original.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Has reports whether the record holds a non-nil, non-empty value for key.
// Empty strings count as missing so CSV blanks and true nils behave alike.
func (r Record) Has(key string) bool {
	v, ok := r[key]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr && s == "" {
		return false
	}
	return true
}

// String returns the string value for key, or "" when the value is missing
// or not a string.
func (r Record) String(key string) string {
	if v, ok := r[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
