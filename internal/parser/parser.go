// Package parser defines the format-reader contract used by the extraction
// adapter. A Parser turns raw source bytes into an in-memory Table whose
// column names exactly match the source header (or schema, for columnar
// sources); it performs no type coercion beyond what the format itself
// encodes.
package parser

import (
	"io"

	"healthetl/internal/table"
)

// Parser parses one source stream into a Table. The int return is the number
// of malformed rows that were skipped (soft failures); a non-nil error means
// the content does not parse as the declared format at all.
type Parser interface {
	Parse(r io.Reader) (table.Table, int, error)
}
