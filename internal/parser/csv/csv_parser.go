// Package csv implements the delimited-text reader. It streams rows through
// encoding/csv, preserves source header names verbatim (column renames are a
// transformation-policy concern), and soft-fails malformed rows so a handful
// of bad lines never aborts a batch of thousands.
//
// Healthcare exports in the wild are frequently Latin-1 encoded; the parser
// can decode ISO-8859-1 on the fly so downstream stages always see UTF-8.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"healthetl/internal/table"
	"healthetl/pkg/records"
)

// Options configures the CSV parser behavior. All fields are optional;
// sensible defaults are applied when a field is zero.
type Options struct {
	// Comma specifies the field delimiter. When zero, ',' is used.
	Comma rune

	// TrimSpace trims leading/trailing ASCII spaces from each field value.
	TrimSpace bool

	// Encoding selects the source byte encoding: "latin1" enables on-the-fly
	// ISO-8859-1 decoding; empty or "utf8" reads bytes as-is.
	Encoding string

	// HeaderMap maps source header names to canonical keys before the table
	// is built. Headers without an entry pass through unchanged.
	HeaderMap map[string]string
}

// Parser parses CSV input according to Options. It is safe to reuse across
// inputs, but Parser itself is not concurrency-safe.
type Parser struct{ opt Options }

// NewParser constructs a Parser with the provided Options.
func NewParser(opt Options) *Parser { return &Parser{opt: opt} }

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// logCap bounds per-run skip logging so a pathological file cannot flood logs.
const logCap = 400

// Parse consumes CSV records from r and returns the parsed Table along with
// the number of rows skipped due to parse errors or field-count mismatches.
// The first row is always treated as the header; returned column names match
// it exactly apart from BOM stripping, whitespace trim, and HeaderMap.
func (p *Parser) Parse(r io.Reader) (table.Table, int, error) {
	if strings.EqualFold(p.opt.Encoding, "latin1") {
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}

	cr := csv.NewReader(r)
	if p.opt.Comma != 0 {
		cr.Comma = p.opt.Comma
	}
	cr.ReuseRecord = true

	h, err := cr.Read()
	if err != nil {
		return table.Table{}, 0, fmt.Errorf("read csv header: %w", err)
	}
	headers := p.headers(h)

	t, err := table.New(headers...)
	if err != nil {
		return table.Table{}, 0, fmt.Errorf("csv header: %w", err)
	}

	var skipped int
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if skipped < logCap {
				log.Printf("csv: skipping row %d: %v", line, err)
			}
			skipped++
			continue
		}
		if len(row) != len(headers) {
			if skipped < logCap {
				log.Printf("csv: skipping row %d: incorrect number of fields (expected %d, got %d)",
					line, len(headers), len(row))
			}
			skipped++
			continue
		}

		rec := make(records.Record, len(row))
		for i, val := range row {
			if p.opt.TrimSpace {
				val = strings.TrimSpace(val)
			}
			rec[headers[i]] = emptyToNil(val)
		}
		t.Append(rec)
	}

	return t, skipped, nil
}

// headers produces the table column names from the raw header row: BOM strip
// on the first cell, whitespace trim, then HeaderMap when provided.
func (p *Parser) headers(h []string) []string {
	res := make([]string, len(h))
	for i, col := range h {
		c := strings.TrimSpace(col)
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		if p.opt.HeaderMap != nil {
			if m, ok := p.opt.HeaderMap[c]; ok && m != "" {
				c = m
			}
		}
		res[i] = c
	}
	return res
}

// emptyToNil converts an empty string to nil; all other values are returned as-is.
func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}
