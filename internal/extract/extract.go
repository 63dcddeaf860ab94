// Package extract implements the extraction adapter: it dispatches a dataset
// spec to the reader for its declared format and returns the normalized
// in-memory Table.
//
// Failures are classified for the orchestrator: ErrSourceUnavailable when the
// location cannot be read, ErrFormat when the content does not parse as the
// declared format. Neither is retryable at this layer; retry policy belongs
// to the caller.
package extract

import (
	"context"
	"errors"
	"fmt"
	"log"

	"healthetl/internal/dataset"
	"healthetl/internal/datasource"
	"healthetl/internal/datasource/file"
	"healthetl/internal/parser"
	csvparser "healthetl/internal/parser/csv"
	parquetparser "healthetl/internal/parser/parquet"
	"healthetl/internal/table"
)

var (
	// ErrSourceUnavailable marks locations that cannot be opened or read.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrFormat marks content that does not parse as the declared format.
	ErrFormat = errors.New("format error")
)

// Function variables used to introduce test seams.
// In production these point to real implementations; tests can override them.
var (
	openSourceFn = func(spec dataset.Spec) datasource.Source {
		return file.NewLocal(spec.Path)
	}
)

// Extract reads the dataset described by spec and returns its Table. Column
// names match the source header or schema exactly; renaming is the concern of
// transformation policies.
func Extract(ctx context.Context, spec dataset.Spec) (table.Table, error) {
	src := openSourceFn(spec)
	rc, err := src.Open(ctx)
	if err != nil {
		return table.Table{}, fmt.Errorf("dataset %s: %w: %v", spec.Name, ErrSourceUnavailable, err)
	}
	defer rc.Close()

	p, err := parserFor(spec)
	if err != nil {
		return table.Table{}, err
	}

	t, skipped, err := p.Parse(rc)
	if err != nil {
		return table.Table{}, fmt.Errorf("dataset %s: %w: %v", spec.Name, ErrFormat, err)
	}
	if skipped > 0 {
		log.Printf("extract: dataset=%s rows=%d skipped=%d", spec.Name, t.Len(), skipped)
	}
	return t, nil
}

// parserFor selects the reader implementation for the spec's format.
func parserFor(spec dataset.Spec) (parser.Parser, error) {
	switch spec.Format {
	case dataset.Delimited:
		return csvparser.NewParser(csvparser.Options{
			Comma:     spec.Options.Rune("comma", ','),
			TrimSpace: spec.Options.Bool("trim_space", true),
			Encoding:  spec.Options.String("encoding", "latin1"),
			HeaderMap: spec.Options.StringMap("header_map"),
		}), nil
	case dataset.Columnar:
		return parquetparser.NewParser(), nil
	default:
		// Unreachable when specs come from dataset.NewRegistry, which rejects
		// unknown formats at build time.
		return nil, fmt.Errorf("dataset %s: %w: unrecognized format %q", spec.Name, ErrFormat, spec.Format)
	}
}
