// Package parquet implements the columnar-binary reader on top of the Apache
// Arrow parquet implementation. The whole file is materialized into memory;
// inputs are bounded batch files, not streams.
//
// Column names come from the parquet schema verbatim. Values keep the types
// the format encodes (strings, integers, floats, booleans, timestamps); nulls
// become nil, matching the pipeline's missing marker.
package parquet

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"healthetl/internal/table"
	"healthetl/pkg/records"
)

// batchSize bounds the Arrow record batches materialized per read.
const batchSize = 4096

// Parser reads a parquet file into a Table. It is stateless and safe to reuse.
type Parser struct{}

// NewParser constructs a parquet Parser.
func NewParser() *Parser { return &Parser{} }

// Parse reads the full parquet content from r and returns it as a Table. The
// skipped count is always zero: parquet is self-describing, so a file either
// parses completely or fails as a whole.
func (p *Parser) Parse(r io.Reader) (table.Table, int, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return table.Table{}, 0, fmt.Errorf("read parquet: %w", err)
	}

	pf, err := file.NewParquetReader(bytes.NewReader(buf))
	if err != nil {
		return table.Table{}, 0, fmt.Errorf("open parquet: %w", err)
	}
	defer pf.Close()

	fr, err := pqarrow.NewFileReader(pf,
		pqarrow.ArrowReadProperties{BatchSize: batchSize},
		memory.DefaultAllocator,
	)
	if err != nil {
		return table.Table{}, 0, fmt.Errorf("parquet arrow reader: %w", err)
	}

	at, err := fr.ReadTable(context.Background())
	if err != nil {
		return table.Table{}, 0, fmt.Errorf("read parquet table: %w", err)
	}
	defer at.Release()

	schema := at.Schema()
	cols := make([]string, schema.NumFields())
	for i := range cols {
		cols[i] = schema.Field(i).Name
	}
	t, err := table.New(cols...)
	if err != nil {
		return table.Table{}, 0, fmt.Errorf("parquet schema: %w", err)
	}

	// Flatten each chunked column into a plain value slice, then assemble rows.
	values := make([][]any, len(cols))
	for i := 0; i < int(at.NumCols()); i++ {
		values[i] = flattenColumn(at.Column(i).Data())
	}
	for row := 0; row < int(at.NumRows()); row++ {
		rec := make(records.Record, len(cols))
		for i, name := range cols {
			rec[name] = values[i][row]
		}
		t.Append(rec)
	}

	return t, 0, nil
}

// flattenColumn converts all chunks of a column into Go values in row order.
func flattenColumn(chunked *arrow.Chunked) []any {
	out := make([]any, 0, chunked.Len())
	for _, chunk := range chunked.Chunks() {
		for i := 0; i < chunk.Len(); i++ {
			out = append(out, arrowValue(chunk, i))
		}
	}
	return out
}

// arrowValue converts one array element to its Go representation. Null
// elements become nil; unhandled physical types fall back to their string
// rendering so no value is silently dropped.
func arrowValue(a arrow.Array, i int) any {
	if a.IsNull(i) {
		return nil
	}
	switch arr := a.(type) {
	case *array.String:
		return arr.Value(i)
	case *array.LargeString:
		return arr.Value(i)
	case *array.Boolean:
		return arr.Value(i)
	case *array.Int8:
		return int64(arr.Value(i))
	case *array.Int16:
		return int64(arr.Value(i))
	case *array.Int32:
		return int64(arr.Value(i))
	case *array.Int64:
		return arr.Value(i)
	case *array.Float32:
		return float64(arr.Value(i))
	case *array.Float64:
		return arr.Value(i)
	case *array.Date32:
		return arr.Value(i).ToTime()
	case *array.Date64:
		return arr.Value(i).ToTime()
	case *array.Timestamp:
		dt := arr.DataType().(*arrow.TimestampType)
		return arr.Value(i).ToTime(dt.Unit)
	default:
		return a.ValueStr(i)
	}
}
