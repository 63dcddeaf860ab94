package parquet

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	pq "github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// writeParquet serializes a tiny two-column table for the parser to read back.
func writeParquet(t *testing.T) []byte {
	t.Helper()

	schema := arrow.NewSchema([]arrow.Field{
		{Name: "Id", Type: arrow.BinaryTypes.String},
		{Name: "CODE", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
	}, nil)

	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()
	b.Field(0).(*array.StringBuilder).AppendValues([]string{"e1", "e2", "e3"}, nil)
	b.Field(1).(*array.Int64Builder).AppendValues([]int64{10, 0, 30}, []bool{true, false, true})

	rec := b.NewRecord()
	defer rec.Release()
	tbl := array.NewTableFromRecords(schema, []arrow.Record{rec})
	defer tbl.Release()

	var buf bytes.Buffer
	if err := pqarrow.WriteTable(tbl, &buf, 1024, pq.NewWriterProperties(), pqarrow.DefaultWriterProps()); err != nil {
		t.Fatalf("write parquet: %v", err)
	}
	return buf.Bytes()
}

func TestParse_RoundTrip(t *testing.T) {
	t.Parallel()

	data := writeParquet(t)
	tbl, skipped, err := NewParser().Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if skipped != 0 {
		t.Fatalf("skipped = %d", skipped)
	}
	if !reflect.DeepEqual(tbl.Columns, []string{"Id", "CODE"}) {
		t.Fatalf("columns = %v", tbl.Columns)
	}
	if tbl.Len() != 3 {
		t.Fatalf("rows = %d", tbl.Len())
	}
	if tbl.Rows[0]["Id"] != "e1" || tbl.Rows[0]["CODE"] != int64(10) {
		t.Fatalf("row 0 = %v", tbl.Rows[0])
	}
	if tbl.Rows[1]["CODE"] != nil {
		t.Fatalf("null must decode to nil, got %v", tbl.Rows[1]["CODE"])
	}
	if tbl.Rows[2]["CODE"] != int64(30) {
		t.Fatalf("row 2 = %v", tbl.Rows[2])
	}
}

func TestParse_GarbageFails(t *testing.T) {
	t.Parallel()

	if _, _, err := NewParser().Parse(strings.NewReader("not a parquet file")); err == nil {
		t.Fatalf("expected error on garbage input")
	}
}
