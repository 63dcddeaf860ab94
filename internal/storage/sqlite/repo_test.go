package sqlite

import (
	"testing"
	"time"
)

func TestNormalizeRow(t *testing.T) {
	t.Parallel()

	ts := time.Date(2020, 6, 15, 10, 30, 0, 0, time.UTC)
	got := normalizeRow([]any{"s", int64(1), ts, nil})

	if got[0] != "s" || got[1] != int64(1) || got[3] != nil {
		t.Fatalf("passthrough values changed: %v", got)
	}
	if got[2] != "2020-06-15T10:30:00Z" {
		t.Fatalf("time = %v", got[2])
	}
}

func TestQuoteIdent(t *testing.T) {
	t.Parallel()

	if got := quoteIdent(`master`); got != `"master"` {
		t.Fatalf("got %s", got)
	}
	if got := quoteIdent(`a"b`); got != `"a""b"` {
		t.Fatalf("got %s", got)
	}
}
