// Package load persists the master record table through a storage.Repository.
// It batches rows, tags every row with the run identifier, and performs the
// idempotent keyed upsert the repository contract promises.
//
// Logging: a concise progress line is emitted per flushed batch with running
// totals and instantaneous rows/sec since the previous flush.
package load

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"healthetl/internal/merge"
	"healthetl/internal/storage"
	"healthetl/internal/table"
)

// RunIDColumn tags every persisted row with the pipeline run that wrote it.
const RunIDColumn = "run_id"

// defaultBatchSize bounds memory per flush while keeping round trips low.
const defaultBatchSize = 1000

// Options configures one load.
type Options struct {
	// RunID tags the written rows; a fresh UUID is generated when empty.
	RunID string
	// BatchSize is rows per repository flush; defaults to 1000.
	BatchSize int
	// AutoCreateTable bootstraps the target table before the first write.
	AutoCreateTable bool
}

// Result reports what a load wrote.
type Result struct {
	RunID   string
	Rows    int64
	Batches int
}

// Load writes the master table through repo. Key columns are never written as
// nil: a missing encounter identifier is persisted as the empty string so the
// (patient, encounter) primary key stays valid and re-runs stay idempotent.
// Every backend failure is wrapped with storage.ErrWrite.
func Load(ctx context.Context, repo storage.Repository, master table.Table, opts Options) (Result, error) {
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	res := Result{RunID: opts.RunID}

	columns := append(append([]string(nil), master.Columns...), RunIDColumn)

	if opts.AutoCreateTable {
		if err := repo.EnsureTable(ctx, inferColumns(master), merge.KeyColumns); err != nil {
			return res, fmt.Errorf("load: %w: ensure table: %v", storage.ErrWrite, err)
		}
	}

	var (
		batch       = make([][]any, 0, opts.BatchSize)
		start       = time.Now()
		lastFlushTS = start
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := repo.UpsertBatch(ctx, columns, merge.KeyColumns, batch)
		if err != nil {
			log.Printf("load: upsert failed total=%d err=%v", res.Rows, err)
			return fmt.Errorf("load: %w: %v", storage.ErrWrite, err)
		}
		res.Rows += n
		res.Batches++

		now := time.Now()
		sinceLast := now.Sub(lastFlushTS)
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(n) / sinceLast.Seconds()
		}
		log.Printf(
			"load: batch #%d: rps=%.0f written=%d total_written=%d elapsed=%s",
			res.Batches, rps, n, res.Rows, now.Sub(start).Truncate(time.Millisecond),
		)
		lastFlushTS = now

		batch = batch[:0]
		return nil
	}

	for _, rec := range master.Rows {
		row := make([]any, 0, len(columns))
		for _, c := range master.Columns {
			row = append(row, normalizeValue(c, rec[c]))
		}
		row = append(row, opts.RunID)
		batch = append(batch, row)

		if len(batch) >= opts.BatchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}
	if err := flush(); err != nil {
		return res, err
	}

	log.Printf("load: done run_id=%s rows=%d batches=%d", res.RunID, res.Rows, res.Batches)
	return res, nil
}

// normalizeValue prepares one cell for the repository. Key columns trade nil
// for the empty string; everything else passes through.
func normalizeValue(column string, v any) any {
	if v == nil && isKeyColumn(column) {
		return ""
	}
	return v
}

func isKeyColumn(column string) bool {
	for _, k := range merge.KeyColumns {
		if k == column {
			return true
		}
	}
	return false
}

// inferColumns derives DDL column kinds from the table's values: the first
// non-nil value per column decides, and a column that never shows a value
// falls back to text.
func inferColumns(t table.Table) []storage.Column {
	cols := make([]storage.Column, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		cols = append(cols, storage.Column{Name: c, Kind: inferKind(t, c)})
	}
	cols = append(cols, storage.Column{Name: RunIDColumn, Kind: storage.KindText})
	return cols
}

func inferKind(t table.Table, column string) storage.ColumnKind {
	if isKeyColumn(column) {
		return storage.KindText
	}
	for _, r := range t.Rows {
		switch r[column].(type) {
		case nil:
			continue
		case string:
			return storage.KindText
		case int, int32, int64:
			return storage.KindInt
		case float32, float64:
			return storage.KindFloat
		case time.Time:
			return storage.KindTime
		case bool:
			return storage.KindBool
		default:
			return storage.KindText
		}
	}
	return storage.KindText
}

// IsWriteFailure reports whether err is (or wraps) a storage write failure.
func IsWriteFailure(err error) bool { return errors.Is(err, storage.ErrWrite) }
