// Package sqlite implements a SQLite repository using database/sql. SQLite
// has no bulk-load API like Postgres COPY, so the upsert is a transaction of
// prepared INSERT OR REPLACE statements over the key-column primary key.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"healthetl/internal/storage"
)

// Config holds SQLite repository configuration.
type Config struct {
	DSN   string // passed directly to database/sql, e.g. "file:etl.db?cache=shared"
	Table string
}

// Repository is a SQLite-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return NewRepository(ctx, Config{DSN: cfg.DSN, Table: cfg.Table})
	})
}

// NewRepository opens a SQLite connection and fails fast on invalid DSNs.
func NewRepository(ctx context.Context, cfg Config) (*Repository, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	return &Repository{db: db, cfg: cfg}, nil
}

// Close releases the underlying connection.
func (r *Repository) Close() { _ = r.db.Close() }

var ddlTypes = map[storage.ColumnKind]string{
	storage.KindText:  "TEXT",
	storage.KindInt:   "INTEGER",
	storage.KindFloat: "REAL",
	storage.KindTime:  "TEXT",
	storage.KindBool:  "INTEGER",
}

// EnsureTable creates the target table when absent, with a primary key on
// keyColumns. The key primary key is what makes INSERT OR REPLACE a keyed
// upsert rather than a plain append.
func (r *Repository) EnsureTable(ctx context.Context, cols []storage.Column, keyColumns []string) error {
	defs := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		defs = append(defs, quoteIdent(c.Name)+" "+ddlTypes[c.Kind])
	}
	if len(keyColumns) > 0 {
		defs = append(defs, "PRIMARY KEY ("+strings.Join(quoteAll(keyColumns), ", ")+")")
	}
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(r.cfg.Table), strings.Join(defs, ", "))
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("sqlite: create table: %w", err)
	}
	return nil
}

// UpsertBatch writes rows inside one transaction using INSERT OR REPLACE.
// Rows sharing a key with an existing row replace it; a mid-batch failure
// rolls the whole batch back.
func (r *Repository) UpsertBatch(ctx context.Context, columns, keyColumns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("sqlite: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(columns))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	stmtSQL := fmt.Sprintf(
		"INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
		quoteIdent(r.cfg.Table),
		strings.Join(quoteAll(columns), ", "),
		strings.Join(placeholders, ", "),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("sqlite: begin tx: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("sqlite: prepare insert: %w", err)
	}
	defer stmt.Close()

	var written int64
	for _, row := range rows {
		if len(row) != len(columns) {
			_ = tx.Rollback()
			return 0, fmt.Errorf("sqlite: row length %d != columns length %d", len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, normalizeRow(row)...); err != nil {
			_ = tx.Rollback()
			return 0, fmt.Errorf("sqlite: insert: %w", err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("sqlite: commit: %w", err)
	}
	return written, nil
}

// normalizeRow converts values the driver cannot bind directly. time.Time is
// stored as an RFC 3339 string so the column sorts and compares textually.
func normalizeRow(row []any) []any {
	out := make([]any, len(row))
	for i, v := range row {
		if t, ok := v.(time.Time); ok {
			out[i] = t.Format(time.RFC3339)
			continue
		}
		out[i] = v
	}
	return out
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteAll(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = quoteIdent(c)
	}
	return out
}
