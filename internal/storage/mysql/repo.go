// Package mysql implements a MySQL repository using database/sql and the
// go-sql-driver. The keyed upsert is a transaction of multi-row
// INSERT ... ON DUPLICATE KEY UPDATE statements over the key-column
// primary key.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"healthetl/internal/storage"
)

// insertChunk caps the rows per multi-value INSERT to keep statements inside
// MySQL's default max_allowed_packet.
const insertChunk = 500

// Config holds MySQL repository configuration.
type Config struct {
	DSN   string // go-sql-driver DSN, e.g. "user:pass@tcp(host:3306)/db?parseTime=true"
	Table string
}

// Repository is a MySQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return NewRepository(ctx, Config{DSN: cfg.DSN, Table: cfg.Table})
	})
}

// NewRepository opens a connection pool and verifies connectivity.
func NewRepository(ctx context.Context, cfg Config) (*Repository, error) {
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("mysql: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mysql: ping: %w", err)
	}
	return &Repository{db: db, cfg: cfg}, nil
}

// Close releases the pool.
func (r *Repository) Close() { _ = r.db.Close() }

var ddlTypes = map[storage.ColumnKind]string{
	storage.KindText:  "VARCHAR(512)",
	storage.KindInt:   "BIGINT",
	storage.KindFloat: "DOUBLE",
	storage.KindTime:  "DATETIME",
	storage.KindBool:  "TINYINT(1)",
}

// EnsureTable creates the target table with a primary key on keyColumns when
// it does not already exist.
func (r *Repository) EnsureTable(ctx context.Context, cols []storage.Column, keyColumns []string) error {
	defs := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		defs = append(defs, myIdent(c.Name)+" "+ddlTypes[c.Kind])
	}
	if len(keyColumns) > 0 {
		defs = append(defs, "PRIMARY KEY ("+strings.Join(mapIdent(keyColumns), ", ")+")")
	}
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", myIdent(r.cfg.Table), strings.Join(defs, ", "))
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("mysql: create table: %w", err)
	}
	return nil
}

// UpsertBatch writes rows inside one transaction using chunked multi-row
// INSERT ... ON DUPLICATE KEY UPDATE, overwriting non-key columns of existing
// rows with the same key.
func (r *Repository) UpsertBatch(ctx context.Context, columns, keyColumns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("mysql: columns must not be empty")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	update := updateClause(columns, keyColumns)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("mysql: begin tx: %w", err)
	}
	rollback := func() { _ = tx.Rollback() }

	var written int64
	for start := 0; start < len(rows); start += insertChunk {
		end := start + insertChunk
		if end > len(rows) {
			end = len(rows)
		}
		chunk := rows[start:end]

		stmtSQL, args, err := buildInsert(r.cfg.Table, columns, update, chunk)
		if err != nil {
			rollback()
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, stmtSQL, args...); err != nil {
			rollback()
			return 0, fmt.Errorf("mysql: upsert chunk at row %d: %w", start, err)
		}
		written += int64(len(chunk))
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("mysql: commit: %w", err)
	}
	return written, nil
}

// buildInsert assembles one multi-row INSERT ... ON DUPLICATE KEY UPDATE
// statement plus its flattened argument list.
func buildInsert(table string, columns []string, update string, chunk [][]any) (string, []any, error) {
	rowPH := "(" + strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",") + ")"
	values := make([]string, len(chunk))
	args := make([]any, 0, len(chunk)*len(columns))
	for i, row := range chunk {
		if len(row) != len(columns) {
			return "", nil, fmt.Errorf("mysql: row length %d != columns length %d", len(row), len(columns))
		}
		values[i] = rowPH
		args = append(args, row...)
	}
	stmt := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES %s ON DUPLICATE KEY UPDATE %s",
		myIdent(table),
		strings.Join(mapIdent(columns), ", "),
		strings.Join(values, ", "),
		update,
	)
	return stmt, args, nil
}

// updateClause builds the ON DUPLICATE KEY UPDATE assignments for every
// non-key column. Key columns are identified by the duplicate itself and
// never reassigned.
func updateClause(columns, keyColumns []string) string {
	keys := make(map[string]struct{}, len(keyColumns))
	for _, k := range keyColumns {
		keys[k] = struct{}{}
	}
	assigns := make([]string, 0, len(columns))
	for _, c := range columns {
		if _, isKey := keys[c]; isKey {
			continue
		}
		assigns = append(assigns, fmt.Sprintf("%s = VALUES(%s)", myIdent(c), myIdent(c)))
	}
	if len(assigns) == 0 {
		// All columns are keys; make the duplicate a no-op instead of an error.
		k := myIdent(keyColumns[0])
		return k + " = " + k
	}
	return strings.Join(assigns, ", ")
}

// myIdent quotes a MySQL identifier with backticks.
func myIdent(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}

func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = myIdent(c)
	}
	return out
}
