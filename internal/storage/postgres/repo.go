// Package postgres implements a Postgres repository using pgx v5. Batches are
// COPYed into a temporary table inside one transaction, matching target rows
// are deleted, and the staged rows inserted — an atomic keyed upsert.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"healthetl/internal/storage"
)

// Config holds Postgres repository configuration.
type Config struct {
	DSN   string // connection string for pgxpool
	Table string // fully qualified target table name, e.g., "public.master_records"
}

// Repository is a Postgres-backed implementation of storage.Repository.
type Repository struct {
	pool *pgxpool.Pool
	cfg  Config
}

// init registers the "postgres" backend with the factory.
func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return NewRepository(ctx, Config{DSN: cfg.DSN, Table: cfg.Table})
	})
}

// NewRepository opens a connection pool and verifies connectivity.
func NewRepository(ctx context.Context, cfg Config) (*Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Repository{pool: pool, cfg: cfg}, nil
}

// Close releases the pool.
func (r *Repository) Close() { r.pool.Close() }

// ddlTypes maps storage column kinds onto Postgres types.
var ddlTypes = map[storage.ColumnKind]string{
	storage.KindText:  "TEXT",
	storage.KindInt:   "BIGINT",
	storage.KindFloat: "DOUBLE PRECISION",
	storage.KindTime:  "TIMESTAMP",
	storage.KindBool:  "BOOLEAN",
}

// EnsureTable creates the target table with a primary key on keyColumns when
// it does not already exist.
func (r *Repository) EnsureTable(ctx context.Context, cols []storage.Column, keyColumns []string) error {
	defs := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		defs = append(defs, pgIdent(c.Name)+" "+ddlTypes[c.Kind])
	}
	if len(keyColumns) > 0 {
		defs = append(defs, "PRIMARY KEY ("+strings.Join(mapIdent(keyColumns), ", ")+")")
	}
	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", pgFQN(r.cfg.Table), strings.Join(defs, ", "))
	if _, err := r.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// UpsertBatch stages rows via COPY into a transaction-scoped temp table, then
// delete-and-inserts into the target. The whole batch commits or rolls back
// as one transaction, so no partial write is ever visible.
func (r *Repository) UpsertBatch(ctx context.Context, columns, keyColumns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if len(columns) == 0 {
		return 0, fmt.Errorf("no columns configured")
	}

	tmp := "tmp_" + strings.ReplaceAll(r.cfg.Table, ".", "_")
	fqTable := pgFQN(r.cfg.Table)

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	create := fmt.Sprintf(
		"CREATE TEMP TABLE %s ON COMMIT DROP AS SELECT %s FROM %s WHERE false",
		pgIdent(tmp), strings.Join(mapIdent(columns), ","), fqTable,
	)
	if _, err := tx.Exec(ctx, create); err != nil {
		return 0, fmt.Errorf("create temp: %w", err)
	}

	copied, err := tx.CopyFrom(ctx, pgx.Identifier{tmp}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Detail != "" {
			return 0, fmt.Errorf("copy into temp: %s (%s)", pgErr.Detail, pgErr.SQLState())
		}
		return 0, fmt.Errorf("copy into temp: %w", err)
	}

	if len(keyColumns) > 0 {
		del := fmt.Sprintf(
			"DELETE FROM %s AS t USING %s AS s WHERE %s",
			fqTable, pgIdent(tmp), keyCondition(keyColumns),
		)
		if _, err := tx.Exec(ctx, del); err != nil {
			return 0, fmt.Errorf("delete matching rows: %w", err)
		}
	}

	insert := fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s",
		fqTable, strings.Join(mapIdent(columns), ","), strings.Join(mapIdent(columns), ","), pgIdent(tmp),
	)
	if _, err := tx.Exec(ctx, insert); err != nil {
		return 0, fmt.Errorf("insert from temp: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return copied, nil
}

// keyCondition builds the USING join condition over the key columns. Nulls
// never occur in key columns (the load adapter blanks them), so plain
// equality is sufficient.
func keyCondition(keyColumns []string) string {
	conds := make([]string, len(keyColumns))
	for i, k := range keyColumns {
		conds[i] = fmt.Sprintf("t.%s = s.%s", pgIdent(k), pgIdent(k))
	}
	return strings.Join(conds, " AND ")
}

// pgIdent quotes a single identifier.
func pgIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// pgFQN quotes a possibly schema-qualified table name.
func pgFQN(table string) string {
	parts := strings.Split(table, ".")
	for i, p := range parts {
		parts[i] = pgIdent(p)
	}
	return strings.Join(parts, ".")
}

// mapIdent quotes every identifier in the slice.
func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = pgIdent(c)
	}
	return out
}
