// Package mssql implements a Microsoft SQL Server repository using the
// go-mssqldb bulk copy API. Rows are bulk-copied into a session-scoped #temp
// table, matching target rows deleted, and the staged rows inserted, all in
// one transaction.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"healthetl/internal/storage"
)

// Config holds MSSQL repository configuration.
type Config struct {
	DSN   string
	Table string // possibly schema-qualified, e.g. "dbo.master_records"
}

// Repository is an MSSQL-backed implementation of storage.Repository.
type Repository struct {
	db  *sql.DB
	cfg Config
}

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		return NewRepository(ctx, Config{DSN: cfg.DSN, Table: cfg.Table})
	})
}

// NewRepository validates the DSN, opens a pool, and verifies connectivity.
func NewRepository(ctx context.Context, cfg Config) (*Repository, error) {
	// Validate DSN early to fail fast on obvious mistakes.
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Repository{db: db, cfg: cfg}, nil
}

// Close releases the pool.
func (r *Repository) Close() { _ = r.db.Close() }

var ddlTypes = map[storage.ColumnKind]string{
	storage.KindText:  "NVARCHAR(512)",
	storage.KindInt:   "BIGINT",
	storage.KindFloat: "FLOAT",
	storage.KindTime:  "DATETIME2",
	storage.KindBool:  "BIT",
}

// EnsureTable creates the target table with a primary key on keyColumns when
// it does not already exist.
func (r *Repository) EnsureTable(ctx context.Context, cols []storage.Column, keyColumns []string) error {
	defs := make([]string, 0, len(cols)+1)
	for _, c := range cols {
		typ := ddlTypes[c.Kind]
		if isKey(c.Name, keyColumns) {
			// PK columns must be NOT NULL; the load adapter never writes
			// null keys.
			typ += " NOT NULL"
		}
		defs = append(defs, msIdent(c.Name)+" "+typ)
	}
	if len(keyColumns) > 0 {
		defs = append(defs, "PRIMARY KEY ("+strings.Join(mapIdent(keyColumns), ", ")+")")
	}
	ddl := fmt.Sprintf(
		"IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (%s)",
		strings.ReplaceAll(r.cfg.Table, "'", "''"),
		msFQN(r.cfg.Table),
		strings.Join(defs, ", "),
	)
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

// UpsertBatch stages rows into #temp via bulk copy, then delete-and-inserts
// into the target inside one transaction.
func (r *Repository) UpsertBatch(ctx context.Context, columns, keyColumns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("no columns configured")
	}
	if len(rows) == 0 {
		return 0, nil
	}

	tmp := "#tmp_" + strings.ReplaceAll(r.cfg.Table, ".", "_")
	fqTable := msFQN(r.cfg.Table)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	rollback := func() { _ = tx.Rollback() }

	// Shape the temp table after the target.
	create := fmt.Sprintf(
		"SELECT TOP 0 %s INTO %s FROM %s",
		strings.Join(mapIdent(columns), ","),
		msIdent(tmp),
		fqTable,
	)
	if _, err := tx.ExecContext(ctx, create); err != nil {
		rollback()
		return 0, fmt.Errorf("create temp: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(tmp, mssql.BulkOptions{}, columns...))
	if err != nil {
		rollback()
		return 0, fmt.Errorf("prepare bulk copy: %w", err)
	}
	for i := range rows {
		if len(rows[i]) != len(columns) {
			_ = stmt.Close()
			rollback()
			return 0, fmt.Errorf("row %d length %d != columns length %d", i, len(rows[i]), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, rows[i]...); err != nil {
			_ = stmt.Close()
			rollback()
			return 0, fmt.Errorf("bulk row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx) // flush
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		rollback()
		return 0, fmt.Errorf("bulk finalize: %w", err)
	}
	copied, err := res.RowsAffected()
	if err != nil {
		rollback()
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	if len(keyColumns) > 0 {
		del := fmt.Sprintf(
			"DELETE T FROM %s AS T INNER JOIN %s AS S ON %s",
			fqTable, msIdent(tmp), keyCondition(keyColumns),
		)
		if _, err := tx.ExecContext(ctx, del); err != nil {
			rollback()
			return 0, fmt.Errorf("delete matching rows: %w", err)
		}
	}

	insert := fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s",
		fqTable,
		strings.Join(mapIdent(columns), ","),
		strings.Join(mapIdent(columns), ","),
		msIdent(tmp),
	)
	if _, err := tx.ExecContext(ctx, insert); err != nil {
		rollback()
		return 0, fmt.Errorf("insert phase: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return copied, nil
}

// keyCondition builds the T=S equality join for the key columns.
func keyCondition(keyColumns []string) string {
	conds := make([]string, 0, len(keyColumns))
	for _, col := range keyColumns {
		conds = append(conds, fmt.Sprintf("T.%s = S.%s", msIdent(col), msIdent(col)))
	}
	return strings.Join(conds, " AND ")
}

func isKey(col string, keyColumns []string) bool {
	for _, k := range keyColumns {
		if k == col {
			return true
		}
	}
	return false
}

// msIdent quotes a SQL Server identifier with [brackets], escaping ].
func msIdent(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }

// msFQN quotes a possibly schema-qualified name like "dbo.master_records".
func msFQN(name string) string {
	parts := strings.Split(name, ".")
	for i, p := range parts {
		parts[i] = msIdent(p)
	}
	return strings.Join(parts, ".")
}

func mapIdent(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = msIdent(c)
	}
	return out
}
