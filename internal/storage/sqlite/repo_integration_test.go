package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"healthetl/internal/storage"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(context.Background(), Config{
		DSN:   filepath.Join(t.TempDir(), "etl.db"),
		Table: "master_records",
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(repo.Close)

	cols := []storage.Column{
		{Name: "patient_id", Kind: storage.KindText},
		{Name: "encounter_id", Kind: storage.KindText},
		{Name: "gender", Kind: storage.KindText},
	}
	if err := repo.EnsureTable(context.Background(), cols, []string{"patient_id", "encounter_id"}); err != nil {
		t.Fatalf("ensure table: %v", err)
	}
	return repo
}

func TestRepository_UpsertIsIdempotent(t *testing.T) {
	t.Parallel()

	repo := openTestRepo(t)
	ctx := context.Background()
	columns := []string{"patient_id", "encounter_id", "gender"}
	keys := []string{"patient_id", "encounter_id"}

	rows := [][]any{
		{"p1", "e1", "F"},
		{"p2", "", "unknown"},
	}
	if n, err := repo.UpsertBatch(ctx, columns, keys, rows); err != nil || n != 2 {
		t.Fatalf("first upsert: n=%d err=%v", n, err)
	}

	// Re-running the same batch must not grow the table.
	if _, err := repo.UpsertBatch(ctx, columns, keys, rows); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	var count int
	if err := repo.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM "master_records"`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}

	// A row with the same key overwrites the previous value.
	if _, err := repo.UpsertBatch(ctx, columns, keys, [][]any{{"p1", "e1", "M"}}); err != nil {
		t.Fatalf("overwrite upsert: %v", err)
	}
	var gender string
	err := repo.db.QueryRowContext(ctx,
		`SELECT "gender" FROM "master_records" WHERE "patient_id" = ? AND "encounter_id" = ?`,
		"p1", "e1",
	).Scan(&gender)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if gender != "M" {
		t.Fatalf("gender = %q, want M", gender)
	}
}

func TestRepository_EnsureTableIsIdempotent(t *testing.T) {
	t.Parallel()

	repo := openTestRepo(t)
	cols := []storage.Column{
		{Name: "patient_id", Kind: storage.KindText},
		{Name: "encounter_id", Kind: storage.KindText},
		{Name: "gender", Kind: storage.KindText},
	}
	if err := repo.EnsureTable(context.Background(), cols, []string{"patient_id", "encounter_id"}); err != nil {
		t.Fatalf("second ensure: %v", err)
	}
}

func TestNewRepository_EmptyDSN(t *testing.T) {
	t.Parallel()

	if _, err := NewRepository(context.Background(), Config{Table: "t"}); err == nil {
		t.Fatalf("expected error on empty DSN")
	}
}
