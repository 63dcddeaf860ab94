package load

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"healthetl/internal/storage"
	"healthetl/internal/table"
	"healthetl/pkg/records"
)

// fakeRepo captures UpsertBatch calls for assertions.
type fakeRepo struct {
	ensured    bool
	ensureCols []storage.Column
	ensureKeys []string

	columns []string
	keys    []string
	batches [][][]any

	failWith error
}

func (f *fakeRepo) EnsureTable(_ context.Context, cols []storage.Column, keyColumns []string) error {
	f.ensured = true
	f.ensureCols = cols
	f.ensureKeys = keyColumns
	return nil
}

func (f *fakeRepo) UpsertBatch(_ context.Context, columns, keyColumns []string, rows [][]any) (int64, error) {
	if f.failWith != nil {
		return 0, f.failWith
	}
	f.columns = columns
	f.keys = keyColumns
	cp := make([][]any, len(rows))
	for i, r := range rows {
		cp[i] = append([]any(nil), r...)
	}
	f.batches = append(f.batches, cp)
	return int64(len(rows)), nil
}

func (f *fakeRepo) Close() {}

func master(t *testing.T) table.Table {
	t.Helper()
	tbl, err := table.New("patient_id", "encounter_id", "gender")
	require.NoError(t, err)
	tbl.Append(records.Record{"patient_id": "p1", "encounter_id": "e1", "gender": "F"})
	tbl.Append(records.Record{"patient_id": "p2", "encounter_id": nil, "gender": "unknown"})
	return tbl
}

func TestLoad_WritesRunIDAndBlanksNilKeys(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	res, err := Load(context.Background(), repo, master(t), Options{RunID: "run-1"})
	require.NoError(t, err)
	require.Equal(t, int64(2), res.Rows)
	require.Equal(t, 1, res.Batches)
	require.Equal(t, "run-1", res.RunID)

	require.Equal(t, []string{"patient_id", "encounter_id", "gender", RunIDColumn}, repo.columns)
	require.Equal(t, []string{"patient_id", "encounter_id"}, repo.keys)

	rows := repo.batches[0]
	require.Equal(t, []any{"p1", "e1", "F", "run-1"}, rows[0])
	require.Equal(t, []any{"p2", "", "unknown", "run-1"}, rows[1], "nil key must be written as empty string")
}

func TestLoad_GeneratesRunID(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	res, err := Load(context.Background(), repo, master(t), Options{})
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)
}

func TestLoad_Batches(t *testing.T) {
	t.Parallel()

	tbl, err := table.New("patient_id", "encounter_id")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		tbl.Append(records.Record{"patient_id": "p", "encounter_id": string(rune('a' + i))})
	}

	repo := &fakeRepo{}
	res, err := Load(context.Background(), repo, tbl, Options{RunID: "r", BatchSize: 2})
	require.NoError(t, err)
	require.Equal(t, int64(5), res.Rows)
	require.Equal(t, 3, res.Batches)
	require.Len(t, repo.batches, 3)
	require.Len(t, repo.batches[2], 1)
}

func TestLoad_WrapsBackendFailure(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{failWith: errors.New("connection reset")}
	_, err := Load(context.Background(), repo, master(t), Options{RunID: "r"})
	require.Error(t, err)
	require.ErrorIs(t, err, storage.ErrWrite)
	require.True(t, IsWriteFailure(err))
}

func TestLoad_AutoCreateTable(t *testing.T) {
	t.Parallel()

	repo := &fakeRepo{}
	_, err := Load(context.Background(), repo, master(t), Options{RunID: "r", AutoCreateTable: true})
	require.NoError(t, err)
	require.True(t, repo.ensured)
	require.Equal(t, []string{"patient_id", "encounter_id"}, repo.ensureKeys)

	kinds := map[string]storage.ColumnKind{}
	for _, c := range repo.ensureCols {
		kinds[c.Name] = c.Kind
	}
	require.Equal(t, storage.KindText, kinds["patient_id"])
	require.Equal(t, storage.KindText, kinds["gender"])
	require.Equal(t, storage.KindText, kinds[RunIDColumn])
}

func TestLoad_EmptyTable(t *testing.T) {
	t.Parallel()

	tbl, err := table.New("patient_id", "encounter_id")
	require.NoError(t, err)

	repo := &fakeRepo{}
	res, err := Load(context.Background(), repo, tbl, Options{RunID: "r"})
	require.NoError(t, err)
	require.Equal(t, int64(0), res.Rows)
	require.Empty(t, repo.batches)
}
