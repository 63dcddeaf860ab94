package extract

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"healthetl/internal/config"
	"healthetl/internal/dataset"
	"healthetl/internal/datasource"
)

type stubSource struct {
	content string
	err     error
}

func (s stubSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(strings.NewReader(s.content)), nil
}

func withStub(t *testing.T, s stubSource) {
	t.Helper()
	orig := openSourceFn
	openSourceFn = func(dataset.Spec) datasource.Source { return s }
	t.Cleanup(func() { openSourceFn = orig })
}

func spec(format dataset.Format) dataset.Spec {
	return dataset.Spec{
		Name:    "patients",
		Path:    "ignored",
		Format:  format,
		Options: config.Options{"encoding": "utf8"},
	}
}

func TestExtract_Delimited(t *testing.T) {
	withStub(t, stubSource{content: "PATIENT,CODE\np1,abc\n"})

	tbl, err := Extract(context.Background(), spec(dataset.Delimited))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tbl.Len() != 1 || tbl.Rows[0]["PATIENT"] != "p1" {
		t.Fatalf("rows = %v", tbl.Rows)
	}
}

func TestExtract_SourceUnavailable(t *testing.T) {
	withStub(t, stubSource{err: errors.New("no such file")})

	_, err := Extract(context.Background(), spec(dataset.Delimited))
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("err = %v, want ErrSourceUnavailable", err)
	}
}

func TestExtract_FormatError(t *testing.T) {
	withStub(t, stubSource{content: "this is not parquet"})

	_, err := Extract(context.Background(), spec(dataset.Columnar))
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("err = %v, want ErrFormat", err)
	}
}

func TestExtract_EmptyDelimitedFails(t *testing.T) {
	withStub(t, stubSource{content: ""})

	_, err := Extract(context.Background(), spec(dataset.Delimited))
	if !errors.Is(err, ErrFormat) {
		t.Fatalf("err = %v, want ErrFormat for missing header", err)
	}
}
