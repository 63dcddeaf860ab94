package main

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"healthetl/internal/config"
	"healthetl/internal/dataset"
	"healthetl/internal/load"
	"healthetl/internal/pipeline"
	"healthetl/internal/storage"
)

// run wires the decoded config into a task graph and executes it: registry →
// storage repository → graph build → level-parallel run.
func run(ctx context.Context, p config.Pipeline) error {
	reg, err := dataset.NewRegistry(p.Datasets)
	if err != nil {
		return fmt.Errorf("registry: %w", err)
	}

	opts := pipeline.BuildOptions{
		ExportPath: p.Export.Path,
	}

	if p.Storage.Kind != "" {
		repo, err := storage.New(ctx, storage.Config{
			Kind:  p.Storage.Kind,
			DSN:   p.Storage.DB.DSN,
			Table: p.Storage.DB.Table,
		})
		if err != nil {
			return fmt.Errorf("storage: %w", err)
		}
		defer repo.Close()

		opts.Repo = repo
		opts.Load = load.Options{
			RunID:           uuid.NewString(),
			AutoCreateTable: p.Storage.DB.AutoCreateTable,
		}
	}

	g, err := pipeline.Build(reg, opts)
	if err != nil {
		return err
	}

	runner := pipeline.Runner{Workers: p.Runtime.Workers}
	st, err := runner.Run(ctx, g)
	if err != nil {
		return err
	}

	if opts.Repo != nil {
		res := st.LoadResult()
		log.Printf("run: job=%s run_id=%s rows_written=%d", p.Job, res.RunID, res.Rows)
	}
	return nil
}
