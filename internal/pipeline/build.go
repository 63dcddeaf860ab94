package pipeline

import (
	"context"
	"fmt"
	"time"

	"healthetl/internal/dataset"
	"healthetl/internal/extract"
	"healthetl/internal/load"
	"healthetl/internal/merge"
	"healthetl/internal/metrics"
	"healthetl/internal/storage"
	"healthetl/internal/table"
	"healthetl/internal/transform"
)

// Task id prefixes. The suffix is the dataset name for per-dataset stages.
const (
	taskExtract   = "extract:"
	taskTransform = "transform:"
	taskMerge     = "merge"
	taskLoad      = "load"
	taskExport    = "export"
)

// BuildOptions carries the run-wide wiring the tasks close over.
type BuildOptions struct {
	// Repo is the opened storage repository; nil skips the load stage.
	Repo storage.Repository
	// Load configures the load stage when Repo is set.
	Load load.Options
	// ExportPath writes the master table as CSV after merge; empty skips it.
	ExportPath string
}

// Build assembles the task graph for a run: one extract task per registered
// dataset, one transform task per non-lookup dataset, a merge barrier, and
// optional load and export tasks. It fails when a non-lookup dataset has no
// transformation policy, so misconfiguration surfaces before any file is
// opened.
func Build(reg *dataset.Registry, opts BuildOptions) (*Graph, error) {
	var nonLookup []string
	for _, name := range reg.Names() {
		spec, _ := reg.Get(name)
		if !spec.Lookup {
			nonLookup = append(nonLookup, name)
		}
	}
	if err := transform.CheckComplete(nonLookup); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	g := NewGraph()

	for _, name := range reg.Names() {
		spec, _ := reg.Get(name)
		g.AddTask(taskExtract+name, extractTask(spec))
	}

	for _, name := range nonLookup {
		policy, _ := transform.For(name)
		g.AddTask(taskTransform+name, transformTask(policy))
		if err := g.AddEdge(taskExtract+name, taskTransform+name); err != nil {
			return nil, err
		}
		for _, lookup := range policy.Lookups() {
			if _, ok := reg.Get(lookup); !ok {
				return nil, fmt.Errorf("pipeline: policy %s needs lookup dataset %q, not registered", name, lookup)
			}
			if err := g.AddEdge(taskExtract+lookup, taskTransform+name); err != nil {
				return nil, err
			}
		}
	}

	g.AddTask(taskMerge, mergeTask())
	for _, name := range nonLookup {
		if err := g.AddEdge(taskTransform+name, taskMerge); err != nil {
			return nil, err
		}
	}

	if opts.Repo != nil {
		g.AddTask(taskLoad, loadTask(opts.Repo, opts.Load))
		if err := g.AddEdge(taskMerge, taskLoad); err != nil {
			return nil, err
		}
	}
	if opts.ExportPath != "" {
		g.AddTask(taskExport, exportTask(opts.ExportPath))
		if err := g.AddEdge(taskMerge, taskExport); err != nil {
			return nil, err
		}
	}

	return g, nil
}

func extractTask(spec dataset.Spec) TaskFunc {
	return func(ctx context.Context, st *State) error {
		start := time.Now()
		t, err := extract.Extract(ctx, spec)
		metrics.RecordStage("extract", spec.Name, err, time.Since(start))
		if err != nil {
			return err
		}
		metrics.RecordRows(spec.Name, "extracted", int64(t.Len()))
		st.SetRaw(spec.Name, t)
		return nil
	}
}

func transformTask(policy transform.Policy) TaskFunc {
	return func(ctx context.Context, st *State) error {
		name := policy.Name()
		in, ok := st.Raw(name)
		if !ok {
			return fmt.Errorf("pipeline: transform %s: extracted table missing", name)
		}
		aux := make(map[string]table.Table)
		for _, lookup := range policy.Lookups() {
			lt, ok := st.Raw(lookup)
			if !ok {
				return fmt.Errorf("pipeline: transform %s: lookup table %q missing", name, lookup)
			}
			aux[lookup] = lt
		}

		start := time.Now()
		out, err := policy.Clean(in, aux)
		metrics.RecordStage("transform", name, err, time.Since(start))
		if err != nil {
			return fmt.Errorf("pipeline: transform %s: %w", name, err)
		}
		metrics.RecordRows(name, "cleaned", int64(out.Len()))
		metrics.RecordRows(name, "dropped", int64(in.Len()-out.Len()))
		st.SetCleaned(name, out)
		return nil
	}
}

func mergeTask() TaskFunc {
	return func(ctx context.Context, st *State) error {
		start := time.Now()
		master, err := merge.Master(st.Cleaned())
		metrics.RecordStage("merge", "", err, time.Since(start))
		if err != nil {
			return err
		}
		metrics.RecordRows("master", "merged", int64(master.Len()))
		st.SetMaster(master)
		return nil
	}
}

func loadTask(repo storage.Repository, opts load.Options) TaskFunc {
	return func(ctx context.Context, st *State) error {
		master, err := st.Master()
		if err != nil {
			return err
		}
		start := time.Now()
		res, err := load.Load(ctx, repo, master, opts)
		metrics.RecordStage("load", "", err, time.Since(start))
		metrics.RecordRows("master", "written", res.Rows)
		metrics.RecordBatches(int64(res.Batches))
		if err != nil {
			return err
		}
		st.SetLoadResult(res)
		return nil
	}
}

func exportTask(path string) TaskFunc {
	return func(ctx context.Context, st *State) error {
		master, err := st.Master()
		if err != nil {
			return err
		}
		start := time.Now()
		err = load.ExportCSV(path, master)
		metrics.RecordStage("export", "", err, time.Since(start))
		if err != nil {
			return err
		}
		return nil
	}
}
