// Package pipeline assembles and executes the batch run as a task graph:
// extract tasks per dataset, transform tasks per policy, a merge barrier, and
// load/export tasks at the end. Tasks in the same execution level run in
// parallel, bounded by the configured worker count; the first failing task
// cancels the rest of its level and aborts the run.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"
)

// defaultWorkers bounds same-level parallelism when the config does not.
const defaultWorkers = 4

// Runner executes a task graph level by level.
type Runner struct {
	// Workers caps how many tasks of one level run concurrently; values
	// below 1 fall back to the default.
	Workers int
}

// Run executes the graph against a fresh State and returns it. Each level is
// a barrier: its tasks run concurrently and must all succeed before the next
// level starts, so a task can rely on every upstream output being published.
func (r Runner) Run(ctx context.Context, g *Graph) (*State, error) {
	levels, err := g.ExecutionLevels()
	if err != nil {
		return nil, err
	}

	workers := r.Workers
	if workers < 1 {
		workers = defaultWorkers
	}

	st := NewState()
	start := time.Now()
	log.Printf("pipeline: starting run tasks=%d levels=%d workers=%d", len(g.Tasks()), len(levels), workers)

	for i, level := range levels {
		levelStart := time.Now()
		eg, egCtx := errgroup.WithContext(ctx)
		eg.SetLimit(workers)

		for _, id := range level {
			id := id
			fn := g.tasks[id]
			eg.Go(func() error {
				taskStart := time.Now()
				if err := fn(egCtx, st); err != nil {
					log.Printf("pipeline: task=%s failed after %s: %v", id, time.Since(taskStart).Truncate(time.Millisecond), err)
					return fmt.Errorf("task %s: %w", id, err)
				}
				log.Printf("pipeline: task=%s done in %s", id, time.Since(taskStart).Truncate(time.Millisecond))
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return st, err
		}
		log.Printf("pipeline: level %d/%d done in %s", i+1, len(levels), time.Since(levelStart).Truncate(time.Millisecond))
	}

	log.Printf("pipeline: run complete in %s", time.Since(start).Truncate(time.Millisecond))
	return st, nil
}
