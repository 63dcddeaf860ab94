package pipeline

import (
	"context"
	"fmt"
	"sort"
)

// TaskFunc is one unit of pipeline work. Tasks communicate only through the
// shared run State; the graph decides when each may run.
type TaskFunc func(ctx context.Context, st *State) error

// Graph is a directed acyclic graph of named tasks. Edges run from a
// dependency to its dependents.
type Graph struct {
	tasks   map[string]TaskFunc
	edges   map[string][]string // dependency -> dependents
	parents map[string][]string // dependent -> dependencies
}

// NewGraph creates an empty task graph.
func NewGraph() *Graph {
	return &Graph{
		tasks:   make(map[string]TaskFunc),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// AddTask registers a task under id. Re-adding an existing id replaces its
// function but keeps its edges.
func (g *Graph) AddTask(id string, fn TaskFunc) {
	if _, exists := g.tasks[id]; !exists {
		g.edges[id] = []string{}
		g.parents[id] = []string{}
	}
	g.tasks[id] = fn
}

// AddEdge declares that dependent runs only after dependency completes.
func (g *Graph) AddEdge(dependency, dependent string) error {
	if _, ok := g.tasks[dependency]; !ok {
		return fmt.Errorf("pipeline: dependency task %q does not exist", dependency)
	}
	if _, ok := g.tasks[dependent]; !ok {
		return fmt.Errorf("pipeline: dependent task %q does not exist", dependent)
	}
	if dependency == dependent {
		return fmt.Errorf("pipeline: self-loop on %q", dependency)
	}
	if !contains(g.edges[dependency], dependent) {
		g.edges[dependency] = append(g.edges[dependency], dependent)
	}
	if !contains(g.parents[dependent], dependency) {
		g.parents[dependent] = append(g.parents[dependent], dependency)
	}
	return nil
}

// Tasks returns all task ids, sorted.
func (g *Graph) Tasks() []string {
	ids := make([]string, 0, len(g.tasks))
	for id := range g.tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Parents returns the dependencies of a task.
func (g *Graph) Parents(id string) []string { return g.parents[id] }

// HasCycle reports whether the graph contains a cycle, with the cycle path
// for error reporting.
func (g *Graph) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := make(map[string]string)

	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		recStack[id] = true

		for _, next := range g.edges[id] {
			if !visited[next] {
				path[next] = id
				if dfs(next) {
					return true
				}
			} else if recStack[next] {
				cyclePath = []string{next}
				for curr := id; curr != next; curr = path[curr] {
					cyclePath = append([]string{curr}, cyclePath...)
				}
				cyclePath = append([]string{next}, cyclePath...)
				return true
			}
		}

		recStack[id] = false
		return false
	}

	ids := g.Tasks()
	for _, id := range ids {
		if !visited[id] {
			if dfs(id) {
				return true, cyclePath
			}
		}
	}
	return false, nil
}

// ExecutionLevels groups tasks by level: tasks at level N may run in parallel
// once every task at level N-1 has completed. Level 0 holds tasks with no
// dependencies. Levels and the tasks within them are deterministically
// ordered.
func (g *Graph) ExecutionLevels() ([][]string, error) {
	if cyclic, cyclePath := g.HasCycle(); cyclic {
		return nil, fmt.Errorf("pipeline: cycle detected: %v", cyclePath)
	}

	assigned := make(map[string]int)

	var level func(id string) int
	level = func(id string) int {
		if l, ok := assigned[id]; ok {
			return l
		}
		max := -1
		for _, dep := range g.parents[id] {
			if l := level(dep); l > max {
				max = l
			}
		}
		assigned[id] = max + 1
		return max + 1
	}

	maxLevel := 0
	for id := range g.tasks {
		if l := level(id); l > maxLevel {
			maxLevel = l
		}
	}

	levels := make([][]string, maxLevel+1)
	for id, l := range assigned {
		levels[l] = append(levels[l], id)
	}
	for i := range levels {
		sort.Strings(levels[i])
	}
	return levels, nil
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
