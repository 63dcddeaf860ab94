package pipeline

import (
	"fmt"
	"sync"

	"healthetl/internal/load"
	"healthetl/internal/table"
)

// State is the shared blackboard of one pipeline run. Tasks publish their
// outputs here; the mutex makes it safe for same-level tasks running in
// parallel.
type State struct {
	mu sync.Mutex

	raw     map[string]table.Table // dataset name -> extracted table
	cleaned map[string]table.Table // dataset name -> transformed table

	master    table.Table
	hasMaster bool

	loadResult load.Result
}

// NewState creates an empty run state.
func NewState() *State {
	return &State{
		raw:     make(map[string]table.Table),
		cleaned: make(map[string]table.Table),
	}
}

// SetRaw publishes an extracted table.
func (s *State) SetRaw(name string, t table.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw[name] = t
}

// Raw returns an extracted table; the boolean reports presence.
func (s *State) Raw(name string) (table.Table, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.raw[name]
	return t, ok
}

// SetCleaned publishes a transformed table.
func (s *State) SetCleaned(name string, t table.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cleaned[name] = t
}

// Cleaned returns a copy of the transformed-table map for the merge step.
func (s *State) Cleaned() map[string]table.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]table.Table, len(s.cleaned))
	for k, v := range s.cleaned {
		out[k] = v
	}
	return out
}

// SetMaster publishes the merged master table.
func (s *State) SetMaster(t table.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.master = t
	s.hasMaster = true
}

// Master returns the merged master table, or an error when merge has not
// published it yet.
func (s *State) Master() (table.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.hasMaster {
		return table.Table{}, fmt.Errorf("pipeline: master table not available")
	}
	return s.master, nil
}

// SetLoadResult records what the load stage wrote.
func (s *State) SetLoadResult(r load.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadResult = r
}

// LoadResult returns what the load stage wrote.
func (s *State) LoadResult() load.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadResult
}
