// Package storage contains the storage-agnostic contracts for persisting the
// master record table, plus a factory with which concrete backends register
// themselves (see internal/storage/all).
//
// The write discipline every backend must honor: UpsertBatch is an idempotent
// keyed upsert — re-running the same batch leaves the store in the same state,
// existing rows with the same key are overwritten, and the batch commits
// atomically or not at all from the caller's observable perspective.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrWrite marks non-recoverable store errors. The load adapter wraps every
// backend failure with it so callers can branch with errors.Is.
var ErrWrite = errors.New("write failure")

// Config selects and configures a storage backend.
type Config struct {
	Kind  string // backend name as registered (e.g., "postgres")
	DSN   string // backend connection string
	Table string // fully qualified target table name
}

// ColumnKind is the storage-neutral value type of a master column. Backends
// map kinds onto their own DDL types.
type ColumnKind string

const (
	KindText  ColumnKind = "text"
	KindInt   ColumnKind = "integer"
	KindFloat ColumnKind = "real"
	KindTime  ColumnKind = "timestamp"
	KindBool  ColumnKind = "bool"
)

// Column describes one master-table column for DDL bootstrap.
type Column struct {
	Name string
	Kind ColumnKind
}

// Repository is the minimal storage interface the load adapter depends on.
type Repository interface {
	// EnsureTable creates the target table when absent, with a primary key on
	// keyColumns. Backends must make this a no-op when the table exists.
	EnsureTable(ctx context.Context, cols []Column, keyColumns []string) error

	// UpsertBatch writes rows (aligned to columns order) keyed by keyColumns,
	// atomically: matching existing rows are replaced, and a failure leaves
	// the target unchanged. It returns the number of rows written.
	UpsertBatch(ctx context.Context, columns, keyColumns []string, rows [][]any) (int64, error)

	// Close releases the underlying connection resources.
	Close()
}

// Factory constructs a Repository for one backend kind. Construction must
// verify connectivity (ping) so a dead store fails the run before any write.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs a backend factory under the given kind. It is intended to
// be called from backend init functions; registering a duplicate kind panics,
// as that is always a programming error.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := factories[kind]; dup {
		panic(fmt.Sprintf("storage: duplicate backend %q", kind))
	}
	factories[kind] = f
}

// New opens a Repository for the configured kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unknown backend %q (registered: %v)", cfg.Kind, Kinds())
	}
	return f(ctx, cfg)
}

// Kinds returns the registered backend names, sorted.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
