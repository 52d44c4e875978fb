// =============================================================================
// Attendance Dashboard - Persistence Adapters
// =============================================================================
//
// The dashboard persists its working set in a key-value store under a fixed
// key (DefaultStorageKey). Two backends are provided:
//   - FileStore:   one file per key in a data directory
//   - SQLiteStore: a single kv table in an SQLite database
//
// Both satisfy KV. Values are opaque bytes; the store package owns the
// snapshot encoding.
//
// =============================================================================

package persistence

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
)

// DefaultStorageKey is the fixed key the record snapshot is saved under.
const DefaultStorageKey = "attendanceData_v1"

// SortStateKey holds the persisted sort toggle directions.
const SortStateKey = "attendanceSort_v1"

// ErrNotFound is returned by Get when a key has never been written.
var ErrNotFound = errors.New("key not found")

// KV is a minimal key-value persistence adapter.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Open creates the backend selected by name, rooted at dataDir.
func Open(backend, dataDir string) (KV, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendFile:
		fs, err := NewFileStore(dataDir)
		if err != nil {
			return nil, err
		}
		return fs, nil
	case BackendSQLite:
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
		}
		db, err := OpenSQLite(sqlitePath(dataDir))
		if err != nil {
			return nil, err
		}
		return db, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}

func validKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("storage key is required")
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("invalid storage key %q", key)
	}
	return nil
}
