// Package sqlite implements the local storage backend: JSONL files in the
// data directory are the source of truth and SQLite is the query engine.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/agencydesk/pkg/types"
)

// File names inside the data directory.
const (
	dbFileName   = "agencydesk.db"
	lockFileName = "agencydesk.lock"
)

// Backend implements types.Backend over a data directory.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	dataDir  string
	db       *sql.DB
	lock     *flock.Flock
	tables   map[string]*Table
	log      *zap.SugaredLogger
}

// NewBackend creates a detached backend. Call Attach before use.
func NewBackend(log *zap.SugaredLogger) *Backend {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Backend{tables: make(map[string]*Table), log: log}
}

// Attach opens the data directory. It takes an exclusive lock, seeds sample
// records for collections without a JSONL file, recreates the SQLite
// database, and loads every collection into it.
func (b *Backend) Attach(dataDir string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	lock := flock.New(filepath.Join(dataDir, lockFileName))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("locking data dir: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", types.ErrDataDirLocked, dataDir)
	}

	db, err := b.open(dataDir)
	if err != nil {
		lock.Unlock()
		return err
	}

	b.db = db
	b.lock = lock
	b.dataDir = dataDir
	b.attached = true
	for _, name := range types.StandardCollectionNames() {
		b.tables[name] = newTable(b, name)
	}
	return nil
}

func (b *Backend) open(dataDir string) (*sql.DB, error) {
	seeded, err := seedSamples(dataDir)
	if err != nil {
		return nil, err
	}
	if len(seeded) > 0 {
		b.log.Infow("seeded sample records", "collections", seeded)
	}

	dbPath := filepath.Join(dataDir, dbFileName)
	// The database is a cache of the JSONL files; start from a clean schema.
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("creating schema: %w", err)
		}
	}
	n, err := loadAllJSONL(db, dataDir)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load JSONL: %w", err)
	}
	b.log.Debugw("loaded records", "count", n, "dataDir", dataDir)
	return db, nil
}

// Detach closes the database and releases the directory lock. Idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.attached = false
	b.tables = make(map[string]*Table)

	var firstErr error
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			firstErr = err
		}
		b.db = nil
	}
	if b.lock != nil {
		if err := b.lock.Unlock(); err != nil && firstErr == nil {
			firstErr = err
		}
		b.lock = nil
	}
	return firstErr
}

// Gateway returns the table of a standard collection.
func (b *Backend) Gateway(collection string) (types.Gateway, error) {
	if _, err := types.LookupCollection(collection); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return nil, types.ErrBackendClosed
	}
	return b.tables[collection], nil
}

// Close detaches the backend.
func (b *Backend) Close() error {
	return b.Detach()
}
