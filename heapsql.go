// Package heapsql is the top-level facade: a catalog-backed heap storage
// engine that runs DDL and SHOW statements.
package heapsql

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tuannm99/heapsql/internal/bufferpool"
	"github.com/tuannm99/heapsql/internal/catalog"
	"github.com/tuannm99/heapsql/internal/config"
	"github.com/tuannm99/heapsql/internal/index"
	"github.com/tuannm99/heapsql/internal/sql/executor"
	"github.com/tuannm99/heapsql/internal/sql/parser"
	"github.com/tuannm99/heapsql/internal/storage"
)

var ErrDatabaseClosed = errors.New("heapsql: database is closed")

type Result = executor.Result

// Database serializes statements over one catalog. It is safe for concurrent
// use.
type Database struct {
	mu     sync.Mutex
	closed bool

	cat  *catalog.Catalog
	exec *executor.Executor
}

// Open builds the storage stack described by cfg: the configured backend,
// wrapped in a buffer pool when storage.cache_blocks is positive.
func Open(cfg *config.Config) (*Database, error) {
	mode, err := cfg.StorageMode()
	if err != nil {
		return nil, err
	}
	backend, err := storage.NewBackend(mode, cfg.Storage.Workdir)
	if err != nil {
		return nil, err
	}
	if cfg.Storage.CacheBlocks > 0 {
		backend = bufferpool.NewBackend(backend, cfg.Storage.CacheBlocks)
	}
	slog.Info("heapsql: opening database",
		"mode", mode, "workdir", cfg.Storage.Workdir, "cache_blocks", cfg.Storage.CacheBlocks)
	return New(backend, catalog.WithSchemaCacheSize(cfg.Catalog.SchemaCacheSize))
}

// OpenMemory opens a throwaway in-memory database.
func OpenMemory() (*Database, error) {
	return New(storage.NewMemBackend())
}

// New opens a database on an already constructed backend.
func New(backend storage.Backend, opts ...catalog.Option) (*Database, error) {
	cat, err := catalog.New(backend, opts...)
	if err != nil {
		return nil, fmt.Errorf("heapsql: open catalog: %w", err)
	}
	return &Database{
		cat:  cat,
		exec: executor.New(cat, index.NewSortedProvider(cat)),
	}, nil
}

func (db *Database) ensureOpen() error {
	if db.closed {
		return ErrDatabaseClosed
	}
	return nil
}

// Exec parses and runs one statement.
func (db *Database) Exec(sql string) (*Result, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.ensureOpen(); err != nil {
		return nil, err
	}
	return db.exec.ExecSQL(sql)
}

// Execute runs an already parsed statement.
func (db *Database) Execute(stmt parser.Statement) (*Result, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.ensureOpen(); err != nil {
		return nil, err
	}
	return db.exec.Execute(stmt)
}

// Tables lists user tables in creation order.
func (db *Database) Tables() ([]string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if err := db.ensureOpen(); err != nil {
		return nil, err
	}
	return db.cat.ListTables()
}

func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrDatabaseClosed
	}
	db.closed = true
	return db.cat.Close()
}
