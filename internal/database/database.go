package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/Nomadcxx/javorganize/internal/paths"
)

// MediaDB is the catalog database: file paths with their scraped metadata,
// the metadata cache and the history of organize runs.
type MediaDB struct {
	db   *sql.DB
	path string
	mu   sync.RWMutex
}

// Open opens or creates the database at the default location
func Open() (*MediaDB, error) {
	dbPath, err := paths.DatabasePath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}
	return OpenPath(dbPath)
}

// OpenPath opens or creates the database at a specific path
func OpenPath(path string) (*MediaDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return initDB(db, path)
}

// OpenInMemory opens an in-memory database for testing
func OpenInMemory() (*MediaDB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	// every pooled connection would otherwise get its own empty database
	db.SetMaxOpenConns(1)
	return initDB(db, ":memory:")
}

func initDB(db *sql.DB, path string) (*MediaDB, error) {
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	mdb := &MediaDB{db: db, path: path}
	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return mdb, nil
}

// Close closes the database connection
func (m *MediaDB) Close() error {
	return m.db.Close()
}

// Path returns the filesystem path to the database file
func (m *MediaDB) Path() string {
	return m.path
}

// DB returns the underlying sql.DB for advanced operations
func (m *MediaDB) DB() *sql.DB {
	return m.db
}
