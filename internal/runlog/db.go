// Package runlog persists pipeline run artifacts to SQLite. It is the
// logging collaborator of the debate pipeline: runs are written once
// after each execution and read back by the `quorum runs` commands.
package runlog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// DB wraps an SQLite database connection with run-log operations.
type DB struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// DefaultPath returns the path of the run-log database, honoring
// XDG_DATA_HOME.
func DefaultPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "quorum", "runs.db")
}

// Open opens an SQLite database at the given path, creating parent
// directories as needed and applying migrations. WAL mode is enabled
// for concurrent reads.
func Open(path string) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id             TEXT PRIMARY KEY,
			prompt         TEXT NOT NULL,
			status         TEXT NOT NULL,
			mode           TEXT,
			failed_stage   TEXT,
			failure_reason TEXT,
			final_answer   TEXT,
			started_at     TEXT NOT NULL,
			finished_at    TEXT NOT NULL,
			payload        TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create runs table: %w", err)
	}
	return nil
}
