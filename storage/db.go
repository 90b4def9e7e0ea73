package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

type DB struct {
	conn *sql.DB
}

// Open opens the history database in configDir and initializes the schema
func Open(configDir string) (*DB, error) {
	return OpenPath(filepath.Join(configDir, "datepaste.db"))
}

// OpenPath opens the database at dbPath
func OpenPath(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Writes come from several trigger goroutines
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS pastes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,

		-- What triggered it and what was pasted
		source TEXT NOT NULL,
		kind TEXT NOT NULL,
		format_id TEXT NOT NULL DEFAULT '',
		text TEXT NOT NULL,
		character_count INTEGER NOT NULL,

		-- Injection outcome
		duration_ms INTEGER NOT NULL,
		clipboard_ok BOOLEAN NOT NULL,
		failed_steps INTEGER NOT NULL,
		error_message TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_pastes_timestamp ON pastes(timestamp);
	CREATE INDEX IF NOT EXISTS idx_pastes_kind ON pastes(kind);
	`

	_, err := db.conn.Exec(schema)
	return err
}
