// Package db persists bootstrap history in a local SQLite database.
package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection and provides logging methods
type DB struct {
	conn *sql.DB
	path string
}

// Open opens or creates the SQLite database at the specified path
func Open(path string) (*DB, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	db := &DB{
		conn: conn,
		path: path,
	}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	if db.conn != nil {
		// Checkpoint the WAL so all data lands in the main database file
		db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return db.conn.Close()
	}
	return nil
}

func (db *DB) initSchema() error {
	schema := `
	-- Bootstrap lifecycle events
	CREATE TABLE IF NOT EXISTS bootstrap_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		event_type TEXT NOT NULL,
		details TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_bootstrap_events_timestamp ON bootstrap_events(timestamp);
	CREATE INDEX IF NOT EXISTS idx_bootstrap_events_type ON bootstrap_events(event_type);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// BootstrapEvent represents one recorded stage outcome
type BootstrapEvent struct {
	ID        int64
	EventType string
	Details   string
	Timestamp time.Time
}

// LogBootstrapEvent logs a bootstrap lifecycle event to the database.
// Retries briefly when the database is locked; history is best-effort and
// must never block the bootstrap itself.
func (db *DB) LogBootstrapEvent(eventType, details string) error {
	maxRetries := 3
	for i := 0; i < maxRetries; i++ {
		_, err := db.conn.Exec(
			`INSERT INTO bootstrap_events (event_type, details, timestamp)
			 VALUES (?, ?, ?)`,
			eventType, details, time.Now(),
		)
		if err == nil {
			return nil
		}
		if strings.Contains(err.Error(), "database is locked") || strings.Contains(err.Error(), "SQLITE_BUSY") {
			time.Sleep(5 * time.Millisecond)
			continue
		}
		return err
	}
	return fmt.Errorf("failed to log bootstrap event after %d retries: database locked", maxRetries)
}

// GetRecentBootstrapEvents retrieves the most recent events, newest first
func (db *DB) GetRecentBootstrapEvents(limit int) ([]BootstrapEvent, error) {
	rows, err := db.conn.Query(
		`SELECT id, event_type, details, timestamp
		 FROM bootstrap_events
		 ORDER BY timestamp DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []BootstrapEvent
	for rows.Next() {
		var e BootstrapEvent
		if err := rows.Scan(&e.ID, &e.EventType, &e.Details, &e.Timestamp); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// PruneEvents deletes events older than the retention window
func (db *DB) PruneEvents(olderThan time.Duration) (int64, error) {
	res, err := db.conn.Exec(
		`DELETE FROM bootstrap_events WHERE timestamp < ?`,
		time.Now().Add(-olderThan),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
