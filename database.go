package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

var ErrMapNotFound = errors.New("map not found")

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// MapRow is a stored map blob
type MapRow struct {
	Name      string
	Data      []byte
	CreatedAt time.Time
}

// DiagRow is one persisted diagnostics event
type DiagRow struct {
	Kind      string
	Tick      int64
	Detail    string
	CreatedAt string
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS maps (
		name TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS diagnostics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		tick INTEGER NOT NULL DEFAULT 0,
		detail TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_diagnostics_kind ON diagnostics(kind);
	`
	_, err := db.conn.Exec(schema)
	if err != nil {
		log.Printf("DB migration error: %v", err)
	}
	return err
}

// SaveMap stores or replaces a map blob
func (db *DB) SaveMap(name string, data []byte) error {
	_, err := db.conn.Exec(`
		INSERT INTO maps (name, data) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET data = excluded.data, created_at = CURRENT_TIMESTAMP
	`, name, data)
	if err != nil {
		return fmt.Errorf("save map %q: %w", name, err)
	}
	return nil
}

// LoadMap returns the blob stored under name
func (db *DB) LoadMap(name string) ([]byte, error) {
	var data []byte
	err := db.conn.QueryRow(`SELECT data FROM maps WHERE name = ?`, name).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%q: %w", name, ErrMapNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load map %q: %w", name, err)
	}
	return data, nil
}

// ListMaps returns the stored map names in order
func (db *DB) ListMaps() ([]string, error) {
	rows, err := db.conn.Query(`SELECT name FROM maps ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// GetSetting returns a setting value, or "" if unset
func (db *DB) GetSetting(key string) string {
	var v string
	if err := db.conn.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&v); err != nil {
		return ""
	}
	return v
}

// SetSetting stores a setting value
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// RecentDiagnostics returns the newest events of a kind, newest first
func (db *DB) RecentDiagnostics(kind string, limit int) ([]DiagRow, error) {
	rows, err := db.conn.Query(`
		SELECT kind, tick, detail, created_at FROM diagnostics
		WHERE kind = ? ORDER BY id DESC LIMIT ?
	`, kind, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DiagRow
	for rows.Next() {
		var d DiagRow
		if err := rows.Scan(&d.Kind, &d.Tick, &d.Detail, &d.CreatedAt); err != nil {
			continue
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
