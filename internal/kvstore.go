package internal

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// KVStore is a Store backed by a single-table SQLite database. It exists
// for deployments that want durable state in one file instead of a
// directory of JSON fragments.
type KVStore struct {
	db *sql.DB
}

// OpenKVStore opens (or creates) the SQLite database at path and ensures
// the kv table exists.
func OpenKVStore(path string) (*KVStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv table: %w", err)
	}

	return &KVStore{db: db}, nil
}

// NewKVStore wraps an already-open database. The caller keeps ownership
// of the handle; used by tests with an in-memory database.
func NewKVStore(db *sql.DB) *KVStore {
	return &KVStore{db: db}
}

// Get returns the value for key, or false if the key is absent.
func (s *KVStore) Get(key string) (string, bool) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err != nil {
		if err != sql.ErrNoRows {
			LogWarn("kv get %q failed: %v", key, err)
		}
		return "", false
	}
	return value, true
}

// Set stores value under key, replacing any previous value.
func (s *KVStore) Set(key, value string) error {
	if _, err := s.db.Exec("INSERT OR REPLACE INTO kv (key, value) VALUES (?, ?)", key, value); err != nil {
		return &StoreError{Key: key, Op: "set", Err: err}
	}
	return nil
}

// Remove deletes key from the table.
func (s *KVStore) Remove(key string) error {
	if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return &StoreError{Key: key, Op: "remove", Err: err}
	}
	return nil
}

// Close closes the underlying database.
func (s *KVStore) Close() error {
	return s.db.Close()
}
