package internal

import (
	"os"
	"path/filepath"
	"strings"
)

// FileStore is a Store that keeps one file per key under a directory.
// It is the default backend, the moral equivalent of the browser's
// localStorage for a CLI client.
type FileStore struct {
	dir string
}

// NewFileStore creates a file-backed store rooted at dir. The directory
// is created lazily on first write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Dir returns the store's root directory.
func (fs *FileStore) Dir() string {
	return fs.dir
}

// keyPath maps a key to its file path. Keys may contain characters that
// are not filesystem-safe, so anything outside a small safe set is
// replaced before use.
func (fs *FileStore) keyPath(key string) string {
	return filepath.Join(fs.dir, sanitizeKey(key)+".json")
}

// Get returns the stored value for key, or false if no file exists or it
// cannot be read.
func (fs *FileStore) Get(key string) (string, bool) {
	data, err := os.ReadFile(fs.keyPath(key))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Set writes value to the key's file, creating the store directory if
// needed.
func (fs *FileStore) Set(key, value string) error {
	if err := os.MkdirAll(fs.dir, 0755); err != nil {
		return &StoreError{Key: key, Op: "set", Err: err}
	}
	if err := os.WriteFile(fs.keyPath(key), []byte(value), 0644); err != nil {
		return &StoreError{Key: key, Op: "set", Err: err}
	}
	return nil
}

// Remove deletes the key's file. A missing file is not an error.
func (fs *FileStore) Remove(key string) error {
	err := os.Remove(fs.keyPath(key))
	if err != nil && !os.IsNotExist(err) {
		return &StoreError{Key: key, Op: "remove", Err: err}
	}
	return nil
}

// sanitizeKey replaces characters that are unsafe in filenames.
func sanitizeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
