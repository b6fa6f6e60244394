package internal

import "encoding/json"

// Store is the persistent key-value adapter behind all client-side state:
// the session registry, per-session message logs, settings, the auth token
// and the daily request counter. It mirrors the contract of origin-scoped
// browser storage: synchronous, last-write-wins, no cross-instance
// coordination.
type Store interface {
	// Get returns the raw value for key, or false if the key is absent.
	Get(key string) (string, bool)
	// Set stores value under key, replacing any previous value.
	Set(key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error
}

// getJSON loads and decodes the value stored under key into v. A missing
// key or a value that fails to decode both report false: corrupt state is
// indistinguishable from absent state, and callers fall back to their
// empty default.
func getJSON(s Store, key string, v interface{}) bool {
	raw, ok := s.Get(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		LogWarn("discarding corrupt value for %q: %v", key, err)
		return false
	}
	return true
}

// setJSON encodes v and stores it under key.
func setJSON(s Store, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &StoreError{Key: key, Op: "set", Err: err}
	}
	return s.Set(key, string(data))
}
