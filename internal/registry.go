package internal

import "time"

// registryKey is the store key holding the full session list as one value.
// Whole-value read-modify-write keeps the list consistent without any
// partial-update races inside a single client.
const registryKey = "chatHistory"

// MaxSessions is the number of sessions retained in the registry before
// the least-recently-updated entry is evicted.
const MaxSessions = 10

// SessionRegistry tracks known chat sessions, most-recently-updated first.
type SessionRegistry struct {
	store Store
}

// NewSessionRegistry creates a registry backed by store.
func NewSessionRegistry(store Store) *SessionRegistry {
	return &SessionRegistry{store: store}
}

// List returns all known sessions, most-recently-updated first. A missing
// or corrupt registry reads as empty.
func (r *SessionRegistry) List() []Session {
	var sessions []Session
	getJSON(r.store, registryKey, &sessions)
	return sessions
}

// Get returns the session with the given id, or false if unknown.
func (r *SessionRegistry) Get(id string) (Session, bool) {
	for _, s := range r.List() {
		if s.ID == id {
			return s, true
		}
	}
	return Session{}, false
}

// Upsert creates the session if absent, otherwise updates its attached
// file name, moves it to the front and refreshes its timestamp. The list
// is truncated to MaxSessions by dropping from the tail.
func (r *SessionRegistry) Upsert(id, filename string) error {
	sessions := r.List()

	updated := Session{
		ID:               id,
		AttachedFileName: filename,
		UpdatedAt:        time.Now().Format(time.RFC3339),
	}
	for _, s := range sessions {
		if s.ID == id {
			updated.LastMessagePreview = s.LastMessagePreview
			if filename == "" {
				updated.AttachedFileName = s.AttachedFileName
			}
			break
		}
	}

	next := make([]Session, 0, len(sessions)+1)
	next = append(next, updated)
	for _, s := range sessions {
		if s.ID != id {
			next = append(next, s)
		}
	}
	if len(next) > MaxSessions {
		next = next[:MaxSessions]
	}

	return setJSON(r.store, registryKey, next)
}

// UpdatePreview sets the session's last-message preview, truncated to
// PreviewLimit runes plus an ellipsis, and refreshes its timestamp.
// Unknown ids are ignored.
func (r *SessionRegistry) UpdatePreview(id, text string) error {
	sessions := r.List()
	changed := false
	for i := range sessions {
		if sessions[i].ID == id {
			sessions[i].LastMessagePreview = TruncatePreview(text)
			sessions[i].UpdatedAt = time.Now().Format(time.RFC3339)
			changed = true
			break
		}
	}
	if !changed {
		return nil
	}
	return setJSON(r.store, registryKey, sessions)
}

// Delete removes the session entry. Cascading the message log and the
// remote temporary files is the controller's responsibility.
func (r *SessionRegistry) Delete(id string) error {
	sessions := r.List()
	next := sessions[:0]
	for _, s := range sessions {
		if s.ID != id {
			next = append(next, s)
		}
	}
	if len(next) == len(sessions) {
		return nil
	}
	return setJSON(r.store, registryKey, next)
}
