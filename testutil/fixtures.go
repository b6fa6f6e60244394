package testutil

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"
)

// SeedSessions writes a registry with n sessions directly into the store,
// newest first, ids "session-1".."session-n".
func SeedSessions(t *testing.T, store *MemStore, n int) {
	t.Helper()
	sessions := make([]map[string]interface{}, 0, n)
	now := time.Now()
	for i := 1; i <= n; i++ {
		sessions = append(sessions, map[string]interface{}{
			"id":        fmt.Sprintf("session-%d", i),
			"updatedAt": now.Add(-time.Duration(i) * time.Minute).Format(time.RFC3339),
		})
	}
	data, err := json.Marshal(sessions)
	if err != nil {
		t.Fatalf("Failed to marshal sessions: %v", err)
	}
	if err := store.Set("chatHistory", string(data)); err != nil {
		t.Fatalf("Failed to seed sessions: %v", err)
	}
}

// SeedMessages writes a message log for a session directly into the
// store, with ids counting up from 1.
func SeedMessages(t *testing.T, store *MemStore, sessionID string, texts ...string) {
	t.Helper()
	msgs := make([]map[string]interface{}, 0, len(texts))
	for i, text := range texts {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		msgs = append(msgs, map[string]interface{}{
			"id":   fmt.Sprintf("%d", i+1),
			"role": role,
			"text": text,
		})
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		t.Fatalf("Failed to marshal messages: %v", err)
	}
	if err := store.Set("chat_"+sessionID, string(data)); err != nil {
		t.Fatalf("Failed to seed messages: %v", err)
	}
}
