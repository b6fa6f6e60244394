package internal

import (
	"strconv"
	"time"
)

// Message roles. A message keeps the role it was created with forever.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleError     = "error"
)

// PreviewLimit is the maximum number of characters kept in a session's
// last-message preview before the ellipsis is appended.
const PreviewLimit = 50

// Session represents one conversation thread in the registry.
type Session struct {
	ID                 string `json:"id"`
	AttachedFileName   string `json:"attachedFileName,omitempty"`
	LastMessagePreview string `json:"lastMessagePreview,omitempty"`
	UpdatedAt          string `json:"updatedAt"`
}

// Message represents a single turn in a conversation. Messages are
// immutable once appended to a log.
type Message struct {
	ID        string   `json:"id"`
	Role      string   `json:"role"`
	Text      string   `json:"text"`
	Sources   []string `json:"sources,omitempty"`
	Timestamp string   `json:"timestamp,omitempty"`
}

// Transcript bundles a session with its full message log, mainly for export.
type Transcript struct {
	Session  Session   `json:"session" yaml:"session"`
	Messages []Message `json:"messages" yaml:"messages"`
}

// AttachmentResult is what the temporary-upload endpoint reports back.
// The SessionID it carries is authoritative: on a first attach the server
// may issue an id that replaces the client-generated placeholder.
type AttachmentResult struct {
	SessionID  string `json:"session_id"`
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunks_count"`
	TotalChars int    `json:"total_chars"`
}

// TempFileInfo describes one temporary attachment held by the server
// for a session.
type TempFileInfo struct {
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunks_count"`
	TotalChars int    `json:"total_chars"`
}

// NewMessage creates a message with a creation-time-derived id. The id is
// the current nanosecond timestamp; uniqueness within a session is enforced
// by MessageLog.Append, which bumps colliding ids.
func NewMessage(role, text string) Message {
	now := time.Now()
	return Message{
		ID:        strconv.FormatInt(now.UnixNano(), 10),
		Role:      role,
		Text:      text,
		Timestamp: now.Format(time.RFC3339),
	}
}

// TruncatePreview shortens text to PreviewLimit runes, appending an
// ellipsis when anything was cut. The result is never longer than
// PreviewLimit+1 runes.
func TruncatePreview(text string) string {
	runes := []rune(text)
	if len(runes) <= PreviewLimit {
		return text
	}
	return string(runes[:PreviewLimit]) + "…"
}

// GetUpdatedAt parses the session's RFC 3339 timestamp. A missing or
// malformed timestamp yields the zero time, which sorts last.
func (s *Session) GetUpdatedAt() time.Time {
	if s.UpdatedAt == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s.UpdatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}
