package internal

import (
	"strconv"
	"sync"
)

// messagesKey returns the store key for a session's message log, one key
// per session so clearing one conversation never touches another.
func messagesKey(sessionID string) string {
	return "chat_" + sessionID
}

// MessageLog persists the ordered, append-only message sequence of each
// session. Observers can subscribe to be told when a session's log is
// cleared, so any open view of that session resynchronizes.
type MessageLog struct {
	store Store

	mu   sync.Mutex
	subs []func(sessionID string)
}

// NewMessageLog creates a message log backed by store.
func NewMessageLog(store Store) *MessageLog {
	return &MessageLog{store: store}
}

// Load returns the full message sequence for a session, in append order.
// A missing or corrupt log reads as empty.
func (l *MessageLog) Load(sessionID string) []Message {
	var msgs []Message
	getJSON(l.store, messagesKey(sessionID), &msgs)
	return msgs
}

// Append persists msg at the end of the session's log. If the new id
// does not sort strictly after the previous message's id (two messages
// created within the same nanosecond) it is bumped so ids stay unique
// within the session.
func (l *MessageLog) Append(sessionID string, msg Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	msgs := l.Load(sessionID)
	if n := len(msgs); n > 0 {
		prev, err1 := strconv.ParseInt(msgs[n-1].ID, 10, 64)
		cur, err2 := strconv.ParseInt(msg.ID, 10, 64)
		if err1 == nil && err2 == nil && cur <= prev {
			msg.ID = strconv.FormatInt(prev+1, 10)
		}
	}
	msgs = append(msgs, msg)
	return setJSON(l.store, messagesKey(sessionID), msgs)
}

// Clear empties the persisted log for this session only, then notifies
// subscribers. The session record and its attachments are untouched.
func (l *MessageLog) Clear(sessionID string) error {
	l.mu.Lock()
	if err := l.store.Remove(messagesKey(sessionID)); err != nil {
		l.mu.Unlock()
		return err
	}
	subs := make([]func(string), len(l.subs))
	copy(subs, l.subs)
	l.mu.Unlock()

	for _, fn := range subs {
		fn(sessionID)
	}
	return nil
}

// Subscribe registers fn to be called with the session id whenever a log
// is cleared.
func (l *MessageLog) Subscribe(fn func(sessionID string)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.subs = append(l.subs, fn)
}
