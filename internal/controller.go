package internal

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// activeSessionKey is the store key remembering which session was active
// across restarts.
const activeSessionKey = "active_session"

// Controller orchestrates one client instance's conversations: optimistic
// message insertion, attachment context, preview maintenance and error
// fallback. It is the only component with network side effects (through
// the client), and it is explicitly constructed so tests can run isolated
// instances side by side.
type Controller struct {
	store    Store
	client   *Client
	registry *SessionRegistry
	log      *MessageLog
	tracker  *AttachmentTracker
	counter  *RequestCounter

	mu       sync.Mutex
	active   string
	inflight map[string]bool
}

// NewController builds a controller and its state components on top of a
// store and an API client. The previously active session is restored from
// the store.
func NewController(store Store, client *Client) *Controller {
	c := &Controller{
		store:    store,
		client:   client,
		registry: NewSessionRegistry(store),
		log:      NewMessageLog(store),
		tracker:  NewAttachmentTracker(client),
		counter:  NewRequestCounter(store),
		inflight: make(map[string]bool),
	}
	if id, ok := store.Get(activeSessionKey); ok {
		if _, known := c.registry.Get(id); known {
			c.active = id
		}
	}
	return c
}

// Registry exposes the session registry for listing and inspection.
func (c *Controller) Registry() *SessionRegistry {
	return c.registry
}

// Log exposes the message log for loading and subscriptions.
func (c *Controller) Log() *MessageLog {
	return c.log
}

// Tracker exposes the temporary attachment tracker.
func (c *Controller) Tracker() *AttachmentTracker {
	return c.tracker
}

// Counter exposes the daily request counter.
func (c *Controller) Counter() *RequestCounter {
	return c.counter
}

// Active returns the id of the active session, or "" when none is.
func (c *Controller) Active() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Busy reports whether the given session has a question in flight.
func (c *Controller) Busy(sessionID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inflight[sessionID]
}

// NewChat starts a fresh conversation under a client-generated placeholder
// id. The id is replaced by a server-issued one on first attach.
func (c *Controller) NewChat() (string, error) {
	id := uuid.NewString()
	if err := c.registry.Upsert(id, ""); err != nil {
		return "", err
	}
	c.setActive(id)
	return id, nil
}

// SwitchSession makes id the active session and returns its message log.
// The previous session's in-memory view is simply abandoned; its state is
// already persisted.
func (c *Controller) SwitchSession(id string) []Message {
	c.setActive(id)
	return c.log.Load(id)
}

func (c *Controller) setActive(id string) {
	c.mu.Lock()
	c.active = id
	c.mu.Unlock()
	if err := c.store.Set(activeSessionKey, id); err != nil {
		LogWarn("failed to persist active session: %v", err)
	}
}

// SendQuestion runs one full question/answer exchange for the active
// session. The user message is appended optimistically before the request
// goes out; the response (or the error standing in for it) is applied to
// the session that initiated the request, even if the active session has
// changed in the meantime. The returned message is whatever was appended
// last: the assistant's answer or an error-role fallback.
func (c *Controller) SendQuestion(ctx context.Context, text string) (Message, error) {
	question := strings.TrimSpace(text)
	if question == "" {
		return Message{}, ErrEmptyQuestion
	}

	c.mu.Lock()
	sid := c.active
	if sid == "" {
		c.mu.Unlock()
		id, err := c.NewChat()
		if err != nil {
			return Message{}, err
		}
		c.mu.Lock()
		sid = id
	}
	if c.inflight[sid] {
		c.mu.Unlock()
		return Message{}, ErrBusy
	}
	c.inflight[sid] = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inflight, sid)
		c.mu.Unlock()
	}()

	userMsg := NewMessage(RoleUser, question)
	if err := c.log.Append(sid, userMsg); err != nil {
		return Message{}, err
	}
	if err := c.registry.UpdatePreview(sid, question); err != nil {
		LogWarn("failed to update preview: %v", err)
	}

	// Retrieval is scoped to this session's attachments only once the
	// server knows the session, which is signalled by a recorded attach.
	querySession := ""
	if s, ok := c.registry.Get(sid); ok && s.AttachedFileName != "" {
		querySession = sid
	}

	resp, err := c.client.Query(ctx, question, querySession)

	// The session may have been deleted while the request was in flight;
	// a stale response is dropped rather than resurrecting the log.
	if _, known := c.registry.Get(sid); !known {
		LogDebug("dropping response for deleted session %s", sid)
		return Message{}, ErrSessionDeleted
	}

	if err != nil {
		errMsg := NewMessage(RoleError, fmt.Sprintf("Error: %v", err))
		if appendErr := c.log.Append(sid, errMsg); appendErr != nil {
			return Message{}, appendErr
		}
		return errMsg, nil
	}

	answer := NewMessage(RoleAssistant, resp.Answer)
	answer.Sources = resp.Texts
	if err := c.log.Append(sid, answer); err != nil {
		return Message{}, err
	}
	if err := c.registry.UpdatePreview(sid, resp.Answer); err != nil {
		LogWarn("failed to update preview: %v", err)
	}
	c.counter.Increment()
	return answer, nil
}

// AttachFile uploads a document for the active session's lifetime. On a
// first attach the server-issued session id replaces the placeholder: the
// message log moves to the new key and the registry entry is rewritten.
// Success and failure are both reported into the log, as a system or
// error message. Attaching never blocks SendQuestion.
func (c *Controller) AttachFile(ctx context.Context, filename string, r io.Reader) (Message, error) {
	c.mu.Lock()
	sid := c.active
	c.mu.Unlock()
	if sid == "" {
		id, err := c.NewChat()
		if err != nil {
			return Message{}, err
		}
		sid = id
	}

	res, err := c.tracker.Attach(ctx, sid, filename, r)
	if err != nil {
		errMsg := NewMessage(RoleError, fmt.Sprintf("Failed to attach %q: %v", filename, err))
		if appendErr := c.log.Append(sid, errMsg); appendErr != nil {
			return Message{}, appendErr
		}
		return errMsg, nil
	}

	if res.SessionID != sid {
		if err := c.adoptSessionID(sid, res.SessionID); err != nil {
			return Message{}, err
		}
		sid = res.SessionID
	}
	if err := c.registry.Upsert(sid, res.Filename); err != nil {
		return Message{}, err
	}

	confirm := NewMessage(RoleSystem, fmt.Sprintf(
		"File %q attached. Indexed %d chunks for this session.", res.Filename, res.ChunkCount))
	if err := c.log.Append(sid, confirm); err != nil {
		return Message{}, err
	}
	if err := c.registry.UpdatePreview(sid, confirm.Text); err != nil {
		LogWarn("failed to update preview: %v", err)
	}
	return confirm, nil
}

// adoptSessionID migrates a conversation from a client-generated
// placeholder id to the server-issued one.
func (c *Controller) adoptSessionID(oldID, newID string) error {
	msgs := c.log.Load(oldID)
	if len(msgs) > 0 {
		if err := setJSON(c.store, messagesKey(newID), msgs); err != nil {
			return err
		}
	}
	if err := c.store.Remove(messagesKey(oldID)); err != nil {
		LogWarn("failed to drop placeholder log %s: %v", oldID, err)
	}

	if old, ok := c.registry.Get(oldID); ok {
		if err := c.registry.Delete(oldID); err != nil {
			return err
		}
		if err := c.registry.Upsert(newID, old.AttachedFileName); err != nil {
			return err
		}
		if old.LastMessagePreview != "" {
			if err := c.registry.UpdatePreview(newID, old.LastMessagePreview); err != nil {
				return err
			}
		}
	}

	c.mu.Lock()
	if c.active == oldID {
		c.active = newID
	}
	active := c.active
	c.mu.Unlock()
	if err := c.store.Set(activeSessionKey, active); err != nil {
		LogWarn("failed to persist active session: %v", err)
	}
	LogInfo("session %s adopted server id %s", oldID, newID)
	return nil
}

// ClearMessages empties the active session's log. The session record and
// its attachments survive; the preview falls back to naming the attached
// file, mirroring a just-attached conversation.
func (c *Controller) ClearMessages() error {
	c.mu.Lock()
	sid := c.active
	c.mu.Unlock()
	if sid == "" {
		return nil
	}
	return c.ClearSessionMessages(sid)
}

// ClearSessionMessages empties one session's log without touching the
// active-session selection.
func (c *Controller) ClearSessionMessages(sid string) error {
	if err := c.log.Clear(sid); err != nil {
		return err
	}
	preview := ""
	if s, ok := c.registry.Get(sid); ok && s.AttachedFileName != "" {
		preview = "Attached file: " + s.AttachedFileName
	}
	return c.registry.UpdatePreview(sid, preview)
}

// DeleteSession removes a session everywhere: registry entry, message
// log and, best effort, the server-side temporary attachments. Remote
// cleanup failures are logged, not fatal.
func (c *Controller) DeleteSession(ctx context.Context, id string) error {
	if files, err := c.tracker.List(ctx, id); err != nil {
		LogWarn("could not list temp files for %s: %v", id, err)
	} else {
		for _, f := range files {
			if err := c.tracker.Remove(ctx, id, f.Filename); err != nil {
				LogWarn("could not remove temp file %s/%s: %v", id, f.Filename, err)
			}
		}
	}

	if err := c.registry.Delete(id); err != nil {
		return err
	}
	if err := c.store.Remove(messagesKey(id)); err != nil {
		return err
	}

	c.mu.Lock()
	if c.active == id {
		c.active = ""
	}
	c.mu.Unlock()
	if c.Active() == "" {
		if err := c.store.Remove(activeSessionKey); err != nil {
			LogWarn("failed to clear active session: %v", err)
		}
	}
	return nil
}
