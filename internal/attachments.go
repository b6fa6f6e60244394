package internal

import (
	"context"
	"io"
)

// AttachmentTracker synchronizes a session's ephemeral document
// attachments with the upload API. It holds no local state: the server
// owns the attachment list, the client references it only by session id
// and filename.
type AttachmentTracker struct {
	client *Client
}

// NewAttachmentTracker creates a tracker using client for all calls.
func NewAttachmentTracker(client *Client) *AttachmentTracker {
	return &AttachmentTracker{client: client}
}

// Attach uploads r for session-scoped use. The result's SessionID is
// authoritative: on a first attach the server may issue a fresh id that
// replaces any client-generated placeholder, and callers must adopt it.
// On failure nothing changes.
func (t *AttachmentTracker) Attach(ctx context.Context, sessionID, filename string, r io.Reader) (*AttachmentResult, error) {
	res, err := t.client.UploadTemp(ctx, filename, r)
	if err != nil {
		return nil, err
	}
	if res.SessionID == "" {
		res.SessionID = sessionID
	}
	LogDebug("attached %q to session %s (%d chunks)", res.Filename, res.SessionID, res.ChunkCount)
	return res, nil
}

// List returns the attachments the server holds for a session. An empty
// session id is not an error: a conversation with no attachments simply
// has nothing listed.
func (t *AttachmentTracker) List(ctx context.Context, sessionID string) ([]TempFileInfo, error) {
	if sessionID == "" {
		return nil, nil
	}
	return t.client.TempFiles(ctx, sessionID)
}

// Remove deletes one attachment from a session. Callers should refresh
// List afterward.
func (t *AttachmentTracker) Remove(ctx context.Context, sessionID, filename string) error {
	return t.client.DeleteTempFile(ctx, sessionID, filename)
}
