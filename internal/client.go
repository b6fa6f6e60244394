package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout bounds every request to the RAG service. A timed-out
// request surfaces upstream as an error-role message, never a crash.
const DefaultTimeout = 60 * time.Second

// QueryResponse is the answer to a question, with the retrieved passages
// that back it.
type QueryResponse struct {
	Answer string   `json:"answer"`
	Texts  []string `json:"texts"`
}

// DocumentInfo describes one document in the permanent corpus.
type DocumentInfo struct {
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunks_count"`
	TotalChars int    `json:"total_chars"`
}

// DocumentChunk is one indexed fragment of a document.
type DocumentChunk struct {
	Text string `json:"text"`
	Hash string `json:"hash,omitempty"`
}

// DocumentContent is the chunk-level preview of a single document.
type DocumentContent struct {
	Filename    string          `json:"filename"`
	TotalChunks int             `json:"total_chunks"`
	TotalChars  int             `json:"total_chars"`
	IsTemporary bool            `json:"is_temporary"`
	Chunks      []DocumentChunk `json:"chunks"`
}

// HealthStatus is the liveness probe response.
type HealthStatus struct {
	Status string `json:"status"`
}

// TokenResponse carries a freshly issued bearer token.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

// UserInfo is the identity behind the current token.
type UserInfo struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// Client talks to the external RAG service. It owns no state beyond the
// base URL and an optional bearer token; all conversation state lives in
// the store-backed components.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// NewClient creates a client for the service at baseURL. A zero timeout
// means DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// SetToken attaches a bearer token to all subsequent requests. An empty
// token clears it.
func (c *Client) SetToken(token string) {
	c.token = token
}

// do runs a request, decodes a 2xx JSON body into out (when out is
// non-nil) and converts any non-2xx status into an *APIError.
func (c *Client) do(req *http.Request, out interface{}) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Endpoint:   req.URL.Path,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ParseError{Source: "response", Key: req.URL.Path, Err: err}
	}
	return nil
}

// postJSON sends body as JSON and decodes the response into out.
func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// getJSON issues a GET and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// delete issues a DELETE and decodes the response into out when non-nil.
func (c *Client) delete(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

// uploadMultipart posts r as a multipart file field named "file".
func (c *Client) uploadMultipart(ctx context.Context, path, filename string, r io.Reader, out interface{}) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req, out)
}

// Query asks a question. A non-empty sessionID scopes retrieval to that
// session's temporary attachments in addition to the permanent corpus.
func (c *Client) Query(ctx context.Context, question, sessionID string) (*QueryResponse, error) {
	body := map[string]interface{}{"question": question}
	if sessionID != "" {
		body["session_id"] = sessionID
	}
	var out QueryResponse
	if err := c.postJSON(ctx, "/query", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadFile indexes a document into the permanent corpus.
func (c *Client) UploadFile(ctx context.Context, filename string, r io.Reader) error {
	return c.uploadMultipart(ctx, "/upload-files", filename, r, nil)
}

// UploadTemp uploads a document for session-scoped use. The returned
// session id is authoritative and must be adopted by the caller.
func (c *Client) UploadTemp(ctx context.Context, filename string, r io.Reader) (*AttachmentResult, error) {
	var out AttachmentResult
	if err := c.uploadMultipart(ctx, "/upload-temp", filename, r, &out); err != nil {
		return nil, err
	}
	if out.Filename == "" {
		out.Filename = filename
	}
	return &out, nil
}

// tempFilesResponse is the wire shape of GET /temp-files/{sessionId}.
type tempFilesResponse struct {
	TempFiles  []TempFileInfo `json:"temp_files"`
	TotalFiles int            `json:"total_files"`
}

// TempFiles lists the temporary attachments held for a session.
func (c *Client) TempFiles(ctx context.Context, sessionID string) ([]TempFileInfo, error) {
	var out tempFilesResponse
	if err := c.getJSON(ctx, "/temp-files/"+url.PathEscape(sessionID), &out); err != nil {
		return nil, err
	}
	return out.TempFiles, nil
}

// DeleteTempFile removes one temporary attachment from a session.
func (c *Client) DeleteTempFile(ctx context.Context, sessionID, filename string) error {
	return c.delete(ctx, "/temp-files/"+url.PathEscape(sessionID)+"/"+url.PathEscape(filename), nil)
}

// documentsResponse is the wire shape of GET /documents.
type documentsResponse struct {
	Documents []DocumentInfo `json:"documents"`
}

// Documents lists the permanent corpus.
func (c *Client) Documents(ctx context.Context) ([]DocumentInfo, error) {
	var out documentsResponse
	if err := c.getJSON(ctx, "/documents", &out); err != nil {
		return nil, err
	}
	return out.Documents, nil
}

// DocumentContent previews one document's chunks. A non-empty sessionID
// lets the server resolve temporary attachments by name.
func (c *Client) DocumentContent(ctx context.Context, filename, sessionID string) (*DocumentContent, error) {
	path := "/documents/" + url.PathEscape(filename)
	if sessionID != "" {
		path += "?session_id=" + url.QueryEscape(sessionID)
	}
	var out DocumentContent
	if err := c.getJSON(ctx, path, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteDocument removes one document from the permanent corpus.
func (c *Client) DeleteDocument(ctx context.Context, filename string) error {
	return c.delete(ctx, "/documents/"+url.PathEscape(filename), nil)
}

// ClearIndex wipes the permanent corpus.
func (c *Client) ClearIndex(ctx context.Context) error {
	return c.delete(ctx, "/clear-index", nil)
}

// GetConfig reads a backend service's configuration as an arbitrary tree.
func (c *Client) GetConfig(ctx context.Context, service string) (*ConfigNode, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, "/config?service="+url.QueryEscape(service), &raw); err != nil {
		return nil, err
	}
	return ParseConfig(raw)
}

// UpdateConfig writes a backend service's configuration.
func (c *Client) UpdateConfig(ctx context.Context, service string, cfg *ConfigNode) error {
	return c.postJSON(ctx, "/config?service="+url.QueryEscape(service), cfg, nil)
}

// Reload restarts a backend service so it picks up new configuration.
func (c *Client) Reload(ctx context.Context, service string) error {
	return c.postJSON(ctx, "/reload?service="+url.QueryEscape(service), struct{}{}, nil)
}

// Health probes the service for liveness.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	if err := c.getJSON(ctx, "/health", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Token exchanges credentials for a bearer token. The endpoint takes a
// form body, not JSON.
func (c *Client) Token(ctx context.Context, username, password string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out TokenResponse
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, email, password string) error {
	body := map[string]string{"email": email, "password": password}
	return c.postJSON(ctx, "/auth/register", body, nil)
}

// Me returns the identity behind the current token.
func (c *Client) Me(ctx context.Context) (*UserInfo, error) {
	var out UserInfo
	if err := c.getJSON(ctx, "/auth/me", &out); err != nil {
		return nil, err
	}
	return &out, nil
}
