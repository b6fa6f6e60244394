package internal

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/iksnae/rag-chat/testutil"
)

func TestClient_Query(t *testing.T) {
	mock := testutil.NewMockAPI(t)
	c := NewClient(mock.URL(), 0)

	resp, err := c.Query(context.Background(), "what is in the report?", "")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if resp.Answer != "mock answer" {
		t.Errorf("Query() answer = %q, want %q", resp.Answer, "mock answer")
	}
	if len(resp.Texts) != 2 {
		t.Errorf("Query() texts = %v, want 2 passages", resp.Texts)
	}

	if len(mock.QueryCalls) != 1 {
		t.Fatalf("mock saw %d query calls, want 1", len(mock.QueryCalls))
	}
	if mock.QueryCalls[0].SessionID != "" {
		t.Errorf("Query() without session sent session_id = %q, want empty", mock.QueryCalls[0].SessionID)
	}
}

func TestClient_QueryWithSession(t *testing.T) {
	mock := testutil.NewMockAPI(t)
	c := NewClient(mock.URL(), 0)

	if _, err := c.Query(context.Background(), "and the appendix?", "abc123"); err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if got := mock.QueryCalls[0].SessionID; got != "abc123" {
		t.Errorf("Query() sent session_id = %q, want %q", got, "abc123")
	}
}

func TestClient_QueryServerError(t *testing.T) {
	mock := testutil.NewMockAPI(t)
	mock.QueryStatus = http.StatusInternalServerError
	c := NewClient(mock.URL(), 0)

	_, err := c.Query(context.Background(), "boom", "")
	if err == nil {
		t.Fatal("Query() error = nil, want *APIError")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Query() error type = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("APIError status = %d, want 500", apiErr.StatusCode)
	}
	if apiErr.Endpoint != "/query" {
		t.Errorf("APIError endpoint = %q, want /query", apiErr.Endpoint)
	}
}

func TestClient_UploadTemp(t *testing.T) {
	mock := testutil.NewMockAPI(t)
	c := NewClient(mock.URL(), 0)

	res, err := c.UploadTemp(context.Background(), "report.pdf", strings.NewReader("pdf bytes"))
	if err != nil {
		t.Fatalf("UploadTemp() error = %v", err)
	}
	if res.SessionID != "srv-session-1" {
		t.Errorf("UploadTemp() session id = %q, want %q", res.SessionID, "srv-session-1")
	}
	if res.Filename != "report.pdf" {
		t.Errorf("UploadTemp() filename = %q, want %q", res.Filename, "report.pdf")
	}
	if res.ChunkCount != 3 {
		t.Errorf("UploadTemp() chunks = %d, want 3", res.ChunkCount)
	}
	if len(mock.Uploads) != 1 || mock.Uploads[0] != "report.pdf" {
		t.Errorf("mock saw uploads %v, want [report.pdf]", mock.Uploads)
	}
}

func TestClient_TempFiles(t *testing.T) {
	mock := testutil.NewMockAPI(t)
	c := NewClient(mock.URL(), 0)

	// Empty before any upload.
	files, err := c.TempFiles(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("TempFiles() error = %v", err)
	}
	if len(files) != 0 {
		t.Errorf("TempFiles() = %v, want empty", files)
	}

	if _, err := c.UploadTemp(context.Background(), "report.pdf", strings.NewReader("x")); err != nil {
		t.Fatalf("UploadTemp() error = %v", err)
	}
	files, err = c.TempFiles(context.Background(), "srv-session-1")
	if err != nil {
		t.Fatalf("TempFiles() error = %v", err)
	}
	if len(files) != 1 || files[0].Filename != "report.pdf" {
		t.Errorf("TempFiles() = %v, want [report.pdf]", files)
	}
}

func TestClient_DeleteTempFile(t *testing.T) {
	mock := testutil.NewMockAPI(t)
	c := NewClient(mock.URL(), 0)

	if _, err := c.UploadTemp(context.Background(), "report.pdf", strings.NewReader("x")); err != nil {
		t.Fatalf("UploadTemp() error = %v", err)
	}
	if err := c.DeleteTempFile(context.Background(), "srv-session-1", "report.pdf"); err != nil {
		t.Fatalf("DeleteTempFile() error = %v", err)
	}
	if len(mock.TempDeletes) != 1 || mock.TempDeletes[0] != "srv-session-1/report.pdf" {
		t.Errorf("mock saw deletes %v, want [srv-session-1/report.pdf]", mock.TempDeletes)
	}
}

func TestClient_Documents(t *testing.T) {
	mock := testutil.NewMockAPI(t)
	c := NewClient(mock.URL(), 0)

	docs, err := c.Documents(context.Background())
	if err != nil {
		t.Fatalf("Documents() error = %v", err)
	}
	if len(docs) != 1 || docs[0].Filename != "corpus.txt" {
		t.Errorf("Documents() = %v, want [corpus.txt]", docs)
	}
}

func TestClient_Health(t *testing.T) {
	mock := testutil.NewMockAPI(t)
	c := NewClient(mock.URL(), 0)

	status, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if status.Status != "ok" {
		t.Errorf("Health() = %q, want %q", status.Status, "ok")
	}
}

func TestClient_TokenAndMe(t *testing.T) {
	mock := testutil.NewMockAPI(t)
	c := NewClient(mock.URL(), 0)

	// Without a token /auth/me is rejected.
	if _, err := c.Me(context.Background()); err == nil {
		t.Fatal("Me() without token error = nil, want unauthorized")
	}

	tok, err := c.Token(context.Background(), "user@example.com", "hunter2")
	if err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if tok.AccessToken != "mock-token" {
		t.Errorf("Token() = %q, want %q", tok.AccessToken, "mock-token")
	}

	c.SetToken(tok.AccessToken)
	user, err := c.Me(context.Background())
	if err != nil {
		t.Fatalf("Me() error = %v", err)
	}
	if user.Email != "user@example.com" {
		t.Errorf("Me() email = %q, want %q", user.Email, "user@example.com")
	}
}

func TestClient_ConfigRoundTrip(t *testing.T) {
	mock := testutil.NewMockAPI(t)
	c := NewClient(mock.URL(), 0)

	cfg, err := c.GetConfig(context.Background(), "rag")
	if err != nil {
		t.Fatalf("GetConfig() error = %v", err)
	}
	node, ok := cfg.Get("model")
	if !ok {
		t.Fatal("GetConfig() result has no model field")
	}
	if node.Str != "default" {
		t.Errorf("config model = %q, want %q", node.Str, "default")
	}

	if err := cfg.Set("model", ScalarFromString("gpt-large")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := c.UpdateConfig(context.Background(), "rag", cfg); err != nil {
		t.Fatalf("UpdateConfig() error = %v", err)
	}
	if _, ok := mock.ConfigWrites["rag"]; !ok {
		t.Error("mock saw no config write for service rag")
	}
}

func TestClient_Reload(t *testing.T) {
	mock := testutil.NewMockAPI(t)
	c := NewClient(mock.URL(), 0)

	if err := c.Reload(context.Background(), "rag"); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if len(mock.Reloaded) != 1 || mock.Reloaded[0] != "rag" {
		t.Errorf("mock saw reloads %v, want [rag]", mock.Reloaded)
	}
}
