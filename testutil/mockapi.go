package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// QueryCall records one request the mock saw on /query.
type QueryCall struct {
	Question  string
	SessionID string
}

// MockTempFile is a temporary attachment the mock server holds.
type MockTempFile struct {
	Filename   string `json:"filename"`
	ChunkCount int    `json:"chunks_count"`
	TotalChars int    `json:"total_chars"`
}

// MockAPI is an httptest server that stands in for the external RAG
// service. Response fields can be set before each request; every call is
// recorded for assertions.
type MockAPI struct {
	Server *httptest.Server

	mu sync.Mutex

	// Configurable responses.
	Answer          string
	Texts           []string
	QueryStatus     int // 0 means 200
	QueryStarted    chan struct{} // signaled when /query has recorded the call, if non-nil
	QueryProceed    chan struct{} // /query waits on this before answering, if non-nil
	UploadSessionID string
	UploadChunks    int
	UploadChars     int
	UploadStatus    int // 0 means 200
	Token           string
	UserEmail       string
	MeStatus        int // 0 means 200
	Config          map[string]interface{}

	// Recorded traffic.
	QueryCalls   []QueryCall
	Uploads      []string // filenames seen on /upload-temp
	TempFiles    map[string][]MockTempFile
	TempDeletes  []string // "sessionID/filename"
	Reloaded     []string // services seen on /reload
	ConfigWrites map[string]json.RawMessage
}

// NewMockAPI starts a mock RAG service. It is shut down automatically
// when the test finishes.
func NewMockAPI(t *testing.T) *MockAPI {
	t.Helper()
	m := &MockAPI{
		Answer:          "mock answer",
		Texts:           []string{"passage one", "passage two"},
		UploadSessionID: "srv-session-1",
		UploadChunks:    3,
		UploadChars:     1200,
		Token:           "mock-token",
		UserEmail:       "user@example.com",
		Config:          map[string]interface{}{"model": "default"},
		TempFiles:       make(map[string][]MockTempFile),
		ConfigWrites:    make(map[string]json.RawMessage),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(m.handle))
	t.Cleanup(m.Server.Close)
	return m
}

// URL returns the mock server's base URL.
func (m *MockAPI) URL() string {
	return m.Server.URL
}

// handleQuery runs outside the big lock so a gated query does not block
// the other endpoints.
func (m *MockAPI) handleQuery(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Question  string `json:"question"`
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	m.mu.Lock()
	m.QueryCalls = append(m.QueryCalls, QueryCall{Question: body.Question, SessionID: body.SessionID})
	status := m.QueryStatus
	answer, texts := m.Answer, m.Texts
	started, proceed := m.QueryStarted, m.QueryProceed
	m.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if proceed != nil {
		<-proceed
	}

	if status != 0 && status != http.StatusOK {
		http.Error(w, "query failed", status)
		return
	}
	writeJSON(w, map[string]interface{}{"answer": answer, "texts": texts})
}

func (m *MockAPI) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/query" && r.Method == http.MethodPost {
		m.handleQuery(w, r)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	path := r.URL.Path
	switch {
	case path == "/upload-temp" && r.Method == http.MethodPost:
		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		file.Close()
		if m.UploadStatus != 0 && m.UploadStatus != http.StatusOK {
			http.Error(w, "upload failed", m.UploadStatus)
			return
		}
		m.Uploads = append(m.Uploads, header.Filename)
		m.TempFiles[m.UploadSessionID] = append(m.TempFiles[m.UploadSessionID], MockTempFile{
			Filename:   header.Filename,
			ChunkCount: m.UploadChunks,
			TotalChars: m.UploadChars,
		})
		writeJSON(w, map[string]interface{}{
			"session_id":   m.UploadSessionID,
			"filename":     header.Filename,
			"chunks_count": m.UploadChunks,
			"total_chars":  m.UploadChars,
		})

	case path == "/upload-files" && r.Method == http.MethodPost:
		writeJSON(w, map[string]interface{}{"status": "indexed"})

	case strings.HasPrefix(path, "/temp-files/") && r.Method == http.MethodGet:
		sid := strings.TrimPrefix(path, "/temp-files/")
		files := m.TempFiles[sid]
		if files == nil {
			files = []MockTempFile{}
		}
		writeJSON(w, map[string]interface{}{"temp_files": files, "total_files": len(files)})

	case strings.HasPrefix(path, "/temp-files/") && r.Method == http.MethodDelete:
		rest := strings.TrimPrefix(path, "/temp-files/")
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) != 2 {
			http.Error(w, "bad path", http.StatusBadRequest)
			return
		}
		sid, name := parts[0], parts[1]
		m.TempDeletes = append(m.TempDeletes, sid+"/"+name)
		kept := m.TempFiles[sid][:0]
		for _, f := range m.TempFiles[sid] {
			if f.Filename != name {
				kept = append(kept, f)
			}
		}
		m.TempFiles[sid] = kept
		writeJSON(w, map[string]interface{}{"status": "deleted"})

	case path == "/documents" && r.Method == http.MethodGet:
		writeJSON(w, map[string]interface{}{"documents": []map[string]interface{}{
			{"filename": "corpus.txt", "chunks_count": 10, "total_chars": 4000},
		}})

	case path == "/clear-index" && r.Method == http.MethodDelete:
		writeJSON(w, map[string]interface{}{"status": "cleared"})

	case strings.HasPrefix(path, "/documents/") && r.Method == http.MethodDelete:
		writeJSON(w, map[string]interface{}{"status": "deleted"})

	case strings.HasPrefix(path, "/documents/") && r.Method == http.MethodGet:
		writeJSON(w, map[string]interface{}{
			"filename":     strings.TrimPrefix(path, "/documents/"),
			"total_chunks": 1,
			"total_chars":  100,
			"chunks":       []map[string]interface{}{{"text": "chunk text", "hash": "abcd1234"}},
		})

	case path == "/config" && r.Method == http.MethodGet:
		writeJSON(w, m.Config)

	case path == "/config" && r.Method == http.MethodPost:
		data, _ := json.Marshal(readJSON(r))
		m.ConfigWrites[r.URL.Query().Get("service")] = data
		writeJSON(w, map[string]interface{}{"status": "updated"})

	case path == "/reload" && r.Method == http.MethodPost:
		m.Reloaded = append(m.Reloaded, r.URL.Query().Get("service"))
		writeJSON(w, map[string]interface{}{"status": "reloaded"})

	case path == "/health":
		writeJSON(w, map[string]interface{}{"status": "ok"})

	case path == "/auth/token" && r.Method == http.MethodPost:
		writeJSON(w, map[string]interface{}{"access_token": m.Token, "token_type": "bearer"})

	case path == "/auth/register" && r.Method == http.MethodPost:
		writeJSON(w, map[string]interface{}{"status": "registered"})

	case path == "/auth/me" && r.Method == http.MethodGet:
		if m.MeStatus != 0 && m.MeStatus != http.StatusOK {
			http.Error(w, "unauthorized", m.MeStatus)
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		writeJSON(w, map[string]interface{}{"id": 1, "email": m.UserEmail, "role": "user"})

	default:
		http.Error(w, fmt.Sprintf("unhandled path %s %s", r.Method, path), http.StatusNotFound)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request) interface{} {
	var v interface{}
	_ = json.NewDecoder(r.Body).Decode(&v)
	return v
}
