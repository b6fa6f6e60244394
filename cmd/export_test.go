package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/iksnae/rag-chat/internal"
	"github.com/iksnae/rag-chat/testutil"
)

func runCommand(t *testing.T, args ...string) error {
	t.Helper()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	return rootCmd.Execute()
}

func TestExportCommand_InvalidFormat(t *testing.T) {
	storeDir := testutil.CreateTempDir(t)
	err := runCommand(t, "export", "--format", "invalid", "--store-dir", storeDir)
	if err == nil {
		t.Error("export with invalid format error = nil, want error")
	}
}

func TestExportCommand_UnknownSession(t *testing.T) {
	storeDir := testutil.CreateTempDir(t)
	err := runCommand(t, "export", "no-such-session", "--format", "jsonl",
		"--store-dir", storeDir, "--output", testutil.CreateTempDir(t))
	if err == nil {
		t.Error("export of unknown session error = nil, want error")
	}
}

func TestExportCommand_WritesTranscript(t *testing.T) {
	storeDir := testutil.CreateTempDir(t)
	outDir := filepath.Join(testutil.CreateTempDir(t), "exports")

	// Seed one session with a short exchange.
	store := internal.NewFileStore(storeDir)
	registry := internal.NewSessionRegistry(store)
	if err := registry.Upsert("abc123", "report.pdf"); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	log := internal.NewMessageLog(store)
	if err := log.Append("abc123", internal.Message{ID: "1", Role: internal.RoleUser, Text: "hi"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	err := runCommand(t, "export", "abc123", "--format", "jsonl",
		"--store-dir", storeDir, "--store-backend", "file", "--output", outDir)
	if err != nil {
		t.Fatalf("export error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(outDir, "session_abc123.jsonl"))
	if err != nil {
		t.Fatalf("exported file missing: %v", err)
	}
	if !bytes.Contains(data, []byte(`"text":"hi"`)) {
		t.Errorf("exported file = %s, want the message text in it", data)
	}
}
