package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/iksnae/rag-chat/internal"
)

func TestMarkdownExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	if err := (&MarkdownExporter{}).Export(testTranscript(), &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Session abc123",
		"**Attached file:** report.pdf",
		"**Messages:** 2",
		"**user:**",
		"**assistant:**",
		"_Sources:_",
		"> **#1** page 3",
		"> **#2** page 7",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Export() output missing %q", want)
		}
	}
}

func TestMarkdownExporter_NoAttachment(t *testing.T) {
	var buf bytes.Buffer
	tr := &internal.Transcript{
		Session:  internal.Session{ID: "s1"},
		Messages: []internal.Message{{ID: "1", Role: internal.RoleUser, Text: "hi"}},
	}
	if err := (&MarkdownExporter{}).Export(tr, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if strings.Contains(buf.String(), "Attached file") {
		t.Error("Export() mentions an attached file for a session without one")
	}
}

func TestEscapeMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain text untouched",
			in:   "just words",
			want: "just words",
		},
		{
			name: "bold markers escaped",
			in:   "this is **bold**",
			want: "this is \\*\\*bold\\*\\*",
		},
		{
			name: "code blocks preserved",
			in:   "```\n**not bold**\n```",
			want: "```\n**not bold**\n```",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := escapeMarkdown(tt.in); got != tt.want {
				t.Errorf("escapeMarkdown() = %q, want %q", got, tt.want)
			}
		})
	}
}
