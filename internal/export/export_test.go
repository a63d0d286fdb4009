// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ragline/ragline-tui/internal/model"
)

func sampleTranscript() *Transcript {
	sess := model.NewSession()
	sess.Title = "Rotating API keys"

	question := model.NewUserMessage("How do I rotate the API keys?")
	answer := model.NewAssistantPlaceholder()
	answer.AppendContent("Use the admin console, then restart the workers.")
	answer.Finalize([]string{"search_docs"})

	return &Transcript{
		Session:  sess,
		Messages: []*model.Message{question, answer},
	}
}

func TestMarkdownExport(t *testing.T) {
	out, err := NewMarkdownExporter(nil).Export(sampleTranscript())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	md := string(out)

	for _, want := range []string{
		"# Rotating API keys",
		"[User]",
		"[Assistant]",
		"How do I rotate the API keys?",
		"Tools: search_docs",
		"generator: ragline",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestMarkdownExportWithoutMetadata(t *testing.T) {
	opts := &Options{IncludeMetadata: false, IncludeTimestamps: false}
	out, err := NewMarkdownExporter(opts).Export(sampleTranscript())
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	md := string(out)

	if strings.Contains(md, "Session Information") {
		t.Error("metadata section present despite IncludeMetadata=false")
	}
	if strings.Contains(md, "session_id:") {
		t.Error("frontmatter present despite IncludeMetadata=false")
	}
}

func TestMarkdownExportEmptyTranscript(t *testing.T) {
	sess := model.NewSession()
	_, err := NewMarkdownExporter(nil).Export(&Transcript{Session: sess})
	if err == nil {
		t.Fatal("empty transcript should not export")
	}
}

func TestJSONExportRoundTrips(t *testing.T) {
	src := sampleTranscript()
	out, err := NewJSONExporter(nil).Export(src)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	var back Transcript
	if err := json.Unmarshal(out, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.Session.ID != src.Session.ID {
		t.Errorf("session ID = %q, want %q", back.Session.ID, src.Session.ID)
	}
	if len(back.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(back.Messages))
	}
	if back.Messages[1].ToolsUsed[0] != "search_docs" {
		t.Errorf("tools lost in round trip: %+v", back.Messages[1].ToolsUsed)
	}
}

func TestExportToFile(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions()
	opts.OutputDir = dir

	path, err := ExportToFile(sampleTranscript(), NewMarkdownExporter(opts), opts)
	if err != nil {
		t.Fatalf("ExportToFile: %v", err)
	}

	if filepath.Dir(path) != dir {
		t.Errorf("written outside output dir: %s", path)
	}
	base := filepath.Base(path)
	if !strings.HasPrefix(base, "session_rotating_api_keys_") || !strings.HasSuffix(base, ".md") {
		t.Errorf("unexpected filename %q", base)
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"spaces become underscores", "What is RAG?", "what_is_rag"},
		{"empty title", "", "untitled"},
		{"symbols stripped", "///###", "untitled"},
		{"long titles truncated", strings.Repeat("a", 60), strings.Repeat("a", 40)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeFilename(tt.in); got != tt.want {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestForFormat(t *testing.T) {
	if _, err := ForFormat("md", nil); err != nil {
		t.Errorf("md: %v", err)
	}
	if _, err := ForFormat("json", nil); err != nil {
		t.Errorf("json: %v", err)
	}
	if _, err := ForFormat("", nil); err != nil {
		t.Errorf("default: %v", err)
	}
	if _, err := ForFormat("docx", nil); err == nil {
		t.Error("unknown format should error")
	}
}
