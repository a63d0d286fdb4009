// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewUserMessage(t *testing.T) {
	msg := NewUserMessage("hello")

	if msg.Role != RoleUser {
		t.Errorf("Role = %q, want %q", msg.Role, RoleUser)
	}
	if msg.Content != "hello" {
		t.Errorf("Content = %q, want %q", msg.Content, "hello")
	}
	if !strings.HasPrefix(msg.ID, "msg_") {
		t.Errorf("ID should start with 'msg_', got %q", msg.ID)
	}
	if msg.Timestamp.IsZero() {
		t.Error("Timestamp should be set")
	}
}

func TestAssistantPlaceholder_StreamingLifecycle(t *testing.T) {
	msg := NewAssistantPlaceholder()

	if !msg.IsStreaming {
		t.Fatal("placeholder should start streaming")
	}
	if !msg.IsEmpty() {
		t.Error("placeholder should start empty")
	}

	msg.AppendContent("Hello")
	msg.AppendContent(", world")

	if got := msg.DisplayContent(); got != "Hello, world" {
		t.Errorf("DisplayContent() = %q, want %q", got, "Hello, world")
	}
	if msg.IsEmpty() {
		t.Error("message with streamed content should not be empty")
	}

	msg.Finalize([]string{"search", "retrieve"})

	if msg.IsStreaming {
		t.Error("finalized message should not be streaming")
	}
	if msg.Content != "Hello, world" {
		t.Errorf("Content = %q, want %q", msg.Content, "Hello, world")
	}
	if len(msg.ToolsUsed) != 2 || msg.ToolsUsed[0] != "search" {
		t.Errorf("ToolsUsed = %v, want [search retrieve]", msg.ToolsUsed)
	}

	// Append after finalize is a no-op.
	msg.AppendContent("more")
	if msg.Content != "Hello, world" {
		t.Error("AppendContent after Finalize should be a no-op")
	}
}

func TestMessage_FinalizeIsIdempotent(t *testing.T) {
	msg := NewAssistantPlaceholder()
	msg.AppendContent("once")
	msg.Finalize(nil)
	msg.Finalize([]string{"late"})

	if msg.Content != "once" {
		t.Errorf("Content = %q, want %q", msg.Content, "once")
	}
	if len(msg.ToolsUsed) != 0 {
		t.Errorf("second Finalize should not attach tools, got %v", msg.ToolsUsed)
	}
}

func TestMessage_RecordTool(t *testing.T) {
	msg := NewAssistantPlaceholder()
	msg.RecordTool("search")
	msg.RecordTool("")
	msg.RecordTool("retrieve")

	if len(msg.ToolsUsed) != 2 {
		t.Fatalf("ToolsUsed = %v, want 2 entries", msg.ToolsUsed)
	}
	if msg.ToolsUsed[0] != "search" || msg.ToolsUsed[1] != "retrieve" {
		t.Errorf("ToolsUsed order = %v, want [search retrieve]", msg.ToolsUsed)
	}
}

func TestMessage_Preview(t *testing.T) {
	tests := []struct {
		name    string
		content string
		maxLen  int
		want    string
	}{
		{"short content unchanged", "hi", 10, "hi"},
		{"long content truncated", "abcdefghijklmnop", 10, "abcdefg..."},
		{"newlines flattened", "a\nb", 10, "a b"},
		{"unicode safe", "héllo wörld extra", 10, "héllo w..."},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg := NewUserMessage(tc.content)
			if got := msg.Preview(tc.maxLen); got != tc.want {
				t.Errorf("Preview(%d) = %q, want %q", tc.maxLen, got, tc.want)
			}
		})
	}
}

func TestMessage_Clone(t *testing.T) {
	msg := NewAssistantPlaceholder()
	msg.AppendContent("body")
	msg.RecordTool("search")

	clone := msg.Clone()

	if clone.IsStreaming {
		t.Error("clone should always be final")
	}
	if clone.Content != "body" {
		t.Errorf("clone Content = %q, want %q", clone.Content, "body")
	}

	clone.ToolsUsed[0] = "mutated"
	if msg.ToolsUsed[0] != "search" {
		t.Error("clone should not share the tools slice")
	}
}

// =============================================================================
// SESSION TESTS
// =============================================================================

func TestNewSession(t *testing.T) {
	sess := NewSession()

	if sess.ID == "" {
		t.Error("ID should be generated")
	}
	if sess.Title != "New conversation" {
		t.Errorf("Title = %q, want default", sess.Title)
	}
	if sess.CreatedAt.IsZero() || sess.UpdatedAt.IsZero() {
		t.Error("timestamps should be set")
	}
}

func TestSession_TitleFromMessages(t *testing.T) {
	sess := NewSession()

	// No user message yet: existing title stands.
	if got := sess.TitleFromMessages(nil); got != "New conversation" {
		t.Errorf("TitleFromMessages(nil) = %q, want default", got)
	}

	long := strings.Repeat("word ", 20)
	messages := []*Message{
		NewUserMessage(long),
		NewMessage(RoleAssistant, "answer"),
	}
	title := sess.TitleFromMessages(messages)
	if !strings.HasSuffix(title, "...") {
		t.Errorf("long title should be truncated with ellipsis, got %q", title)
	}
	if len([]rune(title)) != 50 {
		t.Errorf("truncated title length = %d, want 50", len([]rune(title)))
	}
}

func TestUser_IsAdmin(t *testing.T) {
	tests := []struct {
		name string
		user *User
		want bool
	}{
		{"nil user", nil, false},
		{"regular user", &User{Role: "user"}, false},
		{"admin", &User{Role: "admin"}, true},
		{"superadmin", &User{Role: "superadmin"}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.user.IsAdmin(); got != tc.want {
				t.Errorf("IsAdmin() = %v, want %v", got, tc.want)
			}
		})
	}
}
