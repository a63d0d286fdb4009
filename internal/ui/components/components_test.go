// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"testing"
	"time"

	"github.com/ragline/ragline-tui/internal/model"
	"github.com/ragline/ragline-tui/internal/ui/styles"
)

// =============================================================================
// TEXT UTILITIES
// =============================================================================

func TestWordWrap(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		width int
		want  string
	}{
		{
			name:  "short line unchanged",
			text:  "hello world",
			width: 40,
			want:  "hello world",
		},
		{
			name:  "wraps at word boundary",
			text:  "the quick brown fox jumps over",
			width: 10,
			want:  "the quick\nbrown fox\njumps over",
		},
		{
			name:  "preserves existing newlines",
			text:  "first\nsecond",
			width: 40,
			want:  "first\nsecond",
		},
		{
			name:  "zero width passthrough",
			text:  "anything at all",
			width: 0,
			want:  "anything at all",
		},
		{
			name:  "styled line untouched",
			text:  "\x1b[31mred text that is quite long indeed\x1b[0m",
			width: 10,
			want:  "\x1b[31mred text that is quite long indeed\x1b[0m",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wordWrap(tt.text, tt.width)
			if got != tt.want {
				t.Errorf("wordWrap(%q, %d) = %q, want %q", tt.text, tt.width, got, tt.want)
			}
		})
	}
}

func TestMaxLineWidth(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"single line", "hello", 5},
		{"multi line", "hi\nthere now", 9},
		{"empty", "", 0},
		{"unicode runes", "日本語\nab", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := maxLineWidth(tt.text); got != tt.want {
				t.Errorf("maxLineWidth(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
	if got := truncate("a much longer sentence", 10); got != "a much ..." {
		t.Errorf("truncate long = %q", got)
	}
}

// =============================================================================
// CODE BLOCKS
// =============================================================================

func TestParseCodeBlocks(t *testing.T) {
	input := "Intro text\n```go\nfunc main() {}\n```\nOutro"
	out := ParseCodeBlocks(input, 80)

	if !strings.Contains(out, "Intro text") {
		t.Error("prose before the fence should survive")
	}
	if !strings.Contains(out, "Outro") {
		t.Error("prose after the fence should survive")
	}
	if strings.Contains(out, "```") {
		t.Error("fence markers should be consumed")
	}
	if !strings.Contains(out, "main") {
		t.Error("code content should survive highlighting")
	}
}

func TestParseCodeBlocksUnclosedFence(t *testing.T) {
	input := "Look:\n```python\nprint('hi')"
	out := ParseCodeBlocks(input, 80)
	if !strings.Contains(out, "print") {
		t.Errorf("mid-stream fence content lost: %q", out)
	}
}

// =============================================================================
// MESSAGE RENDERING
// =============================================================================

func TestMessageListEmptyState(t *testing.T) {
	theme := styles.NewTheme()
	ml := NewMessageList(theme)
	ml.SetWidth(80)

	out := ml.View()
	if !strings.Contains(out, "No messages yet") {
		t.Errorf("empty state missing, got %q", out)
	}
}

func TestMessageBubbleRoles(t *testing.T) {
	theme := styles.NewTheme()

	user := NewMessageBubble(model.NewUserMessage("what is retrieval?"), theme)
	user.SetWidth(80)
	if !strings.Contains(user.View(), "you") {
		t.Error("user bubble missing role header")
	}

	reply := model.NewMessage(model.RoleAssistant, "Retrieval fetches documents.")
	bubble := NewMessageBubble(reply, theme)
	bubble.SetWidth(80)
	if !strings.Contains(bubble.View(), "assistant") {
		t.Error("assistant bubble missing role header")
	}
}

func TestMessageBubbleToolChips(t *testing.T) {
	theme := styles.NewTheme()

	msg := model.NewAssistantPlaceholder()
	msg.AppendContent("done")
	msg.Finalize([]string{"search_docs", "rerank"})

	bubble := NewMessageBubble(msg, theme)
	bubble.SetWidth(80)
	out := bubble.View()
	if !strings.Contains(out, "search_docs") || !strings.Contains(out, "rerank") {
		t.Errorf("tool chips missing from %q", out)
	}
}

// =============================================================================
// STATUS BAR
// =============================================================================

func TestStatusBarLayouts(t *testing.T) {
	theme := styles.NewTheme()

	tests := []struct {
		name     string
		width    int
		contains []string
		excludes []string
	}{
		{
			name:     "narrow keeps only mode and health",
			width:    50,
			contains: []string{"RAG"},
			excludes: []string{"guest", "sessions"},
		},
		{
			name:     "medium adds identity",
			width:    80,
			contains: []string{"RAG", "guest"},
			excludes: []string{"sessions"},
		},
		{
			name:     "wide adds shortcuts",
			width:    120,
			contains: []string{"RAG", "guest", "sessions"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			theme.SetSize(tt.width, 30)
			sb := NewStatusBar(theme)
			sb.SetWidth(tt.width)

			out := sb.View()
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("width %d: missing %q in %q", tt.width, want, out)
				}
			}
			for _, not := range tt.excludes {
				if strings.Contains(out, not) {
					t.Errorf("width %d: unexpected %q", tt.width, not)
				}
			}
		})
	}
}

func TestStatusBarHealthIndicator(t *testing.T) {
	theme := styles.NewTheme()
	theme.SetSize(120, 30)
	sb := NewStatusBar(theme)
	sb.SetWidth(120)

	sb.Health = HealthOK
	if !strings.Contains(sb.View(), "online") {
		t.Error("healthy backend should read online")
	}
	sb.Health = HealthDown
	if !strings.Contains(sb.View(), "offline") {
		t.Error("unreachable backend should read offline")
	}
}

func TestStatusBarIdentity(t *testing.T) {
	theme := styles.NewTheme()
	theme.SetSize(100, 30)
	sb := NewStatusBar(theme)
	sb.SetWidth(100)
	sb.Identity = "ana@example.com"

	if !strings.Contains(sb.View(), "ana@example.com") {
		t.Error("signed-in identity should replace guest label")
	}
}

// =============================================================================
// SESSION LIST
// =============================================================================

func sampleSessions(n int) []*model.Session {
	out := make([]*model.Session, 0, n)
	for i := 0; i < n; i++ {
		s := model.NewSession()
		s.Title = "Session " + string(rune('A'+i))
		s.MessageCount = i * 2
		out = append(out, &s)
	}
	return out
}

func TestSessionListCursor(t *testing.T) {
	sl := NewSessionList(styles.NewTheme())
	sl.SetSessions(sampleSessions(3))

	sl.MoveUp()
	if sl.Cursor != 0 {
		t.Errorf("cursor moved above top: %d", sl.Cursor)
	}

	sl.MoveDown()
	sl.MoveDown()
	sl.MoveDown() // clamped at last entry
	if sl.Cursor != 2 {
		t.Errorf("cursor = %d, want 2", sl.Cursor)
	}

	sel := sl.Selected()
	if sel == nil || sel.Title != "Session C" {
		t.Errorf("Selected() = %+v", sel)
	}
}

func TestSessionListCursorClampAfterShrink(t *testing.T) {
	sl := NewSessionList(styles.NewTheme())
	sl.SetSessions(sampleSessions(5))
	sl.Cursor = 4

	sl.SetSessions(sampleSessions(2))
	if sl.Cursor != 1 {
		t.Errorf("cursor = %d after shrink, want 1", sl.Cursor)
	}
}

func TestSessionListEmpty(t *testing.T) {
	sl := NewSessionList(styles.NewTheme())
	sl.SetSessions(nil)

	if sl.Selected() != nil {
		t.Error("Selected on empty list should be nil")
	}
	if !strings.Contains(sl.View(), "No saved sessions") {
		t.Error("empty list message missing")
	}
}

func TestFormatSessionAge(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"seconds", now.Add(-30 * time.Second), "just now"},
		{"minutes", now.Add(-5 * time.Minute), "5m ago"},
		{"hours", now.Add(-3 * time.Hour), "3h ago"},
		{"days", now.Add(-48 * time.Hour), "2d ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatSessionAge(tt.t); got != tt.want {
				t.Errorf("formatSessionAge = %q, want %q", got, tt.want)
			}
		})
	}
}
