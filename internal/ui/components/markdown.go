// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"sync"

	"github.com/charmbracelet/glamour"
)

// =============================================================================
// MARKDOWN RENDERER
// =============================================================================

// MarkdownRenderer renders finalized assistant replies as terminal markdown.
// Streaming content skips it: re-rendering a growing document per chunk is
// too slow, so the viewport uses ParseCodeBlocks until the stream settles.
type MarkdownRenderer struct {
	mu       sync.Mutex
	width    int
	renderer *glamour.TermRenderer
}

// NewMarkdownRenderer creates a renderer with the given word-wrap width.
func NewMarkdownRenderer(width int) *MarkdownRenderer {
	m := &MarkdownRenderer{}
	m.SetWidth(width)
	return m
}

// SetWidth rebuilds the renderer for a new wrap width. A failed build leaves
// rendering in plain-text fallback.
func (m *MarkdownRenderer) SetWidth(width int) {
	if width < 20 {
		width = 20
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.renderer != nil && m.width == width {
		return
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		m.renderer = nil
		return
	}
	m.width = width
	m.renderer = r
}

// Render renders markdown content for terminal display. Returns the content
// unchanged when the renderer is unavailable or fails.
func (m *MarkdownRenderer) Render(content string) string {
	m.mu.Lock()
	r := m.renderer
	m.mu.Unlock()

	if r == nil {
		return content
	}
	out, err := r.Render(content)
	if err != nil {
		return content
	}
	return out
}
