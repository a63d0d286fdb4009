// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a session.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content. Append-only while the owning stream is active, immutable
	// after the stream terminates.
	Content string `json:"content"`

	// ToolsUsed lists tool names reported by the backend for this turn,
	// in invocation order.
	ToolsUsed []string `json:"tools_used,omitempty"`

	// Streaming state (not persisted).
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	IsStreaming   bool            `json:"-"`
	streamContent strings.Builder `json:"-"`
}

// NewMessage creates a new message with a generated ID.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        generateMessageID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantPlaceholder creates an empty assistant message that will be
// filled incrementally by a stream.
func NewAssistantPlaceholder() *Message {
	return &Message{
		ID:          generateMessageID(),
		Role:        RoleAssistant,
		Timestamp:   time.Now(),
		IsStreaming: true,
	}
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// AppendContent appends a streamed content fragment. No-op once the
// message has been finalized.
func (m *Message) AppendContent(fragment string) {
	if m.IsStreaming {
		m.streamContent.WriteString(fragment)
	}
}

// RecordTool appends a tool-invocation notice to the message, preserving
// invocation order.
func (m *Message) RecordTool(name string) {
	if m.IsStreaming && name != "" {
		m.ToolsUsed = append(m.ToolsUsed, name)
	}
}

// Finalize completes streaming, merging accumulated content and attaching
// the backend-reported tool list when provided.
func (m *Message) Finalize(toolsUsed []string) {
	if !m.IsStreaming {
		return
	}
	m.Content = m.streamContent.String()
	m.streamContent.Reset()
	m.IsStreaming = false

	if len(toolsUsed) > 0 {
		m.ToolsUsed = toolsUsed
	}
}

// DisplayContent returns the content to display (streaming or final).
func (m *Message) DisplayContent() string {
	if m.IsStreaming {
		return m.streamContent.String()
	}
	return m.Content
}

// IsEmpty returns true if the message has no content, streamed or final.
// An assistant message that is still empty when its stream terminates is
// invalid and must be pruned, never persisted.
func (m *Message) IsEmpty() bool {
	return len(m.Content) == 0 && m.streamContent.Len() == 0
}

// Preview returns a truncated single-line preview of the message content.
// Uses rune-based truncation to handle Unicode correctly.
func (m *Message) Preview(maxLen int) string {
	content := strings.ReplaceAll(m.DisplayContent(), "\n", " ")
	runes := []rune(content)
	if len(runes) <= maxLen {
		return content
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// Clone returns a deep copy of the finalized message state. The streaming
// builder is not carried over; clones are always final.
func (m *Message) Clone() *Message {
	c := &Message{
		ID:        m.ID,
		Role:      m.Role,
		Timestamp: m.Timestamp,
		Content:   m.DisplayContent(),
	}
	if len(m.ToolsUsed) > 0 {
		c.ToolsUsed = append([]string(nil), m.ToolsUsed...)
	}
	return c
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateMessageID creates a unique message ID.
func generateMessageID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return "msg_" + hex.EncodeToString(bytes)
}
