// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// SESSION TYPE
// =============================================================================

// Session holds the metadata for a conversation thread. The message list
// itself lives in the local persistence layer and in the store while the
// session is current.
type Session struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// NewSession creates a session with a generated ID and timestamps set.
func NewSession() Session {
	now := time.Now()
	return Session{
		ID:        uuid.NewString(),
		Title:     "New conversation",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch updates the modification timestamp and message count.
func (s *Session) Touch(messageCount int) {
	s.UpdatedAt = time.Now()
	s.MessageCount = messageCount
}

// TitleFromMessages derives a session title from the first user message.
// Returns the existing title when no user message has content yet.
func (s *Session) TitleFromMessages(messages []*Message) string {
	for _, msg := range messages {
		if msg.Role == RoleUser && !msg.IsEmpty() {
			title := strings.ReplaceAll(msg.DisplayContent(), "\n", " ")
			title = strings.TrimSpace(title)
			runes := []rune(title)
			if len(runes) > 50 {
				title = string(runes[:47]) + "..."
			}
			return title
		}
	}
	return s.Title
}

// =============================================================================
// USER TYPE
// =============================================================================

// User is the authenticated-account snapshot returned by the backend.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role"`
}

// IsAdmin reports whether the account carries an elevated role. The backend
// is the sole enforcer of admin operations; this only drives UI affordances
// and the token-storage tier.
func (u *User) IsAdmin() bool {
	return u != nil && (u.Role == "admin" || u.Role == "superadmin")
}
