// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ragline/ragline-tui/internal/model"
	"github.com/ragline/ragline-tui/internal/ui/styles"
)

// =============================================================================
// SESSION LIST COMPONENT
// =============================================================================

// SessionList renders the session picker overlay. Sessions arrive
// newest first; the cursor selects one for switching or deletion.
type SessionList struct {
	Sessions  []*model.Session
	Cursor    int
	CurrentID string
	Width     int
	Height    int
	theme     *styles.Theme
}

// NewSessionList creates a new session picker.
func NewSessionList(theme *styles.Theme) *SessionList {
	return &SessionList{
		Width:  60,
		Height: 20,
		theme:  theme,
	}
}

// SetSessions replaces the listed sessions and clamps the cursor.
func (sl *SessionList) SetSessions(sessions []*model.Session) {
	sl.Sessions = sessions
	if sl.Cursor >= len(sessions) {
		sl.Cursor = len(sessions) - 1
	}
	if sl.Cursor < 0 {
		sl.Cursor = 0
	}
}

// SetSize sets the overlay dimensions.
func (sl *SessionList) SetSize(width, height int) {
	sl.Width = width
	sl.Height = height
}

// MoveUp moves the cursor up one entry.
func (sl *SessionList) MoveUp() {
	if sl.Cursor > 0 {
		sl.Cursor--
	}
}

// MoveDown moves the cursor down one entry.
func (sl *SessionList) MoveDown() {
	if sl.Cursor < len(sl.Sessions)-1 {
		sl.Cursor++
	}
}

// Selected returns the session under the cursor, or nil.
func (sl *SessionList) Selected() *model.Session {
	if sl.Cursor < 0 || sl.Cursor >= len(sl.Sessions) {
		return nil
	}
	return sl.Sessions[sl.Cursor]
}

// View renders the overlay.
func (sl *SessionList) View() string {
	title := lipgloss.NewStyle().
		Foreground(styles.Teal).
		Bold(true).
		Render("Sessions")

	var rows []string
	rows = append(rows, title, "")

	if len(sl.Sessions) == 0 {
		rows = append(rows, sl.theme.SessionMeta.Render("No saved sessions."))
	}

	// Leave room for title, hint line and the box frame.
	visible := sl.Height - 6
	if visible < 3 {
		visible = 3
	}
	start := 0
	if sl.Cursor >= visible {
		start = sl.Cursor - visible + 1
	}
	end := start + visible
	if end > len(sl.Sessions) {
		end = len(sl.Sessions)
	}

	for i := start; i < end; i++ {
		rows = append(rows, sl.renderItem(i))
	}

	rows = append(rows, "",
		sl.theme.SessionMeta.Render("enter switch  d delete  esc close"))

	content := strings.Join(rows, "\n")
	return sl.theme.SessionList.Width(sl.Width - 4).Render(content)
}

func (sl *SessionList) renderItem(i int) string {
	sess := sl.Sessions[i]

	marker := "  "
	if sess.ID == sl.CurrentID {
		marker = styles.StatusIndicators.Success + " "
	}

	title := sess.Title
	if title == "" {
		title = "New chat"
	}
	title = truncate(title, sl.Width-24)

	meta := formatSessionAge(sess.UpdatedAt)
	if sess.MessageCount > 0 {
		meta += " - " + strconv.Itoa(sess.MessageCount) + " msgs"
	}

	line := marker + sl.theme.SessionTitle.Render(title) + "  " + sl.theme.SessionMeta.Render(meta)
	if i == sl.Cursor {
		return sl.theme.SessionItemSelected.Width(sl.Width - 8).Render(line)
	}
	return sl.theme.SessionItem.Render(line)
}

// formatSessionAge renders an elapsed-time label for the session list.
func formatSessionAge(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return strconv.Itoa(int(d.Minutes())) + "m ago"
	case d < 24*time.Hour:
		return strconv.Itoa(int(d.Hours())) + "h ago"
	case d < 7*24*time.Hour:
		return strconv.Itoa(int(d.Hours()/24)) + "d ago"
	default:
		return t.Format("Jan 2")
	}
}
