// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// VIEW
// =============================================================================

// View renders the full chat screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "\n  starting..."
	}

	body := m.viewport.View()
	if m.showSessions {
		body = m.overlayArea(m.sessionList.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderInput(),
		m.statusBar.View(),
	)
}

// renderHeader renders the title row: app name plus session title.
func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("ragline")
	subtitle := m.theme.HeaderSubtitle.Render(" / " + m.sessionTitle())
	return m.theme.Header.Width(m.width).Render(title + subtitle)
}

// renderInput renders the input line, with the spinner while streaming.
func (m Model) renderInput() string {
	line := m.input.View()
	if m.state == StateStreaming {
		line = m.spinner.View() + " " + m.theme.ThinkingText.Render("thinking... (esc to stop)")
	}
	return m.theme.InputContainer.Width(m.width - 2).Render(line)
}

// newViewport builds the scrollback viewport.
func newViewport(width, height int) viewport.Model {
	vp := viewport.New(width, height)
	vp.MouseWheelEnabled = true
	return vp
}
