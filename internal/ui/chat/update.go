// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ragline/ragline-tui/internal/store"
	"github.com/ragline/ragline-tui/internal/ui/components"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles all incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case RefreshMsg:
		m.syncFromStore()
		return m, nil

	case NoticeMsg:
		return m, m.noticeCmd(msg.Level.String() + ": " + msg.Text)

	case noticeExpiredMsg:
		if msg.seq == m.noticeSeq {
			m.statusBar.Notice = ""
		}
		return m, nil

	case sendDoneMsg:
		m.syncFromStore()
		if msg.err != nil && !errors.Is(msg.err, store.ErrEmptyMessage) {
			return m, m.noticeCmd(msg.err.Error())
		}
		return m, nil

	case sessionsLoadedMsg:
		m.syncFromStore()
		if msg.err != nil {
			return m, m.noticeCmd(msg.err.Error())
		}
		return m, nil

	case switchedSessionMsg:
		m.syncFromStore()
		if msg.err != nil {
			return m, m.noticeCmd(msg.err.Error())
		}
		return m, nil

	case healthMsg:
		if msg.ok {
			m.statusBar.Health = components.HealthOK
		} else {
			m.statusBar.Health = components.HealthDown
		}
		return m, m.rescheduleHealthCmd()

	case toolsLoadedMsg:
		if msg.err != nil {
			return m, m.noticeCmd("could not load tools: " + msg.err.Error())
		}
		servers := m.store.MCPServers()
		if len(servers) == 0 {
			return m, m.noticeCmd("no tool servers configured")
		}
		names := make([]string, 0, len(servers))
		for _, srv := range servers {
			name := srv.Name
			if !srv.Enabled {
				name += " (disabled)"
			}
			names = append(names, name)
		}
		return m, m.noticeCmd("tools: " + strings.Join(names, ", "))

	case identityMsg:
		if msg.user != nil {
			m.identity = msg.user.Email
		} else {
			m.identity = ""
		}
		m.statusBar.Identity = m.identity
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	// Everything else feeds the focused text input.
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// RESIZE
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	// Header (2 rows), input (3 rows with frame), status bar (1 row).
	chromeHeight := 6
	viewportHeight := msg.Height - chromeHeight
	if viewportHeight < 3 {
		viewportHeight = 3
	}

	if !m.ready {
		m.viewport = newViewport(msg.Width, viewportHeight)
		m.ready = true
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = viewportHeight
	}

	m.input.Width = msg.Width - 6
	m.messageList.SetWidth(msg.Width - 2)
	m.markdown.SetWidth(msg.Width - 16)
	m.statusBar.SetWidth(msg.Width)
	m.sessionList.SetSize(minInt(msg.Width-8, 70), viewportHeight)

	m.syncFromStore()
	return m, nil
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showSessions {
		return m.handleSessionListKey(msg)
	}

	switch msg.String() {
	case "ctrl+q":
		m.store.CancelStreaming()
		m.quitting = true
		return m, tea.Quit

	case "ctrl+c":
		if m.state == StateStreaming {
			m.store.CancelStreaming()
			m.syncFromStore()
			return m, nil
		}
		m.quitting = true
		return m, tea.Quit

	case "esc":
		if m.state == StateStreaming {
			m.store.CancelStreaming()
			m.syncFromStore()
		}
		return m, nil

	case "enter":
		return m.handleSubmit()

	case "ctrl+n":
		if m.state == StateStreaming {
			return m, nil
		}
		m.store.NewSession()
		m.syncFromStore()
		return m, nil

	case "ctrl+s":
		m.showSessions = true
		m.syncFromStore()
		return m, m.loadSessionsCmd()

	case "ctrl+r":
		if m.state == StateStreaming {
			return m, nil
		}
		return m, tea.Batch(m.regenerateCmd(), m.spinner.Tick)

	case "pgup", "ctrl+u":
		m.viewport.HalfViewUp()
		return m, nil

	case "pgdown", "ctrl+d":
		m.viewport.HalfViewDown()
		return m, nil

	case "home":
		m.viewport.GotoTop()
		return m, nil

	case "end":
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleSubmit dispatches the input line: slash commands run locally,
// everything else is sent to the backend.
func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	if strings.HasPrefix(text, "/") {
		m.input.Reset()
		return m.runCommand(text)
	}

	if m.state == StateStreaming {
		return m, m.noticeCmd("still streaming; esc to stop")
	}

	m.input.Reset()
	return m, tea.Batch(m.sendCmd(text), m.spinner.Tick)
}

// handleSessionListKey drives the session picker overlay.
func (m Model) handleSessionListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+s", "q":
		m.showSessions = false
		return m, nil

	case "up", "k":
		m.sessionList.MoveUp()
		return m, nil

	case "down", "j":
		m.sessionList.MoveDown()
		return m, nil

	case "enter":
		sel := m.sessionList.Selected()
		m.showSessions = false
		if sel == nil {
			return m, nil
		}
		return m, m.switchSessionCmd(sel.ID)

	case "d", "delete":
		sel := m.sessionList.Selected()
		if sel == nil {
			return m, nil
		}
		return m, m.deleteSessionCmd(sel.ID)

	case "ctrl+c", "ctrl+q":
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
