// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the interactive terminal chat view: a Bubble
// Tea model over the conversation store, with a scrollback viewport,
// an input line, a session picker overlay and a status bar.
package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ragline/ragline-tui/internal/store"
	"github.com/ragline/ragline-tui/internal/ui/components"
	"github.com/ragline/ragline-tui/internal/ui/styles"
)

// =============================================================================
// STATE
// =============================================================================

// State represents what the view is currently doing.
type State int

const (
	// StateReady accepts input.
	StateReady State = iota
	// StateStreaming means a reply is arriving; input is held.
	StateStreaming
)

// noticeWindow is how long a transient notice stays in the status bar.
const noticeWindow = 5 * time.Second

// healthInterval is how often the backend is probed while the view runs.
const healthInterval = 30 * time.Second

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat view.
type Model struct {
	store *store.Store
	theme *styles.Theme

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	statusBar   *components.StatusBar
	sessionList *components.SessionList
	messageList *components.MessageList
	markdown    *components.MarkdownRenderer

	state        State
	width        int
	height       int
	ready        bool
	showSessions bool
	identity     string
	noticeSeq    int
	quitting     bool
}

// New creates the chat view over an existing store.
func New(st *store.Store, theme *styles.Theme) Model {
	input := textinput.New()
	input.Placeholder = "Ask the knowledge base..."
	input.Prompt = "> "
	input.CharLimit = 4096
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 30,
	}
	sp.Style = theme.Spinner

	md := components.NewMarkdownRenderer(80)

	ml := components.NewMessageList(theme)
	ml.Markdown = md

	sb := components.NewStatusBar(theme)
	sb.Mode = st.Mode()

	return Model{
		store:       st,
		theme:       theme,
		input:       input,
		spinner:     sp,
		statusBar:   sb,
		sessionList: components.NewSessionList(theme),
		messageList: ml,
		markdown:    md,
	}
}

// Init starts background work: cursor blink, a session list refresh and
// the first health probe.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.loadSessionsCmd(),
		m.checkHealthCmd(),
		m.fetchIdentityCmd(),
	)
}

// =============================================================================
// COMMANDS
// =============================================================================

// sendCmd streams one user message. It blocks inside the command
// goroutine until the stream settles; the store pushes RefreshMsg
// updates through OnChange while it runs.
func (m Model) sendCmd(content string) tea.Cmd {
	st := m.store
	return func() tea.Msg {
		return sendDoneMsg{err: st.SendMessage(context.Background(), content)}
	}
}

// regenerateCmd replays the last exchange.
func (m Model) regenerateCmd() tea.Cmd {
	st := m.store
	return func() tea.Msg {
		return sendDoneMsg{err: st.Regenerate(context.Background(), "")}
	}
}

// loadSessionsCmd refreshes the session list from disk and backend.
func (m Model) loadSessionsCmd() tea.Cmd {
	st := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return sessionsLoadedMsg{err: st.LoadSessions(ctx)}
	}
}

// switchSessionCmd makes another session current.
func (m Model) switchSessionCmd(sessionID string) tea.Cmd {
	st := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return switchedSessionMsg{err: st.SetCurrentSession(ctx, sessionID)}
	}
}

// deleteSessionCmd removes a session locally and, when signed in, on
// the backend.
func (m Model) deleteSessionCmd(sessionID string) tea.Cmd {
	st := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return switchedSessionMsg{err: st.DeleteSession(ctx, sessionID)}
	}
}

// checkHealthCmd probes the backend and schedules itself again.
func (m Model) checkHealthCmd() tea.Cmd {
	st := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.LoadHealth(ctx); err != nil {
			return healthMsg{ok: false}
		}
		h := st.Health()
		return healthMsg{ok: h != nil && h.Healthy()}
	}
}

// rescheduleHealthCmd fires the next probe after healthInterval.
func (m Model) rescheduleHealthCmd() tea.Cmd {
	return tea.Tick(healthInterval, func(time.Time) tea.Msg {
		return m.checkHealthCmd()()
	})
}

// loadToolsCmd refreshes the backend's tool-server list.
func (m Model) loadToolsCmd() tea.Cmd {
	st := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return toolsLoadedMsg{err: st.LoadMCPServers(ctx)}
	}
}

// fetchIdentityCmd resolves the signed-in user for the status bar.
func (m Model) fetchIdentityCmd() tea.Cmd {
	st := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.RefreshUser(ctx); err != nil {
			return identityMsg{}
		}
		return identityMsg{user: st.User()}
	}
}

// noticeCmd shows a transient notice and schedules its expiry.
func (m *Model) noticeCmd(text string) tea.Cmd {
	m.noticeSeq++
	m.statusBar.Notice = text
	seq := m.noticeSeq
	return tea.Tick(noticeWindow, func(time.Time) tea.Msg {
		return noticeExpiredMsg{seq: seq}
	})
}

// =============================================================================
// SNAPSHOT SYNC
// =============================================================================

// syncFromStore pulls the current snapshot into the view components.
func (m *Model) syncFromStore() {
	m.messageList.SetMessages(m.store.Messages())
	m.sessionList.SetSessions(m.store.Sessions())
	m.sessionList.CurrentID = m.store.CurrentSession().ID
	m.statusBar.Mode = m.store.Mode()
	m.statusBar.Streaming = m.store.IsStreaming()

	if m.store.IsStreaming() {
		m.state = StateStreaming
	} else {
		m.state = StateReady
	}

	if m.ready {
		atBottom := m.viewport.AtBottom()
		m.viewport.SetContent(m.messageList.View())
		if atBottom || m.state == StateStreaming {
			m.viewport.GotoBottom()
		}
	}
}

// sessionTitle returns the header title for the current session.
func (m *Model) sessionTitle() string {
	title := m.store.CurrentSession().Title
	if title == "" {
		return "New chat"
	}
	return title
}

// overlayArea centers the session picker over the chat area.
func (m *Model) overlayArea(content string) string {
	return lipgloss.Place(m.width, m.viewport.Height,
		lipgloss.Center, lipgloss.Center, content)
}
