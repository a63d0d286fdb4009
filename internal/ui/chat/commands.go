// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// parseCommand splits a slash-command line into its name and argument.
// The leading slash is stripped and the name lowercased; the argument
// keeps its internal spacing.
func parseCommand(line string) (name, arg string) {
	line = strings.TrimPrefix(strings.TrimSpace(line), "/")
	name, arg, _ = strings.Cut(line, " ")
	return strings.ToLower(name), strings.TrimSpace(arg)
}

// validModes are the chat modes the backend accepts.
var validModes = map[string]bool{
	"rag":    true,
	"direct": true,
	"agent":  true,
}

// runCommand executes a slash command typed into the input line.
func (m Model) runCommand(line string) (tea.Model, tea.Cmd) {
	name, arg := parseCommand(line)

	switch name {
	case "new":
		if m.state == StateStreaming {
			return m, m.noticeCmd("still streaming; esc to stop first")
		}
		m.store.NewSession()
		m.syncFromStore()
		return m, nil

	case "sessions":
		m.showSessions = true
		m.syncFromStore()
		return m, m.loadSessionsCmd()

	case "mode":
		if arg == "" {
			return m, m.noticeCmd("mode is " + m.store.Mode() + " (rag, direct, agent)")
		}
		if !validModes[arg] {
			return m, m.noticeCmd("unknown mode " + arg + "; use rag, direct or agent")
		}
		m.store.SetMode(arg)
		m.syncFromStore()
		return m, m.noticeCmd("mode set to " + arg)

	case "collection":
		m.store.SetCollection(arg)
		if arg == "" {
			return m, m.noticeCmd("collection cleared")
		}
		return m, m.noticeCmd("collection set to " + arg)

	case "regen", "regenerate":
		if m.state == StateStreaming {
			return m, m.noticeCmd("still streaming; esc to stop first")
		}
		return m, tea.Batch(m.regenerateCmd(), m.spinner.Tick)

	case "delete":
		id := arg
		if id == "" {
			id = m.store.CurrentSession().ID
		}
		return m, m.deleteSessionCmd(id)

	case "tools":
		return m, m.loadToolsCmd()

	case "help":
		return m, m.noticeCmd("/new /sessions /mode /collection /tools /regen /delete /quit")

	case "quit", "exit":
		m.store.CancelStreaming()
		m.quitting = true
		return m, tea.Quit

	default:
		return m, m.noticeCmd("unknown command /" + name)
	}
}
