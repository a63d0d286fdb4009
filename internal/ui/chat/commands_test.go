// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/ragline/ragline-tui/internal/api"
	"github.com/ragline/ragline-tui/internal/model"
	"github.com/ragline/ragline-tui/internal/store"
	"github.com/ragline/ragline-tui/internal/ui/styles"
)

// =============================================================================
// FAKES
// =============================================================================

type nullBackend struct{}

func (nullBackend) OpenStream(_ context.Context, _ api.ChatRequest, h api.StreamHandler) (func(), error) {
	go h.OnDone(nil)
	return func() {}, nil
}

func (nullBackend) ListSessions(context.Context) ([]api.SessionInfo, error) { return nil, nil }
func (nullBackend) SessionMessages(context.Context, string) ([]api.SessionMessage, error) {
	return nil, nil
}
func (nullBackend) DeleteSession(context.Context, string) error { return nil }
func (nullBackend) IsAuthenticated() bool                       { return false }
func (nullBackend) Me(context.Context) (*model.User, error)     { return nil, nil }
func (nullBackend) Health(context.Context) (*api.HealthStatus, error) {
	return &api.HealthStatus{Status: "healthy"}, nil
}
func (nullBackend) LLMConfig(context.Context) (*api.LLMConfig, error)     { return nil, nil }
func (nullBackend) ListMCPServers(context.Context) ([]api.MCPServer, error) { return nil, nil }

type nullPersistence struct{}

func (nullPersistence) SaveMessages(string, []*model.Message) error    { return nil }
func (nullPersistence) LoadMessages(string) ([]*model.Message, error)  { return nil, nil }
func (nullPersistence) SaveMeta(*model.Session) error                  { return nil }
func (nullPersistence) ListMeta() ([]*model.Session, error)            { return nil, nil }
func (nullPersistence) Delete(string) error                            { return nil }

func newTestModel() Model {
	st := store.New(nullBackend{}, nullPersistence{}, store.Options{Mode: "rag"})
	return New(st, styles.NewTheme())
}

// =============================================================================
// COMMAND PARSING
// =============================================================================

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantName string
		wantArg  string
	}{
		{"bare command", "/new", "new", ""},
		{"command with arg", "/mode direct", "mode", "direct"},
		{"arg keeps spacing", "/collection my docs", "collection", "my docs"},
		{"case folded", "/MODE agent", "mode", "agent"},
		{"surrounding whitespace", "  /help  ", "help", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, arg := parseCommand(tt.line)
			if name != tt.wantName || arg != tt.wantArg {
				t.Errorf("parseCommand(%q) = (%q, %q), want (%q, %q)",
					tt.line, name, arg, tt.wantName, tt.wantArg)
			}
		})
	}
}

// =============================================================================
// COMMAND EXECUTION
// =============================================================================

func TestRunCommandModeSwitch(t *testing.T) {
	m := newTestModel()

	next, _ := m.runCommand("/mode direct")
	m = next.(Model)

	if got := m.store.Mode(); got != "direct" {
		t.Errorf("mode = %q after /mode direct", got)
	}
	if !strings.Contains(m.statusBar.Notice, "direct") {
		t.Errorf("notice = %q, want mode confirmation", m.statusBar.Notice)
	}
}

func TestRunCommandRejectsUnknownMode(t *testing.T) {
	m := newTestModel()

	next, _ := m.runCommand("/mode turbo")
	m = next.(Model)

	if got := m.store.Mode(); got != "rag" {
		t.Errorf("mode = %q, unknown mode should not apply", got)
	}
	if !strings.Contains(m.statusBar.Notice, "unknown mode") {
		t.Errorf("notice = %q", m.statusBar.Notice)
	}
}

func TestRunCommandUnknownCommand(t *testing.T) {
	m := newTestModel()

	next, _ := m.runCommand("/frobnicate")
	m = next.(Model)

	if !strings.Contains(m.statusBar.Notice, "unknown command /frobnicate") {
		t.Errorf("notice = %q", m.statusBar.Notice)
	}
}

func TestRunCommandNewSession(t *testing.T) {
	m := newTestModel()
	before := m.store.CurrentSession().ID

	next, _ := m.runCommand("/new")
	m = next.(Model)

	if after := m.store.CurrentSession().ID; after == before {
		t.Error("/new should switch to a fresh session")
	}
}

func TestRunCommandCollection(t *testing.T) {
	m := newTestModel()

	next, _ := m.runCommand("/collection handbook")
	m = next.(Model)
	if !strings.Contains(m.statusBar.Notice, "handbook") {
		t.Errorf("notice = %q", m.statusBar.Notice)
	}

	next, _ = m.runCommand("/collection")
	m = next.(Model)
	if !strings.Contains(m.statusBar.Notice, "cleared") {
		t.Errorf("notice = %q", m.statusBar.Notice)
	}
}
