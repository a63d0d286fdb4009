// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/ragline/ragline-tui/internal/model"
	"github.com/ragline/ragline-tui/internal/store"
)

// =============================================================================
// MESSAGES - Bubble Tea message types
// =============================================================================

// RefreshMsg asks the model to re-pull its snapshot from the store. The
// store's OnChange callback sends one through the running program.
type RefreshMsg struct{}

// NoticeMsg carries a user-facing notice from the store or a command.
type NoticeMsg struct {
	Level store.NotifyLevel
	Text  string
}

// noticeExpiredMsg clears a transient notice after its display window.
type noticeExpiredMsg struct {
	seq int
}

// sendDoneMsg reports that a blocking send or regenerate finished.
type sendDoneMsg struct {
	err error
}

// sessionsLoadedMsg reports the result of a session list refresh.
type sessionsLoadedMsg struct {
	err error
}

// healthMsg carries the result of a backend health probe.
type healthMsg struct {
	ok bool
}

// identityMsg carries the signed-in user after a profile fetch.
type identityMsg struct {
	user *model.User
}

// switchedSessionMsg reports the result of a session switch or delete.
type switchedSessionMsg struct {
	err error
}

// toolsLoadedMsg reports the result of a tool-server list refresh.
type toolsLoadedMsg struct {
	err error
}
