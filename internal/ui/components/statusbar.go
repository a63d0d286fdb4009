// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ragline/ragline-tui/internal/ui/styles"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// Health reflects the last known state of the backend connection.
type Health int

const (
	HealthUnknown Health = iota
	HealthOK
	HealthDown
)

// StatusBar renders the bottom status line: chat mode, identity,
// collection, backend health and keyboard shortcuts. It adapts its
// layout to the available width.
type StatusBar struct {
	Mode       string // "rag", "direct" or "agent"
	Identity   string // signed-in email, or "" for guest
	Collection string
	Health     Health
	Streaming  bool
	Notice     string
	Width      int
	theme      *styles.Theme
}

// NewStatusBar creates a new status bar.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{
		Mode:  "rag",
		Width: 80,
		theme: theme,
	}
}

// SetWidth sets the bar width.
func (sb *StatusBar) SetWidth(width int) {
	sb.Width = width
}

// View renders the status bar for the current width.
func (sb *StatusBar) View() string {
	switch sb.theme.GetLayoutMode() {
	case styles.LayoutNarrow:
		return sb.viewNarrow()
	case styles.LayoutMedium:
		return sb.viewMedium()
	default:
		return sb.viewWide()
	}
}

// viewNarrow shows just the mode badge and health.
func (sb *StatusBar) viewNarrow() string {
	left := sb.modeBadge()
	right := sb.healthIndicator()
	return sb.layout(left, "", right)
}

// viewMedium adds identity and the streaming state.
func (sb *StatusBar) viewMedium() string {
	left := lipgloss.JoinHorizontal(lipgloss.Center, sb.modeBadge(), " ", sb.identityLabel())
	return sb.layout(left, sb.activityLabel(), sb.healthIndicator())
}

// viewWide shows everything, including collection and shortcuts.
func (sb *StatusBar) viewWide() string {
	left := lipgloss.JoinHorizontal(lipgloss.Center,
		sb.modeBadge(), " ", sb.identityLabel(), sb.collectionLabel())
	center := sb.activityLabel()
	right := lipgloss.JoinHorizontal(lipgloss.Center, sb.shortcuts(), " ", sb.healthIndicator())
	return sb.layout(left, center, right)
}

// layout spreads left/center/right segments across the bar width.
func (sb *StatusBar) layout(left, center, right string) string {
	gap := sb.Width - lipgloss.Width(left) - lipgloss.Width(center) - lipgloss.Width(right)
	if gap < 2 {
		gap = 2
	}
	leftPad := gap / 2
	rightPad := gap - leftPad

	line := left + strings.Repeat(" ", leftPad) + center + strings.Repeat(" ", rightPad) + right
	return sb.theme.StatusBar.Width(sb.Width).Render(line)
}

func (sb *StatusBar) modeBadge() string {
	return sb.theme.ModeStyle(sb.Mode).Render(" " + strings.ToUpper(sb.Mode) + " ")
}

func (sb *StatusBar) identityLabel() string {
	style := lipgloss.NewStyle().Foreground(styles.TextSecondary)
	if sb.Identity == "" {
		return style.Render("guest")
	}
	return style.Render(sb.Identity)
}

func (sb *StatusBar) collectionLabel() string {
	if sb.Collection == "" {
		return ""
	}
	return lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Render(" [" + sb.Collection + "]")
}

// activityLabel shows a transient notice, or the streaming state.
func (sb *StatusBar) activityLabel() string {
	if sb.Notice != "" {
		return lipgloss.NewStyle().Foreground(styles.Amber).Render(truncate(sb.Notice, sb.Width/3))
	}
	if sb.Streaming {
		return lipgloss.NewStyle().
			Foreground(styles.Indigo).
			Italic(true).
			Render("streaming...")
	}
	return ""
}

// healthIndicator renders the backend connection state using ASCII
// shapes so it stays readable without color.
func (sb *StatusBar) healthIndicator() string {
	switch sb.Health {
	case HealthOK:
		return lipgloss.NewStyle().Foreground(styles.Emerald).
			Render(styles.StatusIndicators.Success + " online")
	case HealthDown:
		return lipgloss.NewStyle().Foreground(styles.Rose).
			Render(styles.StatusIndicators.Error + " offline")
	default:
		return lipgloss.NewStyle().Foreground(styles.TextMuted).
			Render(styles.StatusIndicators.Pending + " ...")
	}
}

func (sb *StatusBar) shortcuts() string {
	key := sb.theme.ShortcutKey
	desc := sb.theme.ShortcutDesc
	return strings.Join([]string{
		key.Render("^N") + desc.Render(" new"),
		key.Render("^S") + desc.Render(" sessions"),
		key.Render("esc") + desc.Render(" stop"),
	}, "  ")
}

// truncate shortens s to max runes with an ellipsis.
func truncate(s string, max int) string {
	if max < 4 {
		max = 4
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
