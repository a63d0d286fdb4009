// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "testing"

func TestNewThemeInitializesStyles(t *testing.T) {
	theme := NewTheme()

	if !theme.UserBubble.GetBold() && theme.UserBubble.GetPaddingLeft() == 0 {
		t.Error("user bubble style not initialized")
	}
	if theme.StatusBar.GetPaddingLeft() != 1 {
		t.Errorf("status bar padding = %d", theme.StatusBar.GetPaddingLeft())
	}
	if !theme.SessionItemSelected.GetBold() {
		t.Error("selected session item should be bold")
	}
}

func TestGetLayoutMode(t *testing.T) {
	tests := []struct {
		width int
		want  LayoutMode
	}{
		{40, LayoutNarrow},
		{59, LayoutNarrow},
		{60, LayoutMedium},
		{99, LayoutMedium},
		{100, LayoutWide},
		{200, LayoutWide},
	}

	theme := NewTheme()
	for _, tt := range tests {
		theme.SetSize(tt.width, 24)
		if got := theme.GetLayoutMode(); got != tt.want {
			t.Errorf("width %d: layout = %v, want %v", tt.width, got, tt.want)
		}
	}
}

func TestModeStyleDistinguishesModes(t *testing.T) {
	theme := NewTheme()
	rag := theme.ModeStyle("rag").GetForeground()
	direct := theme.ModeStyle("direct").GetForeground()
	if rag == direct {
		t.Error("rag and direct modes should use distinct colors")
	}
}
