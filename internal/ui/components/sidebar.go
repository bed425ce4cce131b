// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"time"

	"tellama/internal/model"
	"tellama/internal/ui/styles"
)

// =============================================================================
// SIDEBAR COMPONENT
// =============================================================================

// Sidebar renders the chat list panel shown in wide layouts.
type Sidebar struct {
	Chats    []model.ChatMeta
	Selected int
	Width    int
	Height   int

	theme *styles.Theme
}

// NewSidebar creates a new Sidebar component.
func NewSidebar(theme *styles.Theme) *Sidebar {
	return &Sidebar{
		Width:  28,
		Height: 20,
		theme:  theme,
	}
}

// SetSize updates the sidebar dimensions.
func (s *Sidebar) SetSize(width, height int) {
	s.Width = width
	s.Height = height
}

// SetChats replaces the chat list and clamps the selection.
func (s *Sidebar) SetChats(chats []model.ChatMeta, selected int) {
	s.Chats = chats
	if selected < 0 {
		selected = 0
	}
	if selected >= len(chats) {
		selected = len(chats) - 1
	}
	s.Selected = selected
}

// View renders the sidebar.
func (s *Sidebar) View() string {
	var b strings.Builder

	b.WriteString(s.theme.SidebarTitle.Render("Chats"))
	b.WriteString("\n\n")

	if len(s.Chats) == 0 {
		b.WriteString(s.theme.ChatItemMeta.Render("No saved chats"))
		return s.theme.Sidebar.Width(s.Width).Height(s.Height).Render(b.String())
	}

	// Title row plus blank line above the list.
	visible := s.Height - 3
	if visible < 1 {
		visible = 1
	}

	start := 0
	if s.Selected >= visible {
		start = s.Selected - visible + 1
	}
	end := start + visible
	if end > len(s.Chats) {
		end = len(s.Chats)
	}

	innerWidth := s.Width - 4
	if innerWidth < 8 {
		innerWidth = 8
	}

	for i := start; i < end; i++ {
		meta := s.Chats[i]
		title := meta.Title
		if title == "" {
			title = "New Chat"
		}
		title = truncateTitle(title, innerWidth)

		line := title
		if i == s.Selected {
			b.WriteString(s.theme.ChatItemSelected.Render(line))
		} else {
			b.WriteString(s.theme.ChatItem.Render(line))
		}
		b.WriteString("\n")
	}

	if s.Selected >= 0 && s.Selected < len(s.Chats) {
		meta := s.Chats[s.Selected]
		b.WriteString("\n")
		b.WriteString(s.theme.ChatItemMeta.Render(
			formatInt(meta.MessageCount) + " msgs " + relativeTime(meta.UpdatedAt)))
	}

	return s.theme.Sidebar.Width(s.Width).Height(s.Height).Render(b.String())
}

// truncateTitle truncates a chat title for the sidebar width.
func truncateTitle(title string, maxLen int) string {
	runes := []rune(title)
	if len(runes) <= maxLen {
		return title
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// relativeTime formats a timestamp as a short relative age.
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}

	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return formatInt(int(d.Minutes())) + "m ago"
	case d < 24*time.Hour:
		return formatInt(int(d.Hours())) + "h ago"
	case d < 7*24*time.Hour:
		return formatInt(int(d.Hours()/24)) + "d ago"
	default:
		return t.Format("Jan 2")
	}
}
