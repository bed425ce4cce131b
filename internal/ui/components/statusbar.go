// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"tellama/internal/ui/styles"
)

// =============================================================================
// STATUS BAR COMPONENT
// =============================================================================

// Status represents the current application status.
type Status int

const (
	StatusReady Status = iota
	StatusSending
	StatusStreaming
	StatusSpeaking
	StatusError
)

// String returns the display string for the status.
func (s Status) String() string {
	switch s {
	case StatusReady:
		return "Ready"
	case StatusSending:
		return "Sending..."
	case StatusStreaming:
		return "Streaming..."
	case StatusSpeaking:
		return "Speaking..."
	case StatusError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Icon returns a shape indicator for the status.
func (s Status) Icon() string {
	switch s {
	case StatusReady:
		return styles.StatusIndicators.Success
	case StatusSending:
		return styles.StatusIndicators.Pending
	case StatusStreaming:
		return "~"
	case StatusSpeaking:
		return ")"
	case StatusError:
		return styles.StatusIndicators.Error
	default:
		return "?"
	}
}

// StatusBar is the bottom status bar showing model, connection, context
// usage, and the current activity.
type StatusBar struct {
	ModelName  string // Current model
	Connected  bool   // Server reachability
	TokenCount int    // Tokens used in current context
	MaxTokens  int    // Maximum context tokens
	Status     Status // Current status
	Width      int    // Available width
	ChatCount  int    // Number of open chats
	ChatIndex  int    // Active chat index (0-based)

	ShowShortcuts bool

	theme *styles.Theme
}

// NewStatusBar creates a new StatusBar component.
func NewStatusBar(theme *styles.Theme) *StatusBar {
	return &StatusBar{
		MaxTokens:     8192,
		Status:        StatusReady,
		Width:         80,
		ShowShortcuts: true,
		theme:         theme,
	}
}

// SetWidth updates the status bar width.
func (s *StatusBar) SetWidth(width int) {
	s.Width = width
}

// SetTokenUsage updates the token count display.
func (s *StatusBar) SetTokenUsage(used, max int) {
	s.TokenCount = used
	if max > 0 {
		s.MaxTokens = max
	}
}

// SetStatus updates the current status.
func (s *StatusBar) SetStatus(status Status) {
	s.Status = status
}

// SetModel updates the model name.
func (s *StatusBar) SetModel(name string) {
	s.ModelName = name
}

// SetConnected updates the server reachability indicator.
func (s *StatusBar) SetConnected(connected bool) {
	s.Connected = connected
}

// SetChatPosition updates the active chat indicator.
func (s *StatusBar) SetChatPosition(index, count int) {
	s.ChatIndex = index
	s.ChatCount = count
}

// View renders the status bar.
func (s *StatusBar) View() string {
	if s.Width < 60 {
		return s.viewNarrow()
	}
	return s.viewWide()
}

// viewNarrow renders a compact status bar for narrow terminals.
// Format: [OK] model ###--- status
func (s *StatusBar) viewNarrow() string {
	parts := []string{}

	parts = append(parts, s.connectionStyle().Render(s.connectionIcon()))

	if s.ModelName != "" {
		parts = append(parts, truncateModel(s.ModelName, 12))
	}

	parts = append(parts, s.renderContextBar(6))
	parts = append(parts, s.statusStyle().Render(s.Status.Icon()))

	return lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		Foreground(styles.TextSecondary).
		Width(s.Width).
		Render(strings.Join(parts, " "))
}

// viewWide renders the full status bar.
// Format: [OK] llama3.2 | chat 2/3 | Ctx: [####------] 2,048/8,192 | Ready  ^C stop
func (s *StatusBar) viewWide() string {
	separator := lipgloss.NewStyle().
		Foreground(styles.Overlay).
		Render(" | ")

	leftParts := []string{}

	conn := s.connectionStyle().Render(s.connectionIcon())
	if s.ModelName != "" {
		leftParts = append(leftParts, conn+" "+truncateModel(s.ModelName, 24))
	} else {
		leftParts = append(leftParts, conn)
	}

	if s.ChatCount > 1 {
		chatPos := lipgloss.NewStyle().
			Foreground(styles.TextMuted).
			Render("chat " + formatInt(s.ChatIndex+1) + "/" + formatInt(s.ChatCount))
		leftParts = append(leftParts, chatPos)
	}

	contextLabel := lipgloss.NewStyle().
		Foreground(styles.TextMuted).
		Render("Ctx: ")
	leftParts = append(leftParts, contextLabel+s.renderContextBar(10)+" "+s.renderContextCounts())

	leftParts = append(leftParts, s.statusStyle().Render(s.Status.String()))

	leftSection := strings.Join(leftParts, separator)

	rightSection := ""
	if s.ShowShortcuts {
		rightSection = s.renderShortcuts()
	}

	spacing := s.Width - lipgloss.Width(leftSection) - lipgloss.Width(rightSection) - 2
	if spacing < 1 {
		spacing = 1
	}

	result := leftSection + strings.Repeat(" ", spacing) + rightSection

	return lipgloss.NewStyle().
		Background(styles.SurfaceDim).
		Foreground(styles.TextSecondary).
		Padding(0, 1).
		Width(s.Width).
		Render(result)
}

// =============================================================================
// HELPER RENDER METHODS
// =============================================================================

// renderContextBar renders the context usage bar with the given block count.
func (s *StatusBar) renderContextBar(blocks int) string {
	percent := 0.0
	if s.MaxTokens > 0 {
		percent = float64(s.TokenCount) / float64(s.MaxTokens) * 100
	}

	filled := int(percent / 100 * float64(blocks))
	if filled > blocks {
		filled = blocks
	}
	empty := blocks - filled

	barColor := styles.Cyan
	if percent >= 90 {
		barColor = styles.Rose
	} else if percent >= 75 {
		barColor = styles.Amber
	}

	filledStyle := lipgloss.NewStyle().Foreground(barColor)
	emptyStyle := lipgloss.NewStyle().Foreground(styles.Overlay)

	return "[" + filledStyle.Render(strings.Repeat("#", filled)) +
		emptyStyle.Render(strings.Repeat("-", empty)) + "]"
}

// renderContextCounts renders token usage as used/max.
func (s *StatusBar) renderContextCounts() string {
	percent := 0.0
	if s.MaxTokens > 0 {
		percent = float64(s.TokenCount) / float64(s.MaxTokens) * 100
	}

	color := styles.TextMuted
	if percent >= 90 {
		color = styles.Rose
	} else if percent >= 75 {
		color = styles.Amber
	}

	return lipgloss.NewStyle().Foreground(color).
		Render(formatNumber(s.TokenCount) + "/" + formatNumber(s.MaxTokens))
}

// renderShortcuts renders keyboard shortcut hints.
func (s *StatusBar) renderShortcuts() string {
	keyStyle := lipgloss.NewStyle().
		Foreground(styles.Cyan).
		Bold(true)

	descStyle := lipgloss.NewStyle().
		Foreground(styles.TextMuted)

	shortcuts := []string{
		keyStyle.Render("^C") + descStyle.Render("stop"),
		keyStyle.Render("Tab") + descStyle.Render("complete"),
	}

	return strings.Join(shortcuts, " ")
}

func (s *StatusBar) connectionIcon() string {
	if s.Connected {
		return styles.StatusIndicators.Active
	}
	return styles.StatusIndicators.Error
}

func (s *StatusBar) connectionStyle() lipgloss.Style {
	if s.Connected {
		return lipgloss.NewStyle().Foreground(styles.Emerald).Bold(true)
	}
	return lipgloss.NewStyle().Foreground(styles.Rose).Bold(true)
}

func (s *StatusBar) statusStyle() lipgloss.Style {
	switch s.Status {
	case StatusReady:
		return lipgloss.NewStyle().Foreground(styles.Emerald).Bold(true)
	case StatusSending, StatusStreaming:
		return lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	case StatusSpeaking:
		return lipgloss.NewStyle().Foreground(styles.Purple).Bold(true)
	case StatusError:
		return lipgloss.NewStyle().Foreground(styles.Rose).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(styles.TextMuted)
	}
}

// truncateModel truncates a model name to fit the bar.
func truncateModel(name string, maxLen int) string {
	runes := []rune(name)
	if len(runes) <= maxLen {
		return name
	}
	return string(runes[:maxLen-3]) + "..."
}

// formatNumber formats a number with thousand separators.
func formatNumber(n int) string {
	s := formatInt(n)

	var out strings.Builder
	rem := len(s) % 3
	if rem > 0 {
		out.WriteString(s[:rem])
	}
	for i := rem; i < len(s); i += 3 {
		if out.Len() > 0 {
			out.WriteString(",")
		}
		out.WriteString(s[i : i+3])
	}
	return out.String()
}

// formatInt formats an integer without fmt.
func formatInt(n int) string {
	if n == 0 {
		return "0"
	}

	negative := n < 0
	if negative {
		n = -n
	}

	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}

	if negative {
		return "-" + string(digits)
	}
	return string(digits)
}
