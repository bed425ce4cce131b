// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tellama/internal/ui/styles"
)

// =============================================================================
// SPINNER COMPONENT
// =============================================================================

// asciiSpinner renders on any terminal, including ones without Unicode.
var asciiSpinner = spinner.Spinner{
	Frames: []string{"|", "/", "-", "\\"},
	FPS:    time.Second / 10,
}

// Spinner wraps the bubbles spinner with a label and an elapsed timer. It is
// shown while waiting for the first token of a response.
type Spinner struct {
	spinner spinner.Model
	Message string
	Active  bool

	startedAt time.Time
	theme     *styles.Theme
}

// NewSpinner creates a new inactive spinner.
func NewSpinner(theme *styles.Theme) *Spinner {
	sp := spinner.New()
	sp.Spinner = asciiSpinner
	sp.Style = lipgloss.NewStyle().Foreground(styles.Purple)

	return &Spinner{
		spinner: sp,
		Message: "Thinking",
		theme:   theme,
	}
}

// Start activates the spinner with the given message and returns the tick
// command that keeps it animating.
func (s *Spinner) Start(message string) tea.Cmd {
	if message != "" {
		s.Message = message
	}
	s.Active = true
	s.startedAt = time.Now()
	return s.spinner.Tick
}

// Stop deactivates the spinner.
func (s *Spinner) Stop() {
	s.Active = false
}

// Update advances the spinner animation.
func (s *Spinner) Update(msg tea.Msg) tea.Cmd {
	if !s.Active {
		return nil
	}

	var cmd tea.Cmd
	s.spinner, cmd = s.spinner.Update(msg)
	return cmd
}

// Elapsed returns how long the spinner has been active.
func (s *Spinner) Elapsed() time.Duration {
	if !s.Active {
		return 0
	}
	return time.Since(s.startedAt)
}

// View renders the spinner line, or an empty string when inactive.
func (s *Spinner) View() string {
	if !s.Active {
		return ""
	}

	line := s.spinner.View() + " " +
		s.theme.ThinkingText.Render(s.Message+"...")

	if elapsed := s.Elapsed(); elapsed >= 2*time.Second {
		line += " " + s.theme.Timestamp.Render("("+formatElapsed(elapsed)+")")
	}

	return line
}

// formatElapsed formats a duration as seconds with one decimal below a
// minute, and m:ss above.
func formatElapsed(d time.Duration) string {
	if d < time.Minute {
		secs := d.Seconds()
		whole := int(secs)
		tenths := int(secs*10) % 10
		return formatInt(whole) + "." + formatInt(tenths) + "s"
	}

	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	out := formatInt(mins) + "m"
	if secs > 0 {
		out += formatInt(secs) + "s"
	}
	return out
}
