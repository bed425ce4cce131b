// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"tellama/internal/model"
	"tellama/internal/ui/styles"
)

// Reserved rows outside the viewport: header, input separator, input line,
// status bar.
const (
	headerHeight  = 1
	inputHeight   = 2
	statusHeight  = 1
	sidebarWidth  = 30
	minimumWidth  = 20
	minimumHeight = 6
)

// =============================================================================
// LAYOUT
// =============================================================================

// layout recomputes component dimensions after a resize or sidebar toggle.
func (m *Model) layout() {
	contentWidth := m.width
	if m.sidebarVisible() {
		contentWidth -= sidebarWidth
	}
	if contentWidth < minimumWidth {
		contentWidth = minimumWidth
	}

	viewportHeight := m.height - headerHeight - inputHeight - statusHeight
	if viewportHeight < 1 {
		viewportHeight = 1
	}

	m.viewport.Width = contentWidth
	m.viewport.Height = viewportHeight

	inputWidth := contentWidth - 6
	if inputWidth < 10 {
		inputWidth = 10
	}
	m.input.Width = inputWidth

	m.statusBar.SetWidth(m.width)
	m.sidebar.SetSize(sidebarWidth, viewportHeight+headerHeight+inputHeight)
}

// sidebarVisible reports whether the sidebar fits and is enabled.
func (m *Model) sidebarVisible() bool {
	return m.showSidebar && m.theme.GetLayoutMode() == styles.LayoutWide
}

// =============================================================================
// MARKDOWN RENDERER
// =============================================================================

// markdownEnabled reports whether assistant messages render as markdown.
func (m *Model) markdownEnabled() bool {
	return m.cfg == nil || m.cfg.UI.MarkdownRendering
}

// invalidateRenderer drops the cached glamour renderer so the next render
// rebuilds it with current width and theme.
func (m *Model) invalidateRenderer() {
	m.renderer = nil
	m.rendererWidth = 0
}

func (m *Model) markdownRenderer() *glamour.TermRenderer {
	width := m.viewport.Width - 4
	if width < 20 {
		width = 20
	}
	if m.renderer != nil && m.rendererWidth == width {
		return m.renderer
	}

	styleOpt := glamour.WithAutoStyle()
	if m.cfg != nil {
		switch m.cfg.UI.Theme {
		case "dark":
			styleOpt = glamour.WithStandardStyle("dark")
		case "light":
			styleOpt = glamour.WithStandardStyle("light")
		}
	}

	renderer, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return nil
	}
	m.renderer = renderer
	m.rendererWidth = width
	return renderer
}

// =============================================================================
// RENDER
// =============================================================================

func (m *Model) render() string {
	if m.width < minimumWidth || m.height < minimumHeight {
		return "Terminal too small"
	}

	main := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderInput(),
	)

	if m.sidebarVisible() {
		main = lipgloss.JoinHorizontal(lipgloss.Top, m.sidebar.View(), main)
	}

	view := lipgloss.JoinVertical(lipgloss.Left, main, m.statusBar.View())

	if overlay := m.renderOverlay(); overlay != "" {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, overlay)
	}
	return view
}

func (m *Model) renderHeader() string {
	chat := m.active().Chat
	title := chat.GetTitle()

	header := m.theme.HeaderTitle.Render("tellama")
	if title != "" && title != "New Chat" {
		header += m.theme.HeaderSubtitle.Render("  " + title)
	}
	return m.theme.Header.Width(m.viewport.Width).Render(header)
}

func (m *Model) renderInput() string {
	var b strings.Builder

	if m.completions.Visible {
		b.WriteString(m.renderCompletions())
		b.WriteString("\n")
	}

	b.WriteString(m.theme.InputContainer.Width(m.viewport.Width).Render(m.input.View()))

	if len(m.pendingImages) > 0 {
		names := make([]string, len(m.pendingImages))
		for i, img := range m.pendingImages {
			names[i] = img.Name()
		}
		b.WriteString("\n")
		b.WriteString(m.theme.Attachment.Render("Attached: " + strings.Join(names, ", ")))
	}

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(m.theme.Timestamp.Render(m.statusMsg))
	}

	return b.String()
}

func (m *Model) renderCompletions() string {
	var lines []string
	shown := 0
	for i, comp := range m.completions.Completions {
		if shown >= 8 {
			break
		}
		shown++

		label := comp.Display
		if label == "" {
			label = comp.Value
		}
		if comp.Description != "" {
			label += "  " + comp.Description
		}

		if i == m.completions.Selected {
			lines = append(lines, m.theme.CompletionSelected.Render(label))
		} else {
			lines = append(lines, m.theme.CompletionItem.Render(label))
		}
	}
	return m.theme.CompletionPopup.Render(strings.Join(lines, "\n"))
}

// =============================================================================
// OVERLAYS
// =============================================================================

func (m *Model) renderOverlay() string {
	if m.showHelp {
		return m.theme.WelcomeBox.Render(m.helpText + "\n\n" +
			m.theme.Timestamp.Render("esc to close"))
	}
	if m.lastError != nil {
		var b strings.Builder
		b.WriteString(m.theme.ErrorTitle.Render(m.lastError.Title))
		b.WriteString("\n\n")
		b.WriteString(m.theme.ErrorMessage.Render(m.lastError.Message))
		if m.lastError.Tip != "" {
			b.WriteString("\n\n")
			b.WriteString(m.theme.ErrorTip.Render(m.lastError.Tip))
		}
		b.WriteString("\n\n")
		b.WriteString(m.theme.Timestamp.Render("esc to dismiss"))
		return m.theme.ErrorBox.Render(b.String())
	}
	if m.notice != "" {
		return m.theme.CompletionPopup.Render(m.notice + "\n\n" +
			m.theme.Timestamp.Render("esc to close"))
	}
	return ""
}

// =============================================================================
// TRANSCRIPT
// =============================================================================

// refreshViewport re-renders the active chat into the viewport.
func (m *Model) refreshViewport() {
	m.viewport.SetContent(m.renderMessages())
}

func (m *Model) renderMessages() string {
	chat := m.active().Chat

	if chat.IsEmpty() {
		return m.renderWelcome()
	}

	var b strings.Builder
	for i, msg := range chat.Messages {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}

	if m.spinner.Active {
		b.WriteString("\n")
		b.WriteString(m.spinner.View())
		b.WriteString("\n")
	}

	return b.String()
}

func (m *Model) renderMessage(msg *model.Message) string {
	label := m.theme.RoleLabel.Render(msg.Role.DisplayName()) + " " +
		m.theme.Timestamp.Render(msg.Timestamp.Format("15:04"))

	content := msg.DisplayContent()

	// Assistant markdown goes through glamour; everything else is plain.
	if msg.Role == model.RoleAssistant && !msg.IsStreaming && m.markdownEnabled() {
		if renderer := m.markdownRenderer(); renderer != nil {
			if rendered, err := renderer.Render(content); err == nil {
				content = strings.TrimRight(rendered, "\n")
			}
		}
	}

	bubble := m.bubbleFor(msg)
	width := m.viewport.Width - 4
	if width > 20 {
		bubble = bubble.Width(width)
	}
	body := bubble.Render(content)

	parts := []string{label, body}

	if len(msg.Images) > 0 {
		names := make([]string, len(msg.Images))
		for i, img := range msg.Images {
			names[i] = img.Name()
		}
		parts = append(parts, m.theme.Attachment.Render("Attached: "+strings.Join(names, ", ")))
	}

	if msg.Failed {
		parts = append(parts, m.theme.ErrorMessage.Render(styles.StatusIndicators.Error+" generation failed"))
	}

	if m.showStats() && msg.Role == model.RoleAssistant && !msg.IsStreaming && !msg.Failed {
		if stats := msg.FormatStats(); stats != "" {
			parts = append(parts, m.theme.StatsBar.Render(stats))
		}
	}

	return strings.Join(parts, "\n")
}

func (m *Model) bubbleFor(msg *model.Message) lipgloss.Style {
	if msg.Failed {
		return m.theme.FailedBubble
	}
	switch msg.Role {
	case model.RoleUser:
		return m.theme.UserBubble
	case model.RoleSystem:
		return m.theme.SystemBubble
	default:
		return m.theme.AssistantBubble
	}
}

func (m *Model) showStats() bool {
	return m.cfg == nil || m.cfg.UI.ShowStats
}

func (m *Model) renderWelcome() string {
	var b strings.Builder
	b.WriteString(m.theme.WelcomeLogo.Render("tellama"))
	b.WriteString("\n\n")
	b.WriteString(m.theme.WelcomeInfo.Render("Chat with local models over Ollama."))
	b.WriteString("\n\n")
	b.WriteString(m.theme.WelcomeInfo.Render("Type a message to start, or try:"))
	b.WriteString("\n")
	b.WriteString(m.theme.WelcomeInfo.Render("  /models   list installed models"))
	b.WriteString("\n")
	b.WriteString(m.theme.WelcomeInfo.Render("  /help     all commands"))

	if !m.connected {
		b.WriteString("\n\n")
		b.WriteString(styles.RenderWarning("Server not reachable. Start it with: ollama serve"))
	}

	return lipgloss.Place(m.viewport.Width, m.viewport.Height,
		lipgloss.Center, lipgloss.Center, b.String())
}
