// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"tellama/internal/model"
)

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// These messages are sent by command handlers to update the application state.

// ShowHelpMsg triggers the help display.
type ShowHelpMsg struct {
	Topic string // Optional topic for specific help
}

// NewChatMsg triggers starting a new chat.
type NewChatMsg struct{}

// SaveChatMsg triggers saving the current chat.
type SaveChatMsg struct {
	Title string // Optional title override
}

// SaveCompleteMsg indicates save completion.
type SaveCompleteMsg struct {
	ID    string
	Title string
	Error error
}

// ChatLoadedMsg contains a loaded chat.
type ChatLoadedMsg struct {
	Chat  *model.Chat
	Error error
}

// ChatListMsg contains the list of saved chats.
type ChatListMsg struct {
	Chats []model.ChatMeta
	Error error
}

// DeleteChatMsg triggers deleting the current chat.
type DeleteChatMsg struct{}

// ClearChatMsg triggers clearing the chat history.
type ClearChatMsg struct{}

// RetryMsg triggers retrying the last prompt.
type RetryMsg struct{}

// CopyToClipboardMsg triggers copying the last response to the clipboard.
type CopyToClipboardMsg struct{}

// CopyCompleteMsg indicates copy completion.
type CopyCompleteMsg struct {
	Success bool
	Error   error
}

// ExportChatMsg triggers exporting the chat.
type ExportChatMsg struct {
	Format string // "markdown", "json", "html"
}

// ExportCompleteMsg indicates export completion.
type ExportCompleteMsg struct {
	Path  string
	Error error
}

// AttachImageMsg attaches an image to the next message.
type AttachImageMsg struct {
	Path string
}

// ModelSwitchMsg indicates a model switch request.
type ModelSwitchMsg struct {
	Model string
	Error error
}

// ShowModelsMsg triggers showing the model list.
type ShowModelsMsg struct{}

// ShowConfigMsg triggers showing configuration.
type ShowConfigMsg struct {
	Key   string // Optional specific key
	Value string // For display
}

// ConfigUpdateMsg indicates a config value was updated.
type ConfigUpdateMsg struct {
	Key      string
	Value    interface{}
	OldValue interface{}
	Error    error
}

// SystemPromptMsg indicates the system prompt was shown or changed.
type SystemPromptMsg struct {
	Prompt  string
	Changed bool
}

// SpeakMsg triggers reading the last response aloud.
type SpeakMsg struct{}

// StopSpeakingMsg stops any current playback.
type StopSpeakingMsg struct{}

// ErrorMsg indicates an error occurred.
type ErrorMsg struct {
	Title   string
	Message string
	Tip     string
}

// SystemMessageMsg adds an informational message to the chat view.
type SystemMessageMsg struct {
	Content string
}

// StatusInfoMsg contains detailed status information.
type StatusInfoMsg struct {
	Model        string
	ServerURL    string
	ServerStatus string
	ChatID       string
	Messages     int
	TokensUsed   int
}

// =============================================================================
// HANDLER IMPLEMENTATIONS
// =============================================================================

// HandleHelp shows help information.
func HandleHelp(ctx *Context, args []string) tea.Cmd {
	topic := ""
	if len(args) > 0 {
		topic = args[0]
	}
	return func() tea.Msg {
		return ShowHelpMsg{Topic: topic}
	}
}

// HandleQuit exits the application.
func HandleQuit(ctx *Context, args []string) tea.Cmd {
	return tea.Quit
}

// HandleNew starts a new chat.
func HandleNew(ctx *Context, args []string) tea.Cmd {
	return func() tea.Msg {
		return NewChatMsg{}
	}
}

// HandleSave saves the current chat.
func HandleSave(ctx *Context, args []string) tea.Cmd {
	title := ""
	if len(args) > 0 {
		title = strings.Join(args, " ")
	}
	return func() tea.Msg {
		return SaveChatMsg{Title: title}
	}
}

// HandleLoad loads a saved chat.
func HandleLoad(ctx *Context, args []string) tea.Cmd {
	if len(args) == 0 {
		// Show the chat list instead
		return HandleChats(ctx, args)
	}

	chatID := args[0]

	if ctx != nil && ctx.Storage != nil {
		store := ctx.Storage
		return func() tea.Msg {
			chat, err := store.Load(chatID)
			if err != nil {
				return ChatLoadedMsg{Error: err}
			}
			return ChatLoadedMsg{Chat: chat}
		}
	}

	return func() tea.Msg {
		return ChatLoadedMsg{Error: fmt.Errorf("storage not available")}
	}
}

// HandleChats shows the saved chat list.
func HandleChats(ctx *Context, args []string) tea.Cmd {
	if ctx != nil && ctx.Storage != nil {
		store := ctx.Storage
		return func() tea.Msg {
			metas, err := store.List()
			if err != nil {
				return ChatListMsg{Error: err}
			}
			return ChatListMsg{Chats: metas}
		}
	}
	return func() tea.Msg {
		return ChatListMsg{}
	}
}

// HandleDelete deletes the current chat.
func HandleDelete(ctx *Context, args []string) tea.Cmd {
	return func() tea.Msg {
		return DeleteChatMsg{}
	}
}

// HandleClear clears the chat history.
func HandleClear(ctx *Context, args []string) tea.Cmd {
	return func() tea.Msg {
		return ClearChatMsg{}
	}
}

// HandleRetry resubmits the last prompt.
func HandleRetry(ctx *Context, args []string) tea.Cmd {
	return func() tea.Msg {
		return RetryMsg{}
	}
}

// HandleCopy copies the last response to the clipboard.
func HandleCopy(ctx *Context, args []string) tea.Cmd {
	return func() tea.Msg {
		// The actual content is filled in by the app.
		return CopyToClipboardMsg{}
	}
}

// HandleExport exports the chat.
func HandleExport(ctx *Context, args []string) tea.Cmd {
	format := "markdown"
	if len(args) > 0 {
		format = strings.ToLower(args[0])
		if format == "md" {
			format = "markdown"
		}
	}

	switch format {
	case "markdown", "json", "html":
	default:
		return func() tea.Msg {
			return ErrorMsg{
				Title:   "Invalid export format",
				Message: fmt.Sprintf("Unknown format: %s", format),
				Tip:     "Supported formats: markdown, json, html",
			}
		}
	}

	return func() tea.Msg {
		return ExportChatMsg{Format: format}
	}
}

// HandleAttach attaches an image to the next message.
func HandleAttach(ctx *Context, args []string) tea.Cmd {
	if len(args) == 0 {
		return func() tea.Msg {
			return ErrorMsg{
				Title:   "Missing argument",
				Message: "/attach requires an image path",
				Tip:     "Usage: /attach <path>",
			}
		}
	}

	path := strings.Join(args, " ")
	return func() tea.Msg {
		return AttachImageMsg{Path: path}
	}
}

// HandleModel switches or shows the current model.
func HandleModel(ctx *Context, args []string) tea.Cmd {
	if len(args) == 0 {
		current := ""
		if ctx != nil && ctx.Shell != nil {
			if active := ctx.Shell.Active(); active != nil {
				current = active.Chat.Model
			}
		}
		if current == "" && ctx != nil && ctx.Config != nil {
			current = ctx.Config.Chat.DefaultModel
		}
		return func() tea.Msg {
			return SystemMessageMsg{Content: "Current model: " + current + "\nUse /model <name> to switch, /models to list."}
		}
	}

	name := args[0]

	if ctx != nil && ctx.Ollama != nil {
		client := ctx.Ollama
		return func() tea.Msg {
			reqCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if _, err := client.ShowModel(reqCtx, name); err != nil {
				return ModelSwitchMsg{Model: name, Error: err}
			}
			return ModelSwitchMsg{Model: name}
		}
	}

	return func() tea.Msg {
		return ModelSwitchMsg{Model: name}
	}
}

// HandleModelInfo shows metadata for a model: parameters, template, and
// license as reported by the server. With no argument it describes the
// active chat's model.
func HandleModelInfo(ctx *Context, args []string) tea.Cmd {
	if ctx == nil || ctx.Ollama == nil {
		return func() tea.Msg {
			return ErrorMsg{
				Title:   "Cannot show model info",
				Message: "No server configured",
			}
		}
	}

	name := ""
	if len(args) > 0 {
		name = args[0]
	} else {
		if ctx.Shell != nil {
			if active := ctx.Shell.Active(); active != nil {
				name = active.Chat.Model
			}
		}
		if name == "" && ctx.Config != nil {
			name = ctx.Config.Chat.DefaultModel
		}
	}
	if name == "" {
		return func() tea.Msg {
			return ErrorMsg{
				Title:   "Cannot show model info",
				Message: "No model selected",
				Tip:     "Use /info <name> or pick a model with /model",
			}
		}
	}

	client := ctx.Ollama
	return func() tea.Msg {
		reqCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		info, err := client.ShowModel(reqCtx, name)
		if err != nil {
			return ErrorMsg{
				Title:   "Cannot show model info",
				Message: err.Error(),
				Tip:     "Use /models to list installed models",
			}
		}

		var sb strings.Builder
		sb.WriteString("Model: " + name + "\n")
		sb.WriteString(strings.Repeat("=", 7+len(name)) + "\n\n")
		if d := info.Details; d.ParameterSize != "" || d.Family != "" {
			sb.WriteString(fmt.Sprintf("  %-14s %s %s (%s)\n", "Details:",
				d.Family, d.ParameterSize, d.QuantizationLevel))
		}
		if info.Parameters != "" {
			sb.WriteString("  Parameters:\n")
			for _, line := range strings.Split(strings.TrimSpace(info.Parameters), "\n") {
				sb.WriteString("    " + line + "\n")
			}
		}
		if info.Template != "" {
			sb.WriteString(fmt.Sprintf("  %-14s %s\n", "Template:",
				firstLine(info.Template)))
		}
		if info.License != "" {
			sb.WriteString(fmt.Sprintf("  %-14s %s\n", "License:",
				firstLine(info.License)))
		}
		return SystemMessageMsg{Content: sb.String()}
	}
}

// firstLine truncates multi-line metadata for single-line display.
func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx] + " ..."
	}
	return s
}

// HandleModels lists available models.
func HandleModels(ctx *Context, args []string) tea.Cmd {
	if ctx == nil || ctx.Ollama == nil {
		return func() tea.Msg {
			return ShowModelsMsg{}
		}
	}

	client := ctx.Ollama
	return func() tea.Msg {
		reqCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		models, err := client.ListModels(reqCtx)
		if err != nil {
			return ErrorMsg{
				Title:   "Cannot list models",
				Message: err.Error(),
				Tip:     "Check that the server is running",
			}
		}

		var sb strings.Builder
		sb.WriteString("Available Models\n")
		sb.WriteString("================\n\n")
		for _, m := range models {
			sb.WriteString(fmt.Sprintf("  %-28s %s\n", m.Name, m.FormatSize()))
		}
		sb.WriteString("\nUse /model <name> to switch models")

		return SystemMessageMsg{Content: sb.String()}
	}
}

// HandleConfig shows or sets configuration.
func HandleConfig(ctx *Context, args []string) tea.Cmd {
	// No args - show all config
	if len(args) == 0 {
		return func() tea.Msg {
			return ShowConfigMsg{}
		}
	}

	key := args[0]

	// Single arg - get config value
	if len(args) == 1 {
		if ctx != nil && ctx.Config != nil {
			val, err := ctx.Config.Get(key)
			if err != nil {
				return func() tea.Msg {
					return ErrorMsg{
						Title:   "Config error",
						Message: err.Error(),
						Tip:     "Use /config to see all available keys",
					}
				}
			}
			return func() tea.Msg {
				return ShowConfigMsg{Key: key, Value: fmt.Sprintf("%v", val)}
			}
		}
		return func() tea.Msg {
			return ShowConfigMsg{Key: key}
		}
	}

	// Two or more args - set config value
	value := strings.Join(args[1:], " ")
	if ctx != nil && ctx.Config != nil {
		oldVal, _ := ctx.Config.Get(key)
		if err := ctx.Config.Set(key, value); err != nil {
			return func() tea.Msg {
				return ConfigUpdateMsg{Key: key, Error: err}
			}
		}
		newVal, _ := ctx.Config.Get(key)
		return func() tea.Msg {
			return ConfigUpdateMsg{Key: key, Value: newVal, OldValue: oldVal}
		}
	}
	return func() tea.Msg {
		return ShowConfigMsg{Key: key, Value: value}
	}
}

// HandleSystem shows or sets the system prompt for the active chat.
func HandleSystem(ctx *Context, args []string) tea.Cmd {
	if len(args) == 0 {
		prompt := ""
		if ctx != nil && ctx.Shell != nil {
			if active := ctx.Shell.Active(); active != nil {
				prompt = active.Chat.SystemPrompt
			}
		}
		return func() tea.Msg {
			return SystemPromptMsg{Prompt: prompt}
		}
	}

	prompt := strings.Join(args, " ")
	if ctx != nil && ctx.Shell != nil {
		if active := ctx.Shell.Active(); active != nil {
			active.Chat.SystemPrompt = prompt
		}
	}
	return func() tea.Msg {
		return SystemPromptMsg{Prompt: prompt, Changed: true}
	}
}

// HandleTTS reads the last response aloud or stops playback.
func HandleTTS(ctx *Context, args []string) tea.Cmd {
	if len(args) > 0 && strings.EqualFold(args[0], "stop") {
		return func() tea.Msg {
			return StopSpeakingMsg{}
		}
	}

	if ctx != nil && ctx.Speaker != nil && !ctx.Speaker.Available() {
		return func() tea.Msg {
			return ErrorMsg{
				Title:   "Text-to-speech unavailable",
				Message: "No speech command found on this system",
				Tip:     "Install espeak-ng (Linux) or use the built-in say (macOS)",
			}
		}
	}

	return func() tea.Msg {
		return SpeakMsg{}
	}
}

// HandleTheme changes the color theme.
func HandleTheme(ctx *Context, args []string) tea.Cmd {
	if len(args) == 0 {
		if ctx != nil && ctx.Config != nil {
			return func() tea.Msg {
				return SystemMessageMsg{Content: "Current theme: " + ctx.Config.UI.Theme}
			}
		}
		return func() tea.Msg {
			return SystemMessageMsg{Content: "Theme: dark (default)"}
		}
	}

	theme := strings.ToLower(args[0])
	switch theme {
	case "dark", "light", "auto":
		if ctx != nil && ctx.Config != nil {
			ctx.Config.UI.Theme = theme
		}
		return func() tea.Msg {
			return SystemMessageMsg{Content: "Theme changed to: " + theme}
		}
	default:
		return func() tea.Msg {
			return ErrorMsg{
				Title:   "Invalid theme",
				Message: fmt.Sprintf("Unknown theme: %s", theme),
				Tip:     "Valid themes: dark, light, auto",
			}
		}
	}
}

// HandleStatus shows detailed status information.
func HandleStatus(ctx *Context, args []string) tea.Cmd {
	if ctx == nil {
		return func() tea.Msg {
			return StatusInfoMsg{}
		}
	}

	return func() tea.Msg {
		info := StatusInfoMsg{}

		if ctx.Config != nil {
			info.ServerURL = ctx.Config.Server.URL
		}

		if ctx.Ollama != nil {
			reqCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := ctx.Ollama.CheckRunning(reqCtx); err != nil {
				info.ServerStatus = "disconnected"
			} else {
				info.ServerStatus = "connected"
			}
		}

		if ctx.Shell != nil {
			if active := ctx.Shell.Active(); active != nil {
				info.Model = active.Chat.Model
				info.ChatID = active.Chat.ID
				info.Messages = active.Chat.MessageCount()
				info.TokensUsed = active.Chat.TokensUsed
			}
		}

		return info
	}
}

// =============================================================================
// HELP TEXT GENERATION
// =============================================================================

// GenerateHelpText generates the help text for the given mode: "" or "quick"
// for the essentials, "all" for everything, or a category name.
func GenerateHelpText(r *Registry, mode string) string {
	mode = strings.ToLower(mode)

	if mode == "" || mode == "quick" {
		return generateQuickHelp()
	}

	categoryMap := map[string]string{
		"navigation": "Navigation",
		"chat":       "Chat",
		"model":      "Model",
		"settings":   "Settings",
	}
	if canonical, ok := categoryMap[mode]; ok {
		return generateCategoryHelp(r, canonical)
	}

	return generateFullHelp(r)
}

// generateQuickHelp shows only the essential commands.
func generateQuickHelp() string {
	var sb strings.Builder

	sb.WriteString("Quick Help - Essential Commands\n")
	sb.WriteString("================================\n\n")

	sb.WriteString("  /help             Show this help (or try /help all)\n")
	sb.WriteString("  /new              Start a new chat\n")
	sb.WriteString("  /model            Switch model\n")
	sb.WriteString("  /attach           Attach an image\n")
	sb.WriteString("  /quit             Exit tellama\n\n")

	sb.WriteString("Keyboard Shortcuts\n")
	sb.WriteString("------------------\n")
	sb.WriteString("  Ctrl+C            Stop generation / Cancel\n")
	sb.WriteString("  Tab               Auto-complete\n")
	sb.WriteString("  Ctrl+N / Ctrl+P   Next / previous chat\n\n")

	sb.WriteString("Want more? Try:\n")
	sb.WriteString("  /help all         - Show all available commands\n")
	sb.WriteString("  /help chat        - Chat management\n")
	sb.WriteString("  /help model       - Model commands\n")
	sb.WriteString("  /help settings    - Settings and configuration\n")

	return sb.String()
}

// generateCategoryHelp generates help for a specific category.
func generateCategoryHelp(r *Registry, category string) string {
	var sb strings.Builder

	categories := r.ByCategory()
	cmds, ok := categories[category]
	if !ok || len(cmds) == 0 {
		return fmt.Sprintf("No commands found in category: %s\n\nTry /help all to see all categories.", category)
	}

	sb.WriteString(fmt.Sprintf("%s Commands\n", category))
	sb.WriteString(strings.Repeat("=", len(category)+9) + "\n\n")

	for _, cmd := range cmds {
		if cmd.Hidden {
			continue
		}
		sb.WriteString(formatCommandLine(cmd))
	}

	sb.WriteString("\nUse /help all to see all commands.\n")

	return sb.String()
}

// generateFullHelp generates the complete help text with all commands.
func generateFullHelp(r *Registry) string {
	var sb strings.Builder

	sb.WriteString("Available Commands\n")
	sb.WriteString("==================\n\n")

	categories := r.ByCategory()
	categoryOrder := []string{"Navigation", "Chat", "Model", "Settings"}

	for _, category := range categoryOrder {
		cmds, ok := categories[category]
		if !ok || len(cmds) == 0 {
			continue
		}

		sb.WriteString(category + "\n")
		sb.WriteString(strings.Repeat("-", len(category)) + "\n")

		for _, cmd := range cmds {
			if cmd.Hidden {
				continue
			}
			sb.WriteString(formatCommandLine(cmd))
		}

		sb.WriteString("\n")
	}

	sb.WriteString("Keyboard Shortcuts\n")
	sb.WriteString("------------------\n")
	sb.WriteString("  Ctrl+C          Stop generation / Cancel\n")
	sb.WriteString("  Tab             Auto-complete\n")
	sb.WriteString("  Ctrl+N / Ctrl+P Next / previous chat\n")
	sb.WriteString("  Esc             Close overlay\n\n")

	sb.WriteString("Tip: Use /help <category> to see commands by category\n")
	sb.WriteString("Categories: navigation, chat, model, settings\n")

	return sb.String()
}

// formatCommandLine formats one command entry for help output.
func formatCommandLine(cmd *Command) string {
	line := "  " + cmd.Name
	if len(cmd.Aliases) > 0 {
		line += " (" + strings.Join(cmd.Aliases, ", ") + ")"
	}

	// Pad to align descriptions.
	for len(line) < 30 {
		line += " "
	}

	line += cmd.Description + "\n"
	if cmd.Usage != "" {
		line += "      Usage: " + cmd.Usage + "\n"
	}
	return line
}
