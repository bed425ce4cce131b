// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"tellama/internal/commands"
	"tellama/internal/config"
	"tellama/internal/export"
	"tellama/internal/image"
	"tellama/internal/model"
	"tellama/internal/ollama"
	"tellama/internal/session"
	"tellama/internal/ui/components"
)

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	// Stream lifecycle
	case StreamStartedMsg:
		return m.handleStreamStarted(msg)
	case StreamFragmentMsg:
		return m.handleStreamFragment(msg)
	case streamTickMsg:
		return m.handleStreamTick()
	case StreamCompleteMsg:
		return m.handleStreamComplete(msg)
	case StreamFailedMsg:
		return m.handleStreamFailed(msg)

	// Server
	case ServerStatusMsg:
		m.connected = msg.Connected
		m.statusBar.SetConnected(msg.Connected)
		if !msg.Connected && msg.Err != nil {
			return m, m.setStatus("Server unreachable: " + msg.Err.Error())
		}
		return m, nil

	case ModelListMsg:
		if msg.Err == nil {
			names := make([]string, len(msg.Models))
			for i, info := range msg.Models {
				names[i] = info.Name
			}
			m.modelNames = names
			m.connected = true
			m.statusBar.SetConnected(true)
		}
		return m, nil

	case modelRefreshTickMsg:
		cmds := []tea.Cmd{m.listModelsCmd(), m.checkServerCmd()}
		if interval := m.modelRefreshInterval(); interval > 0 {
			cmds = append(cmds, tea.Tick(interval, func(time.Time) tea.Msg {
				return modelRefreshTickMsg{}
			}))
		}
		return m, tea.Batch(cmds...)

	case spinner.TickMsg:
		return m, m.spinner.Update(msg)

	case statusExpireMsg:
		if msg.ID == m.statusSeq {
			m.statusMsg = ""
		}
		return m, nil

	case SpeechDoneMsg:
		if m.statusBar.Status == components.StatusSpeaking {
			m.statusBar.SetStatus(components.StatusReady)
		}
		if msg.Err != nil {
			return m, m.setStatus("Speech failed: " + msg.Err.Error())
		}
		return m, nil

	case ConfigReloadedMsg:
		return m.handleConfigReloaded()

	// Command results
	case commands.ShowHelpMsg:
		m.helpText = commands.GenerateHelpText(m.registry, msg.Topic)
		m.showHelp = true
		return m, nil

	case commands.NewChatMsg:
		m.shell.NewChat()
		m.refreshViewport()
		m.refreshStatusBar()
		return m, m.setStatus("Started a new chat")

	case commands.SaveChatMsg:
		return m, m.saveChatCmd(msg.Title)

	case commands.SaveCompleteMsg:
		if msg.Error != nil {
			return m, m.setStatus("Save failed: " + msg.Error.Error())
		}
		return m, m.setStatus("Saved \"" + msg.Title + "\"")

	case commands.ChatLoadedMsg:
		if msg.Error != nil {
			m.lastError = &commands.ErrorMsg{
				Title:   "Cannot load chat",
				Message: msg.Error.Error(),
				Tip:     "Use /chats to list saved chats",
			}
			return m, nil
		}
		m.shell.Open(msg.Chat)
		m.refreshViewport()
		m.refreshStatusBar()
		return m, m.setStatus("Loaded \"" + msg.Chat.GetTitle() + "\"")

	case commands.ChatListMsg:
		if msg.Error != nil {
			return m, m.setStatus("Cannot list chats: " + msg.Error.Error())
		}
		m.notice = formatChatList(msg.Chats)
		return m, nil

	case commands.DeleteChatMsg:
		removed := m.shell.DeleteActive()
		m.refreshViewport()
		m.refreshStatusBar()
		if removed != nil && m.store != nil {
			store := m.store
			id := removed.ID
			return m, tea.Batch(m.setStatus("Chat deleted"), func() tea.Msg {
				// Chats never saved are not in the store; that error is
				// not worth surfacing.
				_ = store.Delete(id)
				return nil
			})
		}
		return m, m.setStatus("Chat deleted")

	case commands.ClearChatMsg:
		m.active().Chat.ClearHistory()
		m.refreshViewport()
		m.refreshStatusBar()
		return m, m.setStatus("History cleared")

	case commands.RetryMsg:
		return m.handleRetry()

	case commands.CopyToClipboardMsg:
		return m, m.copyLastResponseCmd()

	case commands.CopyCompleteMsg:
		if msg.Error != nil {
			return m, m.setStatus("Copy failed: " + msg.Error.Error())
		}
		return m, m.setStatus("Copied to clipboard")

	case commands.ExportChatMsg:
		return m, m.exportChatCmd(msg.Format)

	case commands.ExportCompleteMsg:
		if msg.Error != nil {
			return m, m.setStatus("Export failed: " + msg.Error.Error())
		}
		return m, m.setStatus("Exported to " + msg.Path)

	case commands.AttachImageMsg:
		return m.handleAttach(msg.Path)

	case commands.ModelSwitchMsg:
		return m.handleModelSwitch(msg)

	case commands.ShowModelsMsg:
		m.notice = "No server configured; cannot list models"
		return m, nil

	case commands.ShowConfigMsg:
		if msg.Key == "" {
			m.notice = m.formatConfigDump()
		} else {
			m.notice = msg.Key + " = " + msg.Value
		}
		return m, nil

	case commands.ConfigUpdateMsg:
		if msg.Error != nil {
			return m, m.setStatus("Config error: " + msg.Error.Error())
		}
		m.applyConfigChange(msg.Key)
		return m, tea.Batch(
			m.setStatus(fmt.Sprintf("%s = %v", msg.Key, msg.Value)),
			m.saveConfigCmd(),
		)

	case configSavedMsg:
		if msg.Err != nil {
			return m, m.setStatus("Could not save settings: " + msg.Err.Error())
		}
		return m, nil

	case commands.SystemPromptMsg:
		if msg.Changed {
			return m, tea.Batch(m.setStatus("System prompt updated"), m.saveConfigCmd())
		}
		if msg.Prompt == "" {
			m.notice = "No system prompt set"
		} else {
			m.notice = "System prompt:\n\n" + msg.Prompt
		}
		return m, nil

	case commands.SpeakMsg:
		return m.handleSpeak()

	case commands.StopSpeakingMsg:
		if m.speaker != nil {
			m.speaker.Stop()
		}
		m.statusBar.SetStatus(components.StatusReady)
		return m, m.setStatus("Speech stopped")

	case commands.ErrorMsg:
		m.lastError = &msg
		return m, nil

	case commands.SystemMessageMsg:
		m.notice = msg.Content
		return m, nil

	case commands.StatusInfoMsg:
		m.notice = formatStatusInfo(msg)
		return m, nil
	}

	// Unhandled messages still drive the input cursor and viewport.
	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// =============================================================================
// RESIZE
// =============================================================================

func (m *Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	m.layout()
	m.invalidateRenderer()
	m.refreshViewport()

	return m, nil
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+q" {
		return m, tea.Quit
	}

	// Overlays swallow keys until dismissed.
	if m.showHelp {
		switch key {
		case "esc", "q", "enter", "?":
			m.showHelp = false
		}
		return m, nil
	}
	if m.lastError != nil {
		switch key {
		case "esc", "enter", " ":
			m.lastError = nil
			m.active().AcknowledgeError()
		}
		return m, nil
	}
	if m.notice != "" {
		switch key {
		case "esc", "enter", "q", " ":
			m.notice = ""
			return m, nil
		}
		// Allow scrolling the transcript behind long notices.
	}

	switch key {
	case "ctrl+c":
		if m.active().IsGenerating() {
			return m.cancelGeneration()
		}
		return m, tea.Quit

	case "esc":
		if m.completions.Visible {
			m.completions.Clear()
			return m, nil
		}
		if m.active().IsGenerating() {
			return m.cancelGeneration()
		}
		return m, nil

	case "tab":
		return m.handleCompletion(false)

	case "shift+tab":
		return m.handleCompletion(true)

	case "enter":
		if m.completions.Visible {
			return m.acceptCompletion()
		}
		if strings.TrimSpace(m.input.Value()) != "" {
			return m.submitInput()
		}
		return m, nil

	case "ctrl+n":
		m.shell.NewChat()
		m.refreshViewport()
		m.refreshStatusBar()
		return m, m.setStatus("Started a new chat")

	case "ctrl+right":
		return m.switchChat(1)

	case "ctrl+left":
		return m.switchChat(-1)

	case "ctrl+b":
		m.showSidebar = !m.showSidebar
		m.layout()
		m.refreshViewport()
		return m, nil

	case "ctrl+y":
		return m, m.copyLastResponseCmd()

	case "ctrl+l":
		m.active().Chat.ClearHistory()
		m.refreshViewport()
		m.refreshStatusBar()
		return m, m.setStatus("History cleared")

	case "ctrl+r":
		return m.handleRetry()

	case "pgup", "ctrl+u":
		m.viewport.HalfViewUp()
		return m, nil

	case "pgdown", "ctrl+d":
		m.viewport.HalfViewDown()
		return m, nil

	case "up":
		m.viewport.LineUp(1)
		return m, nil

	case "down":
		m.viewport.LineDown(1)
		return m, nil

	case "home":
		m.viewport.GotoTop()
		return m, nil

	case "end":
		m.viewport.GotoBottom()
		return m, nil

	case "?":
		if m.input.Value() == "" {
			m.helpText = commands.GenerateHelpText(m.registry, "")
			m.showHelp = true
			return m, nil
		}
	}

	// Typing invalidates any stale completion state.
	m.completions.Clear()

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// switchChat moves the selection by delta, wrapping around.
func (m *Model) switchChat(delta int) (tea.Model, tea.Cmd) {
	count := m.shell.Count()
	if count < 2 {
		return m, nil
	}
	next := (m.shell.ActiveIndex() + delta + count) % count
	m.shell.Select(next)
	m.refreshViewport()
	m.refreshStatusBar()
	return m, nil
}

// =============================================================================
// COMPLETION
// =============================================================================

func (m *Model) handleCompletion(reverse bool) (tea.Model, tea.Cmd) {
	if m.completions.Visible {
		if reverse {
			m.completions.Prev()
		} else {
			m.completions.Next()
		}
		return m, nil
	}

	input := m.input.Value()
	found := m.completer.Complete(input, len(input))
	if len(found) == 0 {
		return m, nil
	}
	if len(found) == 1 {
		m.applyCompletion(found[0].Value)
		return m, nil
	}
	m.completions.Update(input, found)
	return m, nil
}

func (m *Model) acceptCompletion() (tea.Model, tea.Cmd) {
	value := m.completions.Accept()
	m.completions.Clear()
	if value != "" {
		m.applyCompletion(value)
	}
	return m, nil
}

// applyCompletion replaces the token at the end of the input with the
// completed value.
func (m *Model) applyCompletion(value string) {
	input := m.input.Value()
	if idx := strings.LastIndex(input, " "); idx >= 0 {
		input = input[:idx+1] + value
	} else {
		input = value
	}
	m.input.SetValue(input + " ")
	m.input.CursorEnd()
}

// =============================================================================
// SUBMIT
// =============================================================================

func (m *Model) submitInput() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	m.input.Reset()
	m.completions.Clear()
	m.notice = ""

	if commands.IsCommand(input) {
		return m.dispatchCommand(input)
	}
	return m.submitPrompt(input)
}

func (m *Model) dispatchCommand(input string) (tea.Model, tea.Cmd) {
	result := m.parser.Parse(input)
	if result.Command == nil {
		m.lastError = &commands.ErrorMsg{
			Title:   "Unknown command",
			Message: result.CommandName + " is not a command",
			Tip:     "Type /help to list commands",
		}
		return m, nil
	}

	if err := commands.ValidateArgs(result.Command, result.Args); err != nil {
		m.lastError = &commands.ErrorMsg{
			Title:   "Invalid arguments",
			Message: err.Error(),
			Tip:     "Usage: " + result.Command.Usage,
		}
		return m, nil
	}

	return m, result.Command.Handler(m.cmdCtx, result.Args)
}

func (m *Model) submitPrompt(content string) (tea.Model, tea.Cmd) {
	sess := m.active()

	if sess.Chat.Model == "" {
		m.lastError = &commands.ErrorMsg{
			Title:   "No model selected",
			Message: "This chat has no model configured",
			Tip:     "Use /model <name> to pick one, or /models to list them",
		}
		return m, nil
	}

	gen, err := sess.Submit(content, m.pendingImages)
	if err != nil {
		if err == session.ErrBusy {
			return m, m.setStatus("Still generating; Ctrl+C to stop first")
		}
		return m, m.setStatus(err.Error())
	}
	m.pendingImages = nil

	m.startStream(sess, gen)
	m.refreshViewport()
	m.viewport.GotoBottom()
	return m, nil
}

// startStream kicks off the request for a submitted generation.
func (m *Model) startStream(sess *session.Session, gen uint64) {
	opts := sess.Chat.Settings
	if opts == nil && m.cfg != nil {
		opts = m.cfg.Options()
	}

	m.bufferFor(sess.Chat.ID).Reset()
	m.statusBar.SetStatus(components.StatusSending)
	m.runner.Start(sess, gen, opts)
}

func (m *Model) handleRetry() (tea.Model, tea.Cmd) {
	sess := m.active()
	gen, err := sess.Retry()
	if err != nil {
		return m, m.setStatus(err.Error())
	}
	m.startStream(sess, gen)
	m.refreshViewport()
	m.viewport.GotoBottom()
	return m, nil
}

func (m *Model) cancelGeneration() (tea.Model, tea.Cmd) {
	sess := m.active()
	if !sess.Cancel() {
		return m, nil
	}
	m.bufferFor(sess.Chat.ID).Reset()
	m.spinner.Stop()
	m.statusBar.SetStatus(components.StatusReady)
	m.refreshViewport()
	return m, m.setStatus("Generation stopped")
}

// =============================================================================
// STREAM EVENTS
// =============================================================================

func (m *Model) handleStreamStarted(msg StreamStartedMsg) (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{}

	if msg.ChatID == m.active().Chat.ID {
		m.statusBar.SetStatus(components.StatusSending)
		cmds = append(cmds, m.spinner.Start("Thinking"))
	}
	if !m.ticking {
		m.ticking = true
		cmds = append(cmds, streamTickCmd())
	}
	return m, tea.Batch(cmds...)
}

func (m *Model) handleStreamFragment(msg StreamFragmentMsg) (tea.Model, tea.Cmd) {
	sess := m.shell.SessionByChatID(msg.ChatID)
	if sess == nil || msg.Generation != sess.Generation() {
		return m, nil
	}

	m.bufferFor(msg.ChatID).Write(msg.Generation, msg.Content)

	if msg.ChatID == m.active().Chat.ID {
		m.spinner.Stop()
		m.statusBar.SetStatus(components.StatusStreaming)
	}
	return m, nil
}

func (m *Model) handleStreamTick() (tea.Model, tea.Cmd) {
	activeID := m.active().Chat.ID
	activeChanged := false

	for chatID, buf := range m.buffers {
		content, gen, ok := buf.Flush()
		if !ok {
			continue
		}
		sess := m.shell.SessionByChatID(chatID)
		if sess == nil {
			continue
		}
		if sess.AppendFragment(gen, content) && chatID == activeID {
			activeChanged = true
		}
	}

	if activeChanged {
		m.refreshViewport()
		m.viewport.GotoBottom()
	}

	if m.anyGenerating() {
		return m, streamTickCmd()
	}
	m.ticking = false
	return m, nil
}

func (m *Model) anyGenerating() bool {
	for _, sess := range m.shell.Sessions() {
		if sess.IsGenerating() {
			return true
		}
	}
	return false
}

func (m *Model) handleStreamComplete(msg StreamCompleteMsg) (tea.Model, tea.Cmd) {
	sess := m.shell.SessionByChatID(msg.ChatID)
	if sess == nil {
		return m, nil
	}

	if content, gen, ok := m.bufferFor(msg.ChatID).ForceFlush(); ok {
		sess.AppendFragment(gen, content)
	}
	if !sess.Complete(msg.Generation, msg.Chunk) {
		return m, nil
	}

	var cmds []tea.Cmd

	if msg.ChatID == m.active().Chat.ID {
		m.spinner.Stop()
		m.statusBar.SetStatus(components.StatusReady)
		m.refreshStatusBar()
		m.refreshViewport()
		m.viewport.GotoBottom()
		cmds = append(cmds, textinput.Blink)

		if m.cfg != nil && m.cfg.TTS.Enabled {
			if cmd := m.speakLastResponseCmd(sess); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
	}

	if m.cfg != nil && m.cfg.Storage.AutoSave && m.store != nil {
		cmds = append(cmds, m.autoSaveCmd(sess.Chat))
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleStreamFailed(msg StreamFailedMsg) (tea.Model, tea.Cmd) {
	sess := m.shell.SessionByChatID(msg.ChatID)
	if sess == nil {
		return m, nil
	}

	if content, gen, ok := m.bufferFor(msg.ChatID).ForceFlush(); ok {
		sess.AppendFragment(gen, content)
	}
	if !sess.Fail(msg.Generation, msg.Err) {
		return m, nil
	}

	if msg.ChatID == m.active().Chat.ID {
		m.spinner.Stop()
		m.statusBar.SetStatus(components.StatusError)
		m.refreshViewport()
		m.lastError = &commands.ErrorMsg{
			Title:   "Generation failed",
			Message: msg.Err.Error(),
			Tip:     errorTip(msg.Err),
		}
	}
	return m, nil
}

// errorTip suggests a next step for common stream failures.
func errorTip(err error) string {
	switch {
	case ollama.IsNotRunning(err):
		return "Start the server with: ollama serve"
	case ollama.IsModelNotFound(err):
		return "Pull the model first: ollama pull <name>"
	case ollama.IsTimeout(err):
		return "Try again, or use a smaller model"
	default:
		return "Use /retry to resubmit the prompt"
	}
}

// =============================================================================
// CHAT OPERATIONS
// =============================================================================

func (m *Model) saveChatCmd(title string) tea.Cmd {
	if m.store == nil {
		return func() tea.Msg {
			return commands.SaveCompleteMsg{Error: fmt.Errorf("storage not available")}
		}
	}

	chat := m.active().Chat
	if title != "" {
		chat.SetTitle(title)
	}
	store := m.store
	return func() tea.Msg {
		if _, err := store.Save(chat); err != nil {
			return commands.SaveCompleteMsg{ID: chat.ID, Error: err}
		}
		return commands.SaveCompleteMsg{ID: chat.ID, Title: chat.GetTitle()}
	}
}

// saveConfigCmd persists the current settings so they survive a restart.
func (m *Model) saveConfigCmd() tea.Cmd {
	if m.cfg == nil {
		return nil
	}
	cfg := m.cfg
	path := m.cfgPath
	return func() tea.Msg {
		var err error
		if path != "" {
			err = config.SaveToPath(cfg, path)
		} else {
			err = config.Save(cfg)
		}
		return configSavedMsg{Err: err}
	}
}

// autoSaveCmd persists a chat quietly; only failures surface.
func (m *Model) autoSaveCmd(chat *model.Chat) tea.Cmd {
	store := m.store
	return func() tea.Msg {
		if _, err := store.Save(chat); err != nil {
			return commands.SaveCompleteMsg{ID: chat.ID, Error: err}
		}
		return nil
	}
}

func (m *Model) copyLastResponseCmd() tea.Cmd {
	last := m.active().Chat.LastAssistantMessage()
	if last == nil || last.DisplayContent() == "" {
		return func() tea.Msg {
			return commands.CopyCompleteMsg{Error: fmt.Errorf("no response to copy")}
		}
	}

	content := last.DisplayContent()
	return func() tea.Msg {
		if err := clipboard.WriteAll(content); err != nil {
			return commands.CopyCompleteMsg{Error: err}
		}
		return commands.CopyCompleteMsg{Success: true}
	}
}

func (m *Model) exportChatCmd(format string) tea.Cmd {
	chat := m.active().Chat
	if chat.IsEmpty() {
		return func() tea.Msg {
			return commands.ExportCompleteMsg{Error: fmt.Errorf("nothing to export")}
		}
	}

	opts := export.DefaultOptions()
	if m.cfg != nil && m.cfg.UI.Theme != "" && m.cfg.UI.Theme != "auto" {
		opts.Theme = m.cfg.UI.Theme
	}

	return func() tea.Msg {
		exporter, err := export.ForFormat(format, opts)
		if err != nil {
			return commands.ExportCompleteMsg{Error: err}
		}
		path, err := export.ExportToFile(chat, exporter, opts)
		if err != nil {
			return commands.ExportCompleteMsg{Error: err}
		}
		return commands.ExportCompleteMsg{Path: path}
	}
}

func (m *Model) handleAttach(path string) (tea.Model, tea.Cmd) {
	img, err := image.Load(path)
	if err != nil {
		m.lastError = &commands.ErrorMsg{
			Title:   "Cannot attach image",
			Message: err.Error(),
			Tip:     "Supported formats: " + strings.Join(image.SupportedExtensions(), ", "),
		}
		return m, nil
	}

	m.pendingImages = append(m.pendingImages, img)
	return m, m.setStatus(fmt.Sprintf("Attached %s (%d pending)", img.Name(), len(m.pendingImages)))
}

func (m *Model) handleModelSwitch(msg commands.ModelSwitchMsg) (tea.Model, tea.Cmd) {
	if msg.Error != nil {
		m.lastError = &commands.ErrorMsg{
			Title:   "Cannot switch model",
			Message: msg.Error.Error(),
			Tip:     "Use /models to list installed models",
		}
		return m, nil
	}
	if msg.Model == "" {
		current := m.active().Chat.Model
		if current == "" && m.cfg != nil {
			current = m.cfg.Chat.DefaultModel
		}
		m.notice = "Current model: " + current
		return m, nil
	}

	m.active().Chat.Model = msg.Model
	m.statusBar.SetModel(msg.Model)
	return m, m.setStatus("Switched to " + msg.Model)
}

func (m *Model) handleSpeak() (tea.Model, tea.Cmd) {
	cmd := m.speakLastResponseCmd(m.active())
	if cmd == nil {
		return m, m.setStatus("No response to read aloud")
	}
	m.statusBar.SetStatus(components.StatusSpeaking)
	return m, cmd
}

func (m *Model) speakLastResponseCmd(sess *session.Session) tea.Cmd {
	if m.speaker == nil {
		return nil
	}
	last := sess.Chat.LastAssistantMessage()
	if last == nil || last.DisplayContent() == "" {
		return nil
	}

	speaker := m.speaker
	content := last.DisplayContent()
	return func() tea.Msg {
		err := speaker.Speak(content)
		if err == nil {
			speaker.Wait()
		}
		return SpeechDoneMsg{Err: err}
	}
}

// handleConfigReloaded re-applies settings after the config file changed on
// disk. Per-chat overrides (model, system prompt already in a transcript)
// are left alone.
func (m *Model) handleConfigReloaded() (tea.Model, tea.Cmd) {
	if m.cfg == nil {
		return m, nil
	}

	m.shell.SetDefaultModel(m.cfg.Chat.DefaultModel)
	m.shell.SetSystemPrompt(m.cfg.Chat.SystemPrompt)
	m.shell.SetDefaultSettings(m.cfg.Options())

	m.showSidebar = m.cfg.UI.ShowSidebar
	m.layout()
	m.invalidateRenderer()
	m.refreshViewport()
	m.refreshStatusBar()

	if m.speaker != nil {
		m.speaker.Stop()
	}
	m.speaker = newSpeakerFromConfig(m.cfg)
	m.cmdCtx.Speaker = m.speaker

	return m, m.setStatus("Config reloaded")
}

// applyConfigChange propagates live-tunable settings to the running UI.
func (m *Model) applyConfigChange(key string) {
	if m.cfg == nil {
		return
	}
	switch key {
	case "chat.default_model":
		m.shell.SetDefaultModel(m.cfg.Chat.DefaultModel)
		m.refreshStatusBar()
	case "chat.system_prompt":
		m.shell.SetSystemPrompt(m.cfg.Chat.SystemPrompt)
	case "ui.show_sidebar":
		m.showSidebar = m.cfg.UI.ShowSidebar
		m.layout()
		m.refreshViewport()
	case "ui.markdown_rendering", "ui.show_stats", "ui.compact_mode", "ui.theme":
		m.invalidateRenderer()
		m.refreshViewport()
	case "tts.voice", "tts.rate":
		if m.speaker != nil {
			m.speaker.Stop()
		}
		m.speaker = newSpeakerFromConfig(m.cfg)
		m.cmdCtx.Speaker = m.speaker
	}
}

// =============================================================================
// FORMAT HELPERS
// =============================================================================

func formatChatList(metas []model.ChatMeta) string {
	if len(metas) == 0 {
		return "No saved chats.\n\nUse /save to keep the current one."
	}

	var sb strings.Builder
	sb.WriteString("Saved Chats\n")
	sb.WriteString("===========\n\n")
	for _, meta := range metas {
		title := meta.Title
		if title == "" {
			title = "(untitled)"
		}
		sb.WriteString(fmt.Sprintf("  %-10s %-40s %d msgs  %s\n",
			shortID(meta.ID), title, meta.MessageCount,
			meta.UpdatedAt.Format("2006-01-02 15:04")))
	}
	sb.WriteString("\nUse /load <id> to open a chat")
	return sb.String()
}

// shortID truncates a chat ID for list display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatConfigDump lists every config key with its current value.
func (m *Model) formatConfigDump() string {
	if m.cfg == nil {
		return "No config loaded"
	}

	var sb strings.Builder
	sb.WriteString("Configuration\n")
	sb.WriteString("=============\n\n")
	for _, key := range config.Keys() {
		value, err := m.cfg.Get(key)
		if err != nil {
			continue
		}
		sb.WriteString(fmt.Sprintf("  %-24s %v\n", key, value))
	}
	sb.WriteString("\nUse /config <key> <value> to change a setting")
	return sb.String()
}

func formatStatusInfo(info commands.StatusInfoMsg) string {
	var sb strings.Builder
	sb.WriteString("Status\n")
	sb.WriteString("======\n\n")
	sb.WriteString(fmt.Sprintf("  %-12s %s\n", "Server:", info.ServerURL))
	sb.WriteString(fmt.Sprintf("  %-12s %s\n", "Connection:", info.ServerStatus))
	sb.WriteString(fmt.Sprintf("  %-12s %s\n", "Model:", info.Model))
	sb.WriteString(fmt.Sprintf("  %-12s %d\n", "Messages:", info.Messages))
	sb.WriteString(fmt.Sprintf("  %-12s %d\n", "Tokens used:", info.TokensUsed))
	return sb.String()
}

// refreshStatusBar syncs the status bar with the active chat.
func (m *Model) refreshStatusBar() {
	chat := m.active().Chat
	modelName := chat.Model
	if modelName == "" && m.cfg != nil {
		modelName = m.cfg.Chat.DefaultModel
	}
	m.statusBar.SetModel(modelName)
	m.statusBar.SetTokenUsage(chat.TokensUsed, chat.MaxTokens)
	m.statusBar.SetChatPosition(m.shell.ActiveIndex(), m.shell.Count())
	m.sidebar.SetChats(m.shell.Metas(), m.shell.ActiveIndex())
}
