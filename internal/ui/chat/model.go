// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"tellama/internal/commands"
	"tellama/internal/config"
	"tellama/internal/model"
	"tellama/internal/ollama"
	"tellama/internal/session"
	"tellama/internal/storage"
	"tellama/internal/tts"
	"tellama/internal/ui/components"
	"tellama/internal/ui/styles"
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the whole application: the transcript
// viewport, the input line, the sidebar, and the status bar.
type Model struct {
	theme   *styles.Theme
	cfg     *config.Config
	cfgPath string

	// Services
	shell   *session.Shell
	store   *storage.ChatStore
	client  *ollama.Client
	speaker *tts.Speaker
	runner  *StreamRunner

	// Command system
	registry    *commands.Registry
	parser      *commands.Parser
	completer   *commands.Completer
	completions *commands.CompletionState
	cmdCtx      *commands.Context

	// Components
	viewport  viewport.Model
	input     textinput.Model
	spinner   *components.Spinner
	statusBar *components.StatusBar
	sidebar   *components.Sidebar

	// Markdown rendering
	renderer      *glamour.TermRenderer
	rendererWidth int

	// Per-chat fragment batching.
	buffers map[string]*StreamingBuffer

	// Images staged for the next message via /attach.
	pendingImages []model.Image

	// Dimensions
	width  int
	height int

	// Transient UI state
	showSidebar bool
	showHelp    bool
	helpText    string
	notice      string
	statusMsg   string
	statusSeq   int
	lastError   *commands.ErrorMsg
	connected   bool
	ticking     bool

	// Cached model names for the completer.
	modelNames []string
}

// Deps carries the services the chat model needs.
type Deps struct {
	Config *config.Config

	// ConfigPath is where settings changes are persisted. Empty falls back
	// to the default location.
	ConfigPath string

	Client  *ollama.Client
	Store   *storage.ChatStore
	Shell   *session.Shell
	Speaker *tts.Speaker
}

// New creates the chat model.
func New(theme *styles.Theme, deps Deps) *Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message, or / for commands..."
	ti.CharLimit = 8192
	ti.Focus()

	vp := viewport.New(80, 20)

	shell := deps.Shell
	if shell == nil {
		shell = session.NewShell()
	}

	registry := commands.NewRegistry()
	completer := commands.NewCompleter(registry)

	m := &Model{
		theme:       theme,
		cfg:         deps.Config,
		cfgPath:     deps.ConfigPath,
		shell:       shell,
		store:       deps.Store,
		client:      deps.Client,
		speaker:     deps.Speaker,
		runner:      NewStreamRunner(deps.Client),
		registry:    registry,
		parser:      commands.NewParser(registry),
		completer:   completer,
		completions: commands.NewCompletionState(),
		cmdCtx:      commands.NewContext(deps.Config, deps.Client, deps.Store, shell, deps.Speaker),
		viewport:    vp,
		input:       ti,
		spinner:     components.NewSpinner(theme),
		statusBar:   components.NewStatusBar(theme),
		sidebar:     components.NewSidebar(theme),
		buffers:     make(map[string]*StreamingBuffer),
	}

	if deps.Config != nil {
		m.showSidebar = deps.Config.UI.ShowSidebar
		m.statusBar.SetModel(deps.Config.Chat.DefaultModel)
	}
	m.wireCompleter()

	return m
}

// SetProgram wires the running program so stream goroutines can deliver
// events. Must be called before the first prompt is submitted.
func (m *Model) SetProgram(p *tea.Program) {
	m.runner.SetSend(p.Send)
}

func (m *Model) wireCompleter() {
	m.completer.ModelsFn = func() []string {
		return m.modelNames
	}
	m.completer.ChatsFn = func() []commands.ChatInfo {
		if m.store == nil {
			return nil
		}
		metas, err := m.store.List()
		if err != nil {
			return nil
		}
		infos := make([]commands.ChatInfo, len(metas))
		for i, meta := range metas {
			infos[i] = commands.ChatInfo{ID: meta.ID, Title: meta.Title, Preview: meta.Preview}
		}
		return infos
	}
	m.completer.ConfigFn = config.Keys
}

// active returns the selected session. The shell guarantees there is one.
func (m *Model) active() *session.Session {
	return m.shell.Active()
}

// bufferFor returns the fragment buffer for a chat, creating it on first use.
func (m *Model) bufferFor(chatID string) *StreamingBuffer {
	buf, ok := m.buffers[chatID]
	if !ok {
		buf = NewStreamingBuffer()
		m.buffers[chatID] = buf
	}
	return buf
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init starts the cursor blink, the first server health check, and the
// model list refresh loop.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textinput.Blink,
		m.checkServerCmd(),
		m.listModelsCmd(),
	}
	if interval := m.modelRefreshInterval(); interval > 0 {
		cmds = append(cmds, tea.Tick(interval, func(time.Time) tea.Msg {
			return modelRefreshTickMsg{}
		}))
	}
	return tea.Batch(cmds...)
}

// View renders the application.
func (m *Model) View() string {
	return m.render()
}

func (m *Model) modelRefreshInterval() time.Duration {
	if m.cfg == nil || m.cfg.Server.ModelRefreshSecs <= 0 {
		return 0
	}
	return time.Duration(m.cfg.Server.ModelRefreshSecs) * time.Second
}

// =============================================================================
// BACKGROUND COMMANDS
// =============================================================================

func (m *Model) checkServerCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		if client == nil {
			return ServerStatusMsg{Connected: false, Err: ollama.ErrNotRunning}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		err := client.CheckRunning(ctx)
		return ServerStatusMsg{Connected: err == nil, Err: err}
	}
}

func (m *Model) listModelsCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		if client == nil {
			return ModelListMsg{Err: ollama.ErrNotRunning}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		models, err := client.ListModels(ctx)
		return ModelListMsg{Models: models, Err: err}
	}
}

// setStatus shows a transient status line message that clears after a few
// seconds.
func (m *Model) setStatus(text string) tea.Cmd {
	m.statusMsg = text
	m.statusSeq++
	id := m.statusSeq
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg {
		return statusExpireMsg{ID: id}
	})
}

// =============================================================================
// ACCESSORS
// =============================================================================

// newSpeakerFromConfig builds a speaker from the current TTS settings.
func newSpeakerFromConfig(cfg *config.Config) *tts.Speaker {
	if cfg == nil {
		return tts.NewSpeaker("", 0)
	}
	return tts.NewSpeaker(cfg.TTS.Voice, cfg.TTS.Rate)
}

// Shell returns the session shell, for persistence at shutdown.
func (m *Model) Shell() *session.Shell {
	return m.shell
}

// Connected reports the last known server status.
func (m *Model) Connected() bool {
	return m.connected
}
