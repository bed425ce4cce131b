// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"tellama/internal/commands"
	"tellama/internal/config"
	"tellama/internal/ollama"
	"tellama/internal/session"
	"tellama/internal/ui/styles"
)

func newTestModel(t *testing.T) *Model {
	t.Helper()
	m := New(styles.NewTheme(), Deps{})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

// submit puts the active session into a streaming generation.
func submit(t *testing.T, m *Model, prompt string) uint64 {
	t.Helper()
	sess := m.active()
	sess.Chat.Model = "llama3.2"
	gen, err := sess.Submit(prompt, nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return gen
}

func TestStreamFragmentsFlowIntoChat(t *testing.T) {
	m := newTestModel(t)
	gen := submit(t, m, "hello")
	chatID := m.active().Chat.ID

	m.Update(StreamFragmentMsg{ChatID: chatID, Generation: gen, Content: "Hi "})
	m.Update(StreamFragmentMsg{ChatID: chatID, Generation: gen, Content: "there"})

	// Fragments are buffered until a tick.
	if got := m.active().Chat.LastMessage().DisplayContent(); got != "" {
		t.Errorf("content before tick = %q", got)
	}

	// Force the buffer past its flush interval and tick.
	buf := m.bufferFor(chatID)
	buf.mu.Lock()
	buf.lastFlush = buf.lastFlush.Add(-60 * time.Millisecond)
	buf.mu.Unlock()
	m.Update(streamTickMsg{})

	if got := m.active().Chat.LastMessage().DisplayContent(); got != "Hi there" {
		t.Errorf("content after tick = %q", got)
	}
}

func TestStreamCompleteFinalizesSession(t *testing.T) {
	m := newTestModel(t)
	gen := submit(t, m, "hello")
	chatID := m.active().Chat.ID

	m.Update(StreamFragmentMsg{ChatID: chatID, Generation: gen, Content: "Answer"})
	m.Update(StreamCompleteMsg{
		ChatID:     chatID,
		Generation: gen,
		Chunk:      ollama.StreamChunk{Done: true, CompletionTokens: 12},
	})

	sess := m.active()
	if sess.IsGenerating() {
		t.Error("session still generating after completion")
	}
	last := sess.Chat.LastMessage()
	if last.DisplayContent() != "Answer" {
		t.Errorf("final content = %q", last.DisplayContent())
	}
	if last.IsStreaming {
		t.Error("message still marked streaming")
	}
}

func TestStaleFragmentDropped(t *testing.T) {
	m := newTestModel(t)
	gen := submit(t, m, "hello")
	chatID := m.active().Chat.ID

	m.active().Cancel()

	m.Update(StreamFragmentMsg{ChatID: chatID, Generation: gen, Content: "stale"})
	m.Update(streamTickMsg{})

	for _, msg := range m.active().Chat.Messages {
		if strings.Contains(msg.DisplayContent(), "stale") {
			t.Error("stale fragment reached the transcript")
		}
	}
}

func TestStreamFailedSetsError(t *testing.T) {
	m := newTestModel(t)
	gen := submit(t, m, "hello")
	chatID := m.active().Chat.ID

	m.Update(StreamFailedMsg{ChatID: chatID, Generation: gen, Err: errors.New("boom")})

	if m.active().State() != session.StateFailed {
		t.Errorf("state = %v, want failed", m.active().State())
	}
	if m.lastError == nil || m.lastError.Title != "Generation failed" {
		t.Errorf("lastError = %+v", m.lastError)
	}
	if !m.active().Chat.LastMessage().Failed {
		t.Error("message not marked failed")
	}
}

func TestNewChatMessage(t *testing.T) {
	m := newTestModel(t)
	first := m.active().Chat.ID

	m.Update(commands.NewChatMsg{})

	if m.shell.Count() != 2 {
		t.Fatalf("Count = %d, want 2", m.shell.Count())
	}
	if m.active().Chat.ID == first {
		t.Error("new chat not selected")
	}
}

func TestCtrlCCancelsGeneration(t *testing.T) {
	m := newTestModel(t)
	submit(t, m, "hello")

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})

	if m.active().IsGenerating() {
		t.Error("generation survived ctrl+c")
	}
}

func TestSwitchChatWraps(t *testing.T) {
	m := newTestModel(t)
	m.Update(commands.NewChatMsg{})
	m.Update(commands.NewChatMsg{})

	m.shell.Select(2)
	m.switchChat(1)
	if m.shell.ActiveIndex() != 0 {
		t.Errorf("ActiveIndex = %d, want wrap to 0", m.shell.ActiveIndex())
	}
	m.switchChat(-1)
	if m.shell.ActiveIndex() != 2 {
		t.Errorf("ActiveIndex = %d, want wrap to 2", m.shell.ActiveIndex())
	}
}

func TestSubmitWithoutModelShowsError(t *testing.T) {
	m := newTestModel(t)
	m.input.SetValue("hello")

	m.submitInput()

	if m.lastError == nil || m.lastError.Title != "No model selected" {
		t.Errorf("lastError = %+v", m.lastError)
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	m := newTestModel(t)
	m.input.SetValue("/bogus")

	m.submitInput()

	if m.lastError == nil || m.lastError.Title != "Unknown command" {
		t.Errorf("lastError = %+v", m.lastError)
	}
}

func TestErrBusyRejectsSecondSubmit(t *testing.T) {
	m := newTestModel(t)
	submit(t, m, "first")

	m.input.SetValue("second")
	m.submitInput()

	// The second prompt must not have been appended.
	count := 0
	for _, msg := range m.active().Chat.Messages {
		if msg.DisplayContent() == "second" {
			count++
		}
	}
	if count != 0 {
		t.Error("prompt submitted while generating")
	}
}

func TestDispatchHelpCommand(t *testing.T) {
	m := newTestModel(t)
	m.input.SetValue("/help")

	_, cmd := m.submitInput()
	if cmd == nil {
		t.Fatal("slash command produced no handler command")
	}
	m.Update(cmd())

	if !m.showHelp {
		t.Error("help overlay not shown")
	}
}

func TestSettingsPersistedOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg := config.Default()
	m := New(styles.NewTheme(), Deps{Config: cfg, ConfigPath: path})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})

	// What /config ui.theme light does before the update message arrives.
	m.cfg.UI.Theme = "light"

	_, cmd := m.Update(commands.ConfigUpdateMsg{Key: "ui.theme", Value: "light"})
	if cmd == nil {
		t.Fatal("config change produced no command")
	}

	msg := m.saveConfigCmd()()
	saved, ok := msg.(configSavedMsg)
	if !ok {
		t.Fatalf("msg = %T, want configSavedMsg", msg)
	}
	if saved.Err != nil {
		t.Fatalf("save failed: %v", saved.Err)
	}

	loaded, err := config.LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if loaded.UI.Theme != "light" {
		t.Errorf("theme after reload = %q, want light", loaded.UI.Theme)
	}
}

func TestFormatChatListEmpty(t *testing.T) {
	out := formatChatList(nil)
	if !strings.Contains(out, "No saved chats") {
		t.Errorf("formatChatList(nil) = %q", out)
	}
}
