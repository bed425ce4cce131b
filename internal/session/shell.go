// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"tellama/internal/model"
	"tellama/internal/ollama"
)

// =============================================================================
// SHELL
// =============================================================================

// Shell owns the ordered list of sessions and the active selection. There is
// always at least one session; deleting the last one replaces it with a
// fresh chat.
type Shell struct {
	sessions []*Session
	active   int

	// defaults applied to new chats.
	defaultModel    string
	defaultSettings *ollama.Options
	systemPrompt    string
}

// NewShell creates a shell with a single empty session.
func NewShell() *Shell {
	sh := &Shell{}
	sh.sessions = []*Session{sh.newSession()}
	return sh
}

// NewShellFromChats restores a shell from persisted chats, most recent
// first. An empty slice yields a single fresh session.
func NewShellFromChats(chats []*model.Chat) *Shell {
	sh := &Shell{}
	for _, chat := range chats {
		sh.sessions = append(sh.sessions, New(chat))
	}
	if len(sh.sessions) == 0 {
		sh.sessions = []*Session{sh.newSession()}
	}
	return sh
}

func (sh *Shell) newSession() *Session {
	chat := model.NewChatWithModel(sh.defaultModel)
	chat.SystemPrompt = sh.systemPrompt
	if sh.defaultSettings != nil {
		settings := *sh.defaultSettings
		chat.Settings = &settings
	}
	return New(chat)
}

// =============================================================================
// DEFAULTS
// =============================================================================

// SetDefaultModel sets the model applied to new chats. The active chat also
// picks it up if it has no model yet.
func (sh *Shell) SetDefaultModel(model string) {
	sh.defaultModel = model
	if active := sh.Active(); active != nil && active.Chat.Model == "" {
		active.Chat.Model = model
	}
}

// DefaultModel returns the model applied to new chats.
func (sh *Shell) DefaultModel() string {
	return sh.defaultModel
}

// SetDefaultSettings sets the generation parameters inherited by new chats.
func (sh *Shell) SetDefaultSettings(opts *ollama.Options) {
	sh.defaultSettings = opts
}

// SetSystemPrompt sets the system prompt inherited by new chats.
func (sh *Shell) SetSystemPrompt(prompt string) {
	sh.systemPrompt = prompt
}

// =============================================================================
// SESSION MANAGEMENT
// =============================================================================

// Sessions returns the ordered session list.
func (sh *Shell) Sessions() []*Session {
	return sh.sessions
}

// Count returns the number of sessions.
func (sh *Shell) Count() int {
	return len(sh.sessions)
}

// Active returns the currently selected session.
func (sh *Shell) Active() *Session {
	if len(sh.sessions) == 0 {
		return nil
	}
	return sh.sessions[sh.active]
}

// ActiveIndex returns the index of the selected session.
func (sh *Shell) ActiveIndex() int {
	return sh.active
}

// Select makes the session at index active. Out-of-range indices are
// ignored. A generation in another session keeps running; its fragments land
// in its own session.
func (sh *Shell) Select(index int) {
	if index >= 0 && index < len(sh.sessions) {
		sh.active = index
	}
}

// NewChat appends a fresh session and makes it active.
func (sh *Shell) NewChat() *Session {
	s := sh.newSession()
	sh.sessions = append(sh.sessions, s)
	sh.active = len(sh.sessions) - 1
	return s
}

// Open brings a loaded chat into the shell and makes it active. If a session
// already owns a chat with the same ID, that session is selected instead of
// adding a duplicate.
func (sh *Shell) Open(chat *model.Chat) *Session {
	if chat == nil {
		return sh.Active()
	}
	for i, s := range sh.sessions {
		if s.Chat.ID == chat.ID {
			sh.active = i
			return s
		}
	}

	s := New(chat)
	sh.sessions = append(sh.sessions, s)
	sh.active = len(sh.sessions) - 1
	return s
}

// Delete removes the session at index. The in-flight generation, if any, is
// cancelled first. Deleting the last remaining session replaces it with a
// fresh one. Returns the removed chat so the caller can delete it from
// storage.
func (sh *Shell) Delete(index int) *model.Chat {
	if index < 0 || index >= len(sh.sessions) {
		return nil
	}

	removed := sh.sessions[index]
	removed.Cancel()

	sh.sessions = append(sh.sessions[:index], sh.sessions[index+1:]...)

	if len(sh.sessions) == 0 {
		sh.sessions = []*Session{sh.newSession()}
		sh.active = 0
	} else if sh.active >= len(sh.sessions) {
		sh.active = len(sh.sessions) - 1
	} else if sh.active > index {
		sh.active--
	}

	return removed.Chat
}

// DeleteActive removes the active session.
func (sh *Shell) DeleteActive() *model.Chat {
	return sh.Delete(sh.active)
}

// SessionByChatID finds the session owning the given chat ID. Stream
// events carry the chat ID so fragments reach the right session even after
// the selection changed.
func (sh *Shell) SessionByChatID(chatID string) *Session {
	for _, s := range sh.sessions {
		if s.Chat.ID == chatID {
			return s
		}
	}
	return nil
}

// Metas returns listing metadata for every session, for the sidebar.
func (sh *Shell) Metas() []model.ChatMeta {
	metas := make([]model.ChatMeta, len(sh.sessions))
	for i, s := range sh.sessions {
		metas[i] = s.Chat.Meta()
	}
	return metas
}
