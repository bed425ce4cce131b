// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"sync"

	"tellama/internal/model"
	"tellama/internal/ollama"
)

// ErrBusy is returned when a prompt is submitted while a generation is
// already in flight.
var ErrBusy = errors.New("a response is already being generated")

// ErrNothingToRetry is returned when retry is requested but the chat has no
// completed exchange to resubmit.
var ErrNothingToRetry = errors.New("no previous prompt to retry")

// =============================================================================
// STATE
// =============================================================================

// State is the lifecycle phase of a session.
type State int

const (
	// StateIdle means no generation is in flight.
	StateIdle State = iota
	// StateSending means a request was submitted but no fragment has
	// arrived yet.
	StateSending
	// StateStreaming means fragments are arriving.
	StateStreaming
	// StateFailed means the last generation errored; the partial response
	// is kept and a new submit or retry is allowed.
	StateFailed
)

// String returns the state name for logs and the status bar.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSending:
		return "sending"
	case StateStreaming:
		return "streaming"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// =============================================================================
// SESSION
// =============================================================================

// Session pairs a chat with generation state. All methods except the cancel
// plumbing are meant to be called from the UI loop; the cancel function is
// guarded separately because the stream goroutine registers it.
type Session struct {
	Chat *model.Chat

	state      State
	generation uint64
	stats      *model.Statistics
	lastErr    error

	cancelMu sync.Mutex
	cancel   context.CancelFunc
}

// New creates a session around a fresh chat.
func New(chat *model.Chat) *Session {
	if chat == nil {
		chat = model.NewChat()
	}
	return &Session{Chat: chat}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Generation returns the identifier of the current generation. Fragments
// carrying any other generation are stale.
func (s *Session) Generation() uint64 {
	return s.generation
}

// IsGenerating reports whether a request is in flight.
func (s *Session) IsGenerating() bool {
	return s.state == StateSending || s.state == StateStreaming
}

// LastError returns the error from the most recent failed generation.
func (s *Session) LastError() error {
	return s.lastErr
}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit appends the user prompt and an empty streaming assistant message,
// and moves the session to Sending. It returns the generation identifier the
// stream must tag its fragments with. Returns ErrBusy while a generation is
// in flight.
func (s *Session) Submit(content string, images []model.Image) (uint64, error) {
	if s.IsGenerating() {
		return 0, ErrBusy
	}

	if len(images) > 0 {
		s.Chat.AddUserMessageWithImages(content, images)
	} else {
		s.Chat.AddUserMessage(content)
	}
	s.Chat.AddAssistantMessage()

	s.generation++
	s.state = StateSending
	s.stats = model.NewStatistics()
	s.lastErr = nil

	return s.generation, nil
}

// Retry removes the last failed exchange and resubmits the same prompt. It
// returns the new generation identifier.
func (s *Session) Retry() (uint64, error) {
	if s.IsGenerating() {
		return 0, ErrBusy
	}

	user := s.Chat.RemoveLastExchange()
	if user == nil {
		return 0, ErrNothingToRetry
	}

	return s.Submit(user.Content, user.Images)
}

// WireMessages returns the request payload for the current chat history.
// Call after Submit so the new prompt is included; the trailing empty
// assistant message is excluded by the empty-content rule.
func (s *Session) WireMessages() []ollama.Message {
	return s.Chat.ToWireMessages()
}

// =============================================================================
// STREAM EVENTS
// =============================================================================

// AppendFragment appends streamed content to the pending assistant message.
// Fragments from a stale generation are dropped; the return value reports
// whether the fragment was applied.
func (s *Session) AppendFragment(gen uint64, content string) bool {
	if gen != s.generation {
		return false
	}
	if s.state != StateSending && s.state != StateStreaming {
		return false
	}

	if s.state == StateSending {
		s.state = StateStreaming
	}
	if content != "" {
		if s.stats != nil {
			s.stats.RecordFirstToken()
		}
		s.Chat.AppendToLast(content)
	}
	return true
}

// Complete finalizes the pending assistant message and returns the session
// to Idle. Stale completions are ignored.
func (s *Session) Complete(gen uint64, chunk ollama.StreamChunk) bool {
	if gen != s.generation || !s.IsGenerating() {
		return false
	}

	if s.stats != nil {
		tokens := chunk.CompletionTokens
		if tokens == 0 {
			if last := s.Chat.LastMessage(); last != nil {
				tokens = last.EstimateTokens()
			}
		}
		s.stats.PromptTokens = chunk.PromptTokens
		s.stats.Finalize(tokens)
	}

	s.Chat.FinalizeLast(s.stats)
	s.state = StateIdle
	s.stats = nil
	s.clearCancel()
	return true
}

// Fail marks the pending assistant message as failed, keeping partial
// content, and moves the session to Failed. Stale failures are ignored.
func (s *Session) Fail(gen uint64, err error) bool {
	if gen != s.generation || !s.IsGenerating() {
		return false
	}

	s.Chat.FailLast()
	s.state = StateFailed
	s.lastErr = err
	s.stats = nil
	s.clearCancel()
	return true
}

// AcknowledgeError clears a Failed state back to Idle.
func (s *Session) AcknowledgeError() {
	if s.state == StateFailed {
		s.state = StateIdle
		s.lastErr = nil
	}
}

// =============================================================================
// CANCELLATION
// =============================================================================

// SetCancel registers the cancel function for the in-flight request. A stale
// generation's cancel function is invoked immediately so its stream shuts
// down.
func (s *Session) SetCancel(gen uint64, cancel context.CancelFunc) {
	if gen != s.generation {
		if cancel != nil {
			cancel()
		}
		return
	}
	s.cancelMu.Lock()
	s.cancel = cancel
	s.cancelMu.Unlock()
}

// Cancel aborts the in-flight generation. The partial response is finalized
// as-is and the session returns to Idle. The generation counter advances so
// fragments still in flight are dropped as stale.
func (s *Session) Cancel() bool {
	if !s.IsGenerating() {
		return false
	}

	s.cancelMu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.cancelMu.Unlock()
	if cancel != nil {
		cancel()
	}

	s.Chat.FinalizeLast(s.stats)
	if last := s.Chat.LastMessage(); last != nil && last.Role == model.RoleAssistant && last.IsEmpty() {
		s.Chat.RemoveMessage(last.ID)
	}
	s.generation++
	s.state = StateIdle
	s.stats = nil
	return true
}

func (s *Session) clearCancel() {
	s.cancelMu.Lock()
	s.cancel = nil
	s.cancelMu.Unlock()
}
