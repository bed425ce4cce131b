// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file defines the Bubble Tea message types used by the view. Stream
// events carry both the chat ID and the generation identifier so that a
// fragment arriving after a cancel, a retry, or a chat switch is routed to
// the right session or dropped as stale.

package chat

import (
	"time"

	"tellama/internal/ollama"
)

// =============================================================================
// STREAM MESSAGES
// =============================================================================

// StreamStartedMsg signals that a request was sent and the stream goroutine
// is running.
type StreamStartedMsg struct {
	ChatID     string
	Generation uint64
	StartTime  time.Time
}

// StreamFragmentMsg delivers a content fragment from the stream.
type StreamFragmentMsg struct {
	ChatID     string
	Generation uint64
	Content    string
}

// StreamCompleteMsg signals that the stream finished. The final chunk
// carries timing and token counts.
type StreamCompleteMsg struct {
	ChatID     string
	Generation uint64
	Chunk      ollama.StreamChunk
}

// StreamFailedMsg signals that the stream errored out.
type StreamFailedMsg struct {
	ChatID     string
	Generation uint64
	Err        error
}

// streamTickMsg drives batched rendering of buffered fragments during
// streaming.
type streamTickMsg struct {
	Time time.Time
}

// =============================================================================
// SERVER MESSAGES
// =============================================================================

// ServerStatusMsg reports server reachability from a health check.
type ServerStatusMsg struct {
	Connected bool
	Err       error
}

// ModelListMsg delivers the available models, for the status line and tab
// completion.
type ModelListMsg struct {
	Models []ollama.ModelInfo
	Err    error
}

// modelRefreshTickMsg triggers a periodic model list refresh.
type modelRefreshTickMsg struct{}

// =============================================================================
// UI MESSAGES
// =============================================================================

// SpeechDoneMsg reports that text-to-speech playback finished or failed.
type SpeechDoneMsg struct {
	Err error
}

// ConfigReloadedMsg signals that the config file changed on disk and the
// shared config was reloaded in place.
type ConfigReloadedMsg struct{}

// configSavedMsg reports the result of persisting settings to disk.
type configSavedMsg struct {
	Err error
}

// statusExpireMsg clears a transient status line message.
type statusExpireMsg struct {
	ID int
}
