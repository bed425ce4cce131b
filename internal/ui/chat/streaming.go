// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// This file holds the streaming plumbing: the runner that drives a chat
// request on a goroutine and reports back through the program, and the
// buffer that batches fragments so the viewport re-renders at a capped
// frame rate instead of once per token.

package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"tellama/internal/ollama"
	"tellama/internal/session"
)

// =============================================================================
// STREAM RUNNER
// =============================================================================

// StreamRunner starts chat requests on goroutines and delivers stream events
// back into the Bubble Tea loop. The send function is the program's Send;
// it is safe to call from any goroutine.
type StreamRunner struct {
	client *ollama.Client

	mu   sync.Mutex
	send func(tea.Msg)
}

// NewStreamRunner creates a runner around the given client.
func NewStreamRunner(client *ollama.Client) *StreamRunner {
	return &StreamRunner{client: client}
}

// SetSend wires the program's Send function. Until it is set, Start is a
// no-op that reports a failure.
func (r *StreamRunner) SetSend(send func(tea.Msg)) {
	r.mu.Lock()
	r.send = send
	r.mu.Unlock()
}

func (r *StreamRunner) post(msg tea.Msg) {
	r.mu.Lock()
	send := r.send
	r.mu.Unlock()
	if send != nil {
		send(msg)
	}
}

// Start launches the stream for a freshly submitted generation. The session
// must already be in Sending state; the wire messages are captured before
// the goroutine starts so later edits cannot race.
//
// Start is called from Update, and program.Send blocks until the loop picks
// the message up, so every post happens on the stream goroutine. Posting
// from the Update goroutine would deadlock the program.
func (r *StreamRunner) Start(sess *session.Session, gen uint64, opts *ollama.Options) {
	chatID := sess.Chat.ID
	modelName := sess.Chat.Model
	messages := sess.WireMessages()

	if r.client == nil {
		go r.post(StreamFailedMsg{ChatID: chatID, Generation: gen, Err: ollama.ErrNotRunning})
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess.SetCancel(gen, cancel)

	go func() {
		defer cancel()

		r.post(StreamStartedMsg{ChatID: chatID, Generation: gen, StartTime: time.Now()})

		// Models often open with whitespace or a newline; trim it from
		// the front of the response only.
		sawContent := false

		err := r.client.ChatStream(ctx, modelName, messages, opts, func(chunk ollama.StreamChunk) {
			content := chunk.Content
			if !sawContent && content != "" {
				content = strings.TrimLeft(content, " \t\r\n")
				sawContent = content != ""
			}

			if content != "" {
				r.post(StreamFragmentMsg{ChatID: chatID, Generation: gen, Content: content})
			}

			if chunk.Done {
				r.post(StreamCompleteMsg{ChatID: chatID, Generation: gen, Chunk: chunk})
			}
		})

		if err != nil && !ollama.IsCancelled(err) {
			r.post(StreamFailedMsg{ChatID: chatID, Generation: gen, Err: err})
		}
	}()
}

// =============================================================================
// STREAMING BUFFER
// =============================================================================

// StreamingBuffer batches stream fragments between renders. Appending one
// token at a time makes the viewport re-render far faster than the terminal
// can draw; the buffer accumulates fragments and releases them when either
// the batch size or the frame interval is reached.
//
// Fragments arrive on the UI loop but the buffer is also reset from stream
// events, so all operations take the mutex.
type StreamingBuffer struct {
	mu         sync.Mutex
	buf        strings.Builder
	fragments  int
	lastFlush  time.Time
	generation uint64

	batchSize     int
	flushInterval time.Duration
}

// NewStreamingBuffer creates a buffer tuned for 30fps rendering.
func NewStreamingBuffer() *StreamingBuffer {
	return &StreamingBuffer{
		batchSize:     15,
		flushInterval: 33 * time.Millisecond,
		lastFlush:     time.Now(),
	}
}

// Write appends a fragment for the given generation. A fragment from a
// different generation resets the buffer first, so content from a superseded
// stream never mixes with the current one.
func (b *StreamingBuffer) Write(gen uint64, content string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if gen != b.generation {
		b.buf.Reset()
		b.fragments = 0
		b.generation = gen
	}

	b.buf.WriteString(content)
	b.fragments++
}

// Flush returns the accumulated content if a flush is due, together with the
// generation it belongs to.
func (b *StreamingBuffer) Flush() (string, uint64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.buf.Len() == 0 || !b.dueLocked() {
		return "", b.generation, false
	}
	return b.takeLocked()
}

// ForceFlush returns everything buffered regardless of thresholds. Called
// when a stream completes so no trailing content is lost.
func (b *StreamingBuffer) ForceFlush() (string, uint64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.buf.Len() == 0 {
		return "", b.generation, false
	}
	return b.takeLocked()
}

// Reset discards buffered content. Used on cancel.
func (b *StreamingBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
	b.fragments = 0
	b.lastFlush = time.Now()
}

// Pending returns the number of buffered fragments.
func (b *StreamingBuffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fragments
}

func (b *StreamingBuffer) dueLocked() bool {
	if b.fragments >= b.batchSize {
		return true
	}
	return time.Since(b.lastFlush) >= b.flushInterval
}

func (b *StreamingBuffer) takeLocked() (string, uint64, bool) {
	content := b.buf.String()
	b.buf.Reset()
	b.fragments = 0
	b.lastFlush = time.Now()
	return content, b.generation, true
}

// streamTickCmd schedules the next 30fps render tick.
func streamTickCmd() tea.Cmd {
	return tea.Tick(33*time.Millisecond, func(t time.Time) tea.Msg {
		return streamTickMsg{Time: t}
	})
}
