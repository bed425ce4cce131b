// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"tellama/internal/ollama"
	"tellama/internal/session"
)

// submitSession returns a session with one submitted generation.
func submitSession(t *testing.T, model string) (*session.Session, uint64) {
	t.Helper()
	sess := session.NewShell().Active()
	sess.Chat.Model = model
	gen, err := sess.Submit("Hello", nil)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	return sess, gen
}

// The program's message queue is unbuffered and drained by the same
// goroutine that runs Update, so Start must never deliver synchronously:
// a send from inside Update would wait on itself forever.
func TestStartReturnsBeforeDelivery(t *testing.T) {
	runner := NewStreamRunner(nil)
	delivered := make(chan tea.Msg)
	runner.SetSend(func(msg tea.Msg) { delivered <- msg })

	sess, gen := submitSession(t, "llama3.2")

	returned := make(chan struct{})
	go func() {
		runner.Start(sess, gen, nil)
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatal("Start blocked on message delivery")
	}

	select {
	case msg := <-delivered:
		failed, ok := msg.(StreamFailedMsg)
		if !ok {
			t.Fatalf("msg = %T, want StreamFailedMsg", msg)
		}
		if failed.Generation != gen {
			t.Errorf("generation = %d, want %d", failed.Generation, gen)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message delivered")
	}
}

func TestStreamRunnerDeliversWholeStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/x-ndjson")
		w.Write([]byte(`{"model":"m","message":{"role":"assistant","content":"Hi"},"done":false}` + "\n"))
		w.Write([]byte(`{"model":"m","message":{"role":"assistant","content":" there"},"done":false}` + "\n"))
		w.Write([]byte(`{"model":"m","message":{"role":"assistant","content":"!"},"done":true,"eval_count":3}` + "\n"))
	}))
	defer server.Close()

	runner := NewStreamRunner(ollama.NewClientWithConfig(&ollama.ClientConfig{BaseURL: server.URL}))
	delivered := make(chan tea.Msg)
	runner.SetSend(func(msg tea.Msg) { delivered <- msg })

	sess, gen := submitSession(t, "m")

	// Called the way Update calls it: no receiver is ready yet.
	runner.Start(sess, gen, nil)

	var content string
	timeout := time.After(5 * time.Second)
	sawStart := false
	for {
		select {
		case msg := <-delivered:
			switch msg := msg.(type) {
			case StreamStartedMsg:
				sawStart = true
			case StreamFragmentMsg:
				if !sawStart {
					t.Fatal("fragment arrived before the start message")
				}
				content += msg.Content
			case StreamCompleteMsg:
				if content != "Hi there!" {
					t.Errorf("content = %q, want %q", content, "Hi there!")
				}
				return
			case StreamFailedMsg:
				t.Fatalf("stream failed: %v", msg.Err)
			}
		case <-timeout:
			t.Fatal("stream never completed")
		}
	}
}

func TestStreamingBufferBatchFlush(t *testing.T) {
	buf := NewStreamingBuffer()

	// Below both thresholds: no flush.
	buf.Write(1, "hello")
	if content, _, ok := buf.Flush(); ok {
		t.Errorf("premature flush: %q", content)
	}

	// Batch size threshold triggers a flush regardless of time.
	for i := 0; i < 20; i++ {
		buf.Write(1, "x")
	}
	content, gen, ok := buf.Flush()
	if !ok {
		t.Fatal("batch threshold did not trigger flush")
	}
	if gen != 1 {
		t.Errorf("gen = %d, want 1", gen)
	}
	if content != "hello"+strings.Repeat("x", 20) {
		t.Errorf("content = %q", content)
	}

	// Buffer is empty after flush.
	if buf.Pending() != 0 {
		t.Errorf("Pending = %d after flush", buf.Pending())
	}
}

func TestStreamingBufferTimeFlush(t *testing.T) {
	buf := NewStreamingBuffer()
	buf.Write(1, "token")

	// Force the interval to elapse.
	buf.mu.Lock()
	buf.lastFlush = time.Now().Add(-100 * time.Millisecond)
	buf.mu.Unlock()

	content, _, ok := buf.Flush()
	if !ok || content != "token" {
		t.Errorf("time-based flush = %q, %v", content, ok)
	}
}

func TestStreamingBufferGenerationReset(t *testing.T) {
	buf := NewStreamingBuffer()
	buf.Write(1, "stale content")

	// A fragment from a newer generation discards the old buffer.
	buf.Write(2, "fresh")

	content, gen, ok := buf.ForceFlush()
	if !ok {
		t.Fatal("ForceFlush returned nothing")
	}
	if gen != 2 || content != "fresh" {
		t.Errorf("got gen=%d content=%q, want gen=2 content=fresh", gen, content)
	}
}

func TestStreamingBufferForceFlush(t *testing.T) {
	buf := NewStreamingBuffer()

	if _, _, ok := buf.ForceFlush(); ok {
		t.Error("ForceFlush on empty buffer reported content")
	}

	buf.Write(3, "tail")
	content, gen, ok := buf.ForceFlush()
	if !ok || content != "tail" || gen != 3 {
		t.Errorf("ForceFlush = %q, %d, %v", content, gen, ok)
	}
}

func TestStreamingBufferReset(t *testing.T) {
	buf := NewStreamingBuffer()
	buf.Write(1, "discard me")
	buf.Reset()

	if _, _, ok := buf.ForceFlush(); ok {
		t.Error("content survived Reset")
	}
	if buf.Pending() != 0 {
		t.Errorf("Pending = %d after Reset", buf.Pending())
	}
}
