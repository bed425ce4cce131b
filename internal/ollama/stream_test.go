// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestStreamReaderProcess(t *testing.T) {
	input := `{"model":"m","message":{"role":"assistant","content":"Hello"},"done":false}
{"model":"m","message":{"role":"assistant","content":" world"},"done":false}
{"model":"m","message":{"role":"assistant","content":""},"done":true,"eval_count":2,"eval_duration":100000000,"prompt_eval_count":5}
`
	reader := NewStreamReader(strings.NewReader(input))

	var chunks []StreamChunk
	err := reader.Process(context.Background(), func(chunk StreamChunk) {
		chunks = append(chunks, chunk)
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if len(chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(chunks))
	}
	if reader.Accumulated() != "Hello world" {
		t.Errorf("accumulated = %q", reader.Accumulated())
	}
	if reader.Model() != "m" {
		t.Errorf("model = %q", reader.Model())
	}

	last := chunks[2]
	if !last.Done {
		t.Error("final chunk not marked done")
	}
	if last.PromptTokens != 5 || last.CompletionTokens != 2 {
		t.Errorf("tokens = %d/%d, want 5/2", last.PromptTokens, last.CompletionTokens)
	}
	if last.EvalDuration != 100*time.Millisecond {
		t.Errorf("eval duration = %v", last.EvalDuration)
	}
}

func TestStreamReaderSkipsMalformedLines(t *testing.T) {
	input := `{"message":{"content":"ok"},"done":false}
this is not json
{"message":{"content":"!"},"done":true}
`
	reader := NewStreamReader(strings.NewReader(input))

	var count int
	err := reader.Process(context.Background(), func(chunk StreamChunk) {
		count++
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if count != 2 {
		t.Errorf("got %d chunks, want 2 (malformed line skipped)", count)
	}
	if reader.Accumulated() != "ok!" {
		t.Errorf("accumulated = %q", reader.Accumulated())
	}
}

func TestStreamReaderSkipsEmptyLines(t *testing.T) {
	input := "\n\n" + `{"message":{"content":"hi"},"done":true}` + "\n"
	reader := NewStreamReader(strings.NewReader(input))

	err := reader.Process(context.Background(), func(chunk StreamChunk) {})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if reader.Accumulated() != "hi" {
		t.Errorf("accumulated = %q", reader.Accumulated())
	}
}

func TestStreamReaderContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reader := NewStreamReader(strings.NewReader(`{"message":{"content":"x"},"done":false}` + "\n"))
	err := reader.Process(ctx, func(chunk StreamChunk) {
		t.Error("callback called after cancel")
	})
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestStreamReaderLastLineWithoutNewline(t *testing.T) {
	// Final line may arrive without a trailing newline.
	input := `{"message":{"content":"end"},"done":true}`
	reader := NewStreamReader(strings.NewReader(input))

	var done bool
	err := reader.Process(context.Background(), func(chunk StreamChunk) {
		done = chunk.Done
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !done {
		t.Error("final chunk without newline was not processed")
	}
}

func TestStreamAccumulator(t *testing.T) {
	acc := NewStreamAccumulator()

	acc.Add(StreamChunk{Content: "Hi"})
	acc.Add(StreamChunk{Content: " there"})
	acc.Add(StreamChunk{Content: "!", Done: true, CompletionTokens: 3, EvalDuration: time.Second})

	if !acc.IsDone() {
		t.Error("accumulator not done")
	}
	if acc.Content() != "Hi there!" {
		t.Errorf("content = %q, want %q", acc.Content(), "Hi there!")
	}
	if acc.Error() != nil {
		t.Errorf("unexpected error %v", acc.Error())
	}
	if acc.Stats.TokensPerSecond != 3 {
		t.Errorf("tokens per second = %f, want 3", acc.Stats.TokensPerSecond)
	}
}

func TestStreamAccumulatorTrimsLeadingWhitespace(t *testing.T) {
	acc := NewStreamAccumulator()

	acc.Add(StreamChunk{Content: "\n\n"})
	acc.Add(StreamChunk{Content: "  Hello"})
	acc.Add(StreamChunk{Content: " world", Done: true})

	if acc.Content() != "Hello world" {
		t.Errorf("content = %q, want %q", acc.Content(), "Hello world")
	}
}

func TestStreamAccumulatorError(t *testing.T) {
	acc := NewStreamAccumulator()

	acc.Add(StreamChunk{Content: "partial"})
	acc.Add(StreamChunk{Error: ErrTimeout, Done: true})

	if !acc.IsDone() {
		t.Error("accumulator not done after error")
	}
	if acc.Error() == nil {
		t.Error("expected error")
	}
	if acc.Content() != "partial" {
		t.Errorf("content = %q, want partial content preserved", acc.Content())
	}
}

func TestStreamStatsFormat(t *testing.T) {
	stats := &StreamStats{
		TotalDuration:    2500 * time.Millisecond,
		CompletionTokens: 42,
		TokensPerSecond:  16.5,
		TTFT:             120 * time.Millisecond,
	}

	got := stats.Format()
	for _, want := range []string{"2.5s", "42 tokens", "16.5 tok/s", "TTFT 120ms"} {
		if !strings.Contains(got, want) {
			t.Errorf("Format() = %q, missing %q", got, want)
		}
	}
}
