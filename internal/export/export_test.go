// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tellama/internal/model"
)

func testChat() *model.Chat {
	chat := model.NewChatWithModel("llama3.2")
	chat.AddUserMessage("How do goroutines work?")

	asst := chat.AddAssistantMessage()
	asst.AppendToken("Goroutines are lightweight threads managed by the Go runtime.")
	stats := model.NewStatistics()
	stats.RecordFirstToken()
	stats.Finalize(12)
	chat.FinalizeLast(stats)

	return chat
}

func TestMarkdownExport(t *testing.T) {
	chat := testChat()

	content, err := NewMarkdownExporter(nil).Export(chat)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	out := string(content)

	for _, want := range []string{
		"# How do goroutines work?",
		"model: llama3.2",
		"### [User]",
		"### [Assistant]",
		"Goroutines are lightweight threads",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q", want)
		}
	}
}

func TestMarkdownExportWithoutMetadata(t *testing.T) {
	chat := testChat()

	opts := DefaultOptions()
	opts.IncludeMetadata = false
	opts.IncludeTimestamps = false

	content, err := NewMarkdownExporter(opts).Export(chat)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	out := string(content)

	if strings.Contains(out, "---\ntitle:") {
		t.Error("frontmatter present with metadata disabled")
	}
	if strings.Contains(out, "<sub>") {
		t.Error("timestamps present with timestamps disabled")
	}
}

func TestMarkdownExportFailedMessage(t *testing.T) {
	chat := model.NewChatWithModel("llama3.2")
	chat.AddUserMessage("hello")
	asst := chat.AddAssistantMessage()
	asst.AppendToken("partial")
	chat.FailLast()

	content, err := NewMarkdownExporter(nil).Export(chat)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.Contains(string(content), "(generation failed)") {
		t.Error("failed marker missing")
	}
	if !strings.Contains(string(content), "partial") {
		t.Error("partial content missing")
	}
}

func TestMarkdownExportImages(t *testing.T) {
	chat := model.NewChatWithModel("llava")
	chat.AddUserMessageWithImages("what is this?", []model.Image{
		{Path: "/tmp/photos/cat.png", Data: "aGVsbG8="},
	})

	content, err := NewMarkdownExporter(nil).Export(chat)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if !strings.Contains(string(content), "*Attached: cat.png*") {
		t.Error("attachment name missing")
	}
}

func TestMarkdownExportEmpty(t *testing.T) {
	if _, err := NewMarkdownExporter(nil).Export(model.NewChat()); err == nil {
		t.Error("expected error for empty chat")
	}
	if _, err := NewMarkdownExporter(nil).Export(nil); err == nil {
		t.Error("expected error for nil chat")
	}
}

func TestJSONExportRoundTrip(t *testing.T) {
	chat := testChat()

	content, err := NewJSONExporter(nil).Export(chat)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	var decoded model.Chat
	if err := json.Unmarshal(content, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.ID != chat.ID {
		t.Errorf("ID = %q, want %q", decoded.ID, chat.ID)
	}
	if decoded.Model != "llama3.2" {
		t.Errorf("Model = %q", decoded.Model)
	}
	if len(decoded.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(decoded.Messages))
	}
}

func TestHTMLExport(t *testing.T) {
	chat := testChat()

	content, err := NewHTMLExporter(nil).Export(chat)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	out := string(content)

	for _, want := range []string{
		"<!DOCTYPE html>",
		"dark-theme",
		"How do goroutines work?",
		"Goroutines are lightweight threads",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("html missing %q", want)
		}
	}
}

func TestHTMLExportEscapesContent(t *testing.T) {
	chat := model.NewChatWithModel("llama3.2")
	chat.AddUserMessage("<script>alert(1)</script>")

	content, err := NewHTMLExporter(nil).Export(chat)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if strings.Contains(string(content), "<script>alert(1)</script>") {
		t.Error("content not escaped")
	}
	if !strings.Contains(string(content), "&lt;script&gt;") {
		t.Error("escaped content missing")
	}
}

func TestExportToFile(t *testing.T) {
	chat := testChat()

	opts := DefaultOptions()
	opts.OutputDir = t.TempDir()

	path, err := ExportToFile(chat, NewMarkdownExporter(opts), opts)
	if err != nil {
		t.Fatalf("ExportToFile: %v", err)
	}

	if filepath.Ext(path) != ".md" {
		t.Errorf("extension = %q, want .md", filepath.Ext(path))
	}
	if !strings.HasPrefix(filepath.Base(path), "chat_How_do_goroutines_work") {
		t.Errorf("unexpected filename: %s", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "goroutines") {
		t.Error("file content missing")
	}
}

func TestForFormat(t *testing.T) {
	tests := []struct {
		format string
		ext    string
	}{
		{"markdown", ".md"},
		{"md", ".md"},
		{"json", ".json"},
		{"html", ".html"},
	}

	for _, tc := range tests {
		exp, err := ForFormat(tc.format, nil)
		if err != nil {
			t.Errorf("ForFormat(%q): %v", tc.format, err)
			continue
		}
		if exp.FileExtension() != tc.ext {
			t.Errorf("ForFormat(%q).FileExtension() = %q, want %q", tc.format, exp.FileExtension(), tc.ext)
		}
	}

	if _, err := ForFormat("pdf", nil); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"simple", "simple"},
		{"has spaces", "has_spaces"},
		{"a/b\\c:d", "a-b-c-d"},
		{"", "chat"},
		{strings.Repeat("x", 80), strings.Repeat("x", 50)},
	}

	for _, tc := range tests {
		if got := sanitizeFilename(tc.in); got != tc.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatDurationMs(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{500, "500ms"},
		{1500, "1.50s"},
		{90000, "1m 30s"},
	}

	for _, tc := range tests {
		if got := formatDurationMs(tc.ms); got != tc.want {
			t.Errorf("formatDurationMs(%d) = %q, want %q", tc.ms, got, tc.want)
		}
	}
}

func TestEscapeYAML(t *testing.T) {
	if got := escapeYAML("plain title"); got != "plain title" {
		t.Errorf("plain = %q", got)
	}
	if got := escapeYAML(`has "quotes": yes`); got != `"has \"quotes\": yes"` {
		t.Errorf("quoted = %q", got)
	}
}

func TestMarkdownStatsLine(t *testing.T) {
	msg := &model.Message{
		Role:          model.RoleAssistant,
		TokenCount:    42,
		TotalDuration: 2 * time.Second,
		TTFT:          120 * time.Millisecond,
		TokensPerSec:  21.0,
	}

	out := formatMessageStats(msg)
	for _, want := range []string{"Tokens: 42", "Duration: 2.00s", "TTFT: 120ms", "Speed: 21.0 tok/s"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats missing %q in %q", want, out)
		}
	}
}
