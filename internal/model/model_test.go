// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
	"time"

	"tellama/internal/ollama"
)

func TestNewChat(t *testing.T) {
	chat := NewChat()

	if chat.ID == "" {
		t.Error("chat has no ID")
	}
	if !chat.IsEmpty() {
		t.Error("new chat is not empty")
	}
	if chat.GetTitle() != "New Chat" {
		t.Errorf("default title = %q", chat.GetTitle())
	}
}

func TestChatTitleFromFirstPrompt(t *testing.T) {
	chat := NewChat()
	chat.AddUserMessage("How do I write a web server in Go?")

	if chat.Title != "How do I write a web server in Go?" {
		t.Errorf("title = %q", chat.Title)
	}

	// The title sticks once set.
	chat.AddUserMessage("Another question")
	if chat.Title != "How do I write a web server in Go?" {
		t.Errorf("title changed to %q", chat.Title)
	}
}

func TestChatTitleTruncated(t *testing.T) {
	chat := NewChat()
	long := strings.Repeat("word ", 30)
	chat.AddUserMessage(long)

	if !strings.HasSuffix(chat.Title, "...") {
		t.Errorf("long title not truncated: %q", chat.Title)
	}
	if len([]rune(chat.Title)) > TitleLength {
		t.Errorf("title is %d runes, budget %d", len([]rune(chat.Title)), TitleLength)
	}
}

func TestChatTitleCollapsesNewlines(t *testing.T) {
	chat := NewChat()
	chat.AddUserMessage("first line\nsecond line")

	if strings.Contains(chat.Title, "\n") {
		t.Errorf("title contains newline: %q", chat.Title)
	}
}

func TestStreamingMessageLifecycle(t *testing.T) {
	chat := NewChat()
	chat.AddUserMessage("Hello")
	msg := chat.AddAssistantMessage()

	if !msg.IsStreaming {
		t.Fatal("assistant message not streaming")
	}

	chat.AppendToLast("Hi")
	chat.AppendToLast(" there")
	chat.AppendToLast("!")

	if got := msg.DisplayContent(); got != "Hi there!" {
		t.Errorf("display content = %q", got)
	}
	if msg.Content != "" {
		t.Errorf("content set before finalize: %q", msg.Content)
	}

	stats := NewStatistics()
	stats.RecordFirstToken()
	stats.Finalize(3)
	chat.FinalizeLast(stats)

	if msg.IsStreaming {
		t.Error("message still streaming after finalize")
	}
	if msg.Content != "Hi there!" {
		t.Errorf("content = %q", msg.Content)
	}
	if msg.TokenCount != 3 {
		t.Errorf("token count = %d", msg.TokenCount)
	}
}

func TestFailLastKeepsPartialContent(t *testing.T) {
	chat := NewChat()
	chat.AddUserMessage("Hello")
	msg := chat.AddAssistantMessage()
	chat.AppendToLast("partial resp")

	chat.FailLast()

	if msg.IsStreaming {
		t.Error("message still streaming after fail")
	}
	if !msg.Failed {
		t.Error("message not marked failed")
	}
	if msg.Content != "partial resp" {
		t.Errorf("partial content lost: %q", msg.Content)
	}
}

func TestRemoveLastExchange(t *testing.T) {
	chat := NewChat()
	chat.AddUserMessage("first")
	first := chat.AddAssistantMessage()
	first.FinalizeStream(nil)
	chat.AddUserMessage("second")
	second := chat.AddAssistantMessage()
	second.FailStream()

	user := chat.RemoveLastExchange()
	if user == nil {
		t.Fatal("RemoveLastExchange returned nil")
	}
	if user.Content != "second" {
		t.Errorf("removed user message = %q", user.Content)
	}
	if chat.MessageCount() != 2 {
		t.Errorf("message count = %d, want 2", chat.MessageCount())
	}
}

func TestRemoveLastExchangeNoAssistant(t *testing.T) {
	chat := NewChat()
	chat.AddUserMessage("only user")

	if got := chat.RemoveLastExchange(); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestToWireMessages(t *testing.T) {
	chat := NewChat()
	chat.SystemPrompt = "Be brief."
	chat.AddUserMessage("Hello")
	msg := chat.AddAssistantMessage()
	msg.AppendToken("Hi!")
	msg.FinalizeStream(nil)

	wire := chat.ToWireMessages()
	if len(wire) != 3 {
		t.Fatalf("got %d messages, want 3", len(wire))
	}
	if wire[0].Role != "system" || wire[0].Content != "Be brief." {
		t.Errorf("system message = %+v", wire[0])
	}
	if wire[1].Role != "user" || wire[2].Role != "assistant" {
		t.Errorf("roles = %q, %q", wire[1].Role, wire[2].Role)
	}
}

func TestToWireMessagesSkipsFailed(t *testing.T) {
	chat := NewChat()
	chat.AddUserMessage("Hello")
	msg := chat.AddAssistantMessage()
	msg.AppendToken("broken")
	msg.FailStream()

	wire := chat.ToWireMessages()
	if len(wire) != 1 {
		t.Fatalf("got %d messages, want 1 (failed skipped)", len(wire))
	}
	if wire[0].Role != "user" {
		t.Errorf("role = %q", wire[0].Role)
	}
}

func TestToWireMessagesIncludesImages(t *testing.T) {
	chat := NewChat()
	chat.AddUserMessageWithImages("describe this", []Image{
		{Path: "/tmp/cat.png", Data: "aW1hZ2VkYXRh"},
	})

	wire := chat.ToWireMessages()
	if len(wire) != 1 {
		t.Fatalf("got %d messages, want 1", len(wire))
	}
	if len(wire[0].Images) != 1 || wire[0].Images[0] != "aW1hZ2VkYXRh" {
		t.Errorf("images = %v", wire[0].Images)
	}
}

func TestImageName(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/home/u/pics/cat.png", "cat.png"},
		{`C:\Users\u\dog.jpg`, "dog.jpg"},
		{"plain.webp", "plain.webp"},
	}
	for _, tc := range tests {
		img := Image{Path: tc.path}
		if got := img.Name(); got != tc.want {
			t.Errorf("Name(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestChatSettingsRoundTrip(t *testing.T) {
	chat := NewChat()
	chat.Settings = &ollama.Options{Temperature: 0.8, NumCtx: 4096}

	clone := chat.Clone()
	if clone.Settings == nil {
		t.Fatal("settings not cloned")
	}
	if clone.Settings.Temperature != 0.8 {
		t.Errorf("temperature = %f", clone.Settings.Temperature)
	}

	// The clone's settings are independent.
	clone.Settings.Temperature = 0.1
	if chat.Settings.Temperature != 0.8 {
		t.Error("mutating clone settings changed the original")
	}
}

func TestPruneOldMessages(t *testing.T) {
	chat := NewChat()
	chat.AddMessage(NewSystemMessage("system prompt"))
	for i := 0; i < MaxMessages+10; i++ {
		chat.AddMessage(NewMessage(RoleUser, "m"))
	}

	if chat.MessageCount() != MaxMessages+1 {
		t.Errorf("message count = %d, want %d", chat.MessageCount(), MaxMessages+1)
	}
	if chat.Messages[0].Role != RoleSystem {
		t.Error("system message was pruned")
	}
}

func TestStatisticsFinalize(t *testing.T) {
	stats := NewStatistics()
	stats.StartTime = time.Now().Add(-2 * time.Second)
	stats.Finalize(100)

	if stats.CompletionTokens != 100 {
		t.Errorf("completion tokens = %d", stats.CompletionTokens)
	}
	if stats.TokensPerSecond < 40 || stats.TokensPerSecond > 60 {
		t.Errorf("tokens per second = %f, want ~50", stats.TokensPerSecond)
	}
}

func TestMessagePreview(t *testing.T) {
	msg := NewUserMessage("line one\nline two that is fairly long")
	got := msg.Preview(15)

	if strings.Contains(got, "\n") {
		t.Errorf("preview contains newline: %q", got)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("preview not truncated: %q", got)
	}
}

func TestRoleDisplayName(t *testing.T) {
	if RoleUser.DisplayName() != "You" {
		t.Errorf("user display = %q", RoleUser.DisplayName())
	}
	if RoleAssistant.DisplayName() != "Assistant" {
		t.Errorf("assistant display = %q", RoleAssistant.DisplayName())
	}
}
