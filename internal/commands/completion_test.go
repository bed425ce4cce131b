// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"strings"
	"testing"
)

func TestCompleteCommandNames(t *testing.T) {
	c := NewCompleter(NewRegistry())

	completions := c.Complete("/mo", 3)
	if len(completions) == 0 {
		t.Fatal("no completions for /mo")
	}

	found := false
	for _, comp := range completions {
		if comp.Value == "/model" || comp.Value == "/models" {
			found = true
		}
	}
	if !found {
		t.Errorf("model commands missing from completions: %v", completions)
	}
}

func TestCompleteEmptyCommand(t *testing.T) {
	c := NewCompleter(NewRegistry())

	completions := c.Complete("/", 1)
	if len(completions) == 0 {
		t.Fatal("no completions for bare slash")
	}
}

func TestCompleteNonCommand(t *testing.T) {
	c := NewCompleter(NewRegistry())

	if completions := c.Complete("hello", 5); completions != nil {
		t.Errorf("plain text produced completions: %v", completions)
	}
}

func TestCompleteModelArg(t *testing.T) {
	c := NewCompleter(NewRegistry())
	c.ModelsFn = func() []string {
		return []string{"llama3.2", "llava", "qwen2.5"}
	}

	// "lla" matches both llama3.2 and llava.
	completions := c.Complete("/model lla", 10)
	if len(completions) != 2 {
		t.Fatalf("completions = %v, want llama3.2 and llava", completions)
	}

	completions = c.Complete("/model llam", 11)
	if len(completions) != 1 {
		t.Fatalf("completions = %v, want llama3.2 only", completions)
	}
	if completions[0].Value != "llama3.2" {
		t.Errorf("Value = %q", completions[0].Value)
	}
}

func TestCompleteModelArgAfterSpace(t *testing.T) {
	c := NewCompleter(NewRegistry())
	c.ModelsFn = func() []string {
		return []string{"llama3.2", "llava"}
	}

	completions := c.Complete("/model ", 7)
	if len(completions) != 2 {
		t.Errorf("completions = %v, want both models", completions)
	}
}

func TestCompleteChatArg(t *testing.T) {
	c := NewCompleter(NewRegistry())
	c.ChatsFn = func() []ChatInfo {
		return []ChatInfo{
			{ID: "abc-123", Title: "Go questions", Preview: "How do goroutines work?"},
			{ID: "def-456", Title: "Recipes"},
		}
	}

	completions := c.Complete("/load abc", 9)
	if len(completions) != 1 {
		t.Fatalf("completions = %v", completions)
	}
	if completions[0].Value != "abc-123" {
		t.Errorf("Value = %q", completions[0].Value)
	}
	if !strings.Contains(completions[0].Display, "Go questions") {
		t.Errorf("Display = %q, want title included", completions[0].Display)
	}
}

func TestCompleteChatByTitle(t *testing.T) {
	c := NewCompleter(NewRegistry())
	c.ChatsFn = func() []ChatInfo {
		return []ChatInfo{
			{ID: "abc-123", Title: "Go questions"},
			{ID: "def-456", Title: "Recipes"},
		}
	}

	completions := c.Complete("/load recipes", 13)
	if len(completions) != 1 || completions[0].Value != "def-456" {
		t.Errorf("title match failed: %v", completions)
	}
}

func TestCompleteEnumArg(t *testing.T) {
	c := NewCompleter(NewRegistry())

	completions := c.Complete("/export j", 9)
	if len(completions) != 1 || completions[0].Value != "json" {
		t.Errorf("completions = %v, want json", completions)
	}
}

func TestCompleteConfigKeys(t *testing.T) {
	c := NewCompleter(NewRegistry())
	c.ConfigFn = func() []string {
		return []string{"ui.theme", "server.url", "chat.default_model"}
	}

	completions := c.Complete("/config ui", 10)
	if len(completions) != 1 || completions[0].Value != "ui.theme" {
		t.Errorf("completions = %v", completions)
	}
}

func TestAliasScoredBelowName(t *testing.T) {
	c := NewCompleter(NewRegistry())

	// /h matches both the /help alias and /help itself at different scores.
	completions := c.completeCommands("/h")
	if len(completions) < 2 {
		t.Fatalf("completions = %v", completions)
	}
	if completions[0].Value != "/h" && completions[0].Value != "/help" {
		t.Errorf("top completion = %q", completions[0].Value)
	}
}

func TestCalculateScore(t *testing.T) {
	exact := calculateScore("/help", "/help")
	prefix := calculateScore("/help", "/he")
	none := calculateScore("/model", "/he")

	if exact <= prefix {
		t.Error("exact match not scored above prefix match")
	}
	if prefix <= none {
		t.Error("prefix match not scored above non-match")
	}
}

func TestCompletionStateNavigation(t *testing.T) {
	cs := NewCompletionState()
	cs.Update("/m", []Completion{
		{Value: "/model"},
		{Value: "/models"},
	})

	if !cs.Visible {
		t.Error("state not visible with completions")
	}
	if cs.Accept() != "/model" {
		t.Errorf("Accept = %q, want first auto-selected", cs.Accept())
	}

	cs.Next()
	if cs.Accept() != "/models" {
		t.Errorf("Accept after Next = %q", cs.Accept())
	}

	cs.Next() // wraps
	if cs.Accept() != "/model" {
		t.Errorf("Accept after wrap = %q", cs.Accept())
	}

	cs.Prev()
	if cs.Accept() != "/models" {
		t.Errorf("Accept after Prev = %q", cs.Accept())
	}

	cs.Clear()
	if cs.Visible || cs.GetSelected() != nil {
		t.Error("Clear did not reset state")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 30); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	long := strings.Repeat("x", 40)
	got := truncate(long, 30)
	if len([]rune(got)) != 30 || !strings.HasSuffix(got, "...") {
		t.Errorf("truncate long = %q", got)
	}
}
