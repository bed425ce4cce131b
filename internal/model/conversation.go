// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"

	"github.com/google/uuid"

	"tellama/internal/ollama"
)

// MaxMessages is the maximum number of messages kept in chat history. When
// exceeded, old messages are pruned to prevent unbounded memory growth.
const MaxMessages = 1000

// TitleLength is the rune budget for auto-generated chat titles.
const TitleLength = 50

// =============================================================================
// CHAT TYPE
// =============================================================================

// Chat holds a complete conversation with history, the selected model, and
// per-chat generation settings.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Messages []*Message `json:"messages"`

	// Model selected for this chat.
	Model string `json:"model"`

	// Settings are the generation parameters for this chat. Nil means
	// server defaults.
	Settings *ollama.Options `json:"settings,omitempty"`

	// SystemPrompt is prepended to every request when set.
	SystemPrompt string `json:"system_prompt,omitempty"`

	// Context tracking.
	TokensUsed     int     `json:"tokens_used"`
	MaxTokens      int     `json:"max_tokens"`
	ContextPercent float64 `json:"-"`
}

// NewChat creates a new chat with a generated ID.
func NewChat() *Chat {
	return &Chat{
		ID:        uuid.NewString(),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		Messages:  make([]*Message, 0),
		MaxTokens: 8192,
	}
}

// NewChatWithModel creates a new chat with a specific model.
func NewChatWithModel(model string) *Chat {
	chat := NewChat()
	chat.Model = model
	return chat
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AddMessage adds a message to the chat.
func (c *Chat) AddMessage(msg *Message) {
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = time.Now()
	c.updateTokenEstimate()
	c.updateTitle()
	c.pruneOldMessages()
}

// AddUserMessage creates and adds a user message.
func (c *Chat) AddUserMessage(content string) *Message {
	msg := NewUserMessage(content)
	c.AddMessage(msg)
	return msg
}

// AddUserMessageWithImages creates and adds a user message with attachments.
func (c *Chat) AddUserMessageWithImages(content string, images []Image) *Message {
	msg := NewUserMessageWithImages(content, images)
	c.AddMessage(msg)
	return msg
}

// AddAssistantMessage creates and adds a streaming assistant message.
func (c *Chat) AddAssistantMessage() *Message {
	msg := NewAssistantMessage()
	c.AddMessage(msg)
	return msg
}

// LastMessage returns the most recent message, or nil if empty.
func (c *Chat) LastMessage() *Message {
	if len(c.Messages) == 0 {
		return nil
	}
	return c.Messages[len(c.Messages)-1]
}

// LastAssistantMessage returns the most recent assistant message.
func (c *Chat) LastAssistantMessage() *Message {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleAssistant {
			return c.Messages[i]
		}
	}
	return nil
}

// LastUserMessage returns the most recent user message.
func (c *Chat) LastUserMessage() *Message {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleUser {
			return c.Messages[i]
		}
	}
	return nil
}

// AppendToLast appends a token to the last (streaming) message.
func (c *Chat) AppendToLast(token string) {
	last := c.LastMessage()
	if last != nil && last.IsStreaming {
		last.AppendToken(token)
	}
}

// FinalizeLast finalizes the last streaming message with statistics.
func (c *Chat) FinalizeLast(stats *Statistics) {
	last := c.LastMessage()
	if last != nil && last.IsStreaming {
		last.FinalizeStream(stats)
		c.updateTokenEstimate()
	}
}

// FailLast marks the last streaming message as failed, keeping any partial
// content for display and retry.
func (c *Chat) FailLast() {
	last := c.LastMessage()
	if last != nil && last.IsStreaming {
		last.FailStream()
		c.updateTokenEstimate()
	}
}

// RemoveLastExchange removes the trailing assistant message and the user
// message before it. Used by retry to resubmit the last prompt.
func (c *Chat) RemoveLastExchange() *Message {
	last := c.LastMessage()
	if last == nil || last.Role != RoleAssistant {
		return nil
	}
	c.Messages = c.Messages[:len(c.Messages)-1]

	user := c.LastMessage()
	if user == nil || user.Role != RoleUser {
		return nil
	}
	c.Messages = c.Messages[:len(c.Messages)-1]
	c.UpdatedAt = time.Now()
	c.updateTokenEstimate()
	return user
}

// ClearHistory removes all messages from the chat.
func (c *Chat) ClearHistory() {
	c.Messages = make([]*Message, 0)
	c.TokensUsed = 0
	c.ContextPercent = 0
	c.UpdatedAt = time.Now()
}

// RemoveMessage removes a message by ID.
func (c *Chat) RemoveMessage(id string) bool {
	for i, msg := range c.Messages {
		if msg.ID == id {
			c.Messages = append(c.Messages[:i], c.Messages[i+1:]...)
			c.UpdatedAt = time.Now()
			c.updateTokenEstimate()
			return true
		}
	}
	return false
}

// MessageByID returns a message by its ID, or nil.
func (c *Chat) MessageByID(id string) *Message {
	for _, msg := range c.Messages {
		if msg.ID == id {
			return msg
		}
	}
	return nil
}

// MessageCount returns the number of messages.
func (c *Chat) MessageCount() int {
	return len(c.Messages)
}

// IsEmpty returns true if there are no messages.
func (c *Chat) IsEmpty() bool {
	return len(c.Messages) == 0
}

// =============================================================================
// WIRE CONVERSION
// =============================================================================

// ToWireMessages converts the chat history to the client's message format,
// prepending the system prompt when set. Failed assistant messages are
// skipped so a retried prompt does not carry the broken response as context.
func (c *Chat) ToWireMessages() []ollama.Message {
	messages := make([]ollama.Message, 0, len(c.Messages)+1)

	if c.SystemPrompt != "" {
		messages = append(messages, ollama.NewSystemMessage(c.SystemPrompt))
	}

	for _, msg := range c.Messages {
		if msg.Failed {
			continue
		}

		content := msg.DisplayContent()
		if content == "" && len(msg.Images) == 0 {
			continue
		}

		wire := ollama.Message{
			Role:    msg.Role.String(),
			Content: content,
		}
		for _, img := range msg.Images {
			wire.Images = append(wire.Images, img.Data)
		}
		messages = append(messages, wire)
	}

	return messages
}

// =============================================================================
// TOKEN TRACKING
// =============================================================================

// EstimateTokens estimates the total token count of the chat.
func (c *Chat) EstimateTokens() int {
	total := 0

	if c.SystemPrompt != "" {
		total += (len(c.SystemPrompt) + 3) / 4
	}

	for _, msg := range c.Messages {
		total += msg.EstimateTokens()
		// Overhead for message structure.
		total += 4
	}

	return total
}

func (c *Chat) updateTokenEstimate() {
	c.TokensUsed = c.EstimateTokens()
	if c.MaxTokens > 0 {
		c.ContextPercent = float64(c.TokensUsed) / float64(c.MaxTokens) * 100
	}
}

// SetMaxTokens updates the maximum context window.
func (c *Chat) SetMaxTokens(max int) {
	c.MaxTokens = max
	c.updateTokenEstimate()
}

// IsContextNearLimit returns true if context usage is above 75%.
func (c *Chat) IsContextNearLimit() bool {
	return c.ContextPercent >= 75
}

// =============================================================================
// TITLE MANAGEMENT
// =============================================================================

// updateTitle auto-generates a title from the first user message if not set.
func (c *Chat) updateTitle() {
	if c.Title != "" {
		return
	}

	for _, msg := range c.Messages {
		if msg.Role == RoleUser {
			c.Title = msg.Preview(TitleLength)
			return
		}
	}
}

// SetTitle manually sets the chat title.
func (c *Chat) SetTitle(title string) {
	c.Title = title
	c.UpdatedAt = time.Now()
}

// GetTitle returns the chat title or a default.
func (c *Chat) GetTitle() string {
	if c.Title != "" {
		return c.Title
	}
	return "New Chat"
}

// =============================================================================
// METADATA
// =============================================================================

// Preview returns a short preview of the chat.
func (c *Chat) Preview() string {
	if len(c.Messages) == 0 {
		return "Empty chat"
	}

	last := c.LastUserMessage()
	if last == nil {
		last = c.Messages[0]
	}
	return last.Preview(100)
}

// Meta returns lightweight metadata about the chat.
func (c *Chat) Meta() ChatMeta {
	return ChatMeta{
		ID:           c.ID,
		Title:        c.GetTitle(),
		Model:        c.Model,
		MessageCount: len(c.Messages),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		Preview:      c.Preview(),
	}
}

// ChatMeta holds lightweight metadata for listing.
type ChatMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Model        string    `json:"model"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	Preview      string    `json:"preview"`
}

// Clone creates a deep copy of the chat.
func (c *Chat) Clone() *Chat {
	clone := &Chat{
		ID:           c.ID,
		Title:        c.Title,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		Model:        c.Model,
		SystemPrompt: c.SystemPrompt,
		TokensUsed:   c.TokensUsed,
		MaxTokens:    c.MaxTokens,
		Messages:     make([]*Message, len(c.Messages)),
	}

	if c.Settings != nil {
		settings := *c.Settings
		clone.Settings = &settings
	}

	for i, msg := range c.Messages {
		msgCopy := *msg
		clone.Messages[i] = &msgCopy
	}

	return clone
}

// pruneOldMessages drops the oldest non-system messages once the history
// exceeds MaxMessages.
func (c *Chat) pruneOldMessages() {
	if len(c.Messages) <= MaxMessages {
		return
	}

	var systemMessages []*Message
	var otherMessages []*Message
	for _, msg := range c.Messages {
		if msg.Role == RoleSystem {
			systemMessages = append(systemMessages, msg)
		} else {
			otherMessages = append(otherMessages, msg)
		}
	}

	if len(otherMessages) > MaxMessages {
		otherMessages = otherMessages[len(otherMessages)-MaxMessages:]
	}

	c.Messages = make([]*Message, 0, len(systemMessages)+len(otherMessages))
	c.Messages = append(c.Messages, systemMessages...)
	c.Messages = append(c.Messages, otherMessages...)
}
