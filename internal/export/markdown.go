// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"tellama/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports chats to Markdown format.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// Export converts a chat to Markdown format.
func (e *MarkdownExporter) Export(chat *model.Chat) ([]byte, error) {
	if chat == nil {
		return nil, fmt.Errorf("chat is nil")
	}
	if len(chat.Messages) == 0 {
		return nil, fmt.Errorf("chat has no messages")
	}

	var sb strings.Builder

	// YAML frontmatter with metadata
	if e.options.IncludeMetadata {
		sb.WriteString("---\n")
		sb.WriteString(fmt.Sprintf("title: %s\n", escapeYAML(chat.GetTitle())))
		sb.WriteString(fmt.Sprintf("model: %s\n", chat.Model))
		sb.WriteString(fmt.Sprintf("date: %s\n", chat.CreatedAt.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("updated: %s\n", chat.UpdatedAt.Format(time.RFC3339)))
		sb.WriteString(fmt.Sprintf("messages: %d\n", len(chat.Messages)))
		if chat.TokensUsed > 0 {
			sb.WriteString(fmt.Sprintf("tokens: %d\n", chat.TokensUsed))
		}
		sb.WriteString(fmt.Sprintf("exported: %s\n", time.Now().Format(time.RFC3339)))
		sb.WriteString("generator: tellama\n")
		sb.WriteString("---\n\n")
	}

	// Title
	sb.WriteString(fmt.Sprintf("# %s\n\n", escapeMarkdown(chat.GetTitle())))

	// Metadata section
	if e.options.IncludeMetadata {
		sb.WriteString("## Chat Information\n\n")
		sb.WriteString(fmt.Sprintf("- **Model**: %s\n", chat.Model))
		sb.WriteString(fmt.Sprintf("- **Created**: %s\n", formatTimestamp(chat.CreatedAt)))
		sb.WriteString(fmt.Sprintf("- **Last Updated**: %s\n", formatTimestamp(chat.UpdatedAt)))
		sb.WriteString(fmt.Sprintf("- **Messages**: %d\n", len(chat.Messages)))
		if chat.TokensUsed > 0 {
			sb.WriteString(fmt.Sprintf("- **Tokens Used**: %d\n", chat.TokensUsed))
		}
		if chat.SystemPrompt != "" {
			sb.WriteString(fmt.Sprintf("- **System Prompt**: %s\n", chat.SystemPrompt))
		}
		sb.WriteString("\n---\n\n")
	}

	// Messages
	sb.WriteString("## Conversation\n\n")

	for i, msg := range chat.Messages {
		roleLabel := formatRoleLabel(msg.Role)
		if e.options.IncludeTimestamps {
			sb.WriteString(fmt.Sprintf("### %s <sub>%s</sub>\n\n",
				roleLabel,
				formatShortTimestamp(msg.Timestamp)))
		} else {
			sb.WriteString(fmt.Sprintf("### %s\n\n", roleLabel))
		}

		if msg.Failed {
			sb.WriteString("*(generation failed)*\n\n")
		}

		// Content is already markdown; just normalize spacing.
		sb.WriteString(strings.TrimSpace(msg.Content))
		sb.WriteString("\n\n")

		// Image attachment names for user messages.
		if len(msg.Images) > 0 {
			for _, img := range msg.Images {
				sb.WriteString(fmt.Sprintf("*Attached: %s*\n", img.Name()))
			}
			sb.WriteString("\n")
		}

		// Statistics for assistant messages
		if msg.Role == model.RoleAssistant && e.options.IncludeMetadata {
			if stats := formatMessageStats(msg); stats != "" {
				sb.WriteString(stats)
				sb.WriteString("\n\n")
			}
		}

		if i < len(chat.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	// Footer
	sb.WriteString("\n---\n\n")
	sb.WriteString(fmt.Sprintf("*Exported from Tellama on %s*\n",
		time.Now().Format("January 2, 2006 at 3:04 PM")))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// formatRoleLabel returns a formatted label for the message role.
func formatRoleLabel(role model.Role) string {
	switch role {
	case model.RoleUser:
		return "[User]"
	case model.RoleAssistant:
		return "[Assistant]"
	case model.RoleSystem:
		return "[System]"
	default:
		if role == "" {
			return "Unknown"
		}
		runes := []rune(string(role))
		return strings.ToUpper(string(runes[0])) + string(runes[1:])
	}
}

// formatMessageStats formats generation statistics for a message.
func formatMessageStats(msg *model.Message) string {
	if msg.TokenCount == 0 && msg.TotalDuration == 0 {
		return ""
	}

	var parts []string

	if msg.TokenCount > 0 {
		parts = append(parts, fmt.Sprintf("Tokens: %d", msg.TokenCount))
	}
	if msg.TotalDuration > 0 {
		parts = append(parts, fmt.Sprintf("Duration: %s", formatDurationMs(msg.TotalDuration.Milliseconds())))
	}
	if msg.TTFT > 0 {
		parts = append(parts, fmt.Sprintf("TTFT: %s", formatDurationMs(msg.TTFT.Milliseconds())))
	}
	if msg.TokensPerSec > 0 {
		parts = append(parts, fmt.Sprintf("Speed: %.1f tok/s", msg.TokensPerSec))
	}

	if len(parts) == 0 {
		return ""
	}

	return fmt.Sprintf("<sub>Stats: %s</sub>", strings.Join(parts, " | "))
}

// formatDurationMs formats a duration in milliseconds to a human-readable
// string.
func formatDurationMs(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	seconds := float64(ms) / 1000.0
	if seconds < 60 {
		return fmt.Sprintf("%.2fs", seconds)
	}
	minutes := int(seconds / 60)
	remainingSeconds := int(seconds) % 60
	return fmt.Sprintf("%dm %ds", minutes, remainingSeconds)
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes characters that would break formatting in headings.
func escapeMarkdown(s string) string {
	s = strings.ReplaceAll(s, "#", "\\#")
	s = strings.ReplaceAll(s, "*", "\\*")
	s = strings.ReplaceAll(s, "_", "\\_")
	s = strings.ReplaceAll(s, "[", "\\[")
	s = strings.ReplaceAll(s, "]", "\\]")
	return s
}

// escapeYAML escapes special YAML characters in values.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return fmt.Sprintf("\"%s\"", s)
	}
	return s
}
