// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"html"
	"strings"
	"time"

	"tellama/internal/model"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports chats to a standalone HTML page with embedded CSS.
type HTMLExporter struct {
	options *Options
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{options: opts}
}

// Export converts a chat to HTML format.
func (e *HTMLExporter) Export(chat *model.Chat) ([]byte, error) {
	if chat == nil {
		return nil, fmt.Errorf("chat is nil")
	}
	if len(chat.Messages) == 0 {
		return nil, fmt.Errorf("chat has no messages")
	}

	var sb strings.Builder

	sb.WriteString("<!DOCTYPE html>\n")
	sb.WriteString("<html lang=\"en\">\n")
	sb.WriteString("<head>\n")
	sb.WriteString("    <meta charset=\"UTF-8\">\n")
	sb.WriteString("    <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	sb.WriteString(fmt.Sprintf("    <title>%s</title>\n", html.EscapeString(chat.GetTitle())))
	sb.WriteString("    <meta name=\"generator\" content=\"tellama\">\n")
	sb.WriteString(fmt.Sprintf("    <meta name=\"date\" content=\"%s\">\n", chat.CreatedAt.Format(time.RFC3339)))
	sb.WriteString(e.getCSS())
	sb.WriteString("</head>\n")
	sb.WriteString(fmt.Sprintf("<body class=\"%s-theme\">\n", e.options.Theme))
	sb.WriteString("    <div class=\"container\">\n")

	if e.options.IncludeMetadata {
		sb.WriteString(e.renderHeader(chat))
	}

	sb.WriteString("        <main class=\"conversation\">\n")
	for _, msg := range chat.Messages {
		sb.WriteString(e.renderMessage(msg))
	}
	sb.WriteString("        </main>\n")

	sb.WriteString("        <footer class=\"footer\">\n")
	sb.WriteString(fmt.Sprintf("            <p>Exported from <strong>Tellama</strong> on %s</p>\n",
		time.Now().Format("January 2, 2006 at 3:04 PM")))
	sb.WriteString("        </footer>\n")

	sb.WriteString("    </div>\n")
	sb.WriteString("</body>\n")
	sb.WriteString("</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

// renderHeader renders the header section with chat metadata.
func (e *HTMLExporter) renderHeader(chat *model.Chat) string {
	var sb strings.Builder

	sb.WriteString("        <header class=\"header\">\n")
	sb.WriteString(fmt.Sprintf("            <h1>%s</h1>\n", html.EscapeString(chat.GetTitle())))
	sb.WriteString("            <div class=\"metadata\">\n")
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Model:</strong> %s</span>\n", html.EscapeString(chat.Model)))
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Created:</strong> %s</span>\n", formatTimestamp(chat.CreatedAt)))
	sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Messages:</strong> %d</span>\n", len(chat.Messages)))
	if chat.TokensUsed > 0 {
		sb.WriteString(fmt.Sprintf("                <span class=\"meta-item\"><strong>Tokens:</strong> %d</span>\n", chat.TokensUsed))
	}
	sb.WriteString("            </div>\n")
	sb.WriteString("        </header>\n")

	return sb.String()
}

// renderMessage renders a single message block.
func (e *HTMLExporter) renderMessage(msg *model.Message) string {
	var sb strings.Builder

	roleClass := string(msg.Role)
	if msg.Failed {
		roleClass += " failed"
	}

	sb.WriteString(fmt.Sprintf("            <div class=\"message %s\">\n", roleClass))
	sb.WriteString("                <div class=\"message-header\">\n")
	sb.WriteString(fmt.Sprintf("                    <span class=\"role\">%s</span>\n", html.EscapeString(msg.Role.DisplayName())))
	if e.options.IncludeTimestamps {
		sb.WriteString(fmt.Sprintf("                    <span class=\"timestamp\">%s</span>\n", formatShortTimestamp(msg.Timestamp)))
	}
	sb.WriteString("                </div>\n")

	// Content is rendered as preformatted text; the chat content is
	// markdown and escaping keeps it safe without a renderer dependency.
	sb.WriteString("                <div class=\"content\"><pre>")
	sb.WriteString(html.EscapeString(msg.Content))
	sb.WriteString("</pre></div>\n")

	for _, img := range msg.Images {
		sb.WriteString(fmt.Sprintf("                <div class=\"attachment\">Attached: %s</div>\n",
			html.EscapeString(img.Name())))
	}

	if msg.Role == model.RoleAssistant && e.options.IncludeMetadata {
		if stats := msg.FormatStats(); stats != "" {
			sb.WriteString(fmt.Sprintf("                <div class=\"stats\">%s</div>\n", html.EscapeString(stats)))
		}
	}

	sb.WriteString("            </div>\n")

	return sb.String()
}

// getCSS returns the embedded stylesheet.
func (e *HTMLExporter) getCSS() string {
	return `    <style>
        :root {
            --bg: #ffffff;
            --fg: #1a1a1a;
            --muted: #6b6b6b;
            --border: #e0e0e0;
            --user-bg: #eef4ff;
            --assistant-bg: #f7f7f7;
            --failed: #c0392b;
        }
        .dark-theme {
            --bg: #1e1e1e;
            --fg: #e0e0e0;
            --muted: #9a9a9a;
            --border: #3a3a3a;
            --user-bg: #26324a;
            --assistant-bg: #2a2a2a;
            --failed: #e74c3c;
        }
        body {
            margin: 0;
            background: var(--bg);
            color: var(--fg);
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif;
            line-height: 1.5;
        }
        .container { max-width: 860px; margin: 0 auto; padding: 2rem 1rem; }
        .header h1 { margin: 0 0 .5rem; font-size: 1.5rem; }
        .metadata { color: var(--muted); font-size: .85rem; }
        .meta-item { margin-right: 1rem; }
        .message {
            margin: 1rem 0;
            padding: .75rem 1rem;
            border: 1px solid var(--border);
            border-radius: 8px;
            background: var(--assistant-bg);
        }
        .message.user { background: var(--user-bg); }
        .message.failed { border-color: var(--failed); }
        .message-header {
            display: flex;
            justify-content: space-between;
            font-size: .8rem;
            color: var(--muted);
            margin-bottom: .5rem;
        }
        .role { font-weight: 600; }
        .content pre {
            margin: 0;
            white-space: pre-wrap;
            word-wrap: break-word;
            font-family: inherit;
        }
        .attachment, .stats {
            margin-top: .5rem;
            font-size: .75rem;
            color: var(--muted);
        }
        .footer {
            margin-top: 2rem;
            padding-top: 1rem;
            border-top: 1px solid var(--border);
            color: var(--muted);
            font-size: .8rem;
            text-align: center;
        }
    </style>
`
}
