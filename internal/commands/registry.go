// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	tea "github.com/charmbracelet/bubbletea"

	"tellama/internal/config"
	"tellama/internal/ollama"
	"tellama/internal/session"
	"tellama/internal/storage"
	"tellama/internal/tts"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Command represents a slash command that can be executed.
type Command struct {
	// Name is the primary command name (e.g., "/help")
	Name string

	// Aliases are alternative names (e.g., "/h", "/?")
	Aliases []string

	// Description is shown in help and completion
	Description string

	// Usage shows argument syntax (e.g., "/model <name>")
	Usage string

	// Args defines the expected arguments
	Args []ArgDef

	// Handler is the function that executes the command
	Handler func(ctx *Context, args []string) tea.Cmd

	// Hidden commands don't appear in help
	Hidden bool

	// Category for grouping in help display
	Category string
}

// ArgDef defines an argument for a command.
type ArgDef struct {
	// Name of the argument
	Name string

	// Required indicates if the argument must be provided
	Required bool

	// Type determines completion behavior
	Type ArgType

	// Description explains the argument
	Description string

	// Values for enum types
	Values []string

	// Completer for custom completion
	Completer func() []string
}

// ArgType indicates what kind of completion to provide.
type ArgType int

const (
	ArgTypeString ArgType = iota // Free-form string
	ArgTypeModel                 // Model name from the server
	ArgTypeChat                  // Saved chat ID
	ArgTypeFile                  // File path
	ArgTypeEnum                  // One of predefined values
	ArgTypeConfig                // Config key
)

// =============================================================================
// COMMAND REGISTRY
// =============================================================================

// Registry holds all registered commands.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]*Command
}

// NewRegistry creates a new command registry with all built-in commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
	}
	r.registerBuiltins()
	return r
}

// Register adds a command to the registry.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd
	}
}

// Get retrieves a command by name or alias.
func (r *Registry) Get(name string) *Command {
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	if cmd, ok := r.aliases[name]; ok {
		return cmd
	}
	return nil
}

// All returns all registered commands.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	return cmds
}

// ByCategory returns commands grouped by category.
func (r *Registry) ByCategory() map[string][]*Command {
	result := make(map[string][]*Command)
	for _, cmd := range r.commands {
		if cmd.Hidden {
			continue
		}
		category := cmd.Category
		if category == "" {
			category = "General"
		}
		result[category] = append(result[category], cmd)
	}
	return result
}

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	// Navigation commands
	r.Register(&Command{
		Name:        "/help",
		Aliases:     []string{"/h", "/?"},
		Description: "Show help and available commands",
		Usage:       "/help [all|<category>]",
		Args: []ArgDef{
			{
				Name:        "mode",
				Required:    false,
				Type:        ArgTypeEnum,
				Values:      []string{"all", "navigation", "chat", "model", "settings"},
				Description: "Help mode or category",
			},
		},
		Category: "Navigation",
		Handler:  HandleHelp,
	})

	r.Register(&Command{
		Name:        "/quit",
		Aliases:     []string{"/q", "/exit"},
		Description: "Exit tellama",
		Category:    "Navigation",
		Handler:     HandleQuit,
	})

	// Chat commands
	r.Register(&Command{
		Name:        "/new",
		Aliases:     []string{"/n"},
		Description: "Start a new chat",
		Category:    "Chat",
		Handler:     HandleNew,
	})

	r.Register(&Command{
		Name:        "/save",
		Aliases:     []string{"/s"},
		Description: "Save the current chat",
		Usage:       "/save [title]",
		Args: []ArgDef{
			{Name: "title", Required: false, Type: ArgTypeString, Description: "Optional title for the chat"},
		},
		Category: "Chat",
		Handler:  HandleSave,
	})

	r.Register(&Command{
		Name:        "/load",
		Aliases:     []string{"/l"},
		Description: "Load a saved chat",
		Usage:       "/load <chat_id>",
		Args: []ArgDef{
			{Name: "chat_id", Required: true, Type: ArgTypeChat, Description: "ID of the chat to load"},
		},
		Category: "Chat",
		Handler:  HandleLoad,
	})

	r.Register(&Command{
		Name:        "/chats",
		Aliases:     []string{"/list", "/sessions"},
		Description: "List saved chats",
		Category:    "Chat",
		Handler:     HandleChats,
	})

	r.Register(&Command{
		Name:        "/delete",
		Aliases:     []string{"/del"},
		Description: "Delete the current chat",
		Category:    "Chat",
		Handler:     HandleDelete,
	})

	r.Register(&Command{
		Name:        "/clear",
		Aliases:     []string{"/c"},
		Description: "Clear chat history",
		Category:    "Chat",
		Handler:     HandleClear,
	})

	r.Register(&Command{
		Name:        "/retry",
		Aliases:     []string{"/r"},
		Description: "Retry the last prompt",
		Category:    "Chat",
		Handler:     HandleRetry,
	})

	r.Register(&Command{
		Name:        "/copy",
		Description: "Copy last response to clipboard",
		Category:    "Chat",
		Handler:     HandleCopy,
	})

	r.Register(&Command{
		Name:        "/export",
		Description: "Export chat to file",
		Usage:       "/export [format]",
		Args: []ArgDef{
			{Name: "format", Required: false, Type: ArgTypeEnum, Values: []string{"markdown", "md", "json", "html"}, Description: "Export format"},
		},
		Category: "Chat",
		Handler:  HandleExport,
	})

	r.Register(&Command{
		Name:        "/attach",
		Aliases:     []string{"/a", "/image"},
		Description: "Attach an image to the next message",
		Usage:       "/attach <path>",
		Args: []ArgDef{
			{Name: "path", Required: true, Type: ArgTypeFile, Description: "Path to an image file"},
		},
		Category: "Chat",
		Handler:  HandleAttach,
	})

	// Model commands
	r.Register(&Command{
		Name:        "/model",
		Aliases:     []string{"/m"},
		Description: "Switch or show current model",
		Usage:       "/model [name]",
		Args: []ArgDef{
			{Name: "name", Required: false, Type: ArgTypeModel, Description: "Model to switch to"},
		},
		Category: "Model",
		Handler:  HandleModel,
	})

	r.Register(&Command{
		Name:        "/info",
		Description: "Show model details (parameters, template, license)",
		Category:    "Model",
		Usage:       "/info [model]",
		Args: []ArgDef{
			{Name: "model", Required: false, Type: ArgTypeModel, Description: "Model to inspect; defaults to the active one"},
		},
		Handler: HandleModelInfo,
	})

	r.Register(&Command{
		Name:        "/models",
		Description: "List available models",
		Category:    "Model",
		Handler:     HandleModels,
	})

	// Settings commands
	r.Register(&Command{
		Name:        "/config",
		Description: "Show or edit configuration",
		Usage:       "/config [key] [value]",
		Args: []ArgDef{
			{Name: "key", Required: false, Type: ArgTypeConfig, Description: "Config key to show/set"},
			{Name: "value", Required: false, Type: ArgTypeString, Description: "New value"},
		},
		Category: "Settings",
		Handler:  HandleConfig,
	})

	r.Register(&Command{
		Name:        "/system",
		Description: "Show or set the system prompt",
		Usage:       "/system [prompt]",
		Args: []ArgDef{
			{Name: "prompt", Required: false, Type: ArgTypeString, Description: "New system prompt"},
		},
		Category: "Settings",
		Handler:  HandleSystem,
	})

	r.Register(&Command{
		Name:        "/tts",
		Description: "Read the last response aloud",
		Usage:       "/tts [stop]",
		Args: []ArgDef{
			{Name: "action", Required: false, Type: ArgTypeEnum, Values: []string{"stop"}, Description: "Stop playback"},
		},
		Category: "Settings",
		Handler:  HandleTTS,
	})

	r.Register(&Command{
		Name:        "/theme",
		Description: "Change color theme",
		Usage:       "/theme [name]",
		Args: []ArgDef{
			{Name: "name", Required: false, Type: ArgTypeEnum, Values: []string{"dark", "light", "auto"}, Description: "Theme name"},
		},
		Category: "Settings",
		Handler:  HandleTheme,
	})

	r.Register(&Command{
		Name:        "/status",
		Description: "Show connection and session status",
		Category:    "Settings",
		Handler:     HandleStatus,
	})
}

// =============================================================================
// CONTEXT TYPE
// =============================================================================

// Context provides access to application state for command handlers. All
// fields are optional and may be nil; handlers check before use.
type Context struct {
	// Config provides access to application configuration
	Config *config.Config

	// Ollama is the client for model operations
	Ollama *ollama.Client

	// Storage handles chat persistence
	Storage *storage.ChatStore

	// Shell manages the open chat sessions
	Shell *session.Shell

	// Speaker reads responses aloud
	Speaker *tts.Speaker
}

// NewContext creates a new command context with the given dependencies.
// All parameters are optional and can be nil.
func NewContext(cfg *config.Config, client *ollama.Client, store *storage.ChatStore, shell *session.Shell, speaker *tts.Speaker) *Context {
	return &Context{
		Config:  cfg,
		Ollama:  client,
		Storage: store,
		Shell:   shell,
		Speaker: speaker,
	}
}

// =============================================================================
// COMPLETION TYPE
// =============================================================================

// Completion represents a completion suggestion.
type Completion struct {
	// Value to insert
	Value string

	// Display text (may include formatting)
	Display string

	// Description shown alongside
	Description string

	// Score for ranking (higher = better match)
	Score int
}
