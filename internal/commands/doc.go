// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash command system for the TUI.
//
// # Key Types
//
//   - Registry: the set of built-in commands with alias lookup
//   - Parser: splits input into command name and quote-aware arguments
//   - Completer: tab completion over command names, model names, chat IDs,
//     config keys, and file paths
//   - Context: the services handlers act on (config, client, store,
//     session shell, speaker)
//
// # Message Flow
//
// Handlers never mutate the UI directly: each returns a tea.Cmd producing
// one of the message types defined in this package (ShowHelpMsg,
// ModelSwitchMsg, ExportChatMsg, ...), and the chat model applies the
// result in its Update.
package commands
