// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual UI components for the tellama TUI.
//
// # Key Types
//
//   - StatusBar: model name, connection state, token usage, chat position
//   - Sidebar: the chat list with titles and relative timestamps
//   - Spinner: thinking indicator with an elapsed-time suffix
//
// Components are pure view state: they render from fields set by the chat
// model and never dispatch messages themselves.
package components
