// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the Bubble Tea model for the chat view.
//
// # Key Types
//
//   - Model: the application model (transcript viewport, input line,
//     sidebar, status bar, overlays)
//   - StreamRunner: drives a chat request on a goroutine and delivers
//     generation-tagged stream events through program.Send
//   - StreamingBuffer: batches fragments so the viewport re-renders at a
//     capped frame rate instead of once per token
//
// # Concurrency
//
// All state lives in Model and is only touched from Update. Background
// work (streams, health checks, saves) runs in goroutines or tea.Cmds and
// reports back as messages; stream events carry the chat ID and generation
// so fragments arriving after a cancel, retry, or chat switch are routed
// to the right session or dropped as stale.
package chat
