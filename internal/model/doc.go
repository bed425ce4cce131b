// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chats and messages.
//
// # Key Types
//
//   - Chat: a conversation with ordered messages, a model name, optional
//     per-chat generation settings, and token accounting
//   - Message: one transcript entry with role, content, attached images,
//     and generation statistics
//   - Image: a base64-encoded attachment for multimodal models
//   - ChatMeta: lightweight chat summary for lists and the sidebar
//
// # Streaming
//
// The tail assistant message is mutable only while streaming: fragments are
// appended with AppendToken and the content freezes on FinalizeStream. A
// chat's title is derived from the first user prompt.
package model
