// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage provides chat persistence.
//
// Each chat is one JSON file named by its ID under the chats directory,
// written atomically so a crash never leaves a truncated file. Corrupted
// files are skipped on list and load rather than failing the whole store.
//
// # Key Types
//
//   - ChatStore: save/load/list/search/delete over the chats directory,
//     with optional max-count eviction of the oldest chats
package storage
