// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across the application.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth: truncation by terminal cell width
//
// File Operations:
//   - AtomicWriteFile: crash-safe file writing via temp file + rename
//
// # Usage
//
//	display := util.TruncateRunes(longTitle, 40)
//	err := util.AtomicWriteFile(path, data, 0644)
package util
