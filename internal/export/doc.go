// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes chats out to shareable files.
//
// Markdown, JSON, and HTML formats are supported, with optional metadata
// and per-message timestamps.
//
// # Usage
//
//	exporter, err := export.ForFormat("markdown", opts)
//	if err != nil {
//	    return err
//	}
//	path, err := export.ExportToFile(chat, exporter, opts)
package export
