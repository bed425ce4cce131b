// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package image loads image files as base64 attachments for multimodal
// models.
//
// Files are validated by extension allowlist and size limit before
// encoding; the server receives the raw base64 payload in the message's
// images field.
package image
