// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the tellama TUI.
//
// All colors use Lip Gloss AdaptiveColor for automatic light/dark
// detection, and the Theme detects the terminal's color profile with
// termenv. GetLayoutMode switches between wide and narrow layouts by
// terminal width.
package styles
