// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tts reads assistant responses aloud using the platform speech
// command (say on macOS, espeak-ng on Linux, SAPI via PowerShell on
// Windows).
//
// # Key Types
//
//   - Speaker: runs one utterance at a time with Speak/Stop/Wait; the
//     engine is an external process, so Available reports whether the
//     platform command exists before anything is spoken
package tts
