// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session coordinates chat state with in-flight generations.
//
// # Key Types
//
//   - Session: owns one chat and its generation state machine
//     (Idle -> Sending -> Streaming -> Idle, errors pass through Failed)
//   - Shell: the ordered set of sessions with an active selection and
//     defaults applied to new chats
//
// # Generations
//
// Every submit increments a generation counter and at most one generation
// runs per session. Fragments, completion, and failure are accepted only
// when tagged with the current generation, so events from a cancelled,
// retried, or superseded stream are dropped instead of corrupting the
// transcript. A submit while a generation is running returns ErrBusy.
package session
