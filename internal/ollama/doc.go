// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for an Ollama-compatible
// inference server.
//
// # Key Types
//
//   - Client: HTTP client for the server API
//   - Message: chat message with role, content, and optional images
//   - StreamChunk: one fragment of a streamed response with final metrics
//   - ClientError: typed error carrying an ErrType for errors.Is/As checks
//
// # Usage
//
// Create a client and stream a chat:
//
//	client := ollama.NewClient("http://localhost:11434")
//	err := client.ChatStream(ctx, "llama3.2", messages, nil, func(chunk ollama.StreamChunk) {
//	    fmt.Print(chunk.Content)
//	})
//
// Errors are classified with predicates:
//
//	if ollama.IsNotRunning(err) {
//	    // server unreachable
//	}
package ollama
