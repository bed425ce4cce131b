// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for tellama.
//
// # Key Types
//
//   - Config: the complete configuration (server, chat defaults, UI, TTS,
//     storage)
//   - Watcher: debounced fsnotify watcher for hot reload
//
// # Configuration Precedence
//
// Settings are resolved from (in order of precedence):
//   - Environment variables (TELLAMA_*)
//   - ~/.tellama/config.toml
//   - Built-in defaults
//
// # Usage
//
// Load and read configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	url := cfg.Server.URL
//
// Dot-notation access backs the /config command:
//
//	value, err := cfg.Get("chat.default_model")
//	err = cfg.Set("ui.theme", "light")
package config
