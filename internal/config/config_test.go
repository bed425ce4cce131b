// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := Default()
	cfg.Chat.DefaultModel = "llama3.2:3b"
	cfg.Chat.Temperature = 0.3
	cfg.Server.URL = "http://192.168.1.10:11434"
	cfg.TTS.Enabled = true
	cfg.TTS.Voice = "Samantha"

	if err := SaveToPath(cfg, path); err != nil {
		t.Fatalf("SaveToPath: %v", err)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}

	if loaded.Chat.DefaultModel != "llama3.2:3b" {
		t.Errorf("default model = %q", loaded.Chat.DefaultModel)
	}
	if loaded.Chat.Temperature != 0.3 {
		t.Errorf("temperature = %g", loaded.Chat.Temperature)
	}
	if loaded.Server.URL != "http://192.168.1.10:11434" {
		t.Errorf("url = %q", loaded.Server.URL)
	}
	if !loaded.TTS.Enabled || loaded.TTS.Voice != "Samantha" {
		t.Errorf("tts = %+v", loaded.TTS)
	}
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Server.URL != "http://127.0.0.1:11434" {
		t.Errorf("url = %q, want default", cfg.Server.URL)
	}
}

func TestLoadFillsMissingFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	partial := `
[chat]
default_model = "mistral:7b"
`
	if err := os.WriteFile(path, []byte(partial), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Chat.DefaultModel != "mistral:7b" {
		t.Errorf("default model = %q", cfg.Chat.DefaultModel)
	}
	if cfg.Server.URL == "" {
		t.Error("server URL not defaulted")
	}
	if cfg.Server.TimeoutSecs != 30 {
		t.Errorf("timeout = %d, want default 30", cfg.Server.TimeoutSecs)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad url", func(c *Config) { c.Server.URL = "not a url" }},
		{"temperature too high", func(c *Config) { c.Chat.Temperature = 3.0 }},
		{"negative top_k", func(c *Config) { c.Chat.TopK = -1 }},
		{"top_p out of range", func(c *Config) { c.Chat.TopP = 1.5 }},
		{"bad theme", func(c *Config) { c.UI.Theme = "neon" }},
		{"tts rate too high", func(c *Config) { c.TTS.Rate = 9000 }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TELLAMA_URL", "http://10.0.0.5:11434")
	t.Setenv("TELLAMA_MODEL", "gemma2:9b")
	t.Setenv("TELLAMA_THEME", "light")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Server.URL != "http://10.0.0.5:11434" {
		t.Errorf("url = %q", cfg.Server.URL)
	}
	if cfg.Chat.DefaultModel != "gemma2:9b" {
		t.Errorf("model = %q", cfg.Chat.DefaultModel)
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("theme = %q", cfg.UI.Theme)
	}
}

func TestGetSetDotNotation(t *testing.T) {
	cfg := Default()

	if err := cfg.Set("chat.temperature", "0.5"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if cfg.Chat.Temperature != 0.5 {
		t.Errorf("temperature = %g", cfg.Chat.Temperature)
	}

	if err := cfg.Set("tts.enabled", "true"); err != nil {
		t.Fatalf("Set tts.enabled: %v", err)
	}
	if !cfg.TTS.Enabled {
		t.Error("tts.enabled not set")
	}

	if err := cfg.Set("server.url", "http://example:1234"); err != nil {
		t.Fatalf("Set server.url: %v", err)
	}

	got, err := cfg.Get("chat.temperature")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.(float64) != 0.5 {
		t.Errorf("Get = %v", got)
	}

	if _, err := cfg.Get("chat.no_such_key"); err == nil {
		t.Error("expected error for unknown key")
	}
	if err := cfg.Set("chat", "x"); err == nil {
		t.Error("expected error setting a section")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := Default()
	cfg.Chat.Temperature = 0.2
	cfg.Chat.NumCtx = 2048

	opts := cfg.Options()
	if opts.Temperature != 0.2 || opts.NumCtx != 2048 {
		t.Errorf("options = %+v", opts)
	}
}

func TestDerivedDurations(t *testing.T) {
	cfg := Default()
	if cfg.Timeout() != 30*time.Second {
		t.Errorf("timeout = %v", cfg.Timeout())
	}
	if cfg.ModelRefreshInterval() != 10*time.Second {
		t.Errorf("refresh = %v", cfg.ModelRefreshInterval())
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := SaveToPath(Default(), path); err != nil {
		t.Fatal(err)
	}

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(path, func(cfg *Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	}, nil)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	if err := w.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	cfg := Default()
	cfg.Chat.DefaultModel = "reloaded:latest"
	if err := SaveToPath(cfg, path); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-reloaded:
		if got.Chat.DefaultModel != "reloaded:latest" {
			t.Errorf("reloaded model = %q", got.Chat.DefaultModel)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload")
	}
}

func TestKeysCoverSections(t *testing.T) {
	cfg := Default()
	for _, key := range Keys() {
		if _, err := cfg.Get(key); err != nil {
			t.Errorf("Get(%q): %v", key, err)
		}
	}
}
