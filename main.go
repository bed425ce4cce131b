// tellama - A terminal chat client for local LLMs served by Ollama.
//
// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"tellama/internal/config"
	"tellama/internal/ollama"
	"tellama/internal/session"
	"tellama/internal/storage"
	"tellama/internal/tts"
	"tellama/internal/ui/chat"
	"tellama/internal/ui/styles"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	var (
		modelFlag   = flag.String("model", "", "model to use for new chats")
		serverFlag  = flag.String("server", "", "inference server URL")
		configFlag  = flag.String("config", "", "path to config file")
		versionFlag = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *versionFlag {
		fmt.Printf("tellama %s (%s, built %s)\n", Version, GitCommit, BuildDate)
		return
	}

	if err := run(*configFlag, *serverFlag, *modelFlag); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, serverURL, modelName string) error {
	// Stdout belongs to the TUI; debug logging goes to a file when asked for.
	if os.Getenv("TELLAMA_DEBUG") != "" {
		f, err := tea.LogToFile("tellama-debug.log", "debug")
		if err != nil {
			return fmt.Errorf("opening debug log: %w", err)
		}
		defer f.Close()
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Settings changed in the UI are written back here; resolve the default
	// location once so shutdown persists to the same file.
	cfgPath := configPath
	if cfgPath == "" {
		if p, err := config.Path(); err == nil {
			cfgPath = p
		}
	}

	// CLI flags override config.
	if serverURL != "" {
		cfg.Server.URL = serverURL
	}
	if modelName != "" {
		cfg.Chat.DefaultModel = modelName
	}

	client := ollama.NewClientWithConfig(&ollama.ClientConfig{
		BaseURL:      cfg.Server.URL,
		Timeout:      cfg.Timeout(),
		DefaultModel: cfg.Chat.DefaultModel,
	})

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	shell := restoreShell(cfg, store)

	var speaker *tts.Speaker
	if cfg.TTS.Enabled {
		speaker = tts.NewSpeaker(cfg.TTS.Voice, cfg.TTS.Rate)
	}

	theme := styles.NewTheme()
	m := chat.New(theme, chat.Deps{
		Config:     cfg,
		ConfigPath: cfgPath,
		Client:     client,
		Store:      store,
		Shell:      shell,
		Speaker:    speaker,
	})

	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	m.SetProgram(p)

	// Reload the config when the file changes on disk. Errors here are not
	// fatal; the watcher is a convenience.
	watcher := watchConfig(configPath, cfg, p)
	if watcher != nil {
		defer watcher.Close()
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running tellama: %w", err)
	}

	// Persist open chats and settings on exit so the next start resumes them.
	if cfg.Storage.AutoSave && store != nil {
		saveOpenChats(m.Shell(), store)
	}
	if cfgPath != "" {
		if err := config.SaveToPath(cfg, cfgPath); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not save settings: %v\n", err)
		}
	}

	if speaker != nil {
		speaker.Stop()
	}
	return nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromPath(path)
	}
	return config.Load()
}

func openStore(cfg *config.Config) (*storage.ChatStore, error) {
	dir, err := cfg.ChatsDir()
	if err != nil {
		return nil, fmt.Errorf("resolving chat directory: %w", err)
	}
	return storage.NewChatStore(dir, cfg.Storage.MaxChats)
}

// restoreShell rebuilds the session shell from persisted chats. A broken
// store falls back to a single fresh chat rather than refusing to start.
func restoreShell(cfg *config.Config, store *storage.ChatStore) *session.Shell {
	var shell *session.Shell

	if store != nil {
		if chats, err := store.LoadAll(); err == nil && len(chats) > 0 {
			shell = session.NewShellFromChats(chats)
		}
	}
	if shell == nil {
		shell = session.NewShell()
	}

	shell.SetDefaultModel(cfg.Chat.DefaultModel)
	shell.SetSystemPrompt(cfg.Chat.SystemPrompt)
	shell.SetDefaultSettings(cfg.Options())
	return shell
}

// saveOpenChats persists every chat that has content.
func saveOpenChats(shell *session.Shell, store *storage.ChatStore) {
	for _, sess := range shell.Sessions() {
		if sess.Chat.IsEmpty() {
			continue
		}
		if _, err := store.Save(sess.Chat); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not save chat %s: %v\n", sess.Chat.ID, err)
		}
	}
}

// watchConfig hot-reloads settings when the config file changes and tells
// the UI to pick them up. A missing or unwatchable path just disables
// reloading.
func watchConfig(explicitPath string, cfg *config.Config, p *tea.Program) *config.Watcher {
	path := explicitPath
	if path == "" {
		var err error
		path, err = config.Path()
		if err != nil {
			return nil
		}
	}

	watcher, err := config.NewWatcher(path,
		func(updated *config.Config) {
			*cfg = *updated
			p.Send(chat.ConfigReloadedMsg{})
		},
		func(err error) {
			// Reload failures keep the previous config in effect.
			_ = err
		},
	)
	if err != nil {
		return nil
	}

	if err := watcher.Watch(); err != nil {
		watcher.Close()
		return nil
	}
	return watcher
}
