// Copyright (c) 2025 Tellama Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"tellama/internal/ollama"
	"tellama/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete tellama configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Server configuration
	Server ServerConfig `toml:"server" json:"server"`

	// Chat configuration
	Chat ChatConfig `toml:"chat" json:"chat"`

	// TTS configuration
	TTS TTSConfig `toml:"tts" json:"tts"`

	// Storage configuration
	Storage StorageConfig `toml:"storage" json:"storage"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`
}

// ServerConfig contains inference server configuration.
type ServerConfig struct {
	// URL is the base URL of the inference server.
	URL string `toml:"url" json:"url"`
	// TimeoutSecs is the timeout for non-streaming requests.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
	// ModelRefreshSecs is how often the model list is refreshed.
	ModelRefreshSecs int `toml:"model_refresh_secs" json:"model_refresh_secs"`
}

// ChatConfig contains chat and generation defaults. New chats inherit these;
// each chat can then override them independently.
type ChatConfig struct {
	// DefaultModel is the model selected for new chats.
	DefaultModel string `toml:"default_model" json:"default_model"`
	// SystemPrompt is prepended to every request when set.
	SystemPrompt string `toml:"system_prompt" json:"system_prompt"`

	// Generation parameters. Zero values defer to the server.
	Temperature   float64 `toml:"temperature" json:"temperature"`
	TopK          int     `toml:"top_k" json:"top_k"`
	TopP          float64 `toml:"top_p" json:"top_p"`
	RepeatPenalty float64 `toml:"repeat_penalty" json:"repeat_penalty"`
	NumCtx        int     `toml:"num_ctx" json:"num_ctx"`
	NumPredict    int     `toml:"num_predict" json:"num_predict"`
	Seed          int     `toml:"seed" json:"seed"`
}

// TTSConfig contains text-to-speech configuration.
type TTSConfig struct {
	// Enabled turns on the speak command and read-aloud shortcut.
	Enabled bool `toml:"enabled" json:"enabled"`
	// Voice names the platform voice to use; empty picks the system default.
	Voice string `toml:"voice" json:"voice"`
	// Rate is the speech rate in words per minute. Zero uses the platform
	// default.
	Rate int `toml:"rate" json:"rate"`
}

// StorageConfig contains chat history storage configuration.
type StorageConfig struct {
	// Dir is where chat files are stored. Empty means ~/.tellama/chats.
	Dir string `toml:"dir" json:"dir"`
	// MaxChats bounds how many chats are kept; oldest are removed first.
	// Zero means unlimited.
	MaxChats int `toml:"max_chats" json:"max_chats"`
	// AutoSave persists the active chat after each completed generation.
	AutoSave bool `toml:"auto_save" json:"auto_save"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto".
	Theme string `toml:"theme" json:"theme"`
	// ShowStats displays generation statistics under assistant messages.
	ShowStats bool `toml:"show_stats" json:"show_stats"`
	// ShowSidebar displays the chat list sidebar.
	ShowSidebar bool `toml:"show_sidebar" json:"show_sidebar"`
	// CompactMode uses a more compact layout.
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
	// MarkdownRendering renders assistant messages as markdown.
	MarkdownRendering bool `toml:"markdown_rendering" json:"markdown_rendering"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Server: ServerConfig{
			URL:              "http://127.0.0.1:11434",
			TimeoutSecs:      30,
			ModelRefreshSecs: 10,
		},

		Chat: ChatConfig{
			DefaultModel: "",
			SystemPrompt: "",
			Temperature:  0.8,
			TopK:         40,
			TopP:         0.9,
			NumCtx:       8192,
			NumPredict:   -1,
		},

		TTS: TTSConfig{
			Enabled: false,
			Voice:   "",
			Rate:    0,
		},

		Storage: StorageConfig{
			Dir:      "",
			MaxChats: 100,
			AutoSave: true,
		},

		UI: UIConfig{
			Theme:             "dark",
			ShowStats:         true,
			ShowSidebar:       true,
			CompactMode:       false,
			MarkdownRendering: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// Dir returns the tellama configuration directory path.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".tellama"), nil
}

// Path returns the path to the config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureDir ensures the config directory exists.
func EnsureDir() error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load loads configuration from the default file, falling back to defaults
// when the file does not exist. Environment overrides are applied last.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file path with full
// validation. A missing file yields defaults, not an error.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, statErr := os.Stat(path); statErr == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Save saves the configuration to the default file.
func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath saves the configuration to a TOML file. The write is atomic so
// a crash never leaves a truncated config behind.
func SaveToPath(cfg *Config, path string) error {
	var buf strings.Builder
	buf.WriteString("# tellama configuration file\n")
	buf.WriteString("# Edit by hand or via the settings pane.\n\n")

	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(buf.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// Timeout returns the request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Server.TimeoutSecs) * time.Second
}

// ModelRefreshInterval returns the model list refresh interval.
func (c *Config) ModelRefreshInterval() time.Duration {
	return time.Duration(c.Server.ModelRefreshSecs) * time.Second
}

// Options builds the generation options new chats inherit.
func (c *Config) Options() *ollama.Options {
	return &ollama.Options{
		Temperature:   c.Chat.Temperature,
		TopK:          c.Chat.TopK,
		TopP:          c.Chat.TopP,
		RepeatPenalty: c.Chat.RepeatPenalty,
		NumCtx:        c.Chat.NumCtx,
		NumPredict:    c.Chat.NumPredict,
		Seed:          c.Chat.Seed,
	}
}

// ChatsDir returns the directory chat files are stored in.
func (c *Config) ChatsDir() (string, error) {
	if c.Storage.Dir != "" {
		return c.Storage.Dir, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "chats"), nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors

	if c.Server.URL != "" {
		u, err := url.Parse(c.Server.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, ValidationError{
				Field:   "server.url",
				Message: fmt.Sprintf("invalid URL %q", c.Server.URL),
			})
		}
	}

	if c.Server.TimeoutSecs < 0 {
		errs = append(errs, ValidationError{
			Field:   "server.timeout_secs",
			Message: "must be non-negative",
		})
	}

	if c.Chat.Temperature < 0 || c.Chat.Temperature > 2 {
		errs = append(errs, ValidationError{
			Field:   "chat.temperature",
			Message: fmt.Sprintf("must be between 0.0 and 2.0, got %g", c.Chat.Temperature),
		})
	}

	if c.Chat.TopP < 0 || c.Chat.TopP > 1 {
		errs = append(errs, ValidationError{
			Field:   "chat.top_p",
			Message: fmt.Sprintf("must be between 0.0 and 1.0, got %g", c.Chat.TopP),
		})
	}

	if c.Chat.TopK < 0 {
		errs = append(errs, ValidationError{
			Field:   "chat.top_k",
			Message: "must be non-negative",
		})
	}

	if c.Chat.NumCtx < 0 {
		errs = append(errs, ValidationError{
			Field:   "chat.num_ctx",
			Message: "must be non-negative",
		})
	}

	if c.Storage.MaxChats < 0 {
		errs = append(errs, ValidationError{
			Field:   "storage.max_chats",
			Message: "must be non-negative",
		})
	}

	if c.TTS.Rate < 0 || c.TTS.Rate > 600 {
		errs = append(errs, ValidationError{
			Field:   "tts.rate",
			Message: fmt.Sprintf("must be 0-600 words per minute, got %d", c.TTS.Rate),
		})
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme %q, must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills in any missing or zero-value fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Server.URL == "" {
		c.Server.URL = defaults.Server.URL
	}
	if c.Server.TimeoutSecs == 0 {
		c.Server.TimeoutSecs = defaults.Server.TimeoutSecs
	}
	if c.Server.ModelRefreshSecs == 0 {
		c.Server.ModelRefreshSecs = defaults.Server.ModelRefreshSecs
	}
	if c.Chat.NumCtx == 0 {
		c.Chat.NumCtx = defaults.Chat.NumCtx
	}
	if c.Storage.MaxChats == 0 {
		c.Storage.MaxChats = defaults.Storage.MaxChats
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - TELLAMA_URL: overrides server.url
//   - TELLAMA_MODEL: overrides chat.default_model
//   - TELLAMA_SYSTEM_PROMPT: overrides chat.system_prompt
//   - TELLAMA_CHATS_DIR: overrides storage.dir
//   - TELLAMA_THEME: overrides ui.theme
func (c *Config) ApplyEnvOverrides() {
	if u := os.Getenv("TELLAMA_URL"); u != "" {
		c.Server.URL = u
	}
	if model := os.Getenv("TELLAMA_MODEL"); model != "" {
		c.Chat.DefaultModel = model
	}
	if prompt := os.Getenv("TELLAMA_SYSTEM_PROMPT"); prompt != "" {
		c.Chat.SystemPrompt = prompt
	}
	if dir := os.Getenv("TELLAMA_CHATS_DIR"); dir != "" {
		c.Storage.Dir = dir
	}
	if theme := os.Getenv("TELLAMA_THEME"); theme != "" {
		c.UI.Theme = theme
	}
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value using dot notation (e.g. "chat.top_k").
func (c *Config) Get(key string) (interface{}, error) {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return nil, errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return nil, fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			return field.Interface(), nil
		}

		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return nil, fmt.Errorf("field %q is not a section", strings.Join(parts[:i+1], "."))
		}
	}

	return nil, fmt.Errorf("invalid key: %s", key)
}

// Set sets a configuration value using dot notation (e.g. "chat.temperature").
func (c *Config) Set(key string, value interface{}) error {
	parts := strings.Split(key, ".")
	if len(parts) == 0 {
		return errors.New("empty key")
	}

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		fieldName := normalizeFieldName(part)

		field := v.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, fieldName)
		})
		if !field.IsValid() {
			return fmt.Errorf("unknown field: %s", strings.Join(parts[:i+1], "."))
		}

		if i == len(parts)-1 {
			if !field.CanSet() {
				return fmt.Errorf("cannot set field: %s", key)
			}
			return setFieldValue(field, value)
		}

		if field.Kind() == reflect.Struct {
			v = field
		} else {
			return fmt.Errorf("field %q is not a section", strings.Join(parts[:i+1], "."))
		}
	}

	return fmt.Errorf("invalid key: %s", key)
}

// Keys returns all configuration keys in dot notation, for completion.
func Keys() []string {
	return []string{
		"version",
		"server.url",
		"server.timeout_secs",
		"server.model_refresh_secs",
		"chat.default_model",
		"chat.system_prompt",
		"chat.temperature",
		"chat.top_k",
		"chat.top_p",
		"chat.repeat_penalty",
		"chat.num_ctx",
		"chat.num_predict",
		"chat.seed",
		"tts.enabled",
		"tts.voice",
		"tts.rate",
		"storage.dir",
		"storage.max_chats",
		"storage.auto_save",
		"ui.theme",
		"ui.show_stats",
		"ui.show_sidebar",
		"ui.compact_mode",
		"ui.markdown_rendering",
	}
}

// normalizeFieldName converts a snake_case name to its Go field equivalent.
func normalizeFieldName(name string) string {
	// Abbreviated sections keep their casing.
	switch strings.ToLower(name) {
	case "tts":
		return "TTS"
	case "ui":
		return "UI"
	case "url":
		return "URL"
	}

	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})

	var result strings.Builder
	for _, part := range parts {
		if len(part) > 0 {
			result.WriteString(strings.ToUpper(string(part[0])))
			result.WriteString(strings.ToLower(part[1:]))
		}
	}

	return result.String()
}

// setFieldValue sets a reflect.Value from an interface{} with conversion.
func setFieldValue(field reflect.Value, value interface{}) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal := strVal == "1" || strings.EqualFold(strVal, "true") || strings.EqualFold(strVal, "yes")
			field.SetBool(boolVal)
			return nil
		}
	}

	val := reflect.ValueOf(value)
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) {
		field.Set(val.Convert(field.Type()))
		return nil
	}

	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
