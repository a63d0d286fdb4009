// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading and management for ragline.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.ragline/config.toml
//   - ~/.ragline/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/ragline/ragline-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete ragline configuration.
type Config struct {
	// Version is the config schema version.
	Version string `toml:"version" json:"version"`

	// Server configuration (Ragline backend)
	Server ServerConfig `toml:"server" json:"server"`

	// Chat configuration
	Chat ChatConfig `toml:"chat" json:"chat"`

	// Auth configuration
	Auth AuthConfig `toml:"auth" json:"auth"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`
}

// ServerConfig contains Ragline backend connection configuration.
type ServerConfig struct {
	// BaseURL is the base URL of the Ragline backend API.
	BaseURL string `toml:"base_url" json:"base_url"`
	// RequestTimeoutSecs is the timeout for non-streaming requests in seconds.
	RequestTimeoutSecs int `toml:"request_timeout_secs" json:"request_timeout_secs"`
	// StreamHeaderTimeoutSecs bounds how long a streaming request may take to
	// return response headers. The body itself is never bounded.
	StreamHeaderTimeoutSecs int `toml:"stream_header_timeout_secs" json:"stream_header_timeout_secs"`
	// MaxResponseBytes caps the size of non-streaming response bodies.
	MaxResponseBytes int64 `toml:"max_response_bytes" json:"max_response_bytes"`
	// RuntimeConfigPath is the well-known path fetched once per process for
	// server-published runtime settings. Relative to BaseURL.
	RuntimeConfigPath string `toml:"runtime_config_path" json:"runtime_config_path"`
}

// ChatConfig contains chat behavior configuration.
type ChatConfig struct {
	// DefaultMode is the default chat mode: "rag", "direct", "agent"
	// "rag" (default): retrieve from the knowledge base before answering
	// "direct": skip retrieval, answer from the model alone
	// "agent": multi-step tool-using mode
	DefaultMode string `toml:"default_mode" json:"default_mode"`
	// CollectionID selects the knowledge collection queried in rag mode.
	// Empty means the server default.
	CollectionID string `toml:"collection_id" json:"collection_id"`
	// UseReAct enables ReAct-style reasoning traces in agent mode.
	UseReAct bool `toml:"use_react" json:"use_react"`
	// GuestEmail identifies unauthenticated guest sessions to the backend.
	GuestEmail string `toml:"guest_email" json:"guest_email"`
}

// AuthConfig contains authentication configuration.
type AuthConfig struct {
	// PersistToken stores the auth token on disk so logins survive restarts.
	// When false the token lives only for the process lifetime.
	PersistToken bool `toml:"persist_token" json:"persist_token"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme" json:"theme"`
	// Markdown renders assistant replies as markdown
	Markdown bool `toml:"markdown" json:"markdown"`
	// ShowTools displays which retrieval tools a reply used
	ShowTools bool `toml:"show_tools" json:"show_tools"`
	// CompactMode uses a more compact UI layout
	CompactMode bool `toml:"compact_mode" json:"compact_mode"`
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1.0.0",

		Server: ServerConfig{
			BaseURL:                 "http://127.0.0.1:8000",
			RequestTimeoutSecs:      30,
			StreamHeaderTimeoutSecs: 15,
			MaxResponseBytes:        10 * 1024 * 1024,
			RuntimeConfigPath:       "/api/config",
		},

		Chat: ChatConfig{
			DefaultMode: "rag",
			UseReAct:    false,
		},

		Auth: AuthConfig{
			PersistToken: true,
		},

		UI: UIConfig{
			Theme:       "dark",
			Markdown:    true,
			ShowTools:   true,
			CompactMode: false,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the ragline configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".ragline"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// Config files should be 0600 (owner read/write only).
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	mode := info.Mode().Perm()
	if mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	cfg := Default()
	var loadErr error

	// Try TOML first
	tomlPath, err := ConfigPathTOML()
	if err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			if err := LoadTOML(cfg, tomlPath); err != nil {
				loadErr = fmt.Errorf("failed to load TOML config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	// Try JSON as fallback
	jsonPath, err := ConfigPathJSON()
	if err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			if err := LoadJSON(cfg, jsonPath); err != nil {
				loadErr = fmt.Errorf("failed to load JSON config: %w", err)
			} else {
				return finishLoad(cfg)
			}
		}
	}

	cfg, err = finishLoad(cfg)
	if err != nil {
		return nil, err
	}

	// Return defaults (with any load error for informational purposes)
	return cfg, loadErr
}

// finishLoad applies env overrides, defaults, and validation to a loaded config.
func finishLoad(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	_, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadFromPath loads configuration from a specific file path with full validation.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if strings.HasSuffix(path, ".json") {
		if err := LoadJSON(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load JSON config from %s: %w", path, err)
		}
	} else {
		if err := LoadTOML(cfg, path); err != nil {
			return nil, fmt.Errorf("failed to load TOML config from %s: %w", path, err)
		}
	}

	return finishLoad(cfg)
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file with 0600 permissions.
func SaveTOML(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	var buf strings.Builder
	buf.WriteString("# ragline configuration file\n")
	buf.WriteString("# Generated by ragline - edit with care\n\n")

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

	// Validate server base URL
	if c.Server.BaseURL == "" {
		errs = append(errs, ValidationError{
			Field:   "server.base_url",
			Message: "must not be empty",
		})
	} else if u, err := url.Parse(c.Server.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, ValidationError{
			Field:   "server.base_url",
			Message: fmt.Sprintf("invalid URL '%s'", c.Server.BaseURL),
		})
	}

	if c.Server.RequestTimeoutSecs < 1 || c.Server.RequestTimeoutSecs > 600 {
		errs = append(errs, ValidationError{
			Field:   "server.request_timeout_secs",
			Message: fmt.Sprintf("must be 1-600, got %d", c.Server.RequestTimeoutSecs),
		})
	}

	if c.Server.StreamHeaderTimeoutSecs < 1 || c.Server.StreamHeaderTimeoutSecs > 120 {
		errs = append(errs, ValidationError{
			Field:   "server.stream_header_timeout_secs",
			Message: fmt.Sprintf("must be 1-120, got %d", c.Server.StreamHeaderTimeoutSecs),
		})
	}

	if c.Server.MaxResponseBytes < 1024 {
		errs = append(errs, ValidationError{
			Field:   "server.max_response_bytes",
			Message: fmt.Sprintf("must be at least 1024, got %d", c.Server.MaxResponseBytes),
		})
	}

	// Validate chat mode
	validModes := map[string]bool{"rag": true, "direct": true, "agent": true}
	if !validModes[strings.ToLower(c.Chat.DefaultMode)] {
		errs = append(errs, ValidationError{
			Field:   "chat.default_mode",
			Message: fmt.Sprintf("invalid mode '%s', must be one of: rag, direct, agent", c.Chat.DefaultMode),
		})
	}

	// Validate UI theme
	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		errs = append(errs, ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme),
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults sets default values for any missing or zero-value configuration fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}

	if c.Server.BaseURL == "" {
		c.Server.BaseURL = defaults.Server.BaseURL
	}
	c.Server.BaseURL = strings.TrimRight(c.Server.BaseURL, "/")
	if c.Server.RequestTimeoutSecs == 0 {
		c.Server.RequestTimeoutSecs = defaults.Server.RequestTimeoutSecs
	}
	if c.Server.StreamHeaderTimeoutSecs == 0 {
		c.Server.StreamHeaderTimeoutSecs = defaults.Server.StreamHeaderTimeoutSecs
	}
	if c.Server.MaxResponseBytes == 0 {
		c.Server.MaxResponseBytes = defaults.Server.MaxResponseBytes
	}
	if c.Server.RuntimeConfigPath == "" {
		c.Server.RuntimeConfigPath = defaults.Server.RuntimeConfigPath
	}

	if c.Chat.DefaultMode == "" {
		c.Chat.DefaultMode = defaults.Chat.DefaultMode
	}

	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// RequestTimeout returns the non-streaming request timeout as a duration.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSecs) * time.Second
}

// StreamHeaderTimeout returns the streaming header timeout as a duration.
func (c *Config) StreamHeaderTimeout() time.Duration {
	return time.Duration(c.Server.StreamHeaderTimeoutSecs) * time.Second
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - RAGLINE_SERVER_URL: overrides server.base_url
//   - RAGLINE_MODE: overrides chat.default_mode
//   - RAGLINE_COLLECTION: overrides chat.collection_id
//   - RAGLINE_USE_REACT: set to "1" or "true" to enable ReAct traces
//   - RAGLINE_GUEST_EMAIL: overrides chat.guest_email
//   - RAGLINE_NO_PERSIST_TOKEN: set to "1" or "true" to keep tokens in memory only
//   - RAGLINE_THEME: overrides ui.theme
func (c *Config) ApplyEnvOverrides() {
	if serverURL := os.Getenv("RAGLINE_SERVER_URL"); serverURL != "" {
		c.Server.BaseURL = serverURL
	}

	if mode := os.Getenv("RAGLINE_MODE"); mode != "" {
		c.Chat.DefaultMode = mode
	}

	if collection := os.Getenv("RAGLINE_COLLECTION"); collection != "" {
		c.Chat.CollectionID = collection
	}

	if react := os.Getenv("RAGLINE_USE_REACT"); react != "" {
		c.Chat.UseReAct = react == "1" || strings.ToLower(react) == "true"
	}

	if email := os.Getenv("RAGLINE_GUEST_EMAIL"); email != "" {
		c.Chat.GuestEmail = email
	}

	if noPersist := os.Getenv("RAGLINE_NO_PERSIST_TOKEN"); noPersist != "" {
		if noPersist == "1" || strings.ToLower(noPersist) == "true" {
			c.Auth.PersistToken = false
		}
	}

	if theme := os.Getenv("RAGLINE_THEME"); theme != "" {
		c.UI.Theme = theme
	}
}

// Clone creates a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// =============================================================================
// SINGLETON PATTERN (THREAD-SAFE)
// =============================================================================

var (
	globalConfig     *Config
	globalConfigOnce sync.Once
	globalConfigMu   sync.RWMutex
)

// Global returns the global configuration instance.
// Loads configuration on first access. Thread-safe.
func Global() *Config {
	globalConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			// Log but don't fail - use defaults
			fmt.Fprintf(os.Stderr, "Warning: %v (using defaults)\n", err)
			cfg = Default()
			cfg.SetDefaults()
		}
		globalConfig = cfg
	})

	globalConfigMu.RLock()
	defer globalConfigMu.RUnlock()
	return globalConfig
}

// ReloadGlobal reloads the global configuration from disk. Thread-safe.
func ReloadGlobal() error {
	cfg, err := Load()
	if err != nil {
		return err
	}
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
	return nil
}

// SetGlobal sets the global configuration instance. Thread-safe.
func SetGlobal(cfg *Config) {
	// Trip the once so a later Global() does not overwrite this config.
	globalConfigOnce.Do(func() {})
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = cfg
}

// ResetGlobalForTesting resets the global config state for testing.
// This should only be used in tests to reset state between test runs.
func ResetGlobalForTesting() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()
	globalConfig = nil
	globalConfigOnce = sync.Once{}
}
