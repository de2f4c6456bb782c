// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config resolves scribe's runtime configuration.
//
// Settings come from three sources, highest priority first:
//
//  1. Environment variables (SCRIBE_RECORDINGS_DIR)
//  2. The settings file (~/.config/scribe/config.yaml)
//  3. Platform defaults (~/Documents/Scribe/recordings)
//
// Resolution happens once at process startup; the resolved Config struct is
// passed explicitly into constructors rather than read from package globals.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default durations applied when the settings file leaves them unset.
const (
	// DefaultHandshakeWindow bounds the MCP initialize exchange.
	DefaultHandshakeWindow = 5 * time.Second
	// DefaultToolCallTimeout bounds a single tools/list or tools/call round trip.
	DefaultToolCallTimeout = 30 * time.Second
	// MinToolCallTimeout is the floor for configured tool-call timeouts.
	MinToolCallTimeout = 2 * time.Second
)

// DefaultBridgeURL is the desktop shell's WebSocket server.
const DefaultBridgeURL = "ws://localhost:8765"

// Settings is the on-disk shape of config.yaml.
type Settings struct {
	// RecordingsDir is the root directory holding one subdirectory per
	// recording session. "~" is expanded.
	RecordingsDir string `yaml:"recordings_dir,omitempty"`

	// LogsDir is where scribe writes its own log files. "~" is expanded.
	LogsDir string `yaml:"logs_dir,omitempty"`

	// HandshakeWindowSeconds bounds the MCP initialize exchange.
	HandshakeWindowSeconds int `yaml:"handshake_window_seconds,omitempty"`

	// ToolCallTimeoutSeconds bounds a single tool call round trip.
	ToolCallTimeoutSeconds int `yaml:"tool_call_timeout_seconds,omitempty"`

	// BridgeURL is the WebSocket address of the desktop shell.
	BridgeURL string `yaml:"bridge_url,omitempty"`

	// MetricsAddr is the listen address for the Prometheus /metrics endpoint.
	// Empty disables the endpoint.
	MetricsAddr string `yaml:"metrics_addr,omitempty"`
}

// Config is the resolved runtime configuration.
type Config struct {
	// RecordingsDir is the absolute recordings root. It exists on disk.
	RecordingsDir string

	// LogsDir is the absolute logs directory. It exists on disk.
	LogsDir string

	// HandshakeWindow bounds the MCP initialize exchange.
	HandshakeWindow time.Duration

	// ToolCallTimeout bounds a single tool call round trip.
	ToolCallTimeout time.Duration

	// BridgeURL is the WebSocket address of the desktop shell.
	BridgeURL string

	// MetricsAddr is the listen address for /metrics. Empty disables it.
	MetricsAddr string
}

// ConfigDir returns the XDG config directory for scribe.
// Respects XDG_CONFIG_HOME; defaults to ~/.config/scribe on all platforms.
func ConfigDir() (string, error) {
	var base string

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		base = xdg
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}

	configDir := filepath.Join(base, "scribe")

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", err
	}

	return configDir, nil
}

// SettingsPath returns the full path to the settings file.
func SettingsPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// ServersPath returns the full path to the MCP server registry file.
func ServersPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "servers.json"), nil
}

// ProviderConfigPath returns the full path to the agent's provider config.
func ProviderConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "mcp_config.json"), nil
}

// Load resolves the runtime configuration from the default settings path.
func Load() (*Config, error) {
	path, err := SettingsPath()
	if err != nil {
		return nil, fmt.Errorf("failed to locate settings: %w", err)
	}
	return LoadFrom(path)
}

// LoadFrom resolves the runtime configuration from the given settings file.
// A missing file is not an error; defaults apply.
func LoadFrom(path string) (*Config, error) {
	var settings Settings

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read settings file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings file: %w", err)
	}

	return resolve(&settings)
}

// resolve applies priority order and materializes directories.
func resolve(settings *Settings) (*Config, error) {
	cfg := &Config{
		HandshakeWindow: DefaultHandshakeWindow,
		ToolCallTimeout: DefaultToolCallTimeout,
		BridgeURL:       DefaultBridgeURL,
		MetricsAddr:     settings.MetricsAddr,
	}

	if settings.HandshakeWindowSeconds > 0 {
		cfg.HandshakeWindow = time.Duration(settings.HandshakeWindowSeconds) * time.Second
	}
	if settings.ToolCallTimeoutSeconds > 0 {
		cfg.ToolCallTimeout = time.Duration(settings.ToolCallTimeoutSeconds) * time.Second
	}
	if cfg.ToolCallTimeout < MinToolCallTimeout {
		cfg.ToolCallTimeout = MinToolCallTimeout
	}
	if settings.BridgeURL != "" {
		cfg.BridgeURL = settings.BridgeURL
	}

	recordings, err := resolveRecordingsDir(settings.RecordingsDir)
	if err != nil {
		return nil, err
	}
	cfg.RecordingsDir = recordings

	logs, err := resolveLogsDir(settings.LogsDir)
	if err != nil {
		return nil, err
	}
	cfg.LogsDir = logs

	return cfg, nil
}

// resolveRecordingsDir picks the recordings root: env var, settings file,
// then the platform default, creating the directory if needed.
func resolveRecordingsDir(fromSettings string) (string, error) {
	if env := strings.TrimSpace(os.Getenv("SCRIBE_RECORDINGS_DIR")); env != "" {
		return ensureDir(env)
	}
	if fromSettings != "" {
		return ensureDir(fromSettings)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return ensureDir(filepath.Join(home, "Documents", "Scribe", "recordings"))
}

// resolveLogsDir picks the logs directory: settings file, then a logs/
// sibling of the config dir.
func resolveLogsDir(fromSettings string) (string, error) {
	if fromSettings != "" {
		return ensureDir(fromSettings)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return ensureDir(filepath.Join(dir, "logs"))
}

// ensureDir expands "~", makes the path absolute, and creates it.
func ensureDir(path string) (string, error) {
	expanded := ExpandHome(path)
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path %q: %w", path, err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %q: %w", abs, err)
	}
	return abs, nil
}

// ExpandHome expands a leading "~" to the user's home directory.
// The path is returned unchanged if expansion is not possible.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
