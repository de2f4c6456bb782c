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

package agent

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/tombee/scribe/internal/session"
)

// providerConfig is the separate JSON document some agent frameworks load
// their tool providers from. Only the filesystem entry is rewritten; the
// rest of the document passes through untouched.
type providerConfig struct {
	MCPServers map[string]*providerEntry `json:"mcpServers"`
}

type providerEntry struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
}

// ConfigWriter keeps the provider config's filesystem entry pointed at the
// current session directory.
type ConfigWriter struct {
	path   string
	binder *session.Binder
	logger *slog.Logger
}

// NewConfigWriter creates a writer for the provider config at path.
func NewConfigWriter(path string, binder *session.Binder, logger *slog.Logger) *ConfigWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConfigWriter{path: path, binder: binder, logger: logger}
}

// PrepareForSession resolves sessionID to its recording directory and
// rewrites the filesystem entry's args to allow exactly that directory:
// the explicit transport token and any previous absolute paths are removed,
// then the resolved directory is appended. A missing file gets a fresh
// default document.
func (w *ConfigWriter) PrepareForSession(sessionID string) (string, error) {
	dir, err := w.binder.Resolve(sessionID)
	if err != nil {
		return "", err
	}

	cfg, err := w.load()
	if err != nil {
		return "", err
	}

	entry, ok := cfg.MCPServers["filesystem"]
	if !ok {
		entry = &providerEntry{
			Command: "npx",
			Args:    []string{"-y", "@modelcontextprotocol/server-filesystem"},
		}
		cfg.MCPServers["filesystem"] = entry
	}

	args := make([]string, 0, len(entry.Args)+1)
	for _, arg := range entry.Args {
		if arg == "stdio" || strings.HasPrefix(arg, "/") {
			continue
		}
		args = append(args, arg)
	}
	entry.Args = append(args, dir)

	if err := w.save(cfg); err != nil {
		return "", err
	}

	w.logger.Info("provider config bound to session directory",
		"path", w.path,
		"dir", dir)
	return dir, nil
}

func (w *ConfigWriter) load() (*providerConfig, error) {
	data, err := os.ReadFile(w.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &providerConfig{MCPServers: map[string]*providerEntry{}}, nil
		}
		return nil, fmt.Errorf("failed to read provider config: %w", err)
	}

	var cfg providerConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse provider config %s: %w", w.path, err)
	}
	if cfg.MCPServers == nil {
		cfg.MCPServers = map[string]*providerEntry{}
	}
	return &cfg, nil
}

func (w *ConfigWriter) save(cfg *providerConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(w.path), 0755); err != nil {
		return err
	}
	tmp := w.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmp, w.path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
