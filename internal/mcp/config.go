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

package mcp

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"sync"
)

// FilesystemServerName identifies the built-in filesystem provider, the one
// whose launch argv gets the session directory appended.
const FilesystemServerName = "filesystem"

// ServerNameRegex validates MCP server names.
// Names must start with a letter and contain only letters, numbers, hyphens,
// and underscores. Maximum length is 64 characters.
var ServerNameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]{0,63}$`)

// envKeyRegex validates environment variable keys.
var envKeyRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ServerDefinition is one named MCP server configuration. Instances are
// immutable once handed out; mutations go through the Store, which
// re-persists the whole registry.
type ServerDefinition struct {
	// Name is the unique identifier for this server.
	Name string `json:"-"`

	// Command is the executable to run (e.g. "npx").
	Command string `json:"command"`

	// Args are command-line arguments.
	Args []string `json:"args,omitempty"`

	// Env are environment variable overrides applied on top of the current
	// process environment.
	Env map[string]string `json:"env,omitempty"`

	// Enabled gates activation.
	Enabled bool `json:"enabled"`

	// Description is a human-readable summary shown in the shell.
	Description string `json:"description,omitempty"`

	// Icon is the emoji shown next to the server in the shell.
	Icon string `json:"icon,omitempty"`
}

// Validate checks a definition for use.
func (d *ServerDefinition) Validate() error {
	if err := ValidateServerName(d.Name); err != nil {
		return err
	}
	if d.Command == "" {
		return NewError(ErrorCodeValidation, fmt.Sprintf("server '%s' has no command", d.Name))
	}
	for key := range d.Env {
		if !envKeyRegex.MatchString(key) {
			return NewError(ErrorCodeValidation, fmt.Sprintf("server '%s' has invalid env key %q", d.Name, key))
		}
	}
	return nil
}

// ValidateServerName validates an MCP server name.
func ValidateServerName(name string) error {
	if name == "" {
		return NewError(ErrorCodeValidation, "server name is required")
	}
	if !ServerNameRegex.MatchString(name) {
		return NewError(ErrorCodeValidation, fmt.Sprintf("invalid server name %q", name)).
			WithDetail("names must start with a letter, contain only letters/numbers/hyphens/underscores, and be at most 64 characters")
	}
	return nil
}

// serversFile is the on-disk shape of the server registry.
type serversFile struct {
	Servers map[string]*ServerDefinition `json:"servers"`
}

// Store persists named server definitions to a JSON file. Built-in defaults
// are merged in underneath user entries at load time; every mutation
// rewrites the whole file atomically.
type Store struct {
	path string

	mu      sync.Mutex
	servers map[string]*ServerDefinition

	// logger is used for structured logging
	logger *slog.Logger
}

// NewStore loads the registry at path, creating it in memory from built-in
// defaults if the file does not exist. A corrupt file is an error rather
// than silently dropping user configuration.
func NewStore(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		path:    path,
		servers: make(map[string]*ServerDefinition),
		logger:  logger,
	}

	if err := s.load(); err != nil {
		return nil, err
	}

	return s, nil
}

// load reads the file (if present) and merges defaults for any built-in
// server the user has not overridden.
func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	loaded := make(map[string]*ServerDefinition)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return NewError(ErrorCodeConfig, "failed to read server registry").WithCause(err)
		}
	} else {
		var file serversFile
		if err := json.Unmarshal(data, &file); err != nil {
			return NewError(ErrorCodeConfig, "failed to parse server registry").
				WithDetail(s.path).
				WithCause(err)
		}
		for name, def := range file.Servers {
			if def == nil {
				continue
			}
			def.Name = name
			loaded[name] = def
			s.logger.Info("loaded server config", "server", name)
		}
	}

	// Defaults fill in underneath; a persisted entry wins over its default.
	for _, def := range defaultServers() {
		if _, exists := loaded[def.Name]; !exists {
			d := def
			loaded[d.Name] = &d
		}
	}

	s.servers = loaded
	return nil
}

// Reload re-reads the registry from disk, e.g. after an external edit.
func (s *Store) Reload() error {
	return s.load()
}

// Path returns the registry file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns the definition for name.
func (s *Store) Get(name string) (ServerDefinition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	def, ok := s.servers[name]
	if !ok {
		return ServerDefinition{}, ErrServerNotFound(name)
	}
	return *def, nil
}

// List returns all definitions sorted by name.
func (s *Store) List() []ServerDefinition {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.servers))
	for name := range s.servers {
		names = append(names, name)
	}
	sort.Strings(names)

	defs := make([]ServerDefinition, 0, len(names))
	for _, name := range names {
		defs = append(defs, *s.servers[name])
	}
	return defs
}

// Add registers a new definition and persists the registry.
func (s *Store) Add(def ServerDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.servers[def.Name] = &def
	return s.saveLocked()
}

// Update replaces an existing definition and persists the registry.
func (s *Store) Update(def ServerDefinition) error {
	if err := def.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.servers[def.Name]; !ok {
		return ErrServerNotFound(def.Name)
	}
	s.servers[def.Name] = &def
	return s.saveLocked()
}

// Remove deletes a definition and persists the registry.
func (s *Store) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.servers[name]; !ok {
		return ErrServerNotFound(name)
	}
	delete(s.servers, name)
	return s.saveLocked()
}

// saveLocked writes the whole registry atomically (temp file + rename).
// Callers hold s.mu.
func (s *Store) saveLocked() error {
	file := serversFile{Servers: s.servers}

	data, err := json.MarshalIndent(&file, "", "  ")
	if err != nil {
		return NewError(ErrorCodeConfig, "failed to encode server registry").WithCause(err)
	}
	data = append(data, '\n')

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return NewError(ErrorCodeConfig, "failed to write server registry").WithCause(err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return NewError(ErrorCodeConfig, "failed to save server registry").WithCause(err)
	}

	s.logger.Info("saved server registry", "path", s.path, "servers", len(s.servers))
	return nil
}

// defaultServers returns the built-in provider catalog. Servers that need
// user-supplied credentials ship disabled.
func defaultServers() []ServerDefinition {
	return []ServerDefinition{
		{
			Name:        FilesystemServerName,
			Command:     "npx",
			Args:        []string{"-y", "@modelcontextprotocol/server-filesystem"},
			Description: "File system operations (read, write, list)",
			Icon:        "📁",
			Enabled:     true,
		},
		{
			Name:        "web-search",
			Command:     "npx",
			Args:        []string{"-y", "@modelcontextprotocol/server-brave-search", "stdio"},
			Env:         map[string]string{"BRAVE_API_KEY": ""},
			Description: "Web search using Brave Search API",
			Icon:        "🔍",
			Enabled:     false,
		},
		{
			Name:        "github",
			Command:     "npx",
			Args:        []string{"-y", "@modelcontextprotocol/server-github", "stdio"},
			Env:         map[string]string{"GITHUB_TOKEN": ""},
			Description: "GitHub repository operations",
			Icon:        "🐙",
			Enabled:     false,
		},
		{
			Name:        "postgres",
			Command:     "npx",
			Args:        []string{"-y", "@modelcontextprotocol/server-postgres", "stdio"},
			Env:         map[string]string{"DATABASE_URL": ""},
			Description: "PostgreSQL database operations",
			Icon:        "🐘",
			Enabled:     false,
		},
		{
			Name:        "puppeteer",
			Command:     "npx",
			Args:        []string{"-y", "@modelcontextprotocol/server-puppeteer", "stdio"},
			Description: "Web browser automation",
			Icon:        "🎭",
			Enabled:     true,
		},
		{
			Name:        "memory",
			Command:     "npx",
			Args:        []string{"-y", "@modelcontextprotocol/server-memory", "stdio"},
			Description: "In-memory knowledge graph",
			Icon:        "🧠",
			Enabled:     true,
		},
	}
}
