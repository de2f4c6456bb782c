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
	"log/slog"
	"time"

	"github.com/tombee/scribe/internal/session"
)

// Service is the high-level MCP surface the rest of the process talks to:
// the CLI commands, the bridge, and the agent all go through it. It bundles
// the persistent server registry with the single active server's lifecycle.
type Service struct {
	store    *Store
	registry *Registry
	emitter  *EventEmitter
	logger   *slog.Logger

	callTimeout time.Duration
}

// ServiceConfig configures a Service.
type ServiceConfig struct {
	// Store is the persistent server registry.
	Store *Store

	// Binder maps session ids to recording directories for the filesystem
	// server.
	Binder *session.Binder

	// HandshakeWindow bounds how long a spawned server has to initialize.
	HandshakeWindow time.Duration

	// CallTimeout bounds tools/list and tools/call exchanges.
	CallTimeout time.Duration

	// Logger is used for structured logging (optional).
	Logger *slog.Logger
}

// NewService creates a Service.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	emitter := NewEventEmitter(logger)
	return &Service{
		store:       cfg.Store,
		registry:    NewRegistry(cfg.Store, cfg.Binder, emitter, cfg.HandshakeWindow, logger),
		emitter:     emitter,
		logger:      logger,
		callTimeout: cfg.CallTimeout,
	}
}

// Servers returns every configured server with its live activity state.
func (s *Service) Servers() []ServerInfo {
	activeName := ""
	if def, ok := s.registry.Active(); ok {
		activeName = def.Name
	}

	defs := s.store.List()
	infos := make([]ServerInfo, 0, len(defs))
	for _, def := range defs {
		infos = append(infos, ServerInfo{
			Name:        def.Name,
			Description: def.Description,
			Icon:        def.Icon,
			Enabled:     def.Enabled,
			Active:      def.Name == activeName,
		})
	}
	return infos
}

// Activate makes the named server the active one, bound to the given
// session. An empty session id binds to the most recent recording session.
func (s *Service) Activate(name, sessionID string) error {
	return s.registry.Activate(name, sessionID)
}

// Deactivate shuts down the active server if any.
func (s *Service) Deactivate() {
	s.registry.Deactivate()
}

// ActiveServer returns the active server's name, or empty if none.
func (s *Service) ActiveServer() string {
	if def, ok := s.registry.Active(); ok {
		return def.Name
	}
	return ""
}

// Tools lists the active server's tools.
func (s *Service) Tools() ([]ToolDefinition, error) {
	return s.registry.ListTools(s.callTimeout)
}

// CallTool invokes a tool on the active server.
func (s *Service) CallTool(tool string, args map[string]any) (*ToolCallResult, error) {
	return s.registry.CallTool(tool, args, s.callTimeout)
}

// AddServer registers a new server definition.
func (s *Service) AddServer(def ServerDefinition) error {
	return s.store.Add(def)
}

// UpdateServer replaces a definition. If the server is currently active it
// is deactivated first, since the running process no longer matches its
// configuration.
func (s *Service) UpdateServer(def ServerDefinition) error {
	if s.ActiveServer() == def.Name {
		s.registry.Deactivate()
	}
	return s.store.Update(def)
}

// RemoveServer deletes a definition, deactivating it first if active.
func (s *Service) RemoveServer(name string) error {
	if s.ActiveServer() == name {
		s.registry.Deactivate()
	}
	return s.store.Remove(name)
}

// GetServer returns a single definition.
func (s *Service) GetServer(name string) (ServerDefinition, error) {
	return s.store.Get(name)
}

// Events returns a subscription to server lifecycle events.
func (s *Service) Events() <-chan ServerEvent {
	return s.emitter.Subscribe()
}

// StderrLog returns the active server's recent stderr output.
func (s *Service) StderrLog() string {
	s.registry.mu.Lock()
	defer s.registry.mu.Unlock()
	if s.registry.active == nil {
		return ""
	}
	return s.registry.active.proc.Stderr().Tail(50)
}

// Close deactivates any running server. Called on shutdown.
func (s *Service) Close() {
	s.registry.Deactivate()
}
