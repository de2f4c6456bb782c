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

// Package tools provides the built-in local tools the desktop shell can call
// without an MCP server: small file, data, and system helpers executed
// in-process.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Handler executes one named tool.
type Handler interface {
	// Execute runs the tool with the given parameters.
	Execute(ctx context.Context, params map[string]any) (any, error)

	// Description is a one-line summary for tool listings.
	Description() string
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc struct {
	Fn   func(ctx context.Context, params map[string]any) (any, error)
	Desc string
}

// Execute implements Handler.
func (h HandlerFunc) Execute(ctx context.Context, params map[string]any) (any, error) {
	return h.Fn(ctx, params)
}

// Description implements Handler.
func (h HandlerFunc) Description() string {
	return h.Desc
}

// Registry holds the named tool handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   *slog.Logger
}

// NewRegistry creates a registry with the built-in tools registered.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		handlers: make(map[string]Handler),
		logger:   logger,
	}
	r.registerBuiltins()
	return r
}

func (r *Registry) registerBuiltins() {
	r.Register("file_read", HandlerFunc{fileRead, "Read contents of a file"})
	r.Register("file_write", HandlerFunc{fileWrite, "Write contents to a file"})
	r.Register("file_list", HandlerFunc{fileList, "List files in a directory"})
	r.Register("json_parse", HandlerFunc{jsonParse, "Parse a JSON string"})
	r.Register("text_extract", HandlerFunc{textExtract, "Extract text matching a pattern"})
	r.Register("execute_command", HandlerFunc{executeCommand, "Execute an allow-listed system command"})

	r.logger.Info("registered built-in tools", "count", len(r.handlers))
}

// Register adds or replaces a named handler.
func (r *Registry) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = h
	r.logger.Debug("registered tool", "tool", name)
}

// Execute runs the named tool.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]any) (any, error) {
	r.mu.RLock()
	h, ok := r.handlers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}

	result, err := h.Execute(ctx, params)
	if err != nil {
		r.logger.Error("tool execution failed", "tool", name, "error", err)
		return nil, fmt.Errorf("tool %s: %w", name, err)
	}
	r.logger.Info("executed tool", "tool", name)
	return result, nil
}

// List returns tool names mapped to their descriptions.
func (r *Registry) List() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]string, len(r.handlers))
	for name, h := range r.handlers {
		out[name] = h.Description()
	}
	return out
}

// Names returns the registered tool names sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// stringParam extracts a required string parameter.
func stringParam(params map[string]any, key string) (string, error) {
	v, ok := params[key]
	if !ok {
		return "", fmt.Errorf("missing required parameter: %s", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("parameter %s must be a non-empty string", key)
	}
	return s, nil
}

// optionalString extracts an optional string parameter with a default.
func optionalString(params map[string]any, key, def string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return def
}
