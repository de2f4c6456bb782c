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
	"sync"
	"time"
)

// EventType represents the type of MCP server event.
type EventType string

const (
	// EventActivated indicates a server completed its handshake and became
	// the active server.
	EventActivated EventType = "activated"
	// EventDeactivated indicates the active server was shut down.
	EventDeactivated EventType = "deactivated"
	// EventFailed indicates an activation attempt failed.
	EventFailed EventType = "failed"
	// EventDied indicates the active server exited without being asked to.
	EventDied EventType = "died"
)

// ServerEvent represents a lifecycle event from an MCP server.
type ServerEvent struct {
	// Type is the event type.
	Type EventType `json:"type"`

	// ServerName is the name of the server.
	ServerName string `json:"server_name"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Message is an optional human-readable message.
	Message string `json:"message,omitempty"`

	// Details contains additional event-specific information.
	Details map[string]any `json:"details,omitempty"`
}

// EventEmitter fans MCP lifecycle events out to subscribers and the log.
type EventEmitter struct {
	logger *slog.Logger

	mu   sync.Mutex
	subs []chan ServerEvent
}

// NewEventEmitter creates a new event emitter.
func NewEventEmitter(logger *slog.Logger) *EventEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventEmitter{logger: logger}
}

// Subscribe returns a channel that receives future events. Slow subscribers
// drop events rather than blocking the emitter.
func (e *EventEmitter) Subscribe() <-chan ServerEvent {
	ch := make(chan ServerEvent, 16)
	e.mu.Lock()
	e.subs = append(e.subs, ch)
	e.mu.Unlock()
	return ch
}

// Emit logs an event and delivers it to subscribers.
func (e *EventEmitter) Emit(event ServerEvent) {
	attrs := []any{
		"server", event.ServerName,
		"type", string(event.Type),
	}
	if event.Message != "" {
		attrs = append(attrs, "message", event.Message)
	}
	for k, v := range event.Details {
		attrs = append(attrs, k, v)
	}
	e.logger.Info("MCP server event", attrs...)

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, sub := range e.subs {
		select {
		case sub <- event:
		default:
		}
	}
}

// EmitActivated emits a server activated event.
func (e *EventEmitter) EmitActivated(serverName string, pid int) {
	e.Emit(ServerEvent{
		Type:       EventActivated,
		ServerName: serverName,
		Timestamp:  time.Now(),
		Message:    "Server activated",
		Details:    map[string]any{"pid": pid},
	})
}

// EmitDeactivated emits a server deactivated event.
func (e *EventEmitter) EmitDeactivated(serverName string) {
	e.Emit(ServerEvent{
		Type:       EventDeactivated,
		ServerName: serverName,
		Timestamp:  time.Now(),
		Message:    "Server deactivated",
	})
}

// EmitFailed emits an activation failed event.
func (e *EventEmitter) EmitFailed(serverName string, err error) {
	e.Emit(ServerEvent{
		Type:       EventFailed,
		ServerName: serverName,
		Timestamp:  time.Now(),
		Message:    "Server activation failed",
		Details: map[string]any{
			"error": err.Error(),
		},
	})
}

// EmitDied emits a server died event.
func (e *EventEmitter) EmitDied(serverName string) {
	e.Emit(ServerEvent{
		Type:       EventDied,
		ServerName: serverName,
		Timestamp:  time.Now(),
		Message:    "Server exited unexpectedly",
	})
}
