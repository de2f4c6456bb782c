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
	"errors"
	"fmt"
	"strings"
)

// ErrorCode represents a category of MCP error.
type ErrorCode string

const (
	// ErrorCodeSpawnFailed indicates the child process could not start or
	// exited immediately. Fatal to that activation attempt only.
	ErrorCodeSpawnFailed ErrorCode = "SPAWN_FAILED"
	// ErrorCodeHandshakeTimeout indicates no initialize response arrived
	// within the handshake window. The child is killed.
	ErrorCodeHandshakeTimeout ErrorCode = "HANDSHAKE_TIMEOUT"
	// ErrorCodeHandshakeRejected indicates the server answered initialize
	// with a JSON-RPC error.
	ErrorCodeHandshakeRejected ErrorCode = "HANDSHAKE_REJECTED"
	// ErrorCodeNoActiveServer indicates an operation was attempted with
	// nothing activated. Recoverable; activate first.
	ErrorCodeNoActiveServer ErrorCode = "NO_ACTIVE_SERVER"
	// ErrorCodeTransportClosed indicates the stdio pipe closed or broke
	// mid-call. The active slot is cleared so the system self-heals.
	ErrorCodeTransportClosed ErrorCode = "TRANSPORT_CLOSED"
	// ErrorCodeCallTimeout indicates a tool call got no response in time
	// while the process was still alive.
	ErrorCodeCallTimeout ErrorCode = "CALL_TIMEOUT"
	// ErrorCodeApplication indicates the provider's tools/call returned a
	// JSON-RPC error payload. Passed through; non-fatal to the session.
	ErrorCodeApplication ErrorCode = "APPLICATION"
	// ErrorCodeNotFound indicates an unknown server name.
	ErrorCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrorCodeDisabled indicates the server exists but is disabled.
	ErrorCodeDisabled ErrorCode = "DISABLED"
	// ErrorCodeValidation indicates an invalid server definition.
	ErrorCodeValidation ErrorCode = "VALIDATION"
	// ErrorCodeConfig indicates a configuration store error.
	ErrorCodeConfig ErrorCode = "CONFIG"
)

// Error is the structured error type for the mcp package. It carries a
// category code, user-facing detail, and actionable suggestions.
type Error struct {
	// Code is the error category.
	Code ErrorCode
	// Message is the primary error message.
	Message string
	// Detail provides additional context (e.g. captured stderr).
	Detail string
	// Suggestions are actionable steps to resolve the error.
	Suggestions []string
	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString(e.Message)
	if e.Detail != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Detail)
	}

	if len(e.Suggestions) > 0 {
		sb.WriteString("\n  Suggestions:\n")
		for _, s := range e.Suggestions {
			sb.WriteString("  - ")
			sb.WriteString(s)
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// UserMessage returns a single-line message suitable for the shell envelope.
func (e *Error) UserMessage() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Detail)
	}
	return e.Message
}

// NewError creates a new Error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithDetail adds detail to the error.
func (e *Error) WithDetail(detail string) *Error {
	e.Detail = detail
	return e
}

// WithSuggestions adds suggestions to the error.
func (e *Error) WithSuggestions(suggestions ...string) *Error {
	e.Suggestions = suggestions
	return e
}

// WithCause adds an underlying cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// ErrSpawnFailed creates an error for a child that could not start.
func ErrSpawnFailed(name string, stderr string, cause error) *Error {
	e := NewError(ErrorCodeSpawnFailed, fmt.Sprintf("MCP server '%s' failed to start", name)).
		WithCause(cause).
		WithSuggestions(
			"Verify the command and arguments are correct",
			"Ensure required environment variables are set",
			"Review the server's stderr output in the error detail",
		)
	if stderr != "" {
		e.Detail = stderr
	} else if cause != nil {
		e.Detail = cause.Error()
	}
	return e
}

// ErrHandshakeTimeout creates an error for an initialize exchange that never
// completed within the handshake window.
func ErrHandshakeTimeout(name string, stderr string) *Error {
	e := NewError(ErrorCodeHandshakeTimeout, fmt.Sprintf("MCP server '%s' did not complete initialization", name)).
		WithSuggestions(
			"Verify the server implements MCP over newline-delimited stdio",
			"Try increasing handshake_window_seconds in config.yaml",
		)
	if stderr != "" {
		e.Detail = stderr
	}
	return e
}

// ErrHandshakeRejected creates an error for a server that answered initialize
// with a JSON-RPC error.
func ErrHandshakeRejected(name string, rpcErr *RPCError) *Error {
	return NewError(ErrorCodeHandshakeRejected, fmt.Sprintf("MCP server '%s' rejected initialization", name)).
		WithDetail(rpcErr.Error()).
		WithCause(rpcErr)
}

// ErrNoActiveServer creates an error for an operation with nothing activated.
func ErrNoActiveServer() *Error {
	return NewError(ErrorCodeNoActiveServer, "no active MCP server").
		WithSuggestions(
			"Activate a server from the app's MCP panel",
			"Or run a one-shot check: scribed mcp tools <name>",
		)
}

// ErrTransportClosed creates an error for a pipe that closed mid-call.
func ErrTransportClosed(name string, cause error) *Error {
	e := NewError(ErrorCodeTransportClosed, fmt.Sprintf("connection to MCP server '%s' closed", name)).
		WithCause(cause).
		WithSuggestions(
			"Review the server's last stderr output in the error detail",
			"Reactivate the server",
		)
	if cause != nil {
		e.Detail = cause.Error()
	}
	return e
}

// ErrCallTimeout creates an error for a tool call that got no response.
func ErrCallTimeout(name string, operation string) *Error {
	return NewError(ErrorCodeCallTimeout, fmt.Sprintf("MCP server '%s' did not answer %s", name, operation)).
		WithSuggestions(
			"Try increasing tool_call_timeout_seconds in config.yaml",
			"Check if the server is responding",
		)
}

// ErrApplication wraps a JSON-RPC error payload from a tool call. The
// provider's error is passed through verbatim.
func ErrApplication(name string, rpcErr *RPCError) *Error {
	return NewError(ErrorCodeApplication, fmt.Sprintf("MCP server '%s' returned an error", name)).
		WithDetail(rpcErr.Error()).
		WithCause(rpcErr)
}

// ErrServerNotFound creates an error for an unknown server name.
func ErrServerNotFound(name string) *Error {
	return NewError(ErrorCodeNotFound, fmt.Sprintf("MCP server '%s' not found", name)).
		WithSuggestions(
			"Check the server name: scribed mcp list",
			fmt.Sprintf("Register the server: scribed mcp add %s --command <cmd>", name),
		)
}

// ErrServerDisabled creates an error for a disabled server.
func ErrServerDisabled(name string) *Error {
	return NewError(ErrorCodeDisabled, fmt.Sprintf("MCP server '%s' is disabled", name)).
		WithSuggestions(fmt.Sprintf("Enable it first: scribed mcp enable %s", name))
}

// AsError extracts an *Error from an error chain, or nil.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return nil
}

// CodeOf returns the category code of an error, or "" for plain errors.
func CodeOf(err error) ErrorCode {
	if e := AsError(err); e != nil {
		return e.Code
	}
	return ""
}
