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

/*
Package mcp implements the Model Context Protocol (MCP) for Scribe.

MCP servers are external child processes that expose tools — file system
access, web search, database queries — over newline-delimited JSON-RPC on
their stdio. This package owns the full lifecycle: configuration, spawning,
the initialize handshake, tool invocation, and teardown.

# Overview

The implementation consists of several components:

  - Store: persistent named server definitions, with built-in defaults
  - Launcher: process spawning with env overlay and stderr capture
  - Channel: newline-delimited JSON-RPC framing over the child's stdio
  - Handshake: the initialize exchange, including serving roots/list
  - Registry: the single active server and its tool invocations
  - Service: the facade the CLI, bridge, and agent talk to

# Single Active Server

At most one server runs at a time. Activating a server deactivates the
current one first:

	svc := mcp.NewService(mcp.ServiceConfig{Store: store, Binder: binder})

	err := svc.Activate("filesystem", sessionID)
	tools, err := svc.Tools()
	result, err := svc.CallTool("read_file", map[string]any{"path": "notes.md"})

The filesystem server is special-cased: its launch argv gets the resolved
session recording directory appended, and roots/list requests from the
server are answered with that directory as a file URI.

# Error Handling

Failures surface as *Error values with a stable code (SPAWN_FAILED,
HANDSHAKE_TIMEOUT, CALL_TIMEOUT, ...), an optional captured stderr tail,
and user-facing suggestions. Use CodeOf to branch on the category.
*/
package mcp
