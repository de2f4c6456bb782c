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
	"strconv"
)

// ProtocolVersion is the MCP protocol revision this client speaks.
const ProtocolVersion = "2025-06-18"

// Client identity advertised in the initialize request.
const (
	ClientName    = "scribe"
	ClientVersion = "1.0.0"
)

// Fixed JSON-RPC ids, one per call site. The wire contract only requires
// correlation within the handshake vs. post-handshake phases, and all calls
// against a server are serialized, so small reused ids are sufficient. If
// pipelined calls are ever introduced, ids must become unique per in-flight
// request.
const (
	initializeID int64 = 1
	listToolsID  int64 = 2
	callToolID   int64 = 3
)

// JSON-RPC method names used on the wire.
const (
	methodInitialize       = "initialize"
	methodToolsList        = "tools/list"
	methodToolsCall        = "tools/call"
	methodRootsList        = "roots/list"
	methodRootsListChanged = "roots/list_changed"
)

// Message is a single JSON-RPC 2.0 message: a request, a response, or a
// notification, depending on which fields are populated. The id is kept as
// raw JSON so server-chosen ids can be echoed back verbatim.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is the error member of a JSON-RPC response.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *RPCError) Error() string {
	return "rpc error " + strconv.Itoa(e.Code) + ": " + e.Message
}

// IsRequest reports whether the message is a server-initiated request
// (has both a method and an id).
func (m *Message) IsRequest() bool {
	return m.Method != "" && len(m.ID) > 0
}

// IsResponse reports whether the message is a response to one of our
// requests (has an id but no method).
func (m *Message) IsResponse() bool {
	return m.Method == "" && len(m.ID) > 0 && (m.Result != nil || m.Error != nil)
}

// IsNotification reports whether the message is a notification
// (has a method but no id).
func (m *Message) IsNotification() bool {
	return m.Method != "" && len(m.ID) == 0
}

// HasID reports whether the message id equals the given numeric id.
func (m *Message) HasID(id int64) bool {
	if len(m.ID) == 0 {
		return false
	}
	parsed, err := strconv.ParseInt(string(m.ID), 10, 64)
	if err != nil {
		return false
	}
	return parsed == id
}

// NewRequest builds a client request with a numeric id.
func NewRequest(id int64, method string, params any) (*Message, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}
	return &Message{
		JSONRPC: "2.0",
		ID:      json.RawMessage(strconv.FormatInt(id, 10)),
		Method:  method,
		Params:  raw,
	}, nil
}

// NewResponse builds a response to a server request, echoing its id verbatim.
func NewResponse(id json.RawMessage, result any) (*Message, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return &Message{
		JSONRPC: "2.0",
		ID:      id,
		Result:  raw,
	}, nil
}

// NewNotification builds a notification (no id, no reply expected).
func NewNotification(method string, params any) (*Message, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}
	return &Message{
		JSONRPC: "2.0",
		Method:  method,
		Params:  raw,
	}, nil
}

// marshalParams marshals params, mapping nil to an empty object so the wire
// always carries "params": {} on requests.
func marshalParams(params any) (json.RawMessage, error) {
	if params == nil {
		return json.RawMessage(`{}`), nil
	}
	return json.Marshal(params)
}

// initializeParams is the params payload of the initialize request.
type initializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	ClientInfo      clientInfo         `json:"clientInfo"`
	Capabilities    clientCapabilities `json:"capabilities"`
}

type clientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// clientCapabilities advertises tools and roots support. Both are empty
// objects per the capability-flag convention.
type clientCapabilities struct {
	Tools map[string]any `json:"tools"`
	Roots map[string]any `json:"roots"`
}

// Root is one entry in a roots/list response.
type Root struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

// rootsResult is the result payload answering a roots/list request.
type rootsResult struct {
	Roots []Root `json:"roots"`
}

// callToolParams is the params payload of a tools/call request.
type callToolParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// listToolsResult is the result payload of a tools/list response.
type listToolsResult struct {
	Tools []ToolDefinition `json:"tools"`
}
