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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest(t *testing.T) {
	req, err := NewRequest(7, "tools/call", callToolParams{Name: "read_file"})
	require.NoError(t, err)

	assert.Equal(t, "2.0", req.JSONRPC)
	assert.Equal(t, "tools/call", req.Method)
	assert.True(t, req.HasID(7))
	assert.True(t, req.IsRequest())
	assert.False(t, req.IsResponse())
	assert.False(t, req.IsNotification())
}

func TestNewRequestNilParams(t *testing.T) {
	req, err := NewRequest(2, "tools/list", nil)
	require.NoError(t, err)

	// Some servers reject requests with a missing params member.
	assert.Equal(t, json.RawMessage(`{}`), req.Params)
}

func TestNewResponseEchoesRawID(t *testing.T) {
	// Server-initiated requests may use string ids; the response must echo
	// the id byte-for-byte.
	id := json.RawMessage(`"srv-42"`)
	resp, err := NewResponse(id, rootsResult{Roots: []Root{}})
	require.NoError(t, err)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"id":"srv-42"`)
	assert.True(t, resp.IsResponse())
}

func TestNewNotificationHasNoID(t *testing.T) {
	notify, err := NewNotification("notifications/roots/list_changed", nil)
	require.NoError(t, err)

	assert.Nil(t, notify.ID)
	assert.True(t, notify.IsNotification())
	assert.False(t, notify.IsRequest())
}

func TestMessageClassification(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		request      bool
		response     bool
		notification bool
	}{
		{
			name:    "server request",
			raw:     `{"jsonrpc":"2.0","id":5,"method":"roots/list"}`,
			request: true,
		},
		{
			name:     "result response",
			raw:      `{"jsonrpc":"2.0","id":1,"result":{}}`,
			response: true,
		},
		{
			name:     "error response",
			raw:      `{"jsonrpc":"2.0","id":1,"error":{"code":-32600,"message":"bad"}}`,
			response: true,
		},
		{
			name:         "notification",
			raw:          `{"jsonrpc":"2.0","method":"notifications/progress"}`,
			notification: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg Message
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &msg))
			assert.Equal(t, tt.request, msg.IsRequest())
			assert.Equal(t, tt.response, msg.IsResponse())
			assert.Equal(t, tt.notification, msg.IsNotification())
		})
	}
}

func TestHasID(t *testing.T) {
	var msg Message
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":3,"result":{}}`), &msg))

	assert.True(t, msg.HasID(3))
	assert.False(t, msg.HasID(2))

	// String ids never match a numeric id.
	require.NoError(t, json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":"3","result":{}}`), &msg))
	assert.False(t, msg.HasID(3))
}
