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
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProcess builds a ServerProcess that is alive until killed; the
// handshake only consults it for its name, liveness, and stderr.
func fakeProcess(name string) (*ServerProcess, func()) {
	proc := &ServerProcess{
		Definition: ServerDefinition{Name: name, Command: "fake"},
		stderr:     NewStderrBuffer(8),
		done:       make(chan struct{}),
	}
	var once bool
	kill := func() {
		if !once {
			once = true
			close(proc.done)
		}
	}
	return proc, kill
}

func TestHandshakeHappyPath(t *testing.T) {
	ch, srv := newTestChannel(t)
	proc, kill := fakeProcess("filesystem")
	defer kill()

	rootDir := t.TempDir()
	hs := NewHandshake(ch, rootDir, 2*time.Second, testLogger())

	go func() {
		// initialize request arrives first.
		line := srv.readLine(t)
		var init Message
		require.NoError(t, json.Unmarshal([]byte(line), &init))
		assert.Equal(t, "initialize", init.Method)
		assert.True(t, init.HasID(1))
		assert.Contains(t, string(init.Params), ProtocolVersion)

		// Ask for roots before answering initialize, with a string id.
		srv.writeLine(t, `{"jsonrpc":"2.0","id":"req-1","method":"roots/list"}`)

		rootsLine := srv.readLine(t)
		var roots Message
		require.NoError(t, json.Unmarshal([]byte(rootsLine), &roots))
		assert.Equal(t, json.RawMessage(`"req-1"`), roots.ID)
		assert.Contains(t, string(roots.Result), "file://")

		srv.writeLine(t, `{"jsonrpc":"2.0","id":1,"result":{"protocolVersion":"2025-06-18","serverInfo":{"name":"fs"}}}`)

		// The client nudges lazy providers after the result.
		notifyLine := srv.readLine(t)
		assert.Contains(t, notifyLine, "roots/list_changed")
	}()

	err := hs.Run(proc)
	require.NoError(t, err)
	assert.Equal(t, HandshakeReady, hs.State())
	assert.Equal(t, 1, hs.RootsServed())
}

func TestHandshakeLateRootsRequest(t *testing.T) {
	ch, srv := newTestChannel(t)
	proc, kill := fakeProcess("filesystem")
	defer kill()

	hs := NewHandshake(ch, t.TempDir(), 2*time.Second, testLogger())

	go func() {
		srv.readLine(t) // initialize
		srv.writeLine(t, `{"jsonrpc":"2.0","id":1,"result":{}}`)
		srv.readLine(t) // roots/list_changed

		// Request roots shortly after the result; the drain window must
		// still catch it.
		time.Sleep(50 * time.Millisecond)
		srv.writeLine(t, `{"jsonrpc":"2.0","id":9,"method":"roots/list"}`)
		srv.readLine(t) // roots response
	}()

	err := hs.Run(proc)
	require.NoError(t, err)
	assert.Equal(t, 1, hs.RootsServed())
}

func TestHandshakeRejected(t *testing.T) {
	ch, srv := newTestChannel(t)
	proc, kill := fakeProcess("web-search")
	defer kill()

	hs := NewHandshake(ch, "", 2*time.Second, testLogger())

	go func() {
		srv.readLine(t)
		srv.writeLine(t, `{"jsonrpc":"2.0","id":1,"error":{"code":-32600,"message":"unsupported protocol"}}`)
	}()

	err := hs.Run(proc)
	require.Error(t, err)
	assert.Equal(t, ErrorCodeHandshakeRejected, CodeOf(err))
	assert.Equal(t, HandshakeFailed, hs.State())
}

func TestHandshakeTimeout(t *testing.T) {
	ch, _ := newTestChannel(t)
	proc, kill := fakeProcess("silent")
	defer kill()

	hs := NewHandshake(ch, "", 150*time.Millisecond, testLogger())

	start := time.Now()
	err := hs.Run(proc)
	require.Error(t, err)
	assert.Equal(t, ErrorCodeHandshakeTimeout, CodeOf(err))
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, HandshakeFailed, hs.State())
}

func TestHandshakeDeadProcessSurfacesStderr(t *testing.T) {
	ch, srv := newTestChannel(t)
	proc, kill := fakeProcess("broken")
	proc.stderr.Add(StderrEntry{Timestamp: time.Now(), Line: "Error: BRAVE_API_KEY not set"})

	hs := NewHandshake(ch, "", 2*time.Second, testLogger())

	go func() {
		srv.readLine(t)
		kill()
		srv.out.Close() // stdout EOF, as when the child dies
	}()

	err := hs.Run(proc)
	require.Error(t, err)
	assert.Equal(t, ErrorCodeSpawnFailed, CodeOf(err))
	assert.Contains(t, err.Error(), "BRAVE_API_KEY")
}

func TestHandshakeIgnoresUnrelatedNotifications(t *testing.T) {
	ch, srv := newTestChannel(t)
	proc, kill := fakeProcess("chatty")
	defer kill()

	hs := NewHandshake(ch, "", 2*time.Second, testLogger())

	go func() {
		srv.readLine(t)
		srv.writeLine(t, `{"jsonrpc":"2.0","method":"notifications/message","params":{"level":"info"}}`)
		srv.writeLine(t, `{"jsonrpc":"2.0","id":1,"result":{}}`)
		srv.readLine(t)
	}()

	err := hs.Run(proc)
	require.NoError(t, err)
	assert.Equal(t, HandshakeReady, hs.State())
}

func TestBuildRoots(t *testing.T) {
	roots := buildRoots("/data/recordings/session-1")
	require.Len(t, roots, 1)
	assert.Equal(t, "file:///data/recordings/session-1", roots[0].URI)
	assert.Equal(t, "session-1", roots[0].Name)

	assert.Empty(t, buildRoots(""))
}
