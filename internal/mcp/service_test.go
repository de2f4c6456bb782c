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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/scribe/internal/session"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	store := newTestStore(t)
	require.NoError(t, store.Add(ServerDefinition{
		Name:        "fake",
		Command:     "sh",
		Args:        []string{writeScript(t, fakeServerScript)},
		Enabled:     true,
		Description: "Fake test provider",
		Icon:        "🧪",
	}))

	svc := NewService(ServiceConfig{
		Store:           store,
		Binder:          session.NewBinder(t.TempDir(), testLogger()),
		HandshakeWindow: 2 * time.Second,
		CallTimeout:     2 * time.Second,
		Logger:          testLogger(),
	})
	svc.registry.launcher.spawnGrace = 100 * time.Millisecond
	t.Cleanup(svc.Close)
	return svc
}

func TestServiceServersReflectActivity(t *testing.T) {
	svc := newTestService(t)

	infos := svc.Servers()
	require.NotEmpty(t, infos)
	for _, info := range infos {
		assert.False(t, info.Active)
	}

	require.NoError(t, svc.Activate("fake", ""))
	assert.Equal(t, "fake", svc.ActiveServer())

	var fake *ServerInfo
	for _, info := range svc.Servers() {
		if info.Name == "fake" {
			f := info
			fake = &f
		} else {
			assert.False(t, info.Active)
		}
	}
	require.NotNil(t, fake)
	assert.True(t, fake.Active)
	assert.Equal(t, "Fake test provider", fake.Description)
	assert.Equal(t, "🧪", fake.Icon)
}

func TestServiceToolsAndCall(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.Activate("fake", ""))

	tools, err := svc.Tools()
	require.NoError(t, err)
	require.Len(t, tools, 1)

	result, err := svc.CallTool("echo_tool", map[string]any{"text": "x"})
	require.NoError(t, err)
	assert.False(t, result.IsError)
}

func TestServiceRemoveActiveDeactivates(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.Activate("fake", ""))

	require.NoError(t, svc.RemoveServer("fake"))
	assert.Equal(t, "", svc.ActiveServer())

	_, err := svc.GetServer("fake")
	assert.Equal(t, ErrorCodeNotFound, CodeOf(err))
}

func TestServiceUpdateActiveDeactivates(t *testing.T) {
	svc := newTestService(t)
	require.NoError(t, svc.Activate("fake", ""))

	def, err := svc.GetServer("fake")
	require.NoError(t, err)
	def.Description = "changed"
	require.NoError(t, svc.UpdateServer(def))

	assert.Equal(t, "", svc.ActiveServer())
}

func TestServiceEvents(t *testing.T) {
	svc := newTestService(t)
	events := svc.Events()

	require.NoError(t, svc.Activate("fake", ""))
	svc.Deactivate()

	var types []EventType
	timeout := time.After(2 * time.Second)
	for len(types) < 2 {
		select {
		case ev := <-events:
			types = append(types, ev.Type)
		case <-timeout:
			t.Fatalf("only saw events %v", types)
		}
	}
	assert.Equal(t, []EventType{EventActivated, EventDeactivated}, types)
}
