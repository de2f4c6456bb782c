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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "servers.json"), testLogger())
	require.NoError(t, err)
	return store
}

func TestStoreDefaults(t *testing.T) {
	store := newTestStore(t)

	fs, err := store.Get(FilesystemServerName)
	require.NoError(t, err)
	assert.Equal(t, "npx", fs.Command)
	assert.True(t, fs.Enabled)

	// Servers needing credentials ship disabled.
	gh, err := store.Get("github")
	require.NoError(t, err)
	assert.False(t, gh.Enabled)
	assert.Contains(t, gh.Env, "GITHUB_TOKEN")
}

func TestStoreListSorted(t *testing.T) {
	store := newTestStore(t)

	defs := store.List()
	require.NotEmpty(t, defs)
	for i := 1; i < len(defs); i++ {
		assert.Less(t, defs[i-1].Name, defs[i].Name)
	}
}

func TestStoreAddPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers.json")

	store, err := NewStore(path, testLogger())
	require.NoError(t, err)

	err = store.Add(ServerDefinition{
		Name:    "custom",
		Command: "./bin/my-server",
		Args:    []string{"--verbose"},
		Enabled: true,
	})
	require.NoError(t, err)

	// A fresh store over the same file sees the entry.
	reloaded, err := NewStore(path, testLogger())
	require.NoError(t, err)

	def, err := reloaded.Get("custom")
	require.NoError(t, err)
	assert.Equal(t, "./bin/my-server", def.Command)
	assert.Equal(t, []string{"--verbose"}, def.Args)
}

func TestStoreUserEntryOverridesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers.json")
	content := `{"servers":{"filesystem":{"command":"/usr/local/bin/fs-server","enabled":false}}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	store, err := NewStore(path, testLogger())
	require.NoError(t, err)

	def, err := store.Get(FilesystemServerName)
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/fs-server", def.Command)
	assert.False(t, def.Enabled)
}

func TestStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

	_, err := NewStore(path, testLogger())
	require.Error(t, err)
	assert.Equal(t, ErrorCodeConfig, CodeOf(err))
}

func TestStoreValidation(t *testing.T) {
	store := newTestStore(t)

	tests := []struct {
		name string
		def  ServerDefinition
	}{
		{"empty name", ServerDefinition{Command: "npx"}},
		{"bad name", ServerDefinition{Name: "9lives", Command: "npx"}},
		{"name with spaces", ServerDefinition{Name: "my server", Command: "npx"}},
		{"missing command", ServerDefinition{Name: "ok-name"}},
		{"bad env key", ServerDefinition{Name: "ok-name", Command: "npx", Env: map[string]string{"BAD KEY": "v"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Add(tt.def)
			require.Error(t, err)
			assert.Equal(t, ErrorCodeValidation, CodeOf(err))
		})
	}
}

func TestStoreUpdateUnknown(t *testing.T) {
	store := newTestStore(t)

	err := store.Update(ServerDefinition{Name: "ghost", Command: "npx"})
	require.Error(t, err)
	assert.Equal(t, ErrorCodeNotFound, CodeOf(err))
}

func TestStoreRemove(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Add(ServerDefinition{Name: "temp", Command: "npx", Enabled: true}))
	require.NoError(t, store.Remove("temp"))

	_, err := store.Get("temp")
	assert.Equal(t, ErrorCodeNotFound, CodeOf(err))

	err = store.Remove("temp")
	assert.Equal(t, ErrorCodeNotFound, CodeOf(err))
}

func TestStoreReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "servers.json")
	store, err := NewStore(path, testLogger())
	require.NoError(t, err)

	content := `{"servers":{"external":{"command":"./srv","enabled":true}}}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	require.NoError(t, store.Reload())

	def, err := store.Get("external")
	require.NoError(t, err)
	assert.Equal(t, "./srv", def.Command)
}
