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

package tools

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	return NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBuiltinsRegistered(t *testing.T) {
	r := newTestRegistry()

	assert.Equal(t, []string{
		"execute_command",
		"file_list",
		"file_read",
		"file_write",
		"json_parse",
		"text_extract",
	}, r.Names())

	list := r.List()
	assert.Equal(t, "Read contents of a file", list["file_read"])
}

func TestUnknownTool(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Execute(context.Background(), "no_such_tool", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tool")
}

func TestFileReadWrite(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "note.md")

	out, err := r.Execute(ctx, "file_write", map[string]any{
		"path":    path,
		"content": "session notes",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"success": true, "path": path}, out)

	got, err := r.Execute(ctx, "file_read", map[string]any{"path": path})
	require.NoError(t, err)
	assert.Equal(t, "session notes", got)
}

func TestFileReadMissing(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Execute(context.Background(), "file_read", map[string]any{
		"path": filepath.Join(t.TempDir(), "ghost.txt"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found")
}

func TestFileReadMissingParam(t *testing.T) {
	r := newTestRegistry()
	_, err := r.Execute(context.Background(), "file_read", map[string]any{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required parameter: path")
}

func TestFileList(t *testing.T) {
	r := newTestRegistry()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), nil, 0644))

	out, err := r.Execute(context.Background(), "file_list", map[string]any{
		"path":    dir,
		"pattern": "*.txt",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.txt")}, out)
}

func TestJSONParse(t *testing.T) {
	r := newTestRegistry()

	out, err := r.Execute(context.Background(), "json_parse", map[string]any{
		"data": `{"n": 3}`,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": float64(3)}, out)

	_, err = r.Execute(context.Background(), "json_parse", map[string]any{
		"data": "{broken",
	})
	assert.Error(t, err)
}

func TestTextExtract(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	out, err := r.Execute(ctx, "text_extract", map[string]any{
		"text":    "meeting at 10:30 and again at 14:00",
		"pattern": `\d+:\d+`,
	})
	require.NoError(t, err)
	assert.Equal(t, "10:30\n14:00", out)

	// Without a pattern the text passes through.
	out, err = r.Execute(ctx, "text_extract", map[string]any{"text": "as is"})
	require.NoError(t, err)
	assert.Equal(t, "as is", out)
}

func TestExecuteCommandAllowed(t *testing.T) {
	r := newTestRegistry()

	out, err := r.Execute(context.Background(), "execute_command", map[string]any{
		"command": "echo hello",
	})
	require.NoError(t, err)

	result := out.(map[string]any)
	assert.Equal(t, "hello\n", result["stdout"])
	assert.Equal(t, 0, result["returncode"])
}

func TestExecuteCommandRejected(t *testing.T) {
	r := newTestRegistry()

	_, err := r.Execute(context.Background(), "execute_command", map[string]any{
		"command": "rm -rf /",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "command not allowed")
}
