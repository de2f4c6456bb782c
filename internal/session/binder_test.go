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

package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolve_ExplicitSessionCreatesDirectory(t *testing.T) {
	root := t.TempDir()
	b := NewBinder(root, nil)

	dir, err := b.Resolve("S1")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "S1"), dir)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestResolve_Idempotent(t *testing.T) {
	root := t.TempDir()
	b := NewBinder(root, nil)

	first, err := b.Resolve("S")
	require.NoError(t, err)
	second, err := b.Resolve("S")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestResolve_EmptyIDPicksNewestSession(t *testing.T) {
	root := t.TempDir()

	older := filepath.Join(root, "A")
	newer := filepath.Join(root, "B")
	require.NoError(t, os.Mkdir(older, 0755))
	require.NoError(t, os.Mkdir(newer, 0755))

	// Force a clear mtime ordering regardless of filesystem resolution.
	now := time.Now()
	require.NoError(t, os.Chtimes(older, now.Add(-time.Hour), now.Add(-time.Hour)))
	require.NoError(t, os.Chtimes(newer, now, now))

	b := NewBinder(root, nil)
	dir, err := b.Resolve("")
	require.NoError(t, err)
	require.Equal(t, newer, dir)
}

func TestResolve_EmptyIDEmptyRootFallsBackToRoot(t *testing.T) {
	root := t.TempDir()
	b := NewBinder(root, nil)

	dir, err := b.Resolve("")
	require.NoError(t, err)
	require.Equal(t, root, dir)
}

func TestResolve_EmptyIDMissingRootCreatesIt(t *testing.T) {
	root := filepath.Join(t.TempDir(), "not-yet")
	b := NewBinder(root, nil)

	dir, err := b.Resolve("")
	require.NoError(t, err)
	require.Equal(t, root, dir)

	info, err := os.Stat(root)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestResolve_MtimeTieBrokenLexicographically(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"zz", "aa"} {
		require.NoError(t, os.Mkdir(filepath.Join(root, name), 0755))
	}
	same := time.Now().Truncate(time.Second)
	for _, name := range []string{"zz", "aa"} {
		require.NoError(t, os.Chtimes(filepath.Join(root, name), same, same))
	}

	b := NewBinder(root, nil)
	dir, err := b.Resolve("")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(root, "aa"), dir)
}

func TestResolve_IgnoresPlainFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.json"), []byte("{}"), 0600))

	b := NewBinder(root, nil)
	dir, err := b.Resolve("")
	require.NoError(t, err)
	require.Equal(t, root, dir)
}
