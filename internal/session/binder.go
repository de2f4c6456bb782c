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

// Package session maps recording sessions to filesystem directories.
//
// A recording session lives in one subdirectory of the recordings root. The
// Binder resolves a session id to that directory so an MCP filesystem
// provider can be scoped to it; when no id is given the most recently
// modified session wins. The resolved directory always exists on disk before
// it is handed out.
package session

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// Binder resolves session identifiers to directories under the recordings root.
type Binder struct {
	// recordingsRoot is the directory holding one subdirectory per session.
	recordingsRoot string

	// logger is used for structured logging
	logger *slog.Logger
}

// NewBinder creates a Binder rooted at recordingsRoot.
func NewBinder(recordingsRoot string, logger *slog.Logger) *Binder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Binder{
		recordingsRoot: recordingsRoot,
		logger:         logger,
	}
}

// Root returns the recordings root directory.
func (b *Binder) Root() string {
	return b.recordingsRoot
}

// Resolve returns the directory a provider may be scoped to for the given
// session. An explicit session id maps to recordingsRoot/<id>, created if
// missing. An empty id picks the most recently modified session directory,
// falling back to the recordings root itself when no sessions exist. The
// returned directory exists on disk.
func (b *Binder) Resolve(sessionID string) (string, error) {
	if sessionID != "" {
		dir := filepath.Join(b.recordingsRoot, sessionID)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create session directory %q: %w", dir, err)
		}
		return dir, nil
	}

	latest, err := b.latestSession()
	if err != nil {
		return "", err
	}
	if latest == "" {
		if err := os.MkdirAll(b.recordingsRoot, 0755); err != nil {
			return "", fmt.Errorf("failed to create recordings root %q: %w", b.recordingsRoot, err)
		}
		return b.recordingsRoot, nil
	}

	b.logger.Info("no session id provided, defaulting to latest session",
		"session", latest,
	)
	return filepath.Join(b.recordingsRoot, latest), nil
}

// latestSession returns the name of the most recently modified immediate
// subdirectory of the recordings root, or "" if there are none. Equal
// modification times are broken lexicographically by name so the result is
// deterministic.
func (b *Binder) latestSession() (string, error) {
	entries, err := os.ReadDir(b.recordingsRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read recordings root %q: %w", b.recordingsRoot, err)
	}

	type candidate struct {
		name  string
		mtime int64
	}

	var candidates []candidate
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			// Directory vanished between ReadDir and Info; skip it.
			continue
		}
		candidates = append(candidates, candidate{
			name:  entry.Name(),
			mtime: info.ModTime().UnixNano(),
		})
	}

	if len(candidates) == 0 {
		return "", nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].mtime != candidates[j].mtime {
			return candidates[i].mtime > candidates[j].mtime
		}
		return candidates[i].name < candidates[j].name
	})

	return candidates[0].name, nil
}
