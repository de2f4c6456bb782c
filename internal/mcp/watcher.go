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
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors the server registry file and reloads the Store when it
// changes on disk, so edits made outside the process take effect without a
// restart. It watches the containing directory because atomic saves replace
// the file by rename.
type Watcher struct {
	// fsWatcher is the underlying filesystem watcher
	fsWatcher *fsnotify.Watcher

	// store is reloaded when the registry file changes
	store *Store

	// onReload is invoked after a successful reload (optional)
	onReload func()

	// logger is used for structured logging
	logger *slog.Logger

	// debounceDelay coalesces bursts of events into one reload
	debounceDelay time.Duration

	// mu protects pending
	mu sync.Mutex

	// pending is the debounce timer for the next reload
	pending *time.Timer

	// ctx is the watcher's lifecycle context
	ctx context.Context

	// cancel stops the watcher
	cancel context.CancelFunc

	// wg tracks the event loop goroutine
	wg sync.WaitGroup
}

// WatcherConfig configures the registry file watcher.
type WatcherConfig struct {
	// Store is the server registry to reload on changes
	Store *Store

	// OnReload is invoked after each successful reload (optional)
	OnReload func()

	// Logger is used for structured logging (optional)
	Logger *slog.Logger

	// DebounceDelay coalesces bursts of events (defaults to 200ms)
	DebounceDelay time.Duration
}

// NewWatcher creates a watcher over the store's registry file and starts
// its event loop.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	debounceDelay := cfg.DebounceDelay
	if debounceDelay == 0 {
		debounceDelay = 200 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := &Watcher{
		fsWatcher:     fsWatcher,
		store:         cfg.Store,
		onReload:      cfg.OnReload,
		logger:        logger,
		debounceDelay: debounceDelay,
		ctx:           ctx,
		cancel:        cancel,
	}

	dir := filepath.Dir(cfg.Store.Path())
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		cancel()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w.wg.Add(1)
	go w.processEvents()

	w.logger.Debug("watching server registry", "path", cfg.Store.Path())
	return w, nil
}

// Close stops the watcher and waits for its event loop to exit.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.fsWatcher.Close()
	w.wg.Wait()

	w.mu.Lock()
	if w.pending != nil {
		w.pending.Stop()
		w.pending = nil
	}
	w.mu.Unlock()
	return err
}

// processEvents consumes fsnotify events until the watcher is closed.
func (w *Watcher) processEvents() {
	defer w.wg.Done()

	target := w.store.Path()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(target) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

// scheduleReload arms (or re-arms) the debounce timer.
func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.debounceDelay, w.reload)
}

// reload re-reads the registry and notifies the callback.
func (w *Watcher) reload() {
	if err := w.store.Reload(); err != nil {
		w.logger.Error("failed to reload server registry", "error", err)
		return
	}
	w.logger.Info("server registry reloaded", "path", w.store.Path())
	if w.onReload != nil {
		w.onReload()
	}
}
