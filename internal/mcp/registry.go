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
	"log/slog"
	"sync"
	"time"

	"github.com/tombee/scribe/internal/session"
)

// defaultTermGrace is how long a server gets between SIGTERM and SIGKILL.
const defaultTermGrace = 3 * time.Second

// activeServer bundles everything belonging to the one running server.
type activeServer struct {
	def     ServerDefinition
	proc    *ServerProcess
	ch      *Channel
	rootDir string
}

// Registry owns the single active MCP server. At most one server runs at a
// time; activating a new one deactivates the current one first.
//
// Two locks split the work: mu guards the active slot, callMu serializes
// request/response exchanges on the wire. Deactivate takes only mu and
// closes the channel first, so an in-flight call blocked in Recv wakes up
// with a closed-channel error instead of deadlocking.
type Registry struct {
	store    *Store
	launcher *Launcher
	binder   *session.Binder
	emitter  *EventEmitter
	logger   *slog.Logger

	handshakeWindow time.Duration
	termGrace       time.Duration

	mu     sync.Mutex
	active *activeServer

	callMu sync.Mutex
}

// NewRegistry creates a registry over the given store and session binder.
// handshakeWindow bounds how long a freshly spawned server has to complete
// the initialize exchange.
func NewRegistry(store *Store, binder *session.Binder, emitter *EventEmitter, handshakeWindow time.Duration, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if emitter == nil {
		emitter = NewEventEmitter(logger)
	}
	return &Registry{
		store:           store,
		launcher:        NewLauncher(logger),
		binder:          binder,
		emitter:         emitter,
		logger:          logger,
		handshakeWindow: handshakeWindow,
		termGrace:       defaultTermGrace,
	}
}

// Activate starts the named server, performs the MCP handshake, and makes it
// the active server. Any previously active server is shut down first, even
// if the new activation then fails. For the filesystem server, sessionID
// selects which session directory is exposed as the server's root.
func (r *Registry) Activate(name, sessionID string) (err error) {
	defer func() { recordActivation(name, err) }()

	def, err := r.store.Get(name)
	if err != nil {
		return err
	}
	if !def.Enabled {
		return ErrServerDisabled(name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.deactivateLocked()

	var extraArgs []string
	var rootDir string
	if def.Name == FilesystemServerName && r.binder != nil {
		dir, err := r.binder.Resolve(sessionID)
		if err != nil {
			return err
		}
		extraArgs = append(extraArgs, dir)
		rootDir = dir
	}

	proc, err := r.launcher.Launch(def, extraArgs...)
	if err != nil {
		r.emitter.EmitFailed(name, err)
		return err
	}

	ch := NewChannel(proc.Stdin, proc.Stdout, r.logger.With("server", name))
	hs := NewHandshake(ch, rootDir, r.handshakeWindow, r.logger.With("server", name))
	if err := hs.Run(proc); err != nil {
		ch.Close()
		proc.Terminate(r.termGrace)
		r.emitter.EmitFailed(name, err)
		return err
	}

	r.active = &activeServer{def: def, proc: proc, ch: ch, rootDir: rootDir}
	go r.watchExit(proc, name)

	r.logger.Info("MCP server activated",
		"server", name,
		"pid", proc.Pid(),
		"roots_served", hs.RootsServed())
	r.emitter.EmitActivated(name, proc.Pid())
	return nil
}

// Deactivate shuts down the active server if there is one. Calling it with
// no active server is a no-op.
func (r *Registry) Deactivate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deactivateLocked()
}

// deactivateLocked tears down the active server. Callers hold r.mu.
// The channel is closed before the process is signalled so that a reader
// blocked on the pipe unblocks immediately.
func (r *Registry) deactivateLocked() {
	if r.active == nil {
		return
	}
	name := r.active.def.Name
	r.active.ch.Close()
	r.active.proc.Terminate(r.termGrace)
	r.active = nil

	r.logger.Info("MCP server deactivated", "server", name)
	r.emitter.EmitDeactivated(name)
}

// Active returns the definition of the active server, or false if none.
func (r *Registry) Active() (ServerDefinition, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return ServerDefinition{}, false
	}
	return r.active.def, true
}

// current snapshots the active server for an invocation. The caller must
// already hold callMu; the snapshot stays valid for the exchange because
// the channel outlives the slot (Deactivate closes it rather than racing
// the reader).
func (r *Registry) current() (*activeServer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return nil, ErrNoActiveServer()
	}
	return r.active, nil
}

// clearIfCurrent drops the active slot if it still holds proc. Used when an
// exchange discovers the transport is gone, and by the exit watcher.
func (r *Registry) clearIfCurrent(proc *ServerProcess) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil || r.active.proc != proc {
		return false
	}
	r.active.ch.Close()
	r.active = nil
	return true
}

// watchExit waits for the process to die and clears the slot if the death
// was not part of a deliberate deactivation.
func (r *Registry) watchExit(proc *ServerProcess, name string) {
	<-proc.Done()
	if r.clearIfCurrent(proc) {
		r.logger.Warn("MCP server exited unexpectedly",
			"server", name,
			"stderr", proc.StderrTail())
		r.emitter.EmitDied(name)
	}
}
