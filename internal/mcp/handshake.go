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
	"errors"
	"log/slog"
	"net/url"
	"path/filepath"
	"time"
)

// HandshakeState is the lifecycle state of the initialize exchange.
type HandshakeState string

const (
	// HandshakeNotStarted means Run has not been called.
	HandshakeNotStarted HandshakeState = "not_started"
	// HandshakeAwaitingInit means initialize was sent and its response is
	// still outstanding.
	HandshakeAwaitingInit HandshakeState = "awaiting_init_response"
	// HandshakeReady means the exchange completed and tool calls are valid.
	HandshakeReady HandshakeState = "ready"
	// HandshakeFailed means the exchange did not complete.
	HandshakeFailed HandshakeState = "failed"
)

// postInitDrain is how long the coordinator keeps listening for a late
// roots/list request after the initialize result has arrived.
const postInitDrain = 200 * time.Millisecond

// Handshake drives the initialize exchange with a freshly launched server.
//
// The filesystem provider's scoping depends entirely on the client answering
// roots/list truthfully and promptly, so any roots request that arrives
// before the window closes is answered inline, whether or not the initialize
// response has been seen yet. After the initialize result the coordinator
// nudges lazy providers with a roots/list_changed notification.
type Handshake struct {
	// ch is the channel to the child process.
	ch *Channel

	// rootDir is the directory advertised as the provider's root.
	rootDir string

	// window is the fixed deadline for the whole exchange.
	window time.Duration

	// state is the current lifecycle state.
	state HandshakeState

	// rootsServed counts answered roots/list requests.
	rootsServed int

	// logger is used for structured logging
	logger *slog.Logger
}

// NewHandshake creates a coordinator advertising rootDir as the allowed root.
func NewHandshake(ch *Channel, rootDir string, window time.Duration, logger *slog.Logger) *Handshake {
	if logger == nil {
		logger = slog.Default()
	}
	if window <= 0 {
		window = 5 * time.Second
	}
	return &Handshake{
		ch:      ch,
		rootDir: rootDir,
		window:  window,
		state:   HandshakeNotStarted,
		logger:  logger,
	}
}

// State returns the current handshake state.
func (h *Handshake) State() HandshakeState {
	return h.state
}

// RootsServed reports how many roots/list requests were answered.
func (h *Handshake) RootsServed() int {
	return h.rootsServed
}

// Run performs the initialize exchange against proc. It returns nil once the
// server acknowledged initialize and no roots request is left pending, or a
// structured error when the window elapses, the server rejects initialize,
// or the transport closes. proc is only consulted for liveness and stderr;
// Run never terminates it.
func (h *Handshake) Run(proc *ServerProcess) error {
	name := proc.Definition.Name

	init, err := NewRequest(initializeID, methodInitialize, initializeParams{
		ProtocolVersion: ProtocolVersion,
		ClientInfo: clientInfo{
			Name:    ClientName,
			Version: ClientVersion,
		},
		Capabilities: clientCapabilities{
			Tools: map[string]any{},
			Roots: map[string]any{},
		},
	})
	if err != nil {
		h.state = HandshakeFailed
		return err
	}

	if err := h.ch.Send(init); err != nil {
		h.state = HandshakeFailed
		return ErrTransportClosed(name, err)
	}
	h.state = HandshakeAwaitingInit

	deadline := time.Now().Add(h.window)
	initSeen := false
	var rejection *RPCError

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		if initSeen && remaining > postInitDrain {
			// The response is in; only linger briefly for a late roots
			// request instead of burning the rest of the window.
			remaining = postInitDrain
		}

		msg, err := h.ch.Recv(remaining)
		if err != nil {
			if errors.Is(err, ErrNoMessage) {
				if initSeen {
					break
				}
				continue
			}
			// Transport gone. Surface stderr if the child already died.
			h.state = HandshakeFailed
			if !proc.Alive() {
				return ErrSpawnFailed(name, proc.StderrTail(), err)
			}
			return ErrTransportClosed(name, err)
		}

		switch {
		case msg.IsRequest() && msg.Method == methodRootsList:
			if err := h.answerRoots(msg); err != nil {
				h.state = HandshakeFailed
				return ErrTransportClosed(name, err)
			}

		case msg.HasID(initializeID) && (msg.Result != nil || msg.Error != nil):
			initSeen = true
			if msg.Error != nil {
				rejection = msg.Error
				h.logger.Error("mcp server rejected initialize",
					"server", name,
					"error", msg.Error,
				)
				continue
			}
			h.logger.Info("mcp server initialized", "server", name)
			h.notifyRootsChanged()

		default:
			// Unrelated notification or stray response; ignore.
			h.logger.Debug("ignoring message during handshake",
				"server", name,
				"method", msg.Method,
			)
		}
	}

	if !initSeen {
		h.state = HandshakeFailed
		stderr := ""
		if !proc.Alive() {
			stderr = proc.StderrTail()
		}
		return ErrHandshakeTimeout(name, stderr)
	}
	if rejection != nil {
		h.state = HandshakeFailed
		return ErrHandshakeRejected(name, rejection)
	}

	h.state = HandshakeReady
	return nil
}

// answerRoots replies to a server-initiated roots/list request with the
// bound directory. The reply echoes the server's id verbatim.
func (h *Handshake) answerRoots(req *Message) error {
	resp, err := NewResponse(req.ID, rootsResult{Roots: buildRoots(h.rootDir)})
	if err != nil {
		return err
	}
	if err := h.ch.Send(resp); err != nil {
		return err
	}
	h.rootsServed++
	h.logger.Info("answered roots/list request", "root", h.rootDir)
	return nil
}

// notifyRootsChanged nudges providers that only request roots lazily.
// Failure is non-fatal; the provider may simply not care about roots.
func (h *Handshake) notifyRootsChanged() {
	notify, err := NewNotification(methodRootsListChanged, nil)
	if err != nil {
		return
	}
	if err := h.ch.Send(notify); err != nil {
		h.logger.Debug("unable to send roots/list_changed", "error", err)
	}
}

// buildRoots converts a local directory into the roots payload: a file URI
// plus the directory's base name. Servers launched without a bound
// directory get an empty list.
func buildRoots(dir string) []Root {
	if dir == "" {
		return []Root{}
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	uri := url.URL{Scheme: "file", Path: abs}
	name := filepath.Base(abs)
	if name == "." || name == string(filepath.Separator) {
		name = "root"
	}
	return []Root{{URI: uri.String(), Name: name}}
}
