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
	"errors"
	"time"
)

// ListTools asks the active server for its tool catalog.
func (r *Registry) ListTools(timeout time.Duration) ([]ToolDefinition, error) {
	r.callMu.Lock()
	defer r.callMu.Unlock()

	active, err := r.current()
	if err != nil {
		return nil, err
	}

	req, err := NewRequest(listToolsID, methodToolsList, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.exchange(active, req, listToolsID, methodToolsList, timeout)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, ErrApplication(active.def.Name, resp.Error)
	}

	var result listToolsResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, ErrApplication(active.def.Name, &RPCError{
			Code:    -32700,
			Message: "unparseable tools/list result",
		}).WithCause(err)
	}
	return result.Tools, nil
}

// CallTool invokes a tool on the active server. A JSON-RPC error from the
// server comes back as an application error; the result's IsError flag is
// passed through untouched for the caller to interpret.
func (r *Registry) CallTool(tool string, args map[string]any, timeout time.Duration) (result *ToolCallResult, err error) {
	start := time.Now()
	defer func() {
		recordToolCall(r.activeName(), tool, time.Since(start).Seconds(), err)
	}()

	r.callMu.Lock()
	defer r.callMu.Unlock()

	active, err := r.current()
	if err != nil {
		return nil, err
	}

	req, err := NewRequest(callToolID, methodToolsCall, callToolParams{
		Name:      tool,
		Arguments: args,
	})
	if err != nil {
		return nil, err
	}

	r.logger.Debug("calling tool", "server", active.def.Name, "tool", tool)

	resp, err := r.exchange(active, req, callToolID, methodToolsCall, timeout)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, ErrApplication(active.def.Name, resp.Error)
	}

	var out ToolCallResult
	if err := json.Unmarshal(resp.Result, &out); err != nil {
		return nil, ErrApplication(active.def.Name, &RPCError{
			Code:    -32700,
			Message: "unparseable tools/call result",
		}).WithCause(err)
	}
	return &out, nil
}

// exchange sends req and reads until the response with wantID arrives or
// timeout expires. Server-initiated roots/list requests are answered inline;
// anything else that does not match is logged and skipped. Callers hold
// callMu.
func (r *Registry) exchange(active *activeServer, req *Message, wantID int64, operation string, timeout time.Duration) (*Message, error) {
	name := active.def.Name

	if err := active.ch.Send(req); err != nil {
		r.clearIfCurrent(active.proc)
		return nil, ErrTransportClosed(name, err).WithDetail(active.proc.StderrTail())
	}

	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, r.timeoutError(active, operation)
		}

		msg, err := active.ch.Recv(remaining)
		if err != nil {
			if errors.Is(err, ErrNoMessage) {
				return nil, r.timeoutError(active, operation)
			}
			r.clearIfCurrent(active.proc)
			return nil, ErrTransportClosed(name, err).WithDetail(active.proc.StderrTail())
		}

		if msg.IsRequest() && msg.Method == methodRootsList {
			resp, err := NewResponse(msg.ID, rootsResult{Roots: buildRoots(active.rootDir)})
			if err == nil {
				err = active.ch.Send(resp)
			}
			if err != nil {
				r.logger.Warn("failed to answer roots/list during call",
					"server", name,
					"error", err)
			}
			continue
		}

		if !msg.HasID(wantID) {
			r.logger.Debug("skipping unexpected message",
				"server", name,
				"method", msg.Method)
			continue
		}
		return msg, nil
	}
}

// timeoutError distinguishes a slow server from a dead one. A dead process
// means the transport is gone and the slot gets cleared; a live one keeps
// its slot so the caller can retry.
func (r *Registry) timeoutError(active *activeServer, operation string) error {
	if !active.proc.Alive() {
		r.clearIfCurrent(active.proc)
		return ErrTransportClosed(active.def.Name, nil).
			WithDetail(active.proc.StderrTail())
	}
	return ErrCallTimeout(active.def.Name, operation)
}

// activeName reports the active server's name for metric labels, without
// claiming the slot.
func (r *Registry) activeName() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil {
		return "none"
	}
	return r.active.def.Name
}
