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

package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tombee/scribe/internal/agent"
	"github.com/tombee/scribe/internal/mcp"
)

// MCPService is the slice of the MCP facade the router needs.
type MCPService interface {
	Servers() []mcp.ServerInfo
	Activate(name, sessionID string) error
	Deactivate()
	Tools() ([]mcp.ToolDefinition, error)
	CallTool(tool string, args map[string]any) (*mcp.ToolCallResult, error)
}

// LocalTools is the built-in tool registry surface.
type LocalTools interface {
	Execute(ctx context.Context, name string, params map[string]any) (any, error)
	List() map[string]string
}

// TaskRunner is the optional agent surface.
type TaskRunner interface {
	RunTask(ctx context.Context, description string, contextData map[string]any) agent.TaskResult
}

// Router maps shell actions onto the backing services. Every action gets a
// response payload; failures become {success:false, error} envelopes so the
// shell never waits on a dropped request.
type Router struct {
	mcp    MCPService
	tools  LocalTools
	agent  TaskRunner
	logger *slog.Logger
}

// NewRouter creates a router. tools and agent may be nil; their actions then
// answer with an error envelope.
func NewRouter(mcpSvc MCPService, tools LocalTools, agentSvc TaskRunner, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{mcp: mcpSvc, tools: tools, agent: agentSvc, logger: logger}
}

// request payload shapes.
type activatePayload struct {
	ServerName string `json:"server_name"`
	SessionID  string `json:"session_id"`
}

type toolCallPayload struct {
	ToolName string         `json:"tool_name"`
	Params   map[string]any `json:"params"`
}

type taskPayload struct {
	Task    string         `json:"task"`
	Context map[string]any `json:"context"`
}

// Handle executes one shell request and returns its response payload.
func (r *Router) Handle(ctx context.Context, msg *Message) any {
	r.logger.Debug("handling shell request", "action", msg.Action, "id", msg.ID)

	switch msg.Action {
	case "get_mcp_servers":
		return map[string]any{"success": true, "servers": r.mcp.Servers()}

	case "activate_mcp_server":
		var p activatePayload
		if err := unmarshalPayload(msg.Payload, &p); err != nil {
			return failure(err)
		}
		if err := r.mcp.Activate(p.ServerName, p.SessionID); err != nil {
			return failure(err)
		}
		return map[string]any{"success": true}

	case "deactivate_mcp_server":
		r.mcp.Deactivate()
		return map[string]any{"success": true}

	case "list_mcp_tools":
		tools, err := r.mcp.Tools()
		if err != nil {
			return failure(err)
		}
		return map[string]any{"success": true, "tools": tools}

	case "execute_mcp_tool":
		var p toolCallPayload
		if err := unmarshalPayload(msg.Payload, &p); err != nil {
			return failure(err)
		}
		result, err := r.mcp.CallTool(p.ToolName, p.Params)
		if err != nil {
			return failure(err)
		}
		return map[string]any{"success": true, "result": result}

	case "list_local_tools":
		if r.tools == nil {
			return failure(fmt.Errorf("local tools not available"))
		}
		return map[string]any{"success": true, "tools": r.tools.List()}

	case "mcp_tool_call":
		if r.tools == nil {
			return failure(fmt.Errorf("local tools not available"))
		}
		var p toolCallPayload
		if err := unmarshalPayload(msg.Payload, &p); err != nil {
			return failure(err)
		}
		result, err := r.tools.Execute(ctx, p.ToolName, p.Params)
		if err != nil {
			return failure(err)
		}
		return map[string]any{"success": true, "result": result}

	case "run_intelligent_task":
		if r.agent == nil {
			return agent.TaskResult{Error: "agent not available", Fallback: true}
		}
		var p taskPayload
		if err := unmarshalPayload(msg.Payload, &p); err != nil {
			return failure(err)
		}
		return r.agent.RunTask(ctx, p.Task, p.Context)

	default:
		r.logger.Warn("unknown shell action", "action", msg.Action)
		return failure(fmt.Errorf("unknown action: %s", msg.Action))
	}
}

func unmarshalPayload(raw json.RawMessage, into any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("bad payload: %w", err)
	}
	return nil
}
