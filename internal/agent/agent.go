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

// Package agent hosts the optional intelligent-task collaborator. The rest
// of the process never assumes it is present: without a Runner every task
// returns a structured "not available" result instead of an error.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// maxContextValueLen bounds context values inlined into the task prompt.
const maxContextValueLen = 200

// Runner executes a free-form task, typically by driving an LLM over the
// configured tool providers.
type Runner interface {
	RunTask(ctx context.Context, description string, contextData map[string]any) (string, error)
}

// TaskResult is the envelope handed back to the shell for a task run.
type TaskResult struct {
	Success   bool   `json:"success"`
	Result    string `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
	AgentUsed bool   `json:"agent_used"`
	Fallback  bool   `json:"fallback,omitempty"`
}

// Service wraps an optional Runner.
type Service struct {
	runner Runner
	config *ConfigWriter
	logger *slog.Logger
}

// NewService creates a Service. runner may be nil.
func NewService(runner Runner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{runner: runner, logger: logger}
}

// SetConfigWriter installs the provider-config writer. When set, RunTask
// points the runner's filesystem provider at the task's recording session
// before executing.
func (s *Service) SetConfigWriter(w *ConfigWriter) {
	s.config = w
}

// Available reports whether a Runner is configured.
func (s *Service) Available() bool {
	return s.runner != nil
}

// RunTask executes the task, folding contextData into the prompt. A missing
// runner and a runner failure both come back as a TaskResult, never as a Go
// error, so the shell always gets one envelope shape.
func (s *Service) RunTask(ctx context.Context, description string, contextData map[string]any) TaskResult {
	if s.runner == nil {
		return TaskResult{Error: "agent not available", Fallback: true}
	}

	if s.config != nil {
		sessionID, _ := contextData["session_id"].(string)
		if _, err := s.config.PrepareForSession(sessionID); err != nil {
			// Nonfatal: the runner still works, just without session roots.
			s.logger.Warn("provider config rebind failed", "error", err)
		}
	}

	result, err := s.runner.RunTask(ctx, enhanceTask(description, contextData), contextData)
	if err != nil {
		s.logger.Error("agent task failed", "error", err)
		return TaskResult{Error: err.Error(), AgentUsed: true}
	}
	return TaskResult{Success: true, Result: result, AgentUsed: true}
}

// enhanceTask appends a readable context section, truncating long values.
// Keys are sorted so the prompt is deterministic.
func enhanceTask(description string, contextData map[string]any) string {
	if len(contextData) == 0 {
		return description
	}

	keys := make([]string, 0, len(contextData))
	for k := range contextData {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString(description)
	sb.WriteString("\n\nContext:\n")
	for _, k := range keys {
		v := contextData[k]
		if str, ok := v.(string); ok && len(str) > maxContextValueLen {
			v = str[:maxContextValueLen] + "..."
		}
		fmt.Fprintf(&sb, "- %s: %v\n", k, v)
	}
	return sb.String()
}
