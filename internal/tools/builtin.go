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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// commandTimeout bounds execute_command runs.
const commandTimeout = 10 * time.Second

// allowedCommands is the execute_command allow-list. Anything else is
// rejected before spawning.
var allowedCommands = map[string]bool{
	"ls":     true,
	"pwd":    true,
	"echo":   true,
	"date":   true,
	"whoami": true,
}

func fileRead(_ context.Context, params map[string]any) (any, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		return nil, err
	}
	return string(data), nil
}

func fileWrite(_ context.Context, params map[string]any) (any, error) {
	path, err := stringParam(params, "path")
	if err != nil {
		return nil, err
	}
	content, ok := params["content"].(string)
	if !ok {
		return nil, fmt.Errorf("missing required parameter: content")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return nil, err
	}
	return map[string]any{"success": true, "path": path}, nil
}

func fileList(_ context.Context, params map[string]any) (any, error) {
	dir := optionalString(params, "path", ".")
	pattern := optionalString(params, "pattern", "*")

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}
	if matches == nil {
		matches = []string{}
	}
	return matches, nil
}

func jsonParse(_ context.Context, params map[string]any) (any, error) {
	data, err := stringParam(params, "data")
	if err != nil {
		return nil, err
	}

	var out any
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	return out, nil
}

func textExtract(_ context.Context, params map[string]any) (any, error) {
	text := optionalString(params, "text", "")
	pattern := optionalString(params, "pattern", "")
	if pattern == "" {
		return text, nil
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
	}

	matches := re.FindAllString(text, -1)
	return strings.Join(matches, "\n"), nil
}

func executeCommand(ctx context.Context, params map[string]any) (any, error) {
	command, err := stringParam(params, "command")
	if err != nil {
		return nil, err
	}

	parts := strings.Fields(command)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	if !allowedCommands[parts[0]] {
		return nil, fmt.Errorf("command not allowed: %s", parts[0])
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	code := 0
	if exitErr, ok := err.(*exec.ExitError); ok {
		code = exitErr.ExitCode()
	} else if err != nil {
		return nil, err
	}

	return map[string]any{
		"stdout":     stdout.String(),
		"stderr":     stderr.String(),
		"returncode": code,
	}, nil
}
