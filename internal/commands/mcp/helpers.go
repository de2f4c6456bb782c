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
	"fmt"
	"log/slog"
	"strings"

	"github.com/tombee/scribe/internal/config"
	"github.com/tombee/scribe/internal/log"
	"github.com/tombee/scribe/internal/mcp"
	"github.com/tombee/scribe/internal/session"
)

// openStore loads the persistent server registry.
func openStore() (*mcp.Store, error) {
	path, err := config.ServersPath()
	if err != nil {
		return nil, err
	}
	return mcp.NewStore(path, log.WithComponent(slog.Default(), "store"))
}

// openService builds a full service for one-shot activation commands.
func openService() (*mcp.Service, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	store, err := openStore()
	if err != nil {
		return nil, err
	}

	logger := slog.Default()
	return mcp.NewService(mcp.ServiceConfig{
		Store:           store,
		Binder:          session.NewBinder(cfg.RecordingsDir, log.WithComponent(logger, "session")),
		HandshakeWindow: cfg.HandshakeWindow,
		CallTimeout:     cfg.ToolCallTimeout,
		Logger:          log.WithComponent(logger, "mcp"),
	}), nil
}

// withActiveServer activates name, runs fn, and always deactivates.
func withActiveServer(name, sessionID string, fn func(svc *mcp.Service) error) error {
	svc, err := openService()
	if err != nil {
		return err
	}
	defer svc.Close()

	if err := svc.Activate(name, sessionID); err != nil {
		return userError(err)
	}
	return fn(svc)
}

// userError strips the error down to its shell-friendly message.
func userError(err error) error {
	if e := mcp.AsError(err); e != nil {
		msg := e.UserMessage()
		if len(e.Suggestions) > 0 {
			msg += "\n  - " + strings.Join(e.Suggestions, "\n  - ")
		}
		return fmt.Errorf("%s", msg)
	}
	return err
}

// parseEnvFlags turns K=V pairs into a map.
func parseEnvFlags(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid env pair %q (want KEY=VALUE)", pair)
		}
		env[key] = value
	}
	return env, nil
}
