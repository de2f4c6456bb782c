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

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/tombee/scribe/internal/agent"
	"github.com/tombee/scribe/internal/bridge"
	"github.com/tombee/scribe/internal/config"
	"github.com/tombee/scribe/internal/log"
	"github.com/tombee/scribe/internal/mcp"
	"github.com/tombee/scribe/internal/session"
	"github.com/tombee/scribe/internal/tools"
)

func newServeCommand() *cobra.Command {
	var bridgeURL string
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon serving the desktop shell",
		Long: `Run the scribed daemon.

The daemon connects out to the desktop shell's WebSocket server, answers its
action requests (server management, tool calls, intelligent tasks), pushes
MCP lifecycle events, hot-reloads the server registry on file changes, and
optionally exposes Prometheus metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(bridgeURL, metricsAddr)
		},
	}

	cmd.Flags().StringVar(&bridgeURL, "bridge-url", "", "WebSocket URL of the desktop shell (overrides config)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Listen address for /metrics (overrides config)")

	return cmd
}

func runServe(bridgeURL, metricsAddr string) error {
	logger := slog.Default()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if bridgeURL == "" {
		bridgeURL = cfg.BridgeURL
	}
	if metricsAddr == "" {
		metricsAddr = cfg.MetricsAddr
	}

	serversPath, err := config.ServersPath()
	if err != nil {
		return err
	}
	store, err := mcp.NewStore(serversPath, log.WithComponent(logger, "store"))
	if err != nil {
		return err
	}

	binder := session.NewBinder(cfg.RecordingsDir, log.WithComponent(logger, "session"))
	svc := mcp.NewService(mcp.ServiceConfig{
		Store:           store,
		Binder:          binder,
		HandshakeWindow: cfg.HandshakeWindow,
		CallTimeout:     cfg.ToolCallTimeout,
		Logger:          log.WithComponent(logger, "mcp"),
	})
	defer svc.Close()

	watcher, err := mcp.NewWatcher(mcp.WatcherConfig{
		Store:  store,
		Logger: log.WithComponent(logger, "watcher"),
	})
	if err != nil {
		return err
	}
	defer watcher.Close()

	localTools := tools.NewRegistry(log.WithComponent(logger, "tools"))
	agentSvc := agent.NewService(nil, log.WithComponent(logger, "agent"))
	if providerPath, err := config.ProviderConfigPath(); err == nil {
		agentSvc.SetConfigWriter(agent.NewConfigWriter(providerPath, binder, log.WithComponent(logger, "agent")))
	}

	router := bridge.NewRouter(svc, localTools, agentSvc, log.WithComponent(logger, "bridge"))
	client := bridge.NewClient(bridgeURL, router, log.WithComponent(logger, "bridge"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Forward MCP lifecycle events to the shell.
	events := svc.Events()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-events:
				client.SendEvent("mcp_server_event", ev)
			}
		}
	}()

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			logger.Info("metrics endpoint listening", "addr", metricsAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", log.Error(err))
			}
		}()
		defer srv.Close()
	}

	logger.Info("scribed started",
		"bridge_url", bridgeURL,
		"recordings_dir", cfg.RecordingsDir,
	)

	client.Run(ctx)

	logger.Info("scribed stopped")
	return nil
}
