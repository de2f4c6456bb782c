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

// Package commands wires the scribed CLI: the serve daemon plus the mcp
// server-management subcommands.
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	mcpcmd "github.com/tombee/scribe/internal/commands/mcp"
)

// VersionInfo carries build metadata injected via ldflags.
type VersionInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

// NewRootCommand creates the scribed root command.
func NewRootCommand(v VersionInfo) *cobra.Command {
	root := &cobra.Command{
		Use:   "scribed",
		Short: "Backend daemon for the Scribe recording assistant",
		Long: `scribed is the backend of the Scribe screen-recording assistant.

It manages external MCP tool-provider processes (one active at a time),
binds the filesystem provider to the current recording session, and serves
the desktop shell over a WebSocket bridge.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(mcpcmd.NewMCPCommand())
	root.AddCommand(newVersionCommand(v))

	return root
}

func newVersionCommand(v VersionInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("scribed %s (commit: %s, built: %s)\n", v.Version, v.Commit, v.BuildDate)
		},
	}
}
