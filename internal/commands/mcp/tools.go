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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tombee/scribe/internal/mcp"
)

// newMCPToolsCommand creates the 'mcp tools' command.
func newMCPToolsCommand() *cobra.Command {
	var sessionID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tools <server>",
		Short: "List a server's tools",
		Long: `List the tools an MCP server exposes.

The server is activated for the duration of the command and shut down
afterwards.`,
		Args: cobra.ExactArgs(1),
		Example: `  # Tools of the filesystem provider, bound to the latest session
  scribed mcp tools filesystem

  # Bound to a specific session
  scribed mcp tools filesystem --session 2026-08-31-standup`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withActiveServer(args[0], sessionID, func(svc *mcp.Service) error {
				tools, err := svc.Tools()
				if err != nil {
					return userError(err)
				}

				if asJSON {
					enc := json.NewEncoder(os.Stdout)
					enc.SetIndent("", "  ")
					return enc.Encode(map[string]any{"tools": tools})
				}

				if len(tools) == 0 {
					fmt.Println("No tools exposed.")
					return nil
				}
				for _, tool := range tools {
					fmt.Printf("%-28s %s\n", tool.Name, tool.Description)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Recording session to bind (default: most recent)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

// newMCPCallCommand creates the 'mcp call' command.
func newMCPCallCommand() *cobra.Command {
	var sessionID string
	var argsJSON string

	cmd := &cobra.Command{
		Use:   "call <server> <tool>",
		Short: "Call a tool on a server",
		Long: `Call one tool on an MCP server and print the result.

The server is activated for the duration of the command and shut down
afterwards. Tool arguments are passed as a JSON object.`,
		Args: cobra.ExactArgs(2),
		Example: `  # Read a file through the filesystem provider
  scribed mcp call filesystem read_file --args '{"path":"notes.md"}'`,
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			var toolArgs map[string]any
			if argsJSON != "" {
				if err := json.Unmarshal([]byte(argsJSON), &toolArgs); err != nil {
					return fmt.Errorf("invalid --args JSON: %w", err)
				}
			}

			return withActiveServer(cmdArgs[0], sessionID, func(svc *mcp.Service) error {
				result, err := svc.CallTool(cmdArgs[1], toolArgs)
				if err != nil {
					return userError(err)
				}

				if result.IsError {
					fmt.Fprintln(os.Stderr, "Tool reported an error:")
				}
				for _, item := range result.Content {
					if item.Type == "text" {
						fmt.Println(item.Text)
					} else {
						fmt.Printf("[%s content, %s]\n", item.Type, item.MimeType)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Recording session to bind (default: most recent)")
	cmd.Flags().StringVar(&argsJSON, "args", "", "Tool arguments as a JSON object")

	return cmd
}
