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
	"github.com/spf13/cobra"
)

// NewMCPCommand creates the mcp command for MCP server management.
func NewMCPCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Manage MCP (Model Context Protocol) servers",
		Long: `Manage the MCP tool-provider servers Scribe can activate.

Commands:
  list     List configured servers
  add      Register a new server
  remove   Remove a server
  enable   Enable a server
  disable  Disable a server
  tools    List a server's tools (activates it briefly)
  call     Call a tool on a server (activates it briefly)`,
	}

	cmd.AddCommand(newMCPListCommand())
	cmd.AddCommand(newMCPAddCommand())
	cmd.AddCommand(newMCPRemoveCommand())
	cmd.AddCommand(newMCPEnableCommand(true))
	cmd.AddCommand(newMCPEnableCommand(false))
	cmd.AddCommand(newMCPToolsCommand())
	cmd.AddCommand(newMCPCallCommand())

	return cmd
}
