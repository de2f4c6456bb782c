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
	"strings"

	"github.com/spf13/cobra"
)

// newMCPListCommand creates the 'mcp list' command.
func newMCPListCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List configured MCP servers",
		Example: `  # List configured servers
  scribed mcp list

  # Server names for scripting
  scribed mcp list --json | jq -r '.servers[].name'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCPList(asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}

func runMCPList(asJSON bool) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	defs := store.List()

	if asJSON {
		type entry struct {
			Name        string   `json:"name"`
			Command     string   `json:"command"`
			Args        []string `json:"args,omitempty"`
			Enabled     bool     `json:"enabled"`
			Description string   `json:"description,omitempty"`
		}
		out := struct {
			Servers []entry `json:"servers"`
		}{Servers: make([]entry, 0, len(defs))}
		for _, d := range defs {
			out.Servers = append(out.Servers, entry{
				Name: d.Name, Command: d.Command, Args: d.Args,
				Enabled: d.Enabled, Description: d.Description,
			})
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(defs) == 0 {
		fmt.Println("No MCP servers configured.")
		fmt.Println("\nTo add a server:")
		fmt.Println("  scribed mcp add <name> --command <cmd>")
		return nil
	}

	fmt.Printf("%-16s %-9s %-24s %s\n", "NAME", "ENABLED", "COMMAND", "DESCRIPTION")
	fmt.Println(strings.Repeat("-", 78))
	for _, d := range defs {
		enabled := "yes"
		if !d.Enabled {
			enabled = "no"
		}
		command := d.Command
		if len(d.Args) > 0 {
			command += " " + strings.Join(d.Args, " ")
		}
		if len(command) > 24 {
			command = command[:21] + "..."
		}
		fmt.Printf("%-16s %-9s %-24s %s %s\n", d.Name, enabled, command, d.Icon, d.Description)
	}
	return nil
}
