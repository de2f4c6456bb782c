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

	"github.com/spf13/cobra"

	"github.com/tombee/scribe/internal/mcp"
)

// newMCPAddCommand creates the 'mcp add' command.
func newMCPAddCommand() *cobra.Command {
	var (
		command     string
		args        []string
		envPairs    []string
		description string
		icon        string
		disabled    bool
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Register a new MCP server",
		Args:  cobra.ExactArgs(1),
		Example: `  # Register a local server
  scribed mcp add notes --command npx --arg -y --arg @example/server-notes

  # Register with credentials, disabled until configured
  scribed mcp add jira --command npx --arg -y --arg @example/server-jira \
      --env JIRA_TOKEN= --disabled`,
		RunE: func(cmd *cobra.Command, cmdArgs []string) error {
			env, err := parseEnvFlags(envPairs)
			if err != nil {
				return err
			}
			store, err := openStore()
			if err != nil {
				return err
			}

			err = store.Add(mcp.ServerDefinition{
				Name:        cmdArgs[0],
				Command:     command,
				Args:        args,
				Env:         env,
				Enabled:     !disabled,
				Description: description,
				Icon:        icon,
			})
			if err != nil {
				return userError(err)
			}
			fmt.Printf("Added MCP server '%s'\n", cmdArgs[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&command, "command", "", "Executable to run (required)")
	cmd.Flags().StringArrayVar(&args, "arg", nil, "Command argument (repeatable)")
	cmd.Flags().StringArrayVar(&envPairs, "env", nil, "Environment override KEY=VALUE (repeatable)")
	cmd.Flags().StringVar(&description, "description", "", "Human-readable description")
	cmd.Flags().StringVar(&icon, "icon", "", "Icon shown in the shell")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Register the server disabled")
	cmd.MarkFlagRequired("command")

	return cmd
}

// newMCPRemoveCommand creates the 'mcp remove' command.
func newMCPRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove an MCP server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			if err := store.Remove(args[0]); err != nil {
				return userError(err)
			}
			fmt.Printf("Removed MCP server '%s'\n", args[0])
			return nil
		},
	}
}

// newMCPEnableCommand creates 'mcp enable' or 'mcp disable'.
func newMCPEnableCommand(enable bool) *cobra.Command {
	verb, short := "enable", "Enable an MCP server"
	if !enable {
		verb, short = "disable", "Disable an MCP server"
	}

	return &cobra.Command{
		Use:   verb + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore()
			if err != nil {
				return err
			}
			def, err := store.Get(args[0])
			if err != nil {
				return userError(err)
			}
			def.Enabled = enable
			if err := store.Update(def); err != nil {
				return userError(err)
			}
			fmt.Printf("Server '%s' %sd\n", args[0], verb)
			return nil
		},
	}
}
