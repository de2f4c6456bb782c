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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/scribe/internal/mcp"
)

func TestParseEnvFlags(t *testing.T) {
	env, err := parseEnvFlags([]string{"A=1", "B=x=y", "EMPTY="})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"A": "1", "B": "x=y", "EMPTY": ""}, env)

	env, err = parseEnvFlags(nil)
	require.NoError(t, err)
	assert.Nil(t, env)

	_, err = parseEnvFlags([]string{"novalue"})
	assert.Error(t, err)

	_, err = parseEnvFlags([]string{"=v"})
	assert.Error(t, err)
}

func TestUserErrorFlattensSuggestions(t *testing.T) {
	err := userError(mcp.ErrServerDisabled("github"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")
	assert.Contains(t, err.Error(), "  - ")
}

func TestMCPCommandTree(t *testing.T) {
	cmd := NewMCPCommand()

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"list", "add", "remove", "enable", "disable", "tools", "call"}, names)
}
