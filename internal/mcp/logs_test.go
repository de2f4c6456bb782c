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
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStderrBufferKeepsLastN(t *testing.T) {
	sb := NewStderrBuffer(3)

	for _, line := range []string{"one", "two", "three", "four", "five"} {
		sb.Add(StderrEntry{Timestamp: time.Now(), Line: line})
	}

	entries := sb.All()
	require.Len(t, entries, 3)
	assert.Equal(t, "three", entries[0].Line)
	assert.Equal(t, "five", entries[2].Line)
}

func TestStderrBufferConsume(t *testing.T) {
	sb := NewStderrBuffer(10)
	sb.Consume(strings.NewReader("error: missing token\nstack trace line\n"))

	tail := sb.Tail(10)
	assert.Contains(t, tail, "error: missing token")
	assert.Contains(t, tail, "stack trace line")
}

func TestStderrBufferTailLimit(t *testing.T) {
	sb := NewStderrBuffer(10)
	for _, line := range []string{"a", "b", "c", "d"} {
		sb.Add(StderrEntry{Timestamp: time.Now(), Line: line})
	}

	tail := sb.Tail(2)
	assert.NotContains(t, tail, "a")
	assert.NotContains(t, tail, "b")
	assert.Contains(t, tail, "c")
	assert.Contains(t, tail, "d")
}

func TestStderrBufferEmpty(t *testing.T) {
	sb := NewStderrBuffer(5)
	assert.Empty(t, sb.All())
	assert.Equal(t, "", sb.Tail(10))
}
