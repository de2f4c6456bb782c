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
	"bufio"
	"io"
	"strings"
	"sync"
	"time"
)

// defaultStderrCapacity is the number of stderr lines retained per process.
const defaultStderrCapacity = 200

// StderrEntry is one captured line of child stderr.
type StderrEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Line      string    `json:"line"`
}

// StderrBuffer is a fixed-size circular buffer of child stderr lines. A
// reader goroutine feeds it for the lifetime of the child process; consumers
// read a tail snapshot for failure detail and diagnostics.
type StderrBuffer struct {
	mu      sync.RWMutex
	entries []StderrEntry
	head    int
	tail    int
	size    int
	count   int
}

// NewStderrBuffer creates a buffer with the given capacity.
func NewStderrBuffer(capacity int) *StderrBuffer {
	if capacity <= 0 {
		capacity = defaultStderrCapacity
	}
	return &StderrBuffer{
		entries: make([]StderrEntry, capacity),
		size:    capacity,
	}
}

// Consume reads r line by line into the buffer until EOF. It blocks and is
// intended to run in its own goroutine.
func (sb *StderrBuffer) Consume(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		sb.Add(StderrEntry{Timestamp: time.Now(), Line: line})
	}
}

// Add appends one entry, evicting the oldest when full.
func (sb *StderrBuffer) Add(entry StderrEntry) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	sb.entries[sb.tail] = entry
	sb.tail = (sb.tail + 1) % sb.size

	if sb.count < sb.size {
		sb.count++
	} else {
		sb.head = (sb.head + 1) % sb.size
	}
}

// All returns all captured entries, oldest first.
func (sb *StderrBuffer) All() []StderrEntry {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	result := make([]StderrEntry, sb.count)
	for i := 0; i < sb.count; i++ {
		result[i] = sb.entries[(sb.head+i)%sb.size]
	}
	return result
}

// Tail returns the last n lines joined by newlines, for error detail.
func (sb *StderrBuffer) Tail(n int) string {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	if n > sb.count {
		n = sb.count
	}
	if n == 0 {
		return ""
	}

	lines := make([]string, n)
	start := sb.count - n
	for i := 0; i < n; i++ {
		lines[i] = sb.entries[(sb.head+start+i)%sb.size].Line
	}
	return strings.Join(lines, "\n")
}
