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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

var (
	// ErrNoMessage is returned by Recv when the timeout elapses with no
	// complete line available.
	ErrNoMessage = errors.New("no message within timeout")

	// ErrChannelClosed is returned by Send and Recv once the underlying
	// pipes have closed.
	ErrChannelClosed = errors.New("channel closed")
)

// Channel frames newline-delimited JSON-RPC messages over a child's stdio
// pair. A reader goroutine pumps stdout lines into a buffered queue so Recv
// can wait with a timeout; writes are serialized and flushed per message.
// The channel never decides anything about the process itself; closing it
// only closes the pipes.
type Channel struct {
	stdin io.WriteCloser

	// lines carries raw stdout lines from the reader goroutine. Closed when
	// stdout reaches EOF or errors.
	lines chan []byte

	// writeMu serializes Send calls so concurrent writers cannot interleave
	// partial lines.
	writeMu sync.Mutex

	// quit is closed by Close so the reader goroutine can abandon a full
	// queue nobody will drain again.
	quit chan struct{}

	closeOnce sync.Once
	closeErr  error
	closeFn   func() error

	logger *slog.Logger
}

// NewChannel wraps the given stdio pair and starts the reader goroutine.
// closeFn, if non-nil, is invoked once on Close after the pipes are closed.
func NewChannel(stdin io.WriteCloser, stdout io.ReadCloser, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Channel{
		stdin:  stdin,
		lines:  make(chan []byte, 16),
		quit:   make(chan struct{}),
		logger: logger,
	}
	c.closeFn = func() error {
		errIn := stdin.Close()
		errOut := stdout.Close()
		if errIn != nil {
			return errIn
		}
		return errOut
	}

	go c.readLoop(stdout)

	return c
}

// readLoop scans stdout line by line until EOF, then closes the queue so
// pending and future Recv calls observe ErrChannelClosed.
func (c *Channel) readLoop(stdout io.Reader) {
	defer close(c.lines)

	scanner := bufio.NewScanner(stdout)
	// Tool results can be large (file contents, screenshots as base64).
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		// Copy: Scanner reuses its buffer.
		buf := make([]byte, len(line))
		copy(buf, line)
		select {
		case c.lines <- buf:
		case <-c.quit:
			return
		}
	}

	if err := scanner.Err(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		c.logger.Debug("mcp channel read loop ended", "error", err)
	}
}

// Send serializes msg as a single JSON line and writes it to the child's
// stdin. The write is flushed before Send returns; correctness under slow
// consumers depends on there being no cross-call buffering.
func (c *Channel) Send(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	// Single unbuffered write: the line reaches the child before Send
	// returns, with no cross-call buffering.
	if _, err := c.stdin.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("%w: %s", ErrChannelClosed, err)
	}
	return nil
}

// Recv waits up to timeout for one message on stdout and parses it.
// Malformed lines are logged and skipped so a provider emitting stray
// non-protocol output does not kill the session; the wait keeps running on
// the remaining time. Returns ErrNoMessage when the timeout elapses and
// ErrChannelClosed once stdout has ended.
func (c *Channel) Recv(timeout time.Duration) (*Message, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	for {
		select {
		case line, ok := <-c.lines:
			if !ok {
				return nil, ErrChannelClosed
			}
			var msg Message
			if err := json.Unmarshal(line, &msg); err != nil {
				c.logger.Warn("skipping malformed line from mcp server",
					"error", err,
					"line", truncateForLog(line, 200),
				)
				continue
			}
			return &msg, nil
		case <-deadline.C:
			return nil, ErrNoMessage
		}
	}
}

// Close closes both pipes. Pending Recv calls unblock with
// ErrChannelClosed; it is safe to call repeatedly.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		close(c.quit)
		if c.closeFn != nil {
			c.closeErr = c.closeFn()
		}
	})
	return c.closeErr
}

// truncateForLog bounds raw wire data included in log entries.
func truncateForLog(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
