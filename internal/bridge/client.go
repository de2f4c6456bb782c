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

// Package bridge maintains the WebSocket connection to the desktop shell.
// The shell is the server; this process dials out, answers action requests
// through a Router, and pushes lifecycle events. Lost connections are
// retried with capped exponential backoff until the context ends.
package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	initialBackoff = 2 * time.Second
	maxBackoff     = 10 * time.Second
)

// Client is the reconnecting shell connection.
type Client struct {
	url    string
	router *Router
	logger *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewClient creates a client for the shell at url.
func NewClient(url string, router *Router, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{url: url, router: router, logger: logger}
}

// Run dials the shell and serves requests until ctx is cancelled,
// reconnecting with backoff after failures.
func (c *Client) Run(ctx context.Context) {
	backoff := initialBackoff

	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err != nil {
			c.logger.Info("shell connection failed, retrying",
				"url", c.url,
				"backoff", backoff,
				"error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff *= 2; backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		c.logger.Info("connected to shell", "url", c.url)
		backoff = initialBackoff

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()

		c.serve(ctx, conn)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		conn.Close()
	}
}

// serve reads requests until the connection breaks or ctx ends.
func (c *Client) serve(ctx context.Context, conn *websocket.Conn) {
	// Unblock ReadMessage on cancellation.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Info("shell connection closed", "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Error("failed to parse shell message", "error", err)
			continue
		}

		payload := c.router.Handle(ctx, &msg)
		if msg.ID == "" {
			continue
		}
		if err := c.sendResponse(msg.ID, payload); err != nil {
			c.logger.Error("failed to send response", "id", msg.ID, "error", err)
			return
		}
	}
}

// sendResponse answers the request with id.
func (c *Client) sendResponse(id string, payload any) error {
	resp, err := NewResponse(id, payload)
	if err != nil {
		return err
	}
	return c.write(resp)
}

// SendEvent pushes an event to the shell. A disconnected client drops the
// event silently; events are advisory.
func (c *Client) SendEvent(action string, payload any) {
	ev, err := NewEvent(action, payload)
	if err != nil {
		c.logger.Error("failed to encode event", "action", action, "error", err)
		return
	}
	if err := c.write(ev); err != nil {
		c.logger.Debug("event dropped, shell not connected", "action", action)
	}
}

// write serializes one message onto the connection.
func (c *Client) write(msg *Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return websocket.ErrCloseSent
	}
	return c.conn.WriteJSON(msg)
}
