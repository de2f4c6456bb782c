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

package bridge

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Message types exchanged with the desktop shell.
const (
	TypeRequest  = "request"
	TypeResponse = "response"
	TypeEvent    = "event"
)

// Message is the envelope on the shell connection. Requests from the shell
// carry an id that the matching response echoes; events flow one way and
// get a fresh id.
type Message struct {
	ID        string          `json:"id,omitempty"`
	Type      string          `json:"type"`
	Action    string          `json:"action,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// NewResponse builds the response to a request id.
func NewResponse(requestID string, payload any) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		ID:        requestID,
		Type:      TypeResponse,
		Payload:   raw,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// NewEvent builds a shell-bound event.
func NewEvent(action string, payload any) (*Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{
		ID:        uuid.New().String(),
		Type:      TypeEvent,
		Action:    action,
		Payload:   raw,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// errorEnvelope is the uniform failure payload: the shell always receives
// {success:false, error:...} rather than a dropped request.
type errorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func failure(err error) errorEnvelope {
	return errorEnvelope{Success: false, Error: err.Error()}
}
