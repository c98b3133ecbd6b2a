// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package ollama

import (
	"encoding/json"
	"time"
)

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// Roles understood by the chat endpoint.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a chat request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Model     string    `json:"model"`
	Messages  []Message `json:"messages"`
	Stream    bool      `json:"stream"`
	Options   *Options  `json:"options,omitempty"`
	KeepAlive string    `json:"keep_alive,omitempty"` // e.g. "5m"
}

// Options are the sampling parameters of a chat request. Nil fields are
// left to the server.
type Options struct {
	Temperature      *float64 `json:"temperature,omitempty"`
	TopK             *int     `json:"top_k,omitempty"`
	TopP             *float64 `json:"top_p,omitempty"`
	RepeatPenalty    *float64 `json:"repeat_penalty,omitempty"`
	PresencePenalty  *float64 `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64 `json:"frequency_penalty,omitempty"`
	NumCtx           *int     `json:"num_ctx,omitempty"`
	NumPredict       *int     `json:"num_predict,omitempty"`
	Stop             []string `json:"stop,omitempty"`
	Seed             *int     `json:"seed,omitempty"`
}

// ShowModelRequest is the body of POST /api/show.
type ShowModelRequest struct {
	Name string `json:"name"`
}

// PullRequest is the body of POST /api/pull.
type PullRequest struct {
	Name   string `json:"name"`
	Stream bool   `json:"stream"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ModelInfo is one entry of GET /api/tags.
type ModelInfo struct {
	Name       string       `json:"name"`
	ModifiedAt time.Time    `json:"modified_at"`
	Size       int64        `json:"size"`
	Digest     string       `json:"digest"`
	Details    ModelDetails `json:"details,omitempty"`
}

// ModelDetails describes a model's format and size.
type ModelDetails struct {
	Format            string   `json:"format"`
	Family            string   `json:"family"`
	Families          []string `json:"families"`
	ParameterSize     string   `json:"parameter_size"`
	QuantizationLevel string   `json:"quantization_level"`
}

// ListModelsResponse is the body of GET /api/tags.
type ListModelsResponse struct {
	Models []ModelInfo `json:"models"`
}

// ShowModelResponse is the body of POST /api/show. ModelInfo keeps raw
// values so numbers print exactly as the server sent them.
type ShowModelResponse struct {
	License    string                     `json:"license"`
	Modelfile  string                     `json:"modelfile"`
	Parameters string                     `json:"parameters"`
	Template   string                     `json:"template"`
	Details    *ModelDetails              `json:"details,omitempty"`
	ModelInfo  map[string]json.RawMessage `json:"model_info,omitempty"`
}

// PullEvent is one NDJSON line of POST /api/pull.
type PullEvent struct {
	Status    string `json:"status"`
	Digest    string `json:"digest,omitempty"`
	Total     int64  `json:"total,omitempty"`
	Completed int64  `json:"completed,omitempty"`
	Error     string `json:"error,omitempty"`
}

// OllamaError is the error body returned by the server.
type OllamaError struct {
	Error string `json:"error"`
}

// =============================================================================
// STREAM TYPES
// =============================================================================

// StreamChunk is one parsed line of a streaming chat response.
type StreamChunk struct {
	Content string

	Done       bool
	DoneReason string

	TotalDuration      time.Duration
	LoadDuration       time.Duration
	PromptEvalDuration time.Duration
	EvalDuration       time.Duration

	PromptTokens     int
	CompletionTokens int

	Model string
}

// EventKind is the kind of a StreamEvent.
type EventKind int

const (
	// EventToken carries one piece of generated text.
	EventToken EventKind = iota
	// EventDone carries the complete reply and statistics.
	EventDone
	// EventError carries the error that ended the stream.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventToken:
		return "token"
	case EventDone:
		return "done"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// StreamEvent is delivered on a Stream's event channel. Exactly one EventDone
// or EventError ends every stream that is not cancelled by its caller.
type StreamEvent struct {
	Kind    EventKind
	Content string       // EventToken: the token; EventDone: the full reply
	Stats   *StreamStats // EventDone only
	Err     error        // EventError only
}
