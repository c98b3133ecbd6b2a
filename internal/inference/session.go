// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package inference

import (
	"strings"
	"time"
)

// Defaults for a fresh session.
const (
	DefaultHost      = "http://localhost:11434"
	DefaultModel     = "qwen3:1.7b"
	DefaultKeepAlive = 5 * time.Minute
)

// Session is an immutable snapshot of the settings a chat runs with.
type Session struct {
	host      string
	model     string
	params    Parameters
	keepAlive time.Duration
	epoch     uint64
}

// NewSession creates a session. Empty host or model fall back to defaults.
func NewSession(host, model string, params Parameters) Session {
	return Session{
		host:      normalizeHost(host),
		model:     normalizeModel(model),
		params:    params.Clone(),
		keepAlive: DefaultKeepAlive,
	}
}

// DefaultSession returns a session with every default.
func DefaultSession() Session {
	return NewSession(DefaultHost, DefaultModel, DefaultParameters())
}

// Host returns the Ollama base URL.
func (s Session) Host() string { return s.host }

// Model returns the model name.
func (s Session) Model() string { return s.model }

// Parameters returns a copy of the sampling parameters.
func (s Session) Parameters() Parameters { return s.params.Clone() }

// KeepAlive returns how long the server keeps the model loaded after a request.
func (s Session) KeepAlive() time.Duration { return s.keepAlive }

// Epoch increases every time the session is replaced in a Store.
func (s Session) Epoch() uint64 { return s.epoch }

// WithHost returns a copy using host. "default" or "" selects DefaultHost.
func (s Session) WithHost(host string) Session {
	s.host = normalizeHost(host)
	s.params = s.params.Clone()
	return s
}

// WithModel returns a copy using model with parameters reset to defaults.
// "default" or "" selects DefaultModel. The context window size is kept.
func (s Session) WithModel(model string) Session {
	ctx := s.params.ContextWindowSize
	s.model = normalizeModel(model)
	s.params = DefaultParameters()
	s.params.ContextWindowSize = ctx
	return s
}

// WithParameters returns a copy with params.
func (s Session) WithParameters(params Parameters) Session {
	s.params = params.Clone()
	return s
}

// WithKeepAlive returns a copy using d.
func (s Session) WithKeepAlive(d time.Duration) Session {
	s.keepAlive = d
	return s
}

func normalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if host == "" || strings.EqualFold(host, "default") {
		return DefaultHost
	}
	return strings.TrimRight(host, "/")
}

func normalizeModel(model string) string {
	model = strings.TrimSpace(model)
	if model == "" || strings.EqualFold(model, "default") {
		return DefaultModel
	}
	return model
}
