// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import "github.com/jeranaias/jarvis/internal/ollama"

// State is the phase of a generation.
type State int

const (
	StateIdle State = iota
	StateAvailabilityCheck
	StateDownloading
	StateStreaming
	StateCompleted
	StateErrored
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAvailabilityCheck:
		return "availability-check"
	case StateDownloading:
		return "downloading"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateErrored:
		return "errored"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateErrored || s == StateCancelled
}

// Result is the outcome of one generation.
type Result struct {
	State State
	// Reply is the trimmed reply. On error it holds the partial reply
	// followed by the error note; it is empty when cancelled or when the
	// model could not be made available.
	Reply string
	Stats *ollama.StreamStats
}
