// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"math"
	"sync"
	"unicode/utf8"

	"github.com/jeranaias/jarvis/internal/ollama"
)

// perMessageOverhead approximates the tokens a chat template adds around
// every message.
const perMessageOverhead = 2

// EstimateTokens approximates the token count of text as 0.3 tokens per
// character.
func EstimateTokens(text string) int {
	return int(math.Round(float64(utf8.RuneCountInString(text)) * 0.3))
}

func estimateMessage(m ollama.Message) int {
	return EstimateTokens(m.Content) + perMessageOverhead
}

// Memory holds the prompts and replies of the current chat.
type Memory struct {
	mu       sync.Mutex
	messages []ollama.Message
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{}
}

// Add records a completed exchange.
func (m *Memory) Add(prompt, reply string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, ollama.NewUserMessage(prompt), ollama.NewAssistantMessage(reply))
}

// Reset forgets everything.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = nil
}

// Len returns the number of stored messages.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

// Window returns the messages for the next request: the system prompt, as
// much recent history as fits in maxTokens, and prompt. The oldest history
// is dropped first; the system prompt and prompt are always included.
func (m *Memory) Window(system, prompt string, maxTokens int) []ollama.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	sys := ollama.NewSystemMessage(system)
	next := ollama.NewUserMessage(prompt)
	budget := maxTokens - estimateMessage(sys) - estimateMessage(next)

	start := len(m.messages)
	for start > 0 {
		cost := estimateMessage(m.messages[start-1])
		if cost > budget {
			break
		}
		budget -= cost
		start--
	}

	out := make([]ollama.Message, 0, len(m.messages)-start+2)
	out = append(out, sys)
	out = append(out, m.messages[start:]...)
	return append(out, next)
}
