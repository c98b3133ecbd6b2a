// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"sync"

	"github.com/jeranaias/jarvis/internal/ollama"
)

// ClientPool hands out one Ollama client per host so that cancelling a
// host's client reaches every request made to it.
type ClientPool struct {
	mu      sync.Mutex
	base    ollama.ClientConfig
	clients map[string]*ollama.Client
}

// NewClientPool creates a pool whose clients share base's timeouts and
// logger.
func NewClientPool(base ollama.ClientConfig) *ClientPool {
	return &ClientPool{base: base, clients: make(map[string]*ollama.Client)}
}

// Client returns the client for host, creating it on first use.
func (p *ClientPool) Client(host string) *ollama.Client {
	p.mu.Lock()
	defer p.mu.Unlock()

	if c, ok := p.clients[host]; ok {
		return c
	}
	cfg := p.base
	cfg.BaseURL = host
	c := ollama.NewClientWithConfig(&cfg)
	p.clients[host] = c
	return c
}

// CancelAll aborts every request of every client.
func (p *ClientPool) CancelAll() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.clients {
		c.Cancel()
	}
}
