// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package inference

import "sync"

// Store owns the current Session and replaces it atomically.
//
// Every replacement bumps the epoch and notifies listeners after the lock is
// released, in registration order.
type Store struct {
	mu        sync.RWMutex
	current   Session
	listeners []func(Session)
}

// NewStore creates a store holding s.
func NewStore(s Session) *Store {
	return &Store{current: s}
}

// Current returns the current session.
func (st *Store) Current() Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.current
}

// OnChange registers fn to be called with each new session.
func (st *Store) OnChange(fn func(Session)) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.listeners = append(st.listeners, fn)
}

// Update replaces the session with fn(current) and returns the result.
func (st *Store) Update(fn func(Session) Session) Session {
	st.mu.Lock()
	next := fn(st.current)
	next.epoch = st.current.epoch + 1
	st.current = next
	listeners := append([]func(Session){}, st.listeners...)
	st.mu.Unlock()

	for _, l := range listeners {
		l(next)
	}
	return next
}

// SetHost switches host. "default" restores DefaultHost.
func (st *Store) SetHost(host string) Session {
	return st.Update(func(s Session) Session { return s.WithHost(host) })
}

// SetModel switches model and resets parameters. "default" restores
// DefaultModel.
func (st *Store) SetModel(model string) Session {
	return st.Update(func(s Session) Session { return s.WithModel(model) })
}

// SetParameters applies assignments and returns the messages of those that
// were rejected.
func (st *Store) SetParameters(assignments []Assignment) (Session, []string) {
	var errs []string
	sess := st.Update(func(s Session) Session {
		var params Parameters
		params, errs = s.params.Apply(assignments)
		return s.WithParameters(params)
	})
	return sess, errs
}

// Invalidate replaces the session with an identical one. Consumers drop
// chat memory and cached clients on the epoch change.
func (st *Store) Invalidate() Session {
	return st.Update(func(s Session) Session { return s })
}
