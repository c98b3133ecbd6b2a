// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// # Key Types
//
//   - Message: immutable chat entry with a role, content and optional code context
//   - CodeContext: project name and editor selection attached to a user message
//   - Conversation: observable message list plus the in-progress reply buffer
//   - Generation: handle of the one reply being produced, used as the only
//     way to mutate the conversation from a background producer
//
// # Observing
//
// A Conversation publishes every mutation on one of three channels
// (messages, in-progress text, in-progress flag) with the old and new
// values. Observers run synchronously and one at a time, in mutation order:
//
//	conv := model.NewConversation()
//	unsubscribe := conv.Subscribe(func(ev model.Event) {
//	    if ev.Kind == model.InProgressTextChanged {
//	        fmt.Print(strings.TrimPrefix(ev.NewText, ev.OldText))
//	    }
//	})
//	defer unsubscribe()
//
// Observers must not call back into the Conversation's mutating methods.
package model
