// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package inference holds the inference settings a chat runs with: Ollama
// host, model name and sampling parameters.
//
// A Session is an immutable snapshot. The Store owns the current Session and
// swaps it wholesale on every change, bumping an epoch. Consumers compare
// epochs to know when cached clients and chat memory are stale:
//
//	store := inference.NewStore(inference.DefaultSession())
//	store.SetModel("llama3.2")
//	sess := store.Current()
//	fmt.Println(sess.Model(), sess.Epoch())
package inference
