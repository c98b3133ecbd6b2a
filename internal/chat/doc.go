// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat drives one assistant reply from prompt to final text.
//
// The Orchestrator makes sure the model is present (pulling it when it is
// not), builds the prompt from the last user message, streams the reply into
// a Sink and returns the final text. It keeps a token-bounded chat memory
// that is dropped whenever the inference session changes.
//
// A generation moves through these states:
//
//	Idle -> AvailabilityCheck -> [Downloading ->] Streaming -> Completed
//	                                                        -> Errored
//	                                                        -> Cancelled
//
// Cancellation can happen in any state and always wins: once the context is
// done nothing more is written to the Sink.
package chat
