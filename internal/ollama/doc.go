// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ollama provides the HTTP client for communicating with the Ollama API.
//
// # Key Types
//
//   - Client: health check, model listing, pull, show and streaming chat
//   - Stream: a running chat completion delivering StreamEvents on a channel
//   - StreamReader: newline-delimited JSON parser for chat responses
//   - ClientError: error with an ErrorType and, for HTTP failures, the status
//
// # Usage
//
//	client := ollama.NewClient("http://localhost:11434")
//	stream, err := client.Stream(ctx, ollama.ChatRequest{
//	    Model:    "qwen3:1.7b",
//	    Messages: []ollama.Message{ollama.NewUserMessage("Hello")},
//	})
//	if err != nil {
//	    return err
//	}
//	for ev := range stream.Events() {
//	    switch ev.Kind {
//	    case ollama.EventToken:
//	        fmt.Print(ev.Content)
//	    case ollama.EventError:
//	        return ev.Err
//	    }
//	}
//
// # Cancellation
//
// Every request is tied to its context and registered with the client.
// Cancelling the context, calling Stream.Cancel or calling Client.Cancel
// closes the underlying connection, which stops generation on the server.
package ollama
