// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands turns user input into chat turns or slash commands and
// runs them against a conversation.
//
// # Commands
//
//   - /help, /?: list commands
//   - /new: start over
//   - /plain <text>: chat without the selected code
//   - /model, /model-info: show the model card and parameters
//   - /model <name>: switch model ("default" restores the default)
//   - /model set -<param> <value> ...: change inference parameters
//   - /host <url>: switch Ollama host ("default" restores the default)
//   - /copy: copy the conversation as a hand-off prompt
//
// Anything else, including unknown slash commands, is sent to the model.
//
// # Usage
//
//	router := commands.NewRouter(commands.RouterConfig{...})
//	if g := router.Submit(ctx, input, codeContext); g != nil {
//	    g.Wait()
//	}
package commands
