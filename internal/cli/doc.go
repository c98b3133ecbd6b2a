// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli is the terminal host for jarvis.
//
// It parses command-line flags, builds the code context attached to
// messages, reads input with history and tab completion, and waits for each
// reply while letting Ctrl+C cancel it.
//
// # Usage
//
//	repl := cli.NewREPL(cli.REPLConfig{
//	    Router:   router,
//	    Input:    cli.NewLineInput(historyFile, completer.LineCompleter()),
//	    Terminal: term,
//	    View:     view,
//	    Store:    store,
//	})
//	err := repl.Run(ctx)
//
// Colors follow NO_COLOR and FORCE_COLOR (https://no-color.org/) and are
// off when stdout is not a terminal.
package cli
