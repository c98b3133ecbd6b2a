// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and watches the jarvis configuration.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (JARVIS_HOST, JARVIS_MODEL, JARVIS_LOG_LEVEL),
//     including those set by a .env file in the working directory
//   - $JARVIS_CONFIG, or ~/.jarvis/config.toml
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	store := inference.NewStore(cfg.Session())
//
// Watcher reloads the file when it changes on disk:
//
//	w := config.NewWatcher(path, onChange, onError)
//	go w.Run(ctx)
package config
