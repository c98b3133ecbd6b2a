// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package render draws a conversation on a terminal.
//
// Finished messages are printed once. The reply being generated lives in a
// repainted region at the bottom of the output: every update is parsed into
// segments, diffed against what is on screen, and only changed segments are
// rendered again (glamour for markdown, chroma for code). A StreamingBuffer
// caps how often the region is repainted while tokens arrive.
package render
