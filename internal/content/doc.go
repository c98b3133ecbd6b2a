// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package content turns raw assistant or info text into ordered display
// segments and keeps a rendered segment list in sync with a growing text.
//
// A message body is split into three kinds of segments:
//
//   - Text: markdown outside any fenced block
//   - Code: a fenced block with its language id ("plaintext" when unknown)
//   - Reasoning: a leading <think>...</think> section, possibly unterminated
//
// Parsing never fails. Unterminated fences are closed before splitting so
// that partially streamed code renders as code.
//
// The Reconciler diffs two parses of the same growing text and emits the
// smallest set of Append, Update and Truncate operations a renderer needs
// to apply.
package content
