// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util holds small helpers shared by jarvis packages.
//
//   - AtomicWriteFile: crash-safe file writes for config and history files
//   - TruncateRunes: UTF-8 safe truncation for log previews
package util
