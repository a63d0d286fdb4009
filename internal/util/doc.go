// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides shared helpers: crash-safe file writes and
// Unicode-aware string shaping for terminal display.
package util
