// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chat sessions and messages.
//
// A Session is a named, persisted conversation thread. Its messages are
// ordered by insertion and never reordered. During generation the trailing
// assistant message acts as a placeholder that accumulates streamed content;
// it becomes immutable once its stream terminates.
package model
