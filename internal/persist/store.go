// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package persist stores session transcripts locally in SQLite.
//
// The layout mirrors how the transcripts are used, not how they are shaped:
// each session's messages are one JSON blob written whole on every save, and a
// separate metadata table carries the fields session lists need without
// decoding transcripts. Writes follow a mirror discipline - the in-memory
// store is authoritative and the database converges toward it, so individual
// write failures are logged, never fatal.
package persist

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/ragline/ragline-tui/internal/model"
)

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS session_messages (
	session_id TEXT PRIMARY KEY,
	payload    BLOB NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS session_meta (
	session_id    TEXT PRIMARY KEY,
	title         TEXT NOT NULL,
	created_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL,
	message_count INTEGER NOT NULL DEFAULT 0
);
`

// =============================================================================
// STORE
// =============================================================================

// Store is the local transcript database.
type Store struct {
	db *sql.DB
}

// DefaultPath returns the default database location.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".ragline", "sessions.db"), nil
}

// Open opens (creating if needed) the transcript database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// TRANSCRIPTS
// =============================================================================

// SaveMessages replaces the stored transcript for a session with the given
// messages. Streaming placeholders and empty assistant messages are filtered
// out: they are transient UI state, not transcript.
func (s *Store) SaveMessages(sessionID string, messages []*model.Message) error {
	persistable := make([]*model.Message, 0, len(messages))
	for _, m := range messages {
		if m.IsStreaming {
			continue
		}
		if m.Role == model.RoleAssistant && m.IsEmpty() {
			continue
		}
		persistable = append(persistable, m)
	}

	payload, err := json.Marshal(persistable)
	if err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO session_messages (session_id, payload, updated_at) VALUES (?, ?, ?)`,
		sessionID, payload, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	return nil
}

// LoadMessages returns the stored transcript for a session. A session with no
// stored transcript yields an empty slice, not an error.
func (s *Store) LoadMessages(sessionID string) ([]*model.Message, error) {
	var payload []byte
	err := s.db.QueryRow(
		`SELECT payload FROM session_messages WHERE session_id = ?`, sessionID,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return []*model.Message{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript: %w", err)
	}

	var messages []*model.Message
	if err := json.Unmarshal(payload, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode transcript: %w", err)
	}
	return messages, nil
}

// =============================================================================
// SESSION METADATA
// =============================================================================

// SaveMeta upserts a session's metadata row.
func (s *Store) SaveMeta(sess *model.Session) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO session_meta (session_id, title, created_at, updated_at, message_count)
		 VALUES (?, ?, ?, ?, ?)`,
		sess.ID, sess.Title, sess.CreatedAt.Unix(), sess.UpdatedAt.Unix(), sess.MessageCount,
	)
	if err != nil {
		return fmt.Errorf("failed to save session metadata: %w", err)
	}
	return nil
}

// ListMeta returns all stored session metadata, newest first.
func (s *Store) ListMeta() ([]*model.Session, error) {
	rows, err := s.db.Query(
		`SELECT session_id, title, created_at, updated_at, message_count
		 FROM session_meta ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*model.Session
	for rows.Next() {
		var sess model.Session
		var created, updated int64
		if err := rows.Scan(&sess.ID, &sess.Title, &created, &updated, &sess.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		sess.CreatedAt = time.Unix(created, 0)
		sess.UpdatedAt = time.Unix(updated, 0)
		sessions = append(sessions, &sess)
	}
	return sessions, rows.Err()
}

// GetMeta returns one session's metadata, or nil when unknown.
func (s *Store) GetMeta(sessionID string) (*model.Session, error) {
	var sess model.Session
	var created, updated int64
	err := s.db.QueryRow(
		`SELECT session_id, title, created_at, updated_at, message_count
		 FROM session_meta WHERE session_id = ?`, sessionID,
	).Scan(&sess.ID, &sess.Title, &created, &updated, &sess.MessageCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session metadata: %w", err)
	}
	sess.CreatedAt = time.Unix(created, 0)
	sess.UpdatedAt = time.Unix(updated, 0)
	return &sess, nil
}

// Delete removes a session's metadata and transcript. The metadata row goes
// first so a half-completed delete leaves an unlisted transcript rather than
// a listed session with no transcript; if the transcript delete then fails,
// the metadata row is restored so the session is not silently lost.
func (s *Store) Delete(sessionID string) error {
	meta, err := s.GetMeta(sessionID)
	if err != nil {
		return err
	}

	if _, err := s.db.Exec(`DELETE FROM session_meta WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete session metadata: %w", err)
	}

	if _, err := s.db.Exec(`DELETE FROM session_messages WHERE session_id = ?`, sessionID); err != nil {
		if meta != nil {
			if restoreErr := s.SaveMeta(meta); restoreErr != nil {
				return fmt.Errorf("failed to delete transcript (%v) and restore metadata: %w", err, restoreErr)
			}
		}
		return fmt.Errorf("failed to delete transcript: %w", err)
	}
	return nil
}
