// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package persist

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/ragline/ragline-tui/internal/model"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestLoadMessagesAbsentSession(t *testing.T) {
	s := testStore(t)

	msgs, err := s.LoadMessages("never-seen")
	if err != nil {
		t.Fatalf("LoadMessages: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("got %d messages, want empty", len(msgs))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := testStore(t)

	user := model.NewUserMessage("what is RAG?")
	assistant := model.NewAssistantPlaceholder()
	assistant.AppendContent("Retrieval-augmented generation.")
	assistant.Finalize([]string{"search"})

	if err := s.SaveMessages("s1", []*model.Message{user, assistant}); err != nil {
		t.Fatalf("SaveMessages: %v", err)
	}

	msgs, err := s.LoadMessages("s1")
	if err != nil {
		t.Fatalf("LoadMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].Role != model.RoleUser || msgs[0].Content != "what is RAG?" {
		t.Errorf("msgs[0] = %+v", msgs[0])
	}
	if msgs[1].Content != "Retrieval-augmented generation." {
		t.Errorf("msgs[1].Content = %q", msgs[1].Content)
	}
	if len(msgs[1].ToolsUsed) != 1 || msgs[1].ToolsUsed[0] != "search" {
		t.Errorf("msgs[1].ToolsUsed = %v", msgs[1].ToolsUsed)
	}
}

func TestSaveFiltersStreamingAndEmptyMessages(t *testing.T) {
	s := testStore(t)

	user := model.NewUserMessage("hello")
	streaming := model.NewAssistantPlaceholder()
	streaming.AppendContent("in flight")

	emptyFinal := model.NewAssistantPlaceholder()
	emptyFinal.Finalize(nil)

	if err := s.SaveMessages("s1", []*model.Message{user, streaming, emptyFinal}); err != nil {
		t.Fatalf("SaveMessages: %v", err)
	}

	msgs, err := s.LoadMessages("s1")
	if err != nil {
		t.Fatalf("LoadMessages: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want only the user message", len(msgs))
	}
	if msgs[0].Role != model.RoleUser {
		t.Errorf("surviving message role = %v", msgs[0].Role)
	}
}

func TestSaveMessagesConverges(t *testing.T) {
	s := testStore(t)

	first := []*model.Message{model.NewUserMessage("one")}
	if err := s.SaveMessages("s1", first); err != nil {
		t.Fatalf("SaveMessages: %v", err)
	}

	second := []*model.Message{
		model.NewUserMessage("one"),
		model.NewUserMessage("two"),
	}
	if err := s.SaveMessages("s1", second); err != nil {
		t.Fatalf("SaveMessages: %v", err)
	}

	msgs, err := s.LoadMessages("s1")
	if err != nil {
		t.Fatalf("LoadMessages: %v", err)
	}
	if len(msgs) != 2 {
		t.Errorf("got %d messages, want the whole latest transcript", len(msgs))
	}
}

func TestMetaRoundTripAndOrdering(t *testing.T) {
	s := testStore(t)

	older := &model.Session{
		ID: "old", Title: "Older",
		CreatedAt: time.Now().Add(-2 * time.Hour),
		UpdatedAt: time.Now().Add(-2 * time.Hour),
	}
	newer := &model.Session{
		ID: "new", Title: "Newer",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
		MessageCount: 3,
	}
	if err := s.SaveMeta(older); err != nil {
		t.Fatalf("SaveMeta: %v", err)
	}
	if err := s.SaveMeta(newer); err != nil {
		t.Fatalf("SaveMeta: %v", err)
	}

	sessions, err := s.ListMeta()
	if err != nil {
		t.Fatalf("ListMeta: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("got %d sessions, want 2", len(sessions))
	}
	if sessions[0].ID != "new" {
		t.Errorf("newest session should be first, got %q", sessions[0].ID)
	}
	if sessions[0].MessageCount != 3 {
		t.Errorf("MessageCount = %d", sessions[0].MessageCount)
	}
}

func TestGetMetaUnknownSession(t *testing.T) {
	s := testStore(t)
	sess, err := s.GetMeta("nope")
	if err != nil {
		t.Fatalf("GetMeta: %v", err)
	}
	if sess != nil {
		t.Errorf("GetMeta = %+v, want nil", sess)
	}
}

func TestDeleteRemovesBothTables(t *testing.T) {
	s := testStore(t)

	sess := model.NewSession()
	sess.Title = "Doomed"
	if err := s.SaveMeta(&sess); err != nil {
		t.Fatalf("SaveMeta: %v", err)
	}
	if err := s.SaveMessages(sess.ID, []*model.Message{model.NewUserMessage("bye")}); err != nil {
		t.Fatalf("SaveMessages: %v", err)
	}

	if err := s.Delete(sess.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	meta, err := s.GetMeta(sess.ID)
	if err != nil {
		t.Fatalf("GetMeta: %v", err)
	}
	if meta != nil {
		t.Error("metadata should be gone after delete")
	}
	msgs, err := s.LoadMessages(sess.ID)
	if err != nil {
		t.Fatalf("LoadMessages: %v", err)
	}
	if len(msgs) != 0 {
		t.Error("transcript should be gone after delete")
	}
}

func TestDeleteUnknownSessionIsNoop(t *testing.T) {
	s := testStore(t)
	if err := s.Delete("missing"); err != nil {
		t.Errorf("Delete of unknown session should succeed, got %v", err)
	}
}

func TestReopenPreservesData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sessions.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.SaveMessages("s1", []*model.Message{model.NewUserMessage("persisted")}); err != nil {
		t.Fatalf("SaveMessages: %v", err)
	}
	s.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	msgs, err := s2.LoadMessages("s1")
	if err != nil {
		t.Fatalf("LoadMessages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "persisted" {
		t.Errorf("msgs = %+v", msgs)
	}
}
