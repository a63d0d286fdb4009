// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the client-side conversation state: the session
// list, the current transcript, and the streaming lifecycle. All state
// transitions happen under one mutex, so readers always observe a
// transcript that is either fully settled or mid-stream with exactly one
// streaming assistant message at the tail.
//
// The store is the single writer to local persistence. The backend is
// consulted for session listings and transcript backfill but never
// trusted over local state for titles or deletions.
package store

import (
	"context"
	"errors"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/ragline/ragline-tui/internal/api"
	"github.com/ragline/ragline-tui/internal/model"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Backend is the slice of the API client the store needs. *api.Client
// satisfies it.
type Backend interface {
	OpenStream(ctx context.Context, req api.ChatRequest, h api.StreamHandler) (func(), error)
	ListSessions(ctx context.Context) ([]api.SessionInfo, error)
	SessionMessages(ctx context.Context, sessionID string) ([]api.SessionMessage, error)
	DeleteSession(ctx context.Context, sessionID string) error
	IsAuthenticated() bool
	Me(ctx context.Context) (*model.User, error)
	Health(ctx context.Context) (*api.HealthStatus, error)
	LLMConfig(ctx context.Context) (*api.LLMConfig, error)
	ListMCPServers(ctx context.Context) ([]api.MCPServer, error)
}

// Persistence is the local storage the store mirrors into. ListMeta
// returns sessions newest first. *persist.Store satisfies it.
type Persistence interface {
	SaveMessages(sessionID string, messages []*model.Message) error
	LoadMessages(sessionID string) ([]*model.Message, error)
	SaveMeta(sess *model.Session) error
	ListMeta() ([]*model.Session, error)
	Delete(sessionID string) error
}

// NotifyLevel classifies user-facing notices emitted by the store.
type NotifyLevel int

const (
	LevelInfo NotifyLevel = iota
	LevelWarn
	LevelError
)

// String returns the level name for logs.
func (l NotifyLevel) String() string {
	switch l {
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Options configures a Store.
type Options struct {
	// Mode is the chat mode sent with every request (rag, direct, agent).
	Mode string
	// CollectionID scopes retrieval to one collection. Optional.
	CollectionID string
	// UseReAct enables the backend's ReAct agent loop.
	UseReAct bool

	// OnChange fires after any state transition a view should re-render
	// for. Called without the store lock held; it must not block.
	OnChange func()
	// OnNotify receives user-facing notices (stream failures, persistence
	// warnings). Called without the store lock held.
	OnNotify func(level NotifyLevel, message string)
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrStreamInProgress is returned when an operation needs an idle
	// store but a reply is still streaming.
	ErrStreamInProgress = errors.New("a response is already streaming")

	// ErrEmptyMessage is returned for whitespace-only input.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrUnknownSession is returned when a session ID is not in the list.
	ErrUnknownSession = errors.New("unknown session")

	// ErrUnknownMessage is returned when a regenerate target is not an
	// assistant message in the current transcript.
	ErrUnknownMessage = errors.New("no such assistant message")

	// ErrNoUserMessage is returned when a regenerate target has no user
	// message before it to replay.
	ErrNoUserMessage = errors.New("no user message to regenerate from")
)

// =============================================================================
// STORE
// =============================================================================

// Store is the conversation state machine.
type Store struct {
	mu      sync.Mutex
	backend Backend
	local   Persistence
	opts    Options

	sessions []*model.Session
	current  *model.Session
	messages []*model.Message

	// tombstones records sessions deleted locally this run so a backend
	// listing cannot resurrect them.
	tombstones map[string]struct{}

	streaming    bool
	loading      bool
	cancelStream func()
	streamDone   chan struct{}

	// Settings snapshots, refreshed independently; a failed load keeps
	// the previous value.
	user       *model.User
	health     *api.HealthStatus
	llmConfig  *api.LLMConfig
	mcpServers []api.MCPServer
}

// New creates a store over the given backend and local persistence and
// restores the session list from disk. The newest local session becomes
// current; an empty disk starts a fresh session. Local read failures
// degrade to an empty list.
func New(backend Backend, local Persistence, opts Options) *Store {
	s := &Store{
		backend:    backend,
		local:      local,
		opts:       opts,
		tombstones: make(map[string]struct{}),
	}

	metas, err := local.ListMeta()
	if err != nil {
		log.Printf("store: loading local sessions: %v", err)
	}
	s.sessions = metas

	if len(s.sessions) > 0 {
		s.current = s.sessions[0]
		msgs, err := local.LoadMessages(s.current.ID)
		if err != nil {
			log.Printf("store: loading transcript %s: %v", s.current.ID, err)
		}
		s.messages = msgs
	} else {
		sess := model.NewSession()
		s.current = &sess
		s.sessions = []*model.Session{&sess}
	}
	return s
}

// =============================================================================
// SNAPSHOTS
// =============================================================================

// CurrentSession returns a copy of the current session metadata.
func (s *Store) CurrentSession() model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.current
}

// Sessions returns the session list, newest first.
func (s *Store) Sessions() []*model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.Session(nil), s.sessions...)
}

// Messages returns the current transcript. The slice is a copy; the
// messages are shared, so render from DisplayContent.
func (s *Store) Messages() []*model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*model.Message(nil), s.messages...)
}

// IsStreaming reports whether a reply is currently streaming.
func (s *Store) IsStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streaming
}

// SetMode changes the chat mode for subsequent requests.
func (s *Store) SetMode(mode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.Mode = mode
}

// Mode returns the current chat mode.
func (s *Store) Mode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts.Mode
}

// SetCollection changes the retrieval collection for subsequent requests.
func (s *Store) SetCollection(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.CollectionID = id
}

// SetUseReAct toggles the agent loop for subsequent requests.
func (s *Store) SetUseReAct(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.UseReAct = on
}

// SetOnChange replaces the change callback. Line-mode chat swaps it in
// per message to mirror streamed fragments to stdout.
func (s *Store) SetOnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opts.OnChange = fn
}

// =============================================================================
// SENDING AND STREAMING
// =============================================================================

// SendMessage appends a user message to the current session and streams
// the assistant reply, blocking until the stream terminates. Returns
// ErrStreamInProgress if a reply is already streaming; a stream that
// fails after opening reports through OnNotify, not the return value.
func (s *Store) SendMessage(ctx context.Context, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	if s.streaming {
		s.mu.Unlock()
		return ErrStreamInProgress
	}
	s.messages = append(s.messages, model.NewUserMessage(content))
	s.current.Title = s.current.TitleFromMessages(s.messages)
	s.mu.Unlock()
	s.notifyChange()

	return s.startStream(ctx, content)
}

// Regenerate replays the user message preceding the given assistant
// message, discarding it and everything after it. An empty messageID
// targets the last assistant message. An in-flight stream is canceled
// first.
func (s *Store) Regenerate(ctx context.Context, messageID string) error {
	s.mu.Lock()
	if s.streaming {
		s.mu.Unlock()
		s.CancelStreaming()
		s.mu.Lock()
	}

	target := -1
	for i := len(s.messages) - 1; i >= 0; i-- {
		m := s.messages[i]
		if m.Role != model.RoleAssistant {
			continue
		}
		if messageID == "" || m.ID == messageID {
			target = i
			break
		}
	}
	if target < 0 {
		s.mu.Unlock()
		return ErrUnknownMessage
	}

	user := -1
	for i := target - 1; i >= 0; i-- {
		if s.messages[i].Role == model.RoleUser {
			user = i
			break
		}
	}
	if user < 0 {
		s.mu.Unlock()
		return ErrNoUserMessage
	}

	content := s.messages[user].DisplayContent()
	s.messages = s.messages[:user+1]
	s.mu.Unlock()
	s.notifyChange()

	return s.startStream(ctx, content)
}

// startStream appends a streaming placeholder and runs the stream to
// completion. The caller must have already appended the user message.
func (s *Store) startStream(ctx context.Context, content string) error {
	s.mu.Lock()
	if s.streaming {
		s.mu.Unlock()
		return ErrStreamInProgress
	}
	placeholder := model.NewAssistantPlaceholder()
	s.messages = append(s.messages, placeholder)
	s.streaming = true
	done := make(chan struct{})
	s.streamDone = done
	req := api.ChatRequest{
		Message:      content,
		SessionID:    s.current.ID,
		Mode:         s.opts.Mode,
		CollectionID: s.opts.CollectionID,
		UseReAct:     s.opts.UseReAct,
	}
	s.mu.Unlock()
	s.notifyChange()

	handler := api.StreamHandler{
		OnChunk: func(text string) {
			s.mu.Lock()
			placeholder.AppendContent(text)
			s.mu.Unlock()
			s.notifyChange()
		},
		OnTool: func(name string) {
			s.mu.Lock()
			placeholder.RecordTool(name)
			s.mu.Unlock()
			s.notifyChange()
		},
		OnDone: func(toolsUsed []string) {
			s.finishStream(placeholder, toolsUsed, done)
		},
		OnError: func(err error) {
			s.failStream(placeholder, err, done)
		},
	}

	cancel, err := s.backend.OpenStream(ctx, req, handler)
	if err != nil {
		s.mu.Lock()
		s.removeMessage(placeholder.ID)
		s.streaming = false
		s.streamDone = nil
		s.mu.Unlock()
		s.notifyChange()
		return err
	}

	s.mu.Lock()
	// The stream may already have terminated; only arm the handle while
	// this stream is still the live one.
	if s.streaming && s.streamDone == done {
		s.cancelStream = cancel
	}
	s.mu.Unlock()

	<-done
	return nil
}

// finishStream settles a completed stream: empty replies are pruned,
// non-empty ones finalized, and the session flushed to disk.
func (s *Store) finishStream(placeholder *model.Message, toolsUsed []string, done chan struct{}) {
	s.mu.Lock()
	if s.streamDone != done {
		// CancelStreaming already settled this stream.
		s.mu.Unlock()
		return
	}
	if placeholder.IsEmpty() {
		s.removeMessage(placeholder.ID)
	} else {
		placeholder.Finalize(toolsUsed)
	}
	s.settleLocked()
	sess, msgs := s.snapshotLocked()
	s.mu.Unlock()

	close(done)
	s.flush(sess, msgs)
	s.notifyChange()
}

// failStream prunes the placeholder after a stream failure. The user
// message stays so the input can be retried.
func (s *Store) failStream(placeholder *model.Message, err error, done chan struct{}) {
	s.mu.Lock()
	if s.streamDone != done {
		s.mu.Unlock()
		return
	}
	s.removeMessage(placeholder.ID)
	s.settleLocked()
	sess, msgs := s.snapshotLocked()
	s.mu.Unlock()

	close(done)
	s.flush(sess, msgs)
	s.notify(LevelError, err.Error())
	s.notifyChange()
}

// CancelStreaming stops the in-flight stream. Partial content already
// received is kept and finalized; an empty placeholder is pruned. No-op
// when nothing is streaming.
func (s *Store) CancelStreaming() {
	s.mu.Lock()
	if !s.streaming {
		s.mu.Unlock()
		return
	}
	cancel := s.cancelStream
	done := s.streamDone

	for i := len(s.messages) - 1; i >= 0; i-- {
		if m := s.messages[i]; m.IsStreaming {
			if m.IsEmpty() {
				s.removeMessage(m.ID)
			} else {
				m.Finalize(nil)
			}
			break
		}
	}
	s.settleLocked()
	sess, msgs := s.snapshotLocked()
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		close(done)
	}
	s.flush(sess, msgs)
	s.notifyChange()
}

// settleLocked clears the streaming state and touches the session.
// Caller holds s.mu.
func (s *Store) settleLocked() {
	s.streaming = false
	s.cancelStream = nil
	s.streamDone = nil
	s.current.Touch(len(s.messages))
	s.current.Title = s.current.TitleFromMessages(s.messages)
}

// =============================================================================
// SESSION LIFECYCLE
// =============================================================================

// NewSession flushes the current session and starts a fresh one.
func (s *Store) NewSession() model.Session {
	s.mu.Lock()
	if s.streaming {
		s.mu.Unlock()
		s.CancelStreaming()
		s.mu.Lock()
	}
	oldSess, oldMsgs := s.snapshotLocked()

	sess := model.NewSession()
	s.sessions = append([]*model.Session{&sess}, s.sessions...)
	s.current = &sess
	s.messages = nil
	s.mu.Unlock()

	s.flush(oldSess, oldMsgs)
	if err := s.local.SaveMeta(&sess); err != nil {
		log.Printf("store: saving session meta: %v", err)
	}
	s.notifyChange()
	return sess
}

// SetCurrentSession switches the current session: the outgoing transcript
// is flushed to disk first, then the target is loaded. When the local
// copy is empty and the user is authenticated, the backend transcript
// fills it in. An in-flight stream is canceled.
func (s *Store) SetCurrentSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	if s.current.ID == sessionID {
		s.mu.Unlock()
		return nil
	}
	if s.streaming {
		s.mu.Unlock()
		s.CancelStreaming()
		s.mu.Lock()
	}

	var target *model.Session
	for _, sess := range s.sessions {
		if sess.ID == sessionID {
			target = sess
			break
		}
	}
	if target == nil {
		s.mu.Unlock()
		return ErrUnknownSession
	}

	oldSess, oldMsgs := s.snapshotLocked()
	s.current = target
	s.messages = nil
	s.loading = true
	s.mu.Unlock()

	s.flush(oldSess, oldMsgs)

	msgs, err := s.local.LoadMessages(sessionID)
	if err != nil {
		log.Printf("store: loading transcript %s: %v", sessionID, err)
		msgs = nil
	}
	if len(msgs) == 0 && s.backend.IsAuthenticated() {
		msgs = s.backfill(ctx, sessionID)
	}

	s.mu.Lock()
	// Guard against a concurrent switch while the transcript loaded.
	if s.current.ID == sessionID {
		s.messages = msgs
	}
	s.loading = false
	s.mu.Unlock()
	s.notifyChange()
	return nil
}

// backfill fetches a transcript from the backend and mirrors it to disk.
// Failures degrade to an empty transcript.
func (s *Store) backfill(ctx context.Context, sessionID string) []*model.Message {
	remote, err := s.backend.SessionMessages(ctx, sessionID)
	if err != nil {
		s.notify(LevelWarn, "could not fetch session history: "+err.Error())
		return nil
	}
	msgs := make([]*model.Message, 0, len(remote))
	for _, rm := range remote {
		m := model.NewMessage(model.Role(rm.Role), rm.Content)
		if !rm.Timestamp.IsZero() {
			m.Timestamp = rm.Timestamp
		}
		if len(rm.ToolsUsed) > 0 {
			m.ToolsUsed = append([]string(nil), rm.ToolsUsed...)
		}
		msgs = append(msgs, m)
	}
	if len(msgs) > 0 {
		if err := s.local.SaveMessages(sessionID, msgs); err != nil {
			log.Printf("store: mirroring transcript %s: %v", sessionID, err)
		}
	}
	return msgs
}

// DeleteSession removes a session locally and tombstones it so a later
// listing cannot bring it back. The backend copy is removed best-effort;
// a backend failure does not undo the local deletion. Deleting the
// current session switches to the newest remaining one.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	if s.streaming && s.current.ID == sessionID {
		s.mu.Unlock()
		s.CancelStreaming()
		s.mu.Lock()
	}

	found := false
	kept := s.sessions[:0]
	for _, sess := range s.sessions {
		if sess.ID == sessionID {
			found = true
			continue
		}
		kept = append(kept, sess)
	}
	if !found {
		s.mu.Unlock()
		return ErrUnknownSession
	}
	s.sessions = kept
	s.tombstones[sessionID] = struct{}{}

	wasCurrent := s.current.ID == sessionID
	if wasCurrent {
		if len(s.sessions) > 0 {
			s.current = s.sessions[0]
		} else {
			sess := model.NewSession()
			s.current = &sess
			s.sessions = []*model.Session{&sess}
		}
		s.messages = nil
	}
	currentID := s.current.ID
	s.mu.Unlock()

	if err := s.local.Delete(sessionID); err != nil {
		s.notify(LevelWarn, "could not delete local session data: "+err.Error())
	}
	if s.backend.IsAuthenticated() {
		if err := s.backend.DeleteSession(ctx, sessionID); err != nil && !errors.Is(err, api.ErrNotFound) {
			s.notify(LevelWarn, "session deleted locally; backend delete failed: "+err.Error())
		}
	}

	if wasCurrent {
		msgs, err := s.local.LoadMessages(currentID)
		if err != nil {
			log.Printf("store: loading transcript %s: %v", currentID, err)
			msgs = nil
		}
		s.mu.Lock()
		if s.current.ID == currentID {
			s.messages = msgs
		}
		s.mu.Unlock()
	}
	s.notifyChange()
	return nil
}

// LoadSessions merges the backend's session list into the local one.
// Local titles win, backend message counts win, and sessions deleted
// locally stay deleted. A backend failure degrades to the local list.
func (s *Store) LoadSessions(ctx context.Context) error {
	metas, err := s.local.ListMeta()
	if err != nil {
		log.Printf("store: listing local sessions: %v", err)
	}

	byID := make(map[string]*model.Session, len(metas))
	for _, m := range metas {
		byID[m.ID] = m
	}

	if s.backend.IsAuthenticated() {
		remote, rerr := s.backend.ListSessions(ctx)
		if rerr != nil {
			s.notify(LevelWarn, "could not fetch sessions: "+rerr.Error())
		}
		s.mu.Lock()
		dead := make(map[string]struct{}, len(s.tombstones))
		for id := range s.tombstones {
			dead[id] = struct{}{}
		}
		s.mu.Unlock()

		for _, r := range remote {
			if _, gone := dead[r.ID]; gone {
				continue
			}
			if existing, ok := byID[r.ID]; ok {
				existing.MessageCount = r.MessageCount
				if r.UpdatedAt.After(existing.UpdatedAt) {
					existing.UpdatedAt = r.UpdatedAt
				}
				continue
			}
			byID[r.ID] = &model.Session{
				ID:           r.ID,
				Title:        r.Title,
				CreatedAt:    r.CreatedAt,
				UpdatedAt:    r.UpdatedAt,
				MessageCount: r.MessageCount,
			}
		}
	}

	merged := make([]*model.Session, 0, len(byID))
	for _, sess := range byID {
		merged = append(merged, sess)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].UpdatedAt.After(merged[j].UpdatedAt)
	})

	s.mu.Lock()
	// Keep the live current session object so in-flight updates land on
	// the listed entry.
	replaced := false
	for i, sess := range merged {
		if sess.ID == s.current.ID {
			merged[i] = s.current
			replaced = true
			break
		}
	}
	if !replaced {
		merged = append([]*model.Session{s.current}, merged...)
	}
	s.sessions = merged
	s.mu.Unlock()
	s.notifyChange()
	return nil
}

// =============================================================================
// INTERNALS
// =============================================================================

// removeMessage drops a message from the transcript by ID. Caller holds
// s.mu.
func (s *Store) removeMessage(id string) {
	for i, m := range s.messages {
		if m.ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return
		}
	}
}

// snapshotLocked copies the current session and transcript for use
// outside the lock. Caller holds s.mu.
func (s *Store) snapshotLocked() (model.Session, []*model.Message) {
	return *s.current, append([]*model.Message(nil), s.messages...)
}

// flush writes a session and its transcript to local persistence.
// Failures are logged; local storage is a mirror, not a gate.
func (s *Store) flush(sess model.Session, msgs []*model.Message) {
	if err := s.local.SaveMessages(sess.ID, msgs); err != nil {
		log.Printf("store: saving transcript %s: %v", sess.ID, err)
	}
	if err := s.local.SaveMeta(&sess); err != nil {
		log.Printf("store: saving session meta %s: %v", sess.ID, err)
	}
}

func (s *Store) notifyChange() {
	s.mu.Lock()
	fn := s.opts.OnChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *Store) notify(level NotifyLevel, message string) {
	s.mu.Lock()
	fn := s.opts.OnNotify
	s.mu.Unlock()
	if fn != nil {
		fn(level, message)
		return
	}
	log.Printf("store: [%s] %s", level, message)
}
