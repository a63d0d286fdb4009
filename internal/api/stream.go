// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
)

// =============================================================================
// WIRE TYPES
// =============================================================================

// ChatRequest is the body of both chat endpoints.
type ChatRequest struct {
	Message      string `json:"message"`
	SessionID    string `json:"session_id"`
	Mode         string `json:"mode"`
	CollectionID string `json:"collection_id,omitempty"`
	UseReAct     bool   `json:"use_react,omitempty"`
	GuestEmail   string `json:"guest_email,omitempty"`
}

// StreamChunk is one frame of the streaming chat response. Exactly one
// terminal frame arrives per stream: either Done is true or Error is set.
type StreamChunk struct {
	// Chunk is a fragment of assistant text.
	Chunk string `json:"chunk,omitempty"`
	// Tool names a retrieval tool the backend started running.
	Tool string `json:"tool,omitempty"`
	// Done marks the terminal frame of a successful stream.
	Done bool `json:"done,omitempty"`
	// ToolsUsed lists the tools the reply used, sent on the Done frame.
	ToolsUsed []string `json:"tools_used,omitempty"`
	// Error carries an in-stream failure. Terminal.
	Error string `json:"error,omitempty"`
}

// IsTerminal reports whether this frame ends the stream.
func (c *StreamChunk) IsTerminal() bool {
	return c.Done || c.Error != ""
}

// StreamHandler receives stream events. Callbacks are invoked from a single
// goroutine in arrival order; exactly one of OnDone or OnError fires per
// stream, and nothing fires after cancellation.
type StreamHandler struct {
	// OnChunk receives each text fragment.
	OnChunk func(text string)
	// OnTool is called when the backend reports starting a tool. Optional.
	OnTool func(name string)
	// OnDone is called once on successful completion with the tools the
	// reply used. Also fires when the stream ends at EOF without a terminal
	// frame.
	OnDone func(toolsUsed []string)
	// OnError is called once for transport failures, error responses, and
	// in-stream error frames. Never called for cancellation.
	OnError func(err error)
}

// =============================================================================
// LINE DECODER
// =============================================================================

// LineDecoder reads "data: <json>" framed payloads from a stream. It is
// insensitive to how the transport splits the bytes: frames are delimited by
// newlines, not by reads. A final line without a trailing newline is still
// delivered before EOF.
type LineDecoder struct {
	reader *bufio.Reader
}

// NewLineDecoder creates a decoder over r.
func NewLineDecoder(r io.Reader) *LineDecoder {
	return &LineDecoder{reader: bufio.NewReader(r)}
}

// Next returns the next non-empty data payload. Lines without the "data:"
// prefix and data lines with empty payloads are skipped. Returns io.EOF at
// end of stream.
func (d *LineDecoder) Next() ([]byte, error) {
	for {
		line, err := d.reader.ReadBytes('\n')
		if len(line) == 0 && err != nil {
			return nil, err
		}

		payload, ok := parseDataLine(line)
		if ok && len(payload) > 0 {
			return payload, nil
		}

		if err != nil {
			return nil, err
		}
	}
}

// parseDataLine extracts the payload from one "data:" line.
func parseDataLine(line []byte) ([]byte, bool) {
	line = bytes.TrimRight(line, "\r\n")
	if !bytes.HasPrefix(line, []byte("data:")) {
		return nil, false
	}
	return bytes.TrimSpace(line[5:]), true
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// OpenStream starts a streaming chat request and returns a cancel handle
// immediately; the response is read on a background goroutine and delivered
// through the handler. The returned error covers only request construction -
// transport and response failures arrive via OnError.
//
// The cancel handle is idempotent. It aborts the transport, suppresses every
// callback not yet delivered, and never surfaces as an OnError.
func (c *Client) OpenStream(ctx context.Context, req ChatRequest, h StreamHandler) (func(), error) {
	c.fillGuestEmail(&req)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancelCtx := context.WithCancel(ctx)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat/stream", bytes.NewReader(body))
	if err != nil {
		cancelCtx()
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq)
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	st := &stream{
		client:    c,
		handler:   h,
		cancelCtx: cancelCtx,
	}
	go st.run(httpReq)

	return st.Cancel, nil
}

// stream is one in-flight streaming request. The mutex is the delivery gate:
// callbacks run under it, and both cancellation and terminal delivery flip
// flags under it, so a delivery never starts after either.
type stream struct {
	client    *Client
	handler   StreamHandler
	cancelCtx context.CancelFunc

	cancelOnce sync.Once
	mu         sync.Mutex
	canceled   bool
	finished   bool
}

// Cancel aborts the stream. Safe to call multiple times and after completion.
func (s *stream) Cancel() {
	s.cancelOnce.Do(func() {
		s.mu.Lock()
		s.canceled = true
		s.mu.Unlock()
		s.cancelCtx()
	})
}

func (s *stream) deliverChunk(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canceled || s.finished {
		return
	}
	if s.handler.OnChunk != nil {
		s.handler.OnChunk(text)
	}
}

func (s *stream) deliverTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canceled || s.finished {
		return
	}
	if s.handler.OnTool != nil {
		s.handler.OnTool(name)
	}
}

func (s *stream) deliverDone(toolsUsed []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canceled || s.finished {
		return
	}
	s.finished = true
	if s.handler.OnDone != nil {
		s.handler.OnDone(toolsUsed)
	}
}

func (s *stream) deliverError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.canceled || s.finished {
		return
	}
	s.finished = true
	if s.handler.OnError != nil {
		s.handler.OnError(err)
	}
}

// run executes the request and pumps frames to the handler.
func (s *stream) run(req *http.Request) {
	defer s.cancelCtx()

	// A cancel through the handle sets the canceled flag before tearing down
	// the transport, so the error deliveries below become no-ops for it.
	resp, err := s.client.streamClient.Do(req)
	if err != nil {
		s.deliverError(NetworkError(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, s.client.maxBodyBytes))
		s.deliverError(s.client.handleFailure(resp.StatusCode, body))
		return
	}

	decoder := NewLineDecoder(resp.Body)
	var toolsUsed []string

	for {
		payload, err := decoder.Next()
		if err == io.EOF {
			// Stream ended without a terminal frame; treat as done so the
			// caller is never left streaming forever.
			s.deliverDone(toolsUsed)
			return
		}
		if err != nil {
			s.deliverError(NetworkError(err))
			return
		}

		var chunk StreamChunk
		if err := json.Unmarshal(payload, &chunk); err != nil {
			log.Printf("stream: skipping malformed frame: %v", err)
			continue
		}

		if chunk.Error != "" {
			s.deliverError(&APIError{Kind: KindServer, Message: chunk.Error})
			return
		}
		if chunk.Tool != "" {
			toolsUsed = appendUnique(toolsUsed, chunk.Tool)
			s.deliverTool(chunk.Tool)
		}
		if chunk.Chunk != "" {
			s.deliverChunk(chunk.Chunk)
		}
		if chunk.Done {
			// The Done frame's tool list is authoritative when present.
			if chunk.ToolsUsed != nil {
				toolsUsed = chunk.ToolsUsed
			}
			s.deliverDone(toolsUsed)
			return
		}
	}
}

func appendUnique(list []string, item string) []string {
	for _, v := range list {
		if v == item {
			return list
		}
	}
	return append(list, item)
}
