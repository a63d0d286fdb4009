// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"testing/iotest"
	"time"
)

// collector records handler callbacks in order and signals completion.
type collector struct {
	mu       sync.Mutex
	events   []string
	done     chan struct{}
	doneOnce sync.Once
}

func newCollector() *collector {
	return &collector{done: make(chan struct{})}
}

func (c *collector) handler() StreamHandler {
	return StreamHandler{
		OnChunk: func(text string) { c.record("chunk:" + text) },
		OnTool:  func(name string) { c.record("tool:" + name) },
		OnDone: func(tools []string) {
			c.record("done:" + strings.Join(tools, ","))
			c.doneOnce.Do(func() { close(c.done) })
		},
		OnError: func(err error) {
			c.record("error:" + err.Error())
			c.doneOnce.Do(func() { close(c.done) })
		},
	}
}

func (c *collector) record(ev string) {
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
}

func (c *collector) wait(t *testing.T) []string {
	t.Helper()
	select {
	case <-c.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for stream completion")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...)
}

func (c *collector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...)
}

func streamTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return testClient(t, srv.URL)
}

func TestOpenStreamDeliversChunksInOrder(t *testing.T) {
	client := streamTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `data: {"chunk": "Hello"}`+"\n")
		io.WriteString(w, `data: {"chunk": ", world"}`+"\n")
		io.WriteString(w, `data: {"done": true, "tools_used": ["search"]}`+"\n")
	})

	c := newCollector()
	cancel, err := client.OpenStream(t.Context(), ChatRequest{Message: "hi", SessionID: "s1"}, c.handler())
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	defer cancel()

	events := c.wait(t)
	want := []string{"chunk:Hello", "chunk:, world", "done:search"}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, events[i], want[i])
		}
	}
}

func TestOpenStreamSkipsMalformedFrames(t *testing.T) {
	client := streamTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `data: {"chunk": "a"}`+"\n")
		io.WriteString(w, "data: {not json}\n")
		io.WriteString(w, ": comment line\n")
		io.WriteString(w, "data:\n")
		io.WriteString(w, `data: {"chunk": "b"}`+"\n")
		io.WriteString(w, `data: {"done": true}`+"\n")
	})

	c := newCollector()
	cancel, err := client.OpenStream(t.Context(), ChatRequest{}, c.handler())
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	defer cancel()

	events := c.wait(t)
	want := []string{"chunk:a", "chunk:b", "done:"}
	if fmt.Sprint(events) != fmt.Sprint(want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestOpenStreamErrorFrameIsTerminal(t *testing.T) {
	client := streamTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `data: {"chunk": "partial"}`+"\n")
		io.WriteString(w, `data: {"error": "model overloaded"}`+"\n")
		// Anything after the terminal frame must be ignored.
		io.WriteString(w, `data: {"chunk": "late"}`+"\n")
		io.WriteString(w, `data: {"done": true}`+"\n")
	})

	c := newCollector()
	cancel, err := client.OpenStream(t.Context(), ChatRequest{}, c.handler())
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	defer cancel()

	events := c.wait(t)
	// Give any stray deliveries a moment to land before asserting.
	time.Sleep(50 * time.Millisecond)
	events = c.snapshot()

	want := []string{"chunk:partial", "error:ragline api error [server]: model overloaded"}
	if fmt.Sprint(events) != fmt.Sprint(want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestOpenStreamEOFWithoutTerminalFrameCompletes(t *testing.T) {
	client := streamTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `data: {"chunk": "cut off"}`+"\n")
		// Connection closes with no done frame.
	})

	c := newCollector()
	cancel, err := client.OpenStream(t.Context(), ChatRequest{}, c.handler())
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	defer cancel()

	events := c.wait(t)
	want := []string{"chunk:cut off", "done:"}
	if fmt.Sprint(events) != fmt.Sprint(want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestOpenStreamFinalUnterminatedLine(t *testing.T) {
	client := streamTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `data: {"chunk": "a"}`+"\n")
		// Final frame lacks the trailing newline.
		io.WriteString(w, `data: {"done": true, "tools_used": ["kb"]}`)
	})

	c := newCollector()
	cancel, err := client.OpenStream(t.Context(), ChatRequest{}, c.handler())
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	defer cancel()

	events := c.wait(t)
	want := []string{"chunk:a", "done:kb"}
	if fmt.Sprint(events) != fmt.Sprint(want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestOpenStreamToolFrames(t *testing.T) {
	client := streamTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `data: {"tool": "search"}`+"\n")
		io.WriteString(w, `data: {"chunk": "found it"}`+"\n")
		io.WriteString(w, `data: {"done": true}`+"\n")
	})

	c := newCollector()
	cancel, err := client.OpenStream(t.Context(), ChatRequest{}, c.handler())
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	defer cancel()

	events := c.wait(t)
	// With no tools_used on the done frame, the observed tool frames stand in.
	want := []string{"tool:search", "chunk:found it", "done:search"}
	if fmt.Sprint(events) != fmt.Sprint(want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestOpenStreamErrorResponseStatus(t *testing.T) {
	client := streamTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `{"detail": "slow down"}`)
	})

	c := newCollector()
	cancel, err := client.OpenStream(t.Context(), ChatRequest{}, c.handler())
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	defer cancel()

	events := c.wait(t)
	if len(events) != 1 || !strings.HasPrefix(events[0], "error:") {
		t.Fatalf("events = %v, want single error", events)
	}
	if !strings.Contains(events[0], "slow down") {
		t.Errorf("error should carry the probed message, got %q", events[0])
	}
}

func TestOpenStreamCancelSuppressesCallbacks(t *testing.T) {
	firstChunk := make(chan struct{})
	client := streamTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		io.WriteString(w, `data: {"chunk": "one"}`+"\n")
		flusher.Flush()
		<-firstChunk
		// Keep writing after cancellation; nothing may reach the handler.
		for i := 0; i < 5; i++ {
			if _, err := io.WriteString(w, `data: {"chunk": "late"}`+"\n"); err != nil {
				return
			}
			flusher.Flush()
		}
		io.WriteString(w, `data: {"done": true}`+"\n")
	})

	c := newCollector()
	got := make(chan struct{})
	h := c.handler()
	baseChunk := h.OnChunk
	var once sync.Once
	h.OnChunk = func(text string) {
		baseChunk(text)
		once.Do(func() { close(got) })
	}

	cancel, err := client.OpenStream(t.Context(), ChatRequest{}, h)
	if err != nil {
		t.Fatalf("OpenStream: %v", err)
	}

	<-got
	cancel()
	cancel() // idempotent
	close(firstChunk)

	time.Sleep(100 * time.Millisecond)
	events := c.snapshot()
	want := []string{"chunk:one"}
	if fmt.Sprint(events) != fmt.Sprint(want) {
		t.Errorf("events after cancel = %v, want %v (no error, no done, no late chunks)", events, want)
	}
}

func TestLineDecoderSplitInvariance(t *testing.T) {
	input := "data: {\"chunk\": \"a\"}\n" +
		"data: {\"chunk\": \"b\"}\r\n" +
		"event: noise\n" +
		"data: {\"done\": true}"

	// OneByteReader forces the worst possible read fragmentation.
	d := NewLineDecoder(iotest.OneByteReader(strings.NewReader(input)))

	var payloads []string
	for {
		p, err := d.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		payloads = append(payloads, string(p))
	}

	want := []string{`{"chunk": "a"}`, `{"chunk": "b"}`, `{"done": true}`}
	if fmt.Sprint(payloads) != fmt.Sprint(want) {
		t.Errorf("payloads = %v, want %v", payloads, want)
	}
}

func TestLineDecoderSkipsEmptyPayloads(t *testing.T) {
	input := "data:\ndata:   \n\ndata: x\n"
	d := NewLineDecoder(strings.NewReader(input))

	p, err := d.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if string(p) != "x" {
		t.Errorf("payload = %q, want %q", p, "x")
	}
	if _, err := d.Next(); err != io.EOF {
		t.Errorf("expected EOF, got %v", err)
	}
}
