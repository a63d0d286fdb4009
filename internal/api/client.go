// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api implements the HTTP client for the Ragline backend.
//
// The backend exposes a REST surface for auth, sessions, and admin
// configuration, plus a streaming chat endpoint that frames JSON chunks as
// "data:" lines. Every non-2xx response is normalized into an APIError at
// the response boundary; a 401 additionally clears the stored auth token so
// the UI can fall back to a logged-out state.
package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ragline/ragline-tui/internal/auth"
	"github.com/ragline/ragline-tui/internal/config"
	"github.com/ragline/ragline-tui/internal/model"
)

const userAgent = "ragline/0.1.0"

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to the Ragline backend. It holds two HTTP clients: a pooled
// one with a request timeout for plain calls, and one without a timeout for
// streaming, where only the response headers are bounded.
type Client struct {
	baseURL      string
	tokens       *auth.TokenStore
	guestEmail   string
	maxBodyBytes int64

	httpClient   *http.Client
	streamClient *http.Client
}

// NewClient creates a Client for the given base URL. The base URL normally
// comes from the runtime config resolver, not straight from the config file.
func NewClient(baseURL string, cfg *config.Config, tokens *auth.TokenStore) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}

	streamTransport := transport.Clone()
	// Bound how long the server may take to start a stream. The body itself
	// is unbounded and controlled via context.
	streamTransport.ResponseHeaderTimeout = cfg.StreamHeaderTimeout()

	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		tokens:       tokens,
		guestEmail:   cfg.Chat.GuestEmail,
		maxBodyBytes: cfg.Server.MaxResponseBytes,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeout(),
		},
		streamClient: &http.Client{
			Transport: streamTransport,
			// No timeout for streaming - controlled via context
		},
	}
}

// BaseURL returns the backend base URL the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// setHeaders sets the common headers, attaching the bearer token when present.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if token := c.tokens.Get(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// readBody reads a response body with a size limit.
func (c *Client) readBody(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if int64(len(body)) == c.maxBodyBytes {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", c.maxBodyBytes)
	}
	return body, nil
}

// handleFailure normalizes a non-2xx response and runs the 401 hook.
func (c *Client) handleFailure(statusCode int, body []byte) error {
	apiErr := newAPIError(statusCode, body)
	if apiErr.Kind == KindAuthRequired {
		// The backend rejected the token; forget it so the next request is
		// cleanly unauthenticated.
		if err := c.tokens.Clear(); err != nil {
			log.Printf("failed to clear rejected token: %v", err)
		}
	}
	return apiErr
}

// doJSON performs a request with an optional JSON body, decoding the JSON
// response into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path string, reqBody, out interface{}) error {
	var bodyReader io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return NetworkError(err)
	}
	defer resp.Body.Close()
	log.Printf("API %s %s: %d (%v)", method, path, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	body, err := c.readBody(resp)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.handleFailure(resp.StatusCode, body)
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// =============================================================================
// AUTH ENDPOINTS
// =============================================================================

// LoginResponse is the backend's reply to login and register.
type LoginResponse struct {
	Token string     `json:"access_token"`
	User  model.User `json:"user"`
}

// Login authenticates with the backend and stores the issued token in the
// tier the policy selects for the user's role.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	req := map[string]string{"email": email, "password": password}
	var resp LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", req, &resp); err != nil {
		return nil, err
	}
	if err := c.tokens.Set(resp.Token, resp.User.Role, resp.User.Email); err != nil {
		return nil, fmt.Errorf("login succeeded but storing token failed: %w", err)
	}
	return &resp, nil
}

// Register creates an account and logs in with it.
func (c *Client) Register(ctx context.Context, email, password, name string) (*LoginResponse, error) {
	req := map[string]string{"email": email, "password": password, "name": name}
	var resp LoginResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/register", req, &resp); err != nil {
		return nil, err
	}
	if err := c.tokens.Set(resp.Token, resp.User.Role, resp.User.Email); err != nil {
		return nil, fmt.Errorf("registration succeeded but storing token failed: %w", err)
	}
	return &resp, nil
}

// Logout invalidates the token server-side and clears it locally. The local
// clear happens regardless of the server's answer.
func (c *Client) Logout(ctx context.Context) error {
	err := c.doJSON(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	if clearErr := c.tokens.Clear(); clearErr != nil && err == nil {
		err = clearErr
	}
	return err
}

// Me returns the profile for the current token.
func (c *Client) Me(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// IsAuthenticated reports whether a token is available locally.
func (c *Client) IsAuthenticated() bool {
	return c.tokens.HasToken()
}

// =============================================================================
// SESSION ENDPOINTS
// =============================================================================

// SessionInfo is the backend's view of a chat session.
type SessionInfo struct {
	ID           string    `json:"session_id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// SessionMessage is one message of a backend-stored transcript.
type SessionMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	ToolsUsed []string  `json:"tools_used,omitempty"`
}

type sessionsResponse struct {
	Sessions []SessionInfo `json:"sessions"`
}

type sessionMessagesResponse struct {
	Messages []SessionMessage `json:"messages"`
}

// ListSessions returns the sessions the backend knows for the current user.
func (c *Client) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	var resp sessionsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/sessions", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// SessionMessages returns the backend transcript for a session.
func (c *Client) SessionMessages(ctx context.Context, sessionID string) ([]SessionMessage, error) {
	var resp sessionMessagesResponse
	path := "/api/session/" + url.PathEscape(sessionID)
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// DeleteSession removes a session server-side.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	path := "/api/session/" + url.PathEscape(sessionID)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// =============================================================================
// CHAT (NON-STREAMING)
// =============================================================================

// ChatResponse is the non-streaming chat reply.
type ChatResponse struct {
	Response  string   `json:"response"`
	ToolsUsed []string `json:"tools_used,omitempty"`
}

// Chat sends a message and waits for the complete reply. Used by the one-shot
// CLI path; the TUI streams instead.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	c.fillGuestEmail(&req)
	var resp ChatResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/chat", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// fillGuestEmail attaches the configured guest identity to unauthenticated
// requests that don't carry one.
func (c *Client) fillGuestEmail(req *ChatRequest) {
	if req.GuestEmail == "" && !c.tokens.HasToken() {
		req.GuestEmail = c.guestEmail
	}
}

// =============================================================================
// HEALTH / DISCOVERY
// =============================================================================

// HealthStatus reports backend component health.
type HealthStatus struct {
	Status     string            `json:"status"`
	Version    string            `json:"version,omitempty"`
	Components map[string]string `json:"components,omitempty"`
}

// Healthy reports whether the backend considers itself up.
func (h *HealthStatus) Healthy() bool {
	return strings.EqualFold(h.Status, "ok") || strings.EqualFold(h.Status, "healthy")
}

// Health checks backend health.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	if err := c.doJSON(ctx, http.MethodGet, "/api/health", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// MCPServer describes one tool server the backend can call.
type MCPServer struct {
	Name      string   `json:"name"`
	URL       string   `json:"url"`
	Enabled   bool     `json:"enabled"`
	Tools     []string `json:"tools,omitempty"`
	Connected bool     `json:"connected"`
}

type mcpServersResponse struct {
	Servers []MCPServer `json:"servers"`
}

// ListMCPServers returns the tool servers configured on the backend.
func (c *Client) ListMCPServers(ctx context.Context) ([]MCPServer, error) {
	var resp mcpServersResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/mcp/servers", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Servers, nil
}
