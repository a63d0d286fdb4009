// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"net/url"
)

// =============================================================================
// ADMIN: LLM CONFIGURATION
// =============================================================================

// LLMConfig is the backend's generation settings. Admin only.
type LLMConfig struct {
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// LLMConfig returns the backend's current generation settings.
func (c *Client) LLMConfig(ctx context.Context) (*LLMConfig, error) {
	var cfg LLMConfig
	if err := c.doJSON(ctx, http.MethodGet, "/api/admin/llm", nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// UpdateLLMConfig replaces the backend's generation settings.
func (c *Client) UpdateLLMConfig(ctx context.Context, cfg LLMConfig) error {
	return c.doJSON(ctx, http.MethodPut, "/api/admin/llm", cfg, nil)
}

// =============================================================================
// ADMIN: EMBEDDING CONFIGURATION
// =============================================================================

// EmbeddingConfig is the backend's embedding settings. Admin only.
type EmbeddingConfig struct {
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
}

// EmbeddingConfig returns the backend's current embedding settings.
func (c *Client) EmbeddingConfig(ctx context.Context) (*EmbeddingConfig, error) {
	var cfg EmbeddingConfig
	if err := c.doJSON(ctx, http.MethodGet, "/api/admin/embedding", nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// UpdateEmbeddingConfig replaces the backend's embedding settings. Changing
// the model usually requires re-indexing server-side; the backend reports
// that through a 409.
func (c *Client) UpdateEmbeddingConfig(ctx context.Context, cfg EmbeddingConfig) error {
	return c.doJSON(ctx, http.MethodPut, "/api/admin/embedding", cfg, nil)
}

// =============================================================================
// ADMIN: MCP SERVERS
// =============================================================================

// AddMCPServer registers a tool server with the backend.
func (c *Client) AddMCPServer(ctx context.Context, server MCPServer) error {
	return c.doJSON(ctx, http.MethodPost, "/api/admin/mcp/servers", server, nil)
}

// RemoveMCPServer removes a tool server by name.
func (c *Client) RemoveMCPServer(ctx context.Context, name string) error {
	path := "/api/admin/mcp/servers/" + url.PathEscape(name)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// SetMCPServerEnabled toggles a tool server without removing it.
func (c *Client) SetMCPServerEnabled(ctx context.Context, name string, enabled bool) error {
	path := "/api/admin/mcp/servers/" + url.PathEscape(name)
	body := map[string]bool{"enabled": enabled}
	return c.doJSON(ctx, http.MethodPatch, path, body, nil)
}
