// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"

	"github.com/ragline/ragline-tui/internal/api"
	"github.com/ragline/ragline-tui/internal/model"
)

// =============================================================================
// AUTH AND SETTINGS SNAPSHOTS
// =============================================================================
//
// The loads below are independent and failure-isolated: each refreshes
// one snapshot, and a failure leaves the previous value in place without
// touching any other snapshot.

// IsLoading reports whether a historical transcript fetch is in flight.
func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// User returns the authenticated identity, or nil before RefreshUser
// succeeds (or when running as a guest).
func (s *Store) User() *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// Health returns the last backend health snapshot, or nil before the
// first successful LoadHealth.
func (s *Store) Health() *api.HealthStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.health
}

// LLMConfig returns the last generation-settings snapshot, or nil.
func (s *Store) LLMConfig() *api.LLMConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.llmConfig
}

// MCPServers returns the last tool-server snapshot.
func (s *Store) MCPServers() []api.MCPServer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]api.MCPServer(nil), s.mcpServers...)
}

// RefreshUser fetches the authenticated identity. A guest store clears
// the snapshot and returns nil.
func (s *Store) RefreshUser(ctx context.Context) error {
	if !s.backend.IsAuthenticated() {
		s.mu.Lock()
		s.user = nil
		s.mu.Unlock()
		return nil
	}

	user, err := s.backend.Me(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.user = user
	s.mu.Unlock()
	s.notifyChange()
	return nil
}

// LoadHealth refreshes the backend health snapshot.
func (s *Store) LoadHealth(ctx context.Context) error {
	health, err := s.backend.Health(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.health = health
	s.mu.Unlock()
	s.notifyChange()
	return nil
}

// LoadLLMConfig refreshes the generation-settings snapshot.
func (s *Store) LoadLLMConfig(ctx context.Context) error {
	cfg, err := s.backend.LLMConfig(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.llmConfig = cfg
	s.mu.Unlock()
	s.notifyChange()
	return nil
}

// LoadMCPServers refreshes the tool-server snapshot.
func (s *Store) LoadMCPServers(ctx context.Context) error {
	servers, err := s.backend.ListMCPServers(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.mcpServers = servers
	s.mu.Unlock()
	s.notifyChange()
	return nil
}
