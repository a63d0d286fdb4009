// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth stores the Ragline backend auth token across two tiers: an
// in-memory tier that lives for the process, and a persistent tier that seals
// the token into a 0600 file so logins survive restarts. Which tier a login
// lands in is an explicit policy decision, not an accident of call sites.
package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ragline/ragline-tui/internal/util"
)

// =============================================================================
// STORAGE TIERS
// =============================================================================

// Tier identifies where a token is stored.
type Tier int

const (
	// TierSession keeps the token in process memory only.
	TierSession Tier = iota
	// TierPersistent seals the token into a file under the config directory.
	TierPersistent
)

func (t Tier) String() string {
	switch t {
	case TierSession:
		return "session"
	case TierPersistent:
		return "persistent"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// TierPolicy decides which tier a token belongs in. Guest logins never
// persist, elevated roles never persist, and everyone else persists only
// when configured to.
type TierPolicy struct {
	// PersistToken mirrors the auth.persist_token config setting.
	PersistToken bool
}

// Determine returns the tier for a token issued to the given role.
func (p TierPolicy) Determine(role string) Tier {
	if role == "guest" || role == "" {
		return TierSession
	}
	if role == "admin" || role == "superadmin" {
		return TierSession
	}
	if !p.PersistToken {
		return TierSession
	}
	return TierPersistent
}

// =============================================================================
// TOKEN STORE
// =============================================================================

// Credentials is what the store holds for a logged-in user.
type Credentials struct {
	Token    string    `json:"token"`
	Role     string    `json:"role"`
	Email    string    `json:"email,omitempty"`
	IssuedAt time.Time `json:"issued_at"`
}

// TokenStore manages the auth token across both tiers. All methods are safe
// for concurrent use.
type TokenStore struct {
	mu     sync.RWMutex
	policy TierPolicy
	sealer *Sealer
	path   string

	// session tier
	creds *Credentials
	tier  Tier
}

// NewTokenStore creates a token store rooted at dir (normally ~/.ragline).
// Any previously persisted token is loaded eagerly so the first Get reflects
// a prior login.
func NewTokenStore(dir string, policy TierPolicy) *TokenStore {
	ts := &TokenStore{
		policy: policy,
		sealer: NewSealer(filepath.Join(dir, "token.key")),
		path:   filepath.Join(dir, "token.sealed"),
	}
	ts.loadPersisted()
	return ts
}

// loadPersisted restores credentials from the persistent tier if present.
// A corrupt or unreadable file is treated as no token.
func (ts *TokenStore) loadPersisted() {
	data, err := os.ReadFile(ts.path)
	if err != nil {
		return
	}
	plaintext, err := ts.sealer.Unseal(string(data))
	if err != nil {
		return
	}
	var creds Credentials
	if err := json.Unmarshal(plaintext, &creds); err != nil {
		return
	}
	ZeroBytes(plaintext)

	ts.mu.Lock()
	ts.creds = &creds
	ts.tier = TierPersistent
	ts.mu.Unlock()
}

// Set stores credentials in the tier the policy selects for the role.
// Switching tiers clears the other tier so at most one copy exists.
func (ts *TokenStore) Set(token, role, email string) error {
	creds := &Credentials{
		Token:    token,
		Role:     role,
		Email:    email,
		IssuedAt: time.Now().UTC(),
	}
	tier := ts.policy.Determine(role)

	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.creds = creds
	ts.tier = tier

	if tier == TierSession {
		// Drop any stale persisted copy from a previous login.
		ts.removePersistedLocked()
		return nil
	}

	plaintext, err := json.Marshal(creds)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	sealed, err := ts.sealer.Seal(plaintext)
	ZeroBytes(plaintext)
	if err != nil {
		return fmt.Errorf("failed to seal token: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(ts.path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	if err := util.AtomicWriteFile(ts.path, []byte(sealed), 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// Get returns the current token, or empty when logged out.
func (ts *TokenStore) Get() string {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	if ts.creds == nil {
		return ""
	}
	return ts.creds.Token
}

// Role returns the role the current token was issued for.
func (ts *TokenStore) Role() string {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	if ts.creds == nil {
		return ""
	}
	return ts.creds.Role
}

// Email returns the email attached to the current token.
func (ts *TokenStore) Email() string {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	if ts.creds == nil {
		return ""
	}
	return ts.creds.Email
}

// Tier returns the tier the current token resides in.
func (ts *TokenStore) Tier() Tier {
	ts.mu.RLock()
	defer ts.mu.RUnlock()
	return ts.tier
}

// HasToken reports whether a token is stored in either tier.
func (ts *TokenStore) HasToken() bool {
	return ts.Get() != ""
}

// Clear removes the token from both tiers. Called on logout and whenever the
// backend rejects the token with 401.
func (ts *TokenStore) Clear() error {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	ts.creds = nil
	ts.tier = TierSession
	return ts.removePersistedLocked()
}

func (ts *TokenStore) removePersistedLocked() error {
	if err := os.Remove(ts.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}
