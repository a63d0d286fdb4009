// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierPolicyDetermine(t *testing.T) {
	tests := []struct {
		name    string
		policy  TierPolicy
		role    string
		want    Tier
	}{
		{"guest never persists", TierPolicy{PersistToken: true}, "guest", TierSession},
		{"empty role never persists", TierPolicy{PersistToken: true}, "", TierSession},
		{"user persists when configured", TierPolicy{PersistToken: true}, "user", TierPersistent},
		{"user stays in memory when persistence off", TierPolicy{PersistToken: false}, "user", TierSession},
		{"admin never persists", TierPolicy{PersistToken: true}, "admin", TierSession},
		{"superadmin never persists", TierPolicy{PersistToken: true}, "superadmin", TierSession},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.Determine(tt.role))
		})
	}
}

func TestTokenStoreSessionTier(t *testing.T) {
	dir := t.TempDir()
	ts := NewTokenStore(dir, TierPolicy{PersistToken: false})

	require.NoError(t, ts.Set("tok-123", "user", "user@example.com"))
	assert.Equal(t, "tok-123", ts.Get())
	assert.Equal(t, "user", ts.Role())
	assert.Equal(t, TierSession, ts.Tier())

	// Nothing written to disk in the session tier.
	_, err := os.Stat(filepath.Join(dir, "token.sealed"))
	assert.True(t, os.IsNotExist(err))

	// A new store sees nothing.
	ts2 := NewTokenStore(dir, TierPolicy{PersistToken: false})
	assert.False(t, ts2.HasToken())
}

func TestTokenStorePersistentTier(t *testing.T) {
	dir := t.TempDir()
	ts := NewTokenStore(dir, TierPolicy{PersistToken: true})

	require.NoError(t, ts.Set("tok-456", "user", "dev@example.com"))
	assert.Equal(t, TierPersistent, ts.Tier())

	// Token file exists with restricted permissions.
	info, err := os.Stat(filepath.Join(dir, "token.sealed"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// Token is not stored in plaintext.
	data, err := os.ReadFile(filepath.Join(dir, "token.sealed"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "tok-456")

	// A new store restores the login.
	ts2 := NewTokenStore(dir, TierPolicy{PersistToken: true})
	assert.Equal(t, "tok-456", ts2.Get())
	assert.Equal(t, "user", ts2.Role())
	assert.Equal(t, "dev@example.com", ts2.Email())
	assert.Equal(t, TierPersistent, ts2.Tier())
}

func TestTokenStoreClear(t *testing.T) {
	dir := t.TempDir()
	ts := NewTokenStore(dir, TierPolicy{PersistToken: true})

	require.NoError(t, ts.Set("tok-789", "user", ""))
	require.NoError(t, ts.Clear())

	assert.False(t, ts.HasToken())
	assert.Equal(t, "", ts.Role())

	_, err := os.Stat(filepath.Join(dir, "token.sealed"))
	assert.True(t, os.IsNotExist(err))

	// Cleared logins do not come back.
	ts2 := NewTokenStore(dir, TierPolicy{PersistToken: true})
	assert.False(t, ts2.HasToken())
}

func TestTokenStoreGuestLoginDropsPersistedToken(t *testing.T) {
	dir := t.TempDir()
	ts := NewTokenStore(dir, TierPolicy{PersistToken: true})

	require.NoError(t, ts.Set("tok-user", "user", ""))
	require.NoError(t, ts.Set("tok-guest", "guest", "guest@example.com"))

	assert.Equal(t, TierSession, ts.Tier())
	_, err := os.Stat(filepath.Join(dir, "token.sealed"))
	assert.True(t, os.IsNotExist(err), "persisted copy of the previous login should be removed")
}

func TestTokenStoreAdminNeverWrittenToDisk(t *testing.T) {
	dir := t.TempDir()
	ts := NewTokenStore(dir, TierPolicy{PersistToken: true})

	require.NoError(t, ts.Set("tok-root", "admin", "root@example.com"))
	assert.Equal(t, TierSession, ts.Tier())

	_, err := os.Stat(filepath.Join(dir, "token.sealed"))
	assert.True(t, os.IsNotExist(err), "elevated logins must stay in memory")

	// A restart forgets the admin login entirely.
	ts2 := NewTokenStore(dir, TierPolicy{PersistToken: true})
	assert.False(t, ts2.HasToken())
}

func TestTokenStoreCorruptFileTreatedAsLoggedOut(t *testing.T) {
	dir := t.TempDir()
	ts := NewTokenStore(dir, TierPolicy{PersistToken: true})
	require.NoError(t, ts.Set("tok-abc", "user", ""))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "token.sealed"), []byte("garbage"), 0600))

	ts2 := NewTokenStore(dir, TierPolicy{PersistToken: true})
	assert.False(t, ts2.HasToken())
}

func TestSealerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := NewSealer(filepath.Join(dir, "token.key"))

	sealed, err := s.Seal([]byte("secret value"))
	require.NoError(t, err)
	assert.Contains(t, sealed, SealedPrefix)

	plaintext, err := s.Unseal(sealed)
	require.NoError(t, err)
	assert.Equal(t, "secret value", string(plaintext))
}

func TestSealerRejectsTamperedCiphertext(t *testing.T) {
	dir := t.TempDir()
	s := NewSealer(filepath.Join(dir, "token.key"))

	sealed, err := s.Seal([]byte("secret"))
	require.NoError(t, err)

	// Flip a character in the base64 payload.
	tampered := []byte(sealed)
	last := len(tampered) - 2
	if tampered[last] == 'A' {
		tampered[last] = 'B'
	} else {
		tampered[last] = 'A'
	}

	_, err = s.Unseal(string(tampered))
	assert.Error(t, err)
}

func TestSealerRejectsMalformedInput(t *testing.T) {
	dir := t.TempDir()
	s := NewSealer(filepath.Join(dir, "token.key"))

	for _, input := range []string{"", "SEALED:", "not sealed at all", "SEALED:!!!"} {
		_, err := s.Unseal(input)
		assert.ErrorIs(t, err, ErrInvalidCiphertext, "input %q", input)
	}
}
