// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/ragline/ragline-tui/internal/util"
)

// =============================================================================
// TOKEN SEALING
// =============================================================================

// SealedPrefix marks a value as sealed (format: SEALED:base64(nonce|ciphertext|tag))
const SealedPrefix = "SEALED:"

// KeySize is the size of the ChaCha20-Poly1305 key (32 bytes / 256 bits)
const KeySize = chacha20poly1305.KeySize

var (
	// ErrInvalidCiphertext indicates the sealed format is invalid
	ErrInvalidCiphertext = errors.New("invalid sealed token format")
	// ErrUnsealFailed indicates unsealing failed (wrong key or tampered data)
	ErrUnsealFailed = errors.New("unseal failed: authentication tag mismatch")
)

// ZeroBytes zeros sensitive byte slices to prevent memory disclosure.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Sealer encrypts tokens at rest with XChaCha20-Poly1305. The key lives in a
// 0600 file next to the token file and is generated on first use.
type Sealer struct {
	mu      sync.Mutex
	keyPath string
	key     []byte
}

// NewSealer creates a Sealer whose key is stored at the given path.
func NewSealer(keyPath string) *Sealer {
	return &Sealer{keyPath: keyPath}
}

// loadOrCreateKey reads the key file, generating a fresh key when absent.
func (s *Sealer) loadOrCreateKey() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.key != nil {
		return s.key, nil
	}

	key, err := os.ReadFile(s.keyPath)
	if err == nil {
		if len(key) != KeySize {
			return nil, fmt.Errorf("key file %s has wrong size %d", s.keyPath, len(key))
		}
		s.key = key
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	key = make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.keyPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create key directory: %w", err)
	}
	if err := util.AtomicWriteFile(s.keyPath, key, 0600); err != nil {
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}

	s.key = key
	return key, nil
}

// Seal encrypts a plaintext value for storage.
func (s *Sealer) Seal(plaintext []byte) (string, error) {
	key, err := s.loadOrCreateKey()
	if err != nil {
		return "", err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, plaintext, nil)
	return SealedPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Unseal decrypts a value produced by Seal.
func (s *Sealer) Unseal(value string) ([]byte, error) {
	if len(value) <= len(SealedPrefix) || value[:len(SealedPrefix)] != SealedPrefix {
		return nil, ErrInvalidCiphertext
	}

	sealed, err := base64.StdEncoding.DecodeString(value[len(SealedPrefix):])
	if err != nil {
		return nil, ErrInvalidCiphertext
	}

	key, err := s.loadOrCreateKey()
	if err != nil {
		return nil, err
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	if len(sealed) < aead.NonceSize() {
		return nil, ErrInvalidCiphertext
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrUnsealFailed
	}
	return plaintext, nil
}

// DeleteKey removes the key file. Existing sealed values become unreadable.
func (s *Sealer) DeleteKey() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ZeroBytes(s.key)
	s.key = nil
	if err := os.Remove(s.keyPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete key file: %w", err)
	}
	return nil
}
