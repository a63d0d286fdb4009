// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// RUNTIME CONFIG RESOLVER
// =============================================================================

// RuntimeConfig holds server-published settings fetched from the backend's
// well-known config endpoint. It lets one client build talk to different
// deployments without rebuilding.
type RuntimeConfig struct {
	// APIBaseURL is the base URL clients should use for API calls. The server
	// publishes this when it sits behind a proxy or serves the API on a
	// different host than the well-known endpoint.
	APIBaseURL string `json:"api_base_url"`
	// Environment names the deployment ("production", "staging", ...).
	Environment string `json:"environment,omitempty"`
	// Features lists optional backend capabilities ("react", "guest", ...).
	Features []string `json:"features,omitempty"`
}

// HasFeature reports whether the server advertises the named capability.
func (rc *RuntimeConfig) HasFeature(name string) bool {
	for _, f := range rc.Features {
		if strings.EqualFold(f, name) {
			return true
		}
	}
	return false
}

// Resolver fetches the runtime config exactly once per process and caches the
// result for the process lifetime. Every failure mode - network error, bad
// status, malformed JSON, empty base URL - falls back to the configured
// default, so callers always get a usable value.
type Resolver struct {
	defaultBaseURL string
	endpoint       string
	client         *http.Client

	once     sync.Once
	resolved RuntimeConfig
}

// NewResolver creates a Resolver for the given configuration. The endpoint is
// the configured base URL joined with the runtime config path.
func NewResolver(cfg *Config) *Resolver {
	base := strings.TrimRight(cfg.Server.BaseURL, "/")
	return &Resolver{
		defaultBaseURL: base,
		endpoint:       base + cfg.Server.RuntimeConfigPath,
		client: &http.Client{
			Timeout: cfg.RequestTimeout(),
		},
	}
}

// Resolve returns the runtime config, fetching it on first call. Concurrent
// callers share a single fetch; later callers get the cached result.
func (r *Resolver) Resolve(ctx context.Context) RuntimeConfig {
	r.once.Do(func() {
		r.resolved = r.fetch(ctx)
	})
	return r.resolved
}

// BaseURL returns the API base URL to use, resolving on first call.
func (r *Resolver) BaseURL(ctx context.Context) string {
	return r.Resolve(ctx).APIBaseURL
}

// fetch retrieves the runtime config from the backend. Any failure returns
// the fallback built from the configured default.
func (r *Resolver) fetch(ctx context.Context) RuntimeConfig {
	fallback := RuntimeConfig{APIBaseURL: r.defaultBaseURL}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.endpoint, nil)
	if err != nil {
		log.Printf("runtime config: building request failed: %v (using default)", err)
		return fallback
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		log.Printf("runtime config: fetch failed: %v (using default)", err)
		return fallback
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("runtime config: unexpected status %d (using default)", resp.StatusCode)
		return fallback
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		log.Printf("runtime config: reading body failed: %v (using default)", err)
		return fallback
	}

	var rc RuntimeConfig
	if err := json.Unmarshal(body, &rc); err != nil {
		log.Printf("runtime config: invalid JSON: %v (using default)", err)
		return fallback
	}

	if rc.APIBaseURL == "" {
		rc.APIBaseURL = r.defaultBaseURL
	} else {
		rc.APIBaseURL = strings.TrimRight(rc.APIBaseURL, "/")
	}

	return rc
}

// String describes the resolver endpoint for diagnostics.
func (r *Resolver) String() string {
	return fmt.Sprintf("Resolver(%s)", r.endpoint)
}
