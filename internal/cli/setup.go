// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// setup.go - Shared wiring for command handlers.
//
// Every command needs the same things: loaded configuration, the token
// store and an API client pointed at the resolved backend URL. App
// bundles them so handlers stay small.
package cli

import (
	"context"
	"fmt"

	"github.com/ragline/ragline-tui/internal/api"
	"github.com/ragline/ragline-tui/internal/auth"
	"github.com/ragline/ragline-tui/internal/config"
)

// App holds the wired dependencies of one CLI invocation.
type App struct {
	Config *config.Config
	Tokens *auth.TokenStore
	Client *api.Client
}

// NewApp loads configuration, opens the token store and builds the API
// client. Global flags override the configured backend URL and mode.
func NewApp(args Args) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if args.Server != "" {
		cfg.Server.BaseURL = args.Server
	}
	if args.Mode != "" {
		cfg.Chat.DefaultMode = args.Mode
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir, err := config.ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("locating config dir: %w", err)
	}
	if err := config.EnsureConfigDir(); err != nil {
		return nil, fmt.Errorf("creating config dir: %w", err)
	}

	tokens := auth.NewTokenStore(dir, auth.TierPolicy{
		PersistToken: cfg.Auth.PersistToken,
	})

	// The server may publish a different base URL in its runtime config;
	// --server on the command line always wins.
	baseURL := cfg.Server.BaseURL
	if args.Server == "" {
		resolver := config.NewResolver(cfg)
		baseURL = resolver.BaseURL(context.Background())
	}

	return &App{
		Config: cfg,
		Tokens: tokens,
		Client: api.NewClient(baseURL, cfg, tokens),
	}, nil
}
