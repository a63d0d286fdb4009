// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// config.go - Configuration command implementation.
//
// Command: config
// Short:   Show and edit the client configuration
// Aliases: cfg
//
// Keys use a section.key form matching the TOML layout, e.g.
// server.base_url or chat.default_mode.
//
// Examples:
//   ragline config show
//   ragline config path
//   ragline config set chat.default_mode direct
//   ragline config set server.base_url https://rag.internal.example.com
package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ragline/ragline-tui/internal/config"
)

// HandleConfig handles the "config" command.
func HandleConfig(args Args) error {
	parser := NewArgParser(args.Raw)

	switch parser.Subcommand() {
	case "", "show":
		return configShow(args)
	case "path":
		path, err := config.ConfigPathTOML()
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	case "set":
		return configSet(parser)
	default:
		return NewUsageError("unknown config subcommand %q (want show, path or set)", parser.Subcommand())
	}
}

// configShow prints the effective configuration after defaults and
// environment overrides.
func configShow(args Args) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if args.JSON {
		return NewJSONResponse("config", cfg).Print()
	}

	fmt.Println("[server]")
	fmt.Printf("  base_url = %q\n", cfg.Server.BaseURL)
	fmt.Printf("  request_timeout_secs = %d\n", cfg.Server.RequestTimeoutSecs)
	fmt.Printf("  stream_header_timeout_secs = %d\n", cfg.Server.StreamHeaderTimeoutSecs)
	fmt.Println("[chat]")
	fmt.Printf("  default_mode = %q\n", cfg.Chat.DefaultMode)
	fmt.Printf("  collection_id = %q\n", cfg.Chat.CollectionID)
	fmt.Printf("  use_react = %t\n", cfg.Chat.UseReAct)
	fmt.Println("[auth]")
	fmt.Printf("  persist_token = %t\n", cfg.Auth.PersistToken)
	fmt.Println("[ui]")
	fmt.Printf("  theme = %q\n", cfg.UI.Theme)
	fmt.Printf("  markdown = %t\n", cfg.UI.Markdown)
	fmt.Printf("  show_tools = %t\n", cfg.UI.ShowTools)
	return nil
}

// configSet updates one key and saves the file.
func configSet(parser *ArgParser) error {
	key := parser.Positional(1)
	value := parser.Positional(2)
	if key == "" || value == "" {
		return NewUsageError("usage: ragline config set KEY VALUE")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if err := applyConfigKey(cfg, key, value); err != nil {
		return NewUsageError("%v", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid value: %w", err)
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("Set %s = %s\n", key, value)
	return nil
}

// applyConfigKey maps a section.key string onto the Config struct.
func applyConfigKey(cfg *config.Config, key, value string) error {
	switch strings.ToLower(key) {
	case "server.base_url":
		cfg.Server.BaseURL = value
	case "server.request_timeout_secs":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s wants a number: %w", key, err)
		}
		cfg.Server.RequestTimeoutSecs = n
	case "server.stream_header_timeout_secs":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s wants a number: %w", key, err)
		}
		cfg.Server.StreamHeaderTimeoutSecs = n
	case "chat.default_mode":
		cfg.Chat.DefaultMode = value
	case "chat.collection_id":
		cfg.Chat.CollectionID = value
	case "chat.use_react":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s wants true/false: %w", key, err)
		}
		cfg.Chat.UseReAct = b
	case "chat.guest_email":
		cfg.Chat.GuestEmail = value
	case "auth.persist_token":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s wants true/false: %w", key, err)
		}
		cfg.Auth.PersistToken = b
	case "ui.theme":
		cfg.UI.Theme = value
	case "ui.markdown":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s wants true/false: %w", key, err)
		}
		cfg.UI.Markdown = b
	case "ui.show_tools":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s wants true/false: %w", key, err)
		}
		cfg.UI.ShowTools = b
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}
