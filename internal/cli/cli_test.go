// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/ragline/ragline-tui/internal/api"
	"github.com/ragline/ragline-tui/internal/config"
)

// =============================================================================
// COMMAND PARSING
// =============================================================================

func TestParseArgsCommands(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want Command
	}{
		{"no args starts the TUI", nil, CmdChat},
		{"ask", []string{"ask", "what", "is", "rag"}, CmdAsk},
		{"ask alias", []string{"q", "hello"}, CmdAsk},
		{"chat line mode", []string{"chat"}, CmdChat},
		{"login", []string{"login"}, CmdLogin},
		{"logout alias", []string{"signout"}, CmdLogout},
		{"sessions", []string{"sessions", "list"}, CmdSessions},
		{"status alias", []string{"s"}, CmdStatus},
		{"usage", []string{"usage"}, CmdUsage},
		{"config", []string{"config", "show"}, CmdConfig},
		{"export", []string{"export", "abc123"}, CmdExport},
		{"version", []string{"version"}, CmdVersion},
		{"help", []string{"--help"}, CmdHelp},
		{"bare question falls through to ask", []string{"what", "is", "rag"}, CmdAsk},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, _ := parseArgs(tt.argv)
			if cmd != tt.want {
				t.Errorf("parseArgs(%v) = %v, want %v", tt.argv, cmd, tt.want)
			}
		})
	}
}

func TestParseArgsJoinsQuery(t *testing.T) {
	_, args := parseArgs([]string{"ask", "what", "is", "rag"})
	if args.Query != "what is rag" {
		t.Errorf("Query = %q", args.Query)
	}

	_, args = parseArgs([]string{"how", "do", "I", "index", "docs"})
	if args.Query != "how do I index docs" {
		t.Errorf("fallthrough Query = %q", args.Query)
	}
}

func TestParseArgsGlobalFlags(t *testing.T) {
	cmd, args := parseArgs([]string{"--server", "http://localhost:9000", "--mode=direct", "--json", "ask", "hi"})
	if cmd != CmdAsk {
		t.Fatalf("cmd = %v", cmd)
	}
	if args.Server != "http://localhost:9000" {
		t.Errorf("Server = %q", args.Server)
	}
	if args.Mode != "direct" {
		t.Errorf("Mode = %q", args.Mode)
	}
	if !args.JSON {
		t.Error("JSON flag lost")
	}
}

func TestParseArgsVerboseVersusVersion(t *testing.T) {
	cmd, args := parseArgs([]string{"--verbose", "status"})
	if cmd != CmdStatus || !args.Verbose {
		t.Errorf("--verbose status: cmd = %v, Verbose = %v", cmd, args.Verbose)
	}

	// Bare -v is the version shorthand, not verbose.
	cmd, args = parseArgs([]string{"-v"})
	if cmd != CmdVersion {
		t.Errorf("-v: cmd = %v, want CmdVersion", cmd)
	}
	if args.Verbose {
		t.Error("-v must not imply --verbose")
	}
}

func TestParseArgsSubcommand(t *testing.T) {
	_, args := parseArgs([]string{"sessions", "delete", "abc"})
	if args.Subcommand != "delete" {
		t.Errorf("Subcommand = %q", args.Subcommand)
	}
	if len(args.Raw) != 2 {
		t.Errorf("Raw = %v", args.Raw)
	}
}

// =============================================================================
// ARG PARSER
// =============================================================================

func TestArgParser(t *testing.T) {
	p := NewArgParser([]string{"list", "--limit", "20", "--format=json", "extra", "--yes"})

	if p.Subcommand() != "list" {
		t.Errorf("Subcommand = %q", p.Subcommand())
	}
	if p.Flag("limit") != "20" {
		t.Errorf("Flag(limit) = %q", p.Flag("limit"))
	}
	if p.FlagIntOrDefault("limit", 5) != 20 {
		t.Errorf("FlagIntOrDefault(limit) = %d", p.FlagIntOrDefault("limit", 5))
	}
	if p.Flag("format") != "json" {
		t.Errorf("Flag(format) = %q", p.Flag("format"))
	}
	if !p.BoolFlag("yes") {
		t.Error("BoolFlag(yes) = false")
	}
	if p.Positional(1) != "extra" {
		t.Errorf("Positional(1) = %q", p.Positional(1))
	}
}

func TestArgParserExplicitBool(t *testing.T) {
	p := NewArgParser([]string{"--json=false", "--confirm=true"})
	if p.BoolFlag("json") {
		t.Error("--json=false should read false")
	}
	if !p.BoolFlag("confirm") {
		t.Error("--confirm=true should read true")
	}
}

func TestArgParserDefaults(t *testing.T) {
	p := NewArgParser(nil)
	if p.Subcommand() != "" {
		t.Errorf("Subcommand = %q on empty args", p.Subcommand())
	}
	if p.FlagOrDefault("format", "md") != "md" {
		t.Error("FlagOrDefault should fall back")
	}
	if p.FlagIntOrDefault("limit", 50) != 50 {
		t.Error("FlagIntOrDefault should fall back")
	}
	if p.Positional(3) != "" {
		t.Error("out-of-range positional should be empty")
	}
}

func TestArgParserJoinFrom(t *testing.T) {
	p := NewArgParser([]string{"what", "is", "rag", "--json"})
	if got := p.JoinFrom(0); got != "what is rag" {
		t.Errorf("JoinFrom(0) = %q", got)
	}
	if got := p.JoinFrom(1); got != "is rag" {
		t.Errorf("JoinFrom(1) = %q", got)
	}
}

// =============================================================================
// EXIT CODES
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain error", errors.New("boom"), ExitGeneralError},
		{"usage", NewUsageError("bad flag"), ExitUsageError},
		{"auth", api.ErrAuthRequired, ExitAuthError},
		{"forbidden wrapped", &CommandError{Command: "x", Err: api.ErrForbidden}, ExitAuthError},
		{"not found", api.ErrNotFound, ExitNotFound},
		{"timeout", context.DeadlineExceeded, ExitTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.want {
				t.Errorf("GetExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

// =============================================================================
// CONFIG KEYS
// =============================================================================

func TestApplyConfigKey(t *testing.T) {
	cfg := config.Default()

	if err := applyConfigKey(cfg, "chat.default_mode", "direct"); err != nil {
		t.Fatalf("set mode: %v", err)
	}
	if cfg.Chat.DefaultMode != "direct" {
		t.Errorf("DefaultMode = %q", cfg.Chat.DefaultMode)
	}

	if err := applyConfigKey(cfg, "auth.persist_token", "false"); err != nil {
		t.Fatalf("set persist: %v", err)
	}
	if cfg.Auth.PersistToken {
		t.Error("PersistToken should be false")
	}

	if err := applyConfigKey(cfg, "server.request_timeout_secs", "nope"); err == nil {
		t.Error("non-numeric timeout should fail")
	}
	if err := applyConfigKey(cfg, "no.such_key", "x"); err == nil {
		t.Error("unknown key should fail")
	}
}
