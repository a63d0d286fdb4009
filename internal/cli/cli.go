// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// cli.go - Command parsing and dispatch for ragline.
//
// ragline is the terminal client for the Ragline backend: a RAG chat
// service with streaming replies, knowledge collections and per-user
// session history.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (overridden at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdChat Command = iota // default: full-screen TUI chat
	CmdAsk
	CmdLogin
	CmdLogout
	CmdRegister
	CmdSessions
	CmdStatus
	CmdUsage
	CmdConfig
	CmdExport
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool
	JSON    bool
	Server  string // override configured backend URL
	Mode    string // override default chat mode

	// Command-specific
	Query      string
	Subcommand string

	// Raw args remaining after the command word.
	Raw []string
}

const usageText = `ragline - terminal client for the Ragline RAG chat backend

Ask questions against your knowledge base from the terminal, with
streaming replies, local session history and markdown rendering.

Usage:
  ragline                      Start the chat TUI (default)
  ragline ask "question"       Ask once and print the answer
  ragline chat                 Line-mode chat (no full-screen UI)
  ragline login                Sign in to the backend
  ragline logout               Discard the stored token
  ragline register             Create an account
  ragline sessions [subcmd]    Manage saved sessions
  ragline status, s            Backend and client status
  ragline usage                Token and cost usage summary
  ragline config [show|set]    Configuration
  ragline export <id>          Export a session transcript
  ragline version              Print version
  ragline help                 This help

Session Commands:
  ragline sessions list            List saved sessions
  ragline sessions show <id>       Print a session transcript
  ragline sessions delete <id>     Delete a session
    --yes                          Skip the confirmation prompt

Export Command:
  ragline export <id>              Export transcript to stdout
    --format md|json               Output format (default: md)
    --output FILE                  Write to a file instead

Usage Command:
  ragline usage                    Current month summary
    --from YYYY-MM-DD              Start date
    --to YYYY-MM-DD                End date
    --events                       List individual requests
    --limit N                      Max events to list (default: 50)
    --watch                        Refresh the summary until interrupted
    --interval N                   Seconds between refreshes (default: 30)

Config Commands:
  ragline config show              Show effective configuration
  ragline config path              Print the config file path
  ragline config set KEY VALUE     Set a value (e.g. chat.default_mode)

Global Flags:
  --server URL    Override the backend URL for this run
  --mode MODE     Chat mode: rag, direct, agent
  --json          Machine-readable output where supported
  -q, --quiet     Minimal output
  --verbose       Debug output

Examples:
  ragline ask "How do I rotate the API keys?"
  ragline ask --mode direct "Summarize this error"
  ragline sessions list
  ragline export 4f1c2d --format md --output notes.md
  ragline usage --from 2025-01-01 --events

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage() {
	fmt.Printf(usageText, Version)
}

// PrintVersion prints version information.
func PrintVersion() {
	fmt.Printf("ragline version %s\n", Version)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	fmt.Printf("  Build date: %s\n", BuildDate)
	fmt.Printf("  Go version: %s\n", runtime.Version())
}

// Parse parses os.Args and returns the command and its arguments.
func Parse() (Command, Args) {
	return parseArgs(os.Args[1:])
}

// parseArgs is Parse without the os.Args dependency, for tests.
func parseArgs(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdChat, args
	}

	cmd := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	args.Raw = remaining

	switch cmd {
	case "tui", "chat":
		if cmd == "chat" {
			args.Subcommand = "line"
		}
		return CmdChat, args

	case "ask", "q":
		parser := NewArgParser(remaining)
		args.Query = parser.JoinFrom(0)
		return CmdAsk, args

	case "login", "signin":
		return CmdLogin, args

	case "logout", "signout":
		return CmdLogout, args

	case "register", "signup":
		return CmdRegister, args

	case "session", "sessions":
		if len(remaining) > 0 {
			args.Subcommand = remaining[0]
		}
		return CmdSessions, args

	case "status", "s":
		return CmdStatus, args

	case "usage", "costs":
		return CmdUsage, args

	case "config", "cfg":
		if len(remaining) > 0 {
			args.Subcommand = remaining[0]
		}
		return CmdConfig, args

	case "export":
		if len(remaining) > 0 {
			args.Subcommand = remaining[0]
		}
		return CmdExport, args

	case "version", "-v", "--version":
		return CmdVersion, args

	case "help", "-h", "--help":
		return CmdHelp, args

	default:
		// Unknown word: treat the whole line as a question.
		parser := NewArgParser(append([]string{cmd}, remaining...))
		args.Query = parser.JoinFrom(0)
		return CmdAsk, args
	}
}

// parseGlobalFlags extracts global flags and returns the remaining args.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var remaining []string
	var args Args

	i := 0
	for i < len(argv) {
		arg := argv[i]
		switch {
		case arg == "-q" || arg == "--quiet":
			args.Quiet = true
		case arg == "--verbose":
			args.Verbose = true
		case arg == "--json":
			args.JSON = true
		case arg == "--server":
			if i+1 < len(argv) {
				i++
				args.Server = argv[i]
			}
		case strings.HasPrefix(arg, "--server="):
			args.Server = strings.TrimPrefix(arg, "--server=")
		case arg == "--mode":
			if i+1 < len(argv) {
				i++
				args.Mode = argv[i]
			}
		case strings.HasPrefix(arg, "--mode="):
			args.Mode = strings.TrimPrefix(arg, "--mode=")
		default:
			remaining = append(remaining, arg)
		}
		i++
	}
	return remaining, args
}

// HandleVersion handles the "version" command.
func HandleVersion(args Args) {
	if args.JSON {
		NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Print()
		return
	}
	PrintVersion()
}

// HandleHelp handles the "help" command.
func HandleHelp() {
	PrintUsage()
}
