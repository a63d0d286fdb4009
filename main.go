// ragline - Terminal client for the Ragline backend.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"github.com/ragline/ragline-tui/internal/cli"
)

// Version information (set at build time via -ldflags).
var (
	Version   = "0.4.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
	cli.BuildDate = BuildDate
}

func main() {
	cmd, args := cli.Parse()

	switch cmd {
	case cli.CmdChat:
		cli.Exit(cli.HandleChat(args))
	case cli.CmdAsk:
		cli.Exit(cli.HandleAsk(args))
	case cli.CmdLogin:
		cli.Exit(cli.HandleLogin(args))
	case cli.CmdLogout:
		cli.Exit(cli.HandleLogout(args))
	case cli.CmdRegister:
		cli.Exit(cli.HandleRegister(args))
	case cli.CmdSessions:
		cli.Exit(cli.HandleSessions(args))
	case cli.CmdStatus:
		cli.Exit(cli.HandleStatus(args))
	case cli.CmdUsage:
		cli.Exit(cli.HandleUsage(args))
	case cli.CmdConfig:
		cli.Exit(cli.HandleConfig(args))
	case cli.CmdExport:
		cli.Exit(cli.HandleExport(args))
	case cli.CmdVersion:
		cli.HandleVersion(args)
	case cli.CmdHelp:
		cli.HandleHelp()
	default:
		cli.HandleHelp()
	}
}
