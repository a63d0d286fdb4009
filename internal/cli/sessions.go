// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// sessions.go - Session management command.
//
// Command: sessions
// Short:   List, inspect and delete saved sessions
// Aliases: session
//
// Sessions live in local storage; when signed in, deletion also removes
// the backend copy. Listing merges both sides the same way the TUI does.
//
// Examples:
//   ragline sessions list
//   ragline sessions show 4f1c2d
//   ragline sessions delete 4f1c2d --yes
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ragline/ragline-tui/internal/model"
	"github.com/ragline/ragline-tui/internal/persist"
	"github.com/ragline/ragline-tui/internal/store"
	"github.com/ragline/ragline-tui/internal/util"
	"github.com/ragline/ragline-tui/internal/ui/styles"
)

var (
	sessionTitleStyle = lipgloss.NewStyle().
				Foreground(styles.TextPrimary).
				Bold(true)

	sessionMetaStyle = lipgloss.NewStyle().
				Foreground(styles.TextMuted)
)

// sessionRow is the payload of "sessions list --json".
type sessionRow struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	UpdatedAt    string `json:"updated_at"`
	MessageCount int    `json:"message_count"`
}

// HandleSessions handles the "sessions" command.
func HandleSessions(args Args) error {
	app, err := NewApp(args)
	if err != nil {
		return err
	}

	path, err := persist.DefaultPath()
	if err != nil {
		return fmt.Errorf("locating local storage: %w", err)
	}
	local, err := persist.Open(path)
	if err != nil {
		return fmt.Errorf("opening local storage: %w", err)
	}
	defer local.Close()

	st := store.New(app.Client, local, store.Options{
		Mode: app.Config.Chat.DefaultMode,
		OnNotify: func(level store.NotifyLevel, message string) {
			fmt.Fprintf(os.Stderr, "%s: %s\n", level, message)
		},
	})

	parser := NewArgParser(args.Raw)
	switch parser.Subcommand() {
	case "", "list", "ls", "l":
		return listSessions(st, args)
	case "show":
		return showSession(local, parser)
	case "delete", "rm":
		return deleteSession(st, parser)
	default:
		return NewUsageError("unknown sessions subcommand %q (want list, show or delete)", parser.Subcommand())
	}
}

// listSessions prints the merged local/backend session list.
func listSessions(st *store.Store, args Args) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := st.LoadSessions(ctx); err != nil {
		return &CommandError{Command: "sessions", Action: "list", Err: err}
	}

	sessions := st.Sessions()

	if args.JSON {
		rows := make([]sessionRow, 0, len(sessions))
		for _, s := range sessions {
			rows = append(rows, sessionRow{
				ID:           s.ID,
				Title:        s.Title,
				UpdatedAt:    s.UpdatedAt.Format("2006-01-02 15:04"),
				MessageCount: s.MessageCount,
			})
		}
		return NewJSONResponse("sessions.list", rows).Print()
	}

	if len(sessions) == 0 {
		fmt.Println("No saved sessions.")
		return nil
	}

	for _, s := range sessions {
		title := util.Flatten(s.Title)
		if title == "" {
			title = "New chat"
		}
		fmt.Printf("%s  %s\n", sessionTitleStyle.Render(shortID(s.ID)), util.TruncateWidth(title, 64))
		fmt.Printf("        %s\n", sessionMetaStyle.Render(
			fmt.Sprintf("%s - %d messages", s.UpdatedAt.Format("2006-01-02 15:04"), s.MessageCount)))
	}
	return nil
}

// showSession prints one transcript.
func showSession(local *persist.Store, parser *ArgParser) error {
	id := parser.Positional(1)
	if id == "" {
		return NewUsageError("usage: ragline sessions show <id>")
	}

	meta, err := local.GetMeta(id)
	if err != nil {
		return &CommandError{Command: "sessions", Action: "show", Err: err}
	}
	messages, err := local.LoadMessages(id)
	if err != nil {
		return &CommandError{Command: "sessions", Action: "show", Err: err}
	}

	title := meta.Title
	if title == "" {
		title = "New chat"
	}
	fmt.Println(sessionTitleStyle.Render(title))
	fmt.Println(sessionMetaStyle.Render(meta.ID))
	fmt.Println()

	for _, msg := range messages {
		label := string(msg.Role)
		if msg.Role == model.RoleUser {
			label = "you"
		}
		fmt.Printf("%s:\n%s\n\n", sessionTitleStyle.Render(label), msg.DisplayContent())
	}
	return nil
}

// deleteSession removes a session locally and, when signed in, remotely.
func deleteSession(st *store.Store, parser *ArgParser) error {
	id := parser.Positional(1)
	if id == "" {
		return NewUsageError("usage: ragline sessions delete <id> [--yes]")
	}

	if !parser.BoolFlag("yes") && !parser.BoolFlag("y") {
		answer, err := readLine(fmt.Sprintf("Delete session %s? [y/N] ", shortID(id)))
		if err != nil {
			return err
		}
		if !strings.EqualFold(answer, "y") && !strings.EqualFold(answer, "yes") {
			fmt.Println("Aborted.")
			return nil
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := st.DeleteSession(ctx, id); err != nil {
		return &CommandError{Command: "sessions", Action: "delete", Err: err}
	}
	fmt.Println("Deleted.")
	return nil
}

// shortID abbreviates a session UUID for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
