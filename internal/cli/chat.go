// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat commands.
//
// Command: chat (line mode), default invocation (full-screen TUI)
//
// The default invocation starts the Bubble Tea TUI. "ragline chat"
// runs a plain line-mode REPL instead, for terminals or scripts where
// a full-screen UI is unwanted. Both paths share the same store,
// persistence and API client.
//
// Examples:
//   ragline                      Full-screen TUI
//   ragline chat                 Line-mode chat
//   ragline chat --mode direct   Line-mode chat without retrieval
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/peterh/liner"

	"github.com/ragline/ragline-tui/internal/config"
	"github.com/ragline/ragline-tui/internal/model"
	"github.com/ragline/ragline-tui/internal/persist"
	"github.com/ragline/ragline-tui/internal/store"
	"github.com/ragline/ragline-tui/internal/ui/chat"
	"github.com/ragline/ragline-tui/internal/ui/styles"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	chatPromptStyle = lipgloss.NewStyle().
			Foreground(styles.Teal).
			Bold(true)

	chatInfoStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary)

	chatWarnStyle = lipgloss.NewStyle().
			Foreground(styles.Amber)
)

// HandleChat handles the default TUI invocation and the "chat" line mode.
func HandleChat(args Args) error {
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

	if args.Subcommand == "line" {
		return runLineChat(app, local, args)
	}
	return runTUI(app, local, args)
}

// =============================================================================
// FULL-SCREEN TUI
// =============================================================================

// runTUI wires the store to a Bubble Tea program. Store callbacks fire
// from stream goroutines, so the program handle is guarded: callbacks
// that arrive before Run starts are dropped, which is fine because the
// model pulls a fresh snapshot in Init.
func runTUI(app *App, local *persist.Store, args Args) error {
	var (
		mu      sync.Mutex
		program *tea.Program
	)
	send := func(msg tea.Msg) {
		mu.Lock()
		p := program
		mu.Unlock()
		if p != nil {
			p.Send(msg)
		}
	}

	st := store.New(app.Client, local, store.Options{
		Mode:         app.Config.Chat.DefaultMode,
		CollectionID: app.Config.Chat.CollectionID,
		UseReAct:     app.Config.Chat.UseReAct,
		OnChange: func() {
			send(chat.RefreshMsg{})
		},
		OnNotify: func(level store.NotifyLevel, message string) {
			send(chat.NoticeMsg{Level: level, Text: message})
		},
	})

	// Edits to ~/.ragline/config.toml take effect without a restart. An
	// explicit --mode flag pins the mode for this run.
	watcher, err := config.NewWatcher(500*time.Millisecond, func(cfg *config.Config) {
		if args.Mode == "" {
			st.SetMode(cfg.Chat.DefaultMode)
		}
		st.SetCollection(cfg.Chat.CollectionID)
		st.SetUseReAct(cfg.Chat.UseReAct)
		send(chat.NoticeMsg{Level: store.LevelInfo, Text: "config reloaded"})
	})
	if err == nil {
		if err := watcher.Watch(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: config watcher disabled: %v\n", err)
		}
		defer watcher.Close()
	}

	theme := styles.NewTheme()
	p := tea.NewProgram(
		chat.New(st, theme),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	mu.Lock()
	program = p
	mu.Unlock()

	_, err = p.Run()
	return err
}

// =============================================================================
// LINE-MODE CHAT
// =============================================================================

// lineEditor wraps liner with persistent input history.
type lineEditor struct {
	line        *liner.State
	historyFile string
}

func newLineEditor() *lineEditor {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	ed := &lineEditor{
		line:        line,
		historyFile: filepath.Join(dir, "chat_history"),
	}
	if f, err := os.Open(ed.historyFile); err == nil {
		ed.line.ReadHistory(f)
		f.Close()
	}
	return ed
}

// readInput reads one line, recording non-empty input in the history.
func (ed *lineEditor) readInput(prompt string) (string, error) {
	input, err := ed.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		ed.line.AppendHistory(input)
	}
	return input, nil
}

func (ed *lineEditor) close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(ed.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			ed.line.WriteHistory(f)
			f.Close()
		}
	}
	ed.line.Close()
}

// runLineChat runs the plain REPL. Replies stream to stdout as they
// arrive; the transcript is mirrored through the same store the TUI
// uses, so sessions started here show up there.
func runLineChat(app *App, local *persist.Store, args Args) error {
	st := store.New(app.Client, local, store.Options{
		Mode:         app.Config.Chat.DefaultMode,
		CollectionID: app.Config.Chat.CollectionID,
		UseReAct:     app.Config.Chat.UseReAct,
		OnNotify: func(level store.NotifyLevel, message string) {
			if level == store.LevelInfo {
				return
			}
			fmt.Fprintln(os.Stderr, chatWarnStyle.Render(level.String()+": "+message))
		},
	})

	ed := newLineEditor()
	defer ed.close()

	if !args.Quiet {
		fmt.Println(chatInfoStyle.Render(
			"ragline chat - " + app.Client.BaseURL() + " (mode: " + st.Mode() + ")"))
		fmt.Println(chatInfoStyle.Render("/new starts a session, /quit exits"))
		fmt.Println()
	}

	prompt := chatPromptStyle.Render("> ")
	for {
		input, err := ed.readInput(prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				if st.IsStreaming() {
					st.CancelStreaming()
					continue
				}
				return nil
			}
			// io.EOF on ctrl+d
			return nil
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, "/") {
			if quit := runLineCommand(st, input); quit {
				return nil
			}
			continue
		}

		if err := streamToStdout(st, input); err != nil {
			fmt.Fprintln(os.Stderr, chatWarnStyle.Render("error: "+err.Error()))
		}
	}
}

// runLineCommand handles line-mode slash commands; returns true to exit.
func runLineCommand(st *store.Store, input string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimPrefix(input, "/"), " ")
	switch strings.ToLower(cmd) {
	case "quit", "exit", "q":
		return true
	case "new":
		sess := st.NewSession()
		fmt.Println(chatInfoStyle.Render("started session " + sess.ID))
	case "mode":
		arg = strings.TrimSpace(arg)
		switch arg {
		case "rag", "direct", "agent":
			st.SetMode(arg)
			fmt.Println(chatInfoStyle.Render("mode set to " + arg))
		case "":
			fmt.Println(chatInfoStyle.Render("mode is " + st.Mode()))
		default:
			fmt.Println(chatWarnStyle.Render("unknown mode " + arg))
		}
	default:
		fmt.Println(chatWarnStyle.Render("unknown command /" + cmd))
	}
	return false
}

// streamToStdout sends one message and prints reply fragments as the
// store applies them. Printing happens on the OnChange callback by
// diffing the streamed length, so output and stored state stay in step.
func streamToStdout(st *store.Store, input string) error {
	var (
		mu      sync.Mutex
		printed int
	)
	flushNew := func() {
		mu.Lock()
		defer mu.Unlock()
		msgs := st.Messages()
		if len(msgs) == 0 {
			return
		}
		last := msgs[len(msgs)-1]
		if last.Role != model.RoleAssistant {
			return
		}
		content := last.DisplayContent()
		if len(content) > printed {
			fmt.Print(content[printed:])
			printed = len(content)
		}
	}

	st.SetOnChange(flushNew)
	defer st.SetOnChange(nil)

	err := st.SendMessage(context.Background(), input)
	flushNew()
	fmt.Println()
	fmt.Println()
	return err
}
