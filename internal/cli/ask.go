// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// ask.go - One-shot question command.
//
// Command: ask
// Short:   Ask a single question and print the answer
// Aliases: q
//
// Examples:
//   ragline ask "How do I rotate the API keys?"
//   ragline ask --mode direct "Summarize this error"
//   ragline ask --json "List the indexing steps"
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/ragline/ragline-tui/internal/api"
	"github.com/ragline/ragline-tui/internal/model"
)

// askResult is the payload of "ask --json".
type askResult struct {
	Question  string   `json:"question"`
	Answer    string   `json:"answer"`
	ToolsUsed []string `json:"tools_used,omitempty"`
	Mode      string   `json:"mode"`
}

// HandleAsk handles the "ask" command.
func HandleAsk(args Args) error {
	query := strings.TrimSpace(args.Query)
	if query == "" {
		return NewUsageError(`usage: ragline ask "question"`)
	}

	app, err := NewApp(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), app.Config.RequestTimeout())
	defer cancel()

	sess := model.NewSession()
	req := api.ChatRequest{
		Message:      query,
		SessionID:    sess.ID,
		Mode:         app.Config.Chat.DefaultMode,
		CollectionID: app.Config.Chat.CollectionID,
		UseReAct:     app.Config.Chat.UseReAct,
	}

	resp, err := app.Client.Chat(ctx, req)
	if err != nil {
		return &CommandError{Command: "ask", Err: err}
	}

	if args.JSON {
		return NewJSONResponse("ask", askResult{
			Question:  query,
			Answer:    resp.Response,
			ToolsUsed: resp.ToolsUsed,
			Mode:      req.Mode,
		}).Print()
	}

	fmt.Println(renderAnswer(resp.Response, app.Config.UI.Markdown))

	if app.Config.UI.ShowTools && len(resp.ToolsUsed) > 0 && !args.Quiet {
		fmt.Fprintf(os.Stderr, "tools: %s\n", strings.Join(resp.ToolsUsed, ", "))
	}
	return nil
}

// renderAnswer renders the reply as markdown when configured and the
// output is a terminal; otherwise it prints the raw text.
func renderAnswer(text string, markdown bool) string {
	if !markdown {
		return text
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return text
	}
	out, err := renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}
