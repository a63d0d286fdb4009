// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// usage.go - Token and cost usage command.
//
// Command: usage
// Short:   Show request, token and cost usage
// Aliases: costs
//
// Usage data comes from the backend and requires being signed in.
//
// Examples:
//   ragline usage
//   ragline usage --from 2025-01-01 --to 2025-01-31
//   ragline usage --events --limit 20
//   ragline usage --watch --interval 60
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ragline/ragline-tui/internal/api"
	"github.com/ragline/ragline-tui/internal/ui/styles"
)

var usageHeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(styles.Teal)

// HandleUsage handles the "usage" command.
func HandleUsage(args Args) error {
	app, err := NewApp(args)
	if err != nil {
		return err
	}
	if !app.Client.IsAuthenticated() {
		return &CommandError{Command: "usage", Err: api.ErrAuthRequired}
	}

	parser := NewArgParser(args.Raw)

	if parser.BoolFlag("watch") {
		return watchUsage(app, parser)
	}

	ctx, cancel := context.WithTimeout(context.Background(), app.Config.RequestTimeout())
	defer cancel()

	if parser.BoolFlag("events") {
		return printUsageEvents(ctx, app, parser, args)
	}

	summary, err := app.Client.Usage(ctx, parser.Flag("from"), parser.Flag("to"))
	if err != nil {
		return &CommandError{Command: "usage", Err: err}
	}

	if args.JSON {
		return NewJSONResponse("usage", summary).Print()
	}

	printUsageSummary(summary)
	return nil
}

// printUsageSummary renders one day-by-day usage table.
func printUsageSummary(summary *api.UsageSummary) {
	fmt.Println(usageHeaderStyle.Render("Usage"))
	if len(summary.Days) == 0 {
		fmt.Println("No usage recorded for this period.")
		return
	}

	fmt.Printf("%-12s %10s %10s %10s\n", "day", "requests", "tokens", "cost")
	for _, day := range summary.Days {
		fmt.Printf("%-12s %10d %10d %9.4f$\n",
			day.Date, day.Requests, day.InputTokens+day.OutputTokens, day.CostUSD)
	}
	fmt.Printf("\nTotal: $%.4f\n", summary.TotalCostUSD)
}

// watchUsage re-renders the last-week summary on an interval until
// interrupted. The poller's limiter spaces backend hits even if the
// interval is set aggressively low.
func watchUsage(app *App, parser *ArgParser) error {
	interval := time.Duration(parser.FlagIntOrDefault("interval", 30)) * time.Second
	if interval < time.Second {
		interval = time.Second
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	poller := api.NewUsagePoller(app.Client, 5*time.Second,
		func(summary *api.UsageSummary) {
			fmt.Printf("--- %s ---\n", time.Now().Format("15:04:05"))
			printUsageSummary(summary)
			fmt.Println()
		},
		func(err error) {
			fmt.Fprintf(os.Stderr, "usage refresh failed: %v\n", err)
		})

	fmt.Println("Watching usage; press Ctrl-C to stop.")
	poller.Run(ctx, interval)
	return nil
}

// printUsageEvents lists individual requests.
func printUsageEvents(ctx context.Context, app *App, parser *ArgParser, args Args) error {
	limit := parser.FlagIntOrDefault("limit", 50)
	page, err := app.Client.UsageEvents(ctx, 0, limit)
	if err != nil {
		return &CommandError{Command: "usage", Action: "events", Err: err}
	}

	if args.JSON {
		return NewJSONResponse("usage.events", page).Print()
	}

	fmt.Println(usageHeaderStyle.Render("Usage events"))
	if len(page.Events) == 0 {
		fmt.Println("No events.")
		return nil
	}

	for _, ev := range page.Events {
		fmt.Printf("%s  %-8s %6d in / %6d out  $%.5f\n",
			ev.Timestamp.Format("2006-01-02 15:04"),
			ev.Mode, ev.InputTokens, ev.OutputTokens, ev.CostUSD)
	}
	if page.HasMore {
		fmt.Printf("\n%d of %d events shown; raise --limit for more.\n",
			len(page.Events), page.Total)
	}
	return nil
}
