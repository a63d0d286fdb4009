// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// status.go - Status command implementation.
//
// Command: status
// Short:   Display backend and client status
// Aliases: s
//
// Status Sections:
//   Backend:  URL, reachability, reported version and components
//   Account:  signed-in identity and token storage tier
//   Client:   chat mode, collection, config file location
//
// Examples:
//   ragline status
//   ragline status --json
package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"

	"github.com/ragline/ragline-tui/internal/config"
	"github.com/ragline/ragline-tui/internal/ui/styles"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	statusTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(styles.Teal).
				MarginBottom(1)

	statusSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(styles.TextPrimary).
				MarginTop(1)

	statusLabelStyle = lipgloss.NewStyle().
				Foreground(styles.TextSecondary).
				Width(14)

	statusOKStyle = lipgloss.NewStyle().
			Foreground(styles.Emerald)

	statusBadStyle = lipgloss.NewStyle().
			Foreground(styles.Rose)
)

// statusData is the payload of "status --json".
type statusData struct {
	BackendURL     string            `json:"backend_url"`
	BackendHealthy bool              `json:"backend_healthy"`
	BackendVersion string            `json:"backend_version,omitempty"`
	Components     map[string]string `json:"components,omitempty"`
	LLMProvider    string            `json:"llm_provider,omitempty"`
	LLMModel       string            `json:"llm_model,omitempty"`
	SignedIn       bool              `json:"signed_in"`
	Email          string            `json:"email,omitempty"`
	TokenTier      string            `json:"token_tier,omitempty"`
	Mode           string            `json:"mode"`
	Collection     string            `json:"collection,omitempty"`
	ConfigPath     string            `json:"config_path,omitempty"`
}

// HandleStatus handles the "status" command.
func HandleStatus(args Args) error {
	app, err := NewApp(args)
	if err != nil {
		return err
	}

	data := statusData{
		BackendURL: app.Client.BaseURL(),
		SignedIn:   app.Tokens.HasToken(),
		Email:      app.Tokens.Email(),
		Mode:       app.Config.Chat.DefaultMode,
		Collection: app.Config.Chat.CollectionID,
	}
	if data.SignedIn {
		data.TokenTier = app.Tokens.Tier().String()
	}
	if path, err := config.ConfigPathTOML(); err == nil {
		data.ConfigPath = path
	}

	ctx, cancel := context.WithTimeout(context.Background(), app.Config.RequestTimeout())
	defer cancel()
	if health, err := app.Client.Health(ctx); err == nil {
		data.BackendHealthy = health.Healthy()
		data.BackendVersion = health.Version
		data.Components = health.Components
	}

	// Generation settings are admin-only; skip quietly when forbidden.
	if args.Verbose && data.SignedIn {
		if llm, err := app.Client.LLMConfig(ctx); err == nil {
			data.LLMProvider = llm.Provider
			data.LLMModel = llm.Model
		}
	}

	if args.JSON {
		return NewJSONResponse("status", data).Print()
	}

	printStatus(data)
	return nil
}

func printStatus(data statusData) {
	fmt.Println(statusTitleStyle.Render("ragline status"))

	fmt.Println(statusSectionStyle.Render("Backend"))
	printField("URL", data.BackendURL)
	if data.BackendHealthy {
		printField("Status", statusOKStyle.Render(styles.StatusIndicators.Success+" online"))
	} else {
		printField("Status", statusBadStyle.Render(styles.StatusIndicators.Error+" unreachable"))
	}
	if data.BackendVersion != "" {
		printField("Version", data.BackendVersion)
	}
	if len(data.Components) > 0 {
		names := make([]string, 0, len(data.Components))
		for name := range data.Components {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			state := data.Components[name]
			rendered := state
			if state == "ok" || state == "healthy" {
				rendered = statusOKStyle.Render(state)
			} else {
				rendered = statusBadStyle.Render(state)
			}
			printField(name, rendered)
		}
	}

	if data.LLMModel != "" {
		printField("Generation", data.LLMProvider+"/"+data.LLMModel)
	}

	fmt.Println(statusSectionStyle.Render("Account"))
	if data.SignedIn {
		printField("Signed in", data.Email)
		printField("Token", data.TokenTier)
	} else {
		printField("Signed in", "no (guest)")
	}

	fmt.Println(statusSectionStyle.Render("Client"))
	printField("Mode", data.Mode)
	if data.Collection != "" {
		printField("Collection", data.Collection)
	}
	if data.ConfigPath != "" {
		printField("Config", data.ConfigPath)
	}
}

func printField(label, value string) {
	fmt.Printf("  %s %s\n", statusLabelStyle.Render(label), value)
}
