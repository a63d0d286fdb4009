// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// export.go - Session transcript export command.
//
// Command: export
// Short:   Export a saved session transcript
//
// Examples:
//   ragline export 4f1c2d                      Markdown to stdout
//   ragline export 4f1c2d --format json        JSON to stdout
//   ragline export 4f1c2d --output notes.md    Write to a file
//   ragline export 4f1c2d --dir ./exports      Auto-named file in a directory
package cli

import (
	"fmt"
	"os"

	"github.com/ragline/ragline-tui/internal/export"
	"github.com/ragline/ragline-tui/internal/persist"
)

// HandleExport handles the "export" command.
func HandleExport(args Args) error {
	parser := NewArgParser(args.Raw)
	sessionID := parser.Positional(0)
	if sessionID == "" {
		return NewUsageError("usage: ragline export <session-id> [--format md|json] [--output FILE]")
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

	meta, err := local.GetMeta(sessionID)
	if err != nil {
		return &CommandError{Command: "export", Action: sessionID, Err: err}
	}
	messages, err := local.LoadMessages(sessionID)
	if err != nil {
		return &CommandError{Command: "export", Action: sessionID, Err: err}
	}

	transcript := &export.Transcript{Session: *meta, Messages: messages}

	opts := export.DefaultOptions()
	exporter, err := export.ForFormat(parser.Flag("format"), opts)
	if err != nil {
		return NewUsageError("%v", err)
	}

	// --output writes one named file; --dir writes an auto-named file;
	// neither prints to stdout.
	if out := parser.Flag("output"); out != "" {
		content, err := exporter.Export(transcript)
		if err != nil {
			return &CommandError{Command: "export", Err: err}
		}
		if err := os.WriteFile(out, content, 0644); err != nil {
			return &CommandError{Command: "export", Err: err}
		}
		if !args.Quiet {
			fmt.Fprintf(os.Stderr, "Exported to %s\n", out)
		}
		return nil
	}

	if dir := parser.Flag("dir"); dir != "" {
		opts.OutputDir = dir
		written, err := export.ExportToFile(transcript, exporter, opts)
		if err != nil {
			return &CommandError{Command: "export", Err: err}
		}
		if !args.Quiet {
			fmt.Fprintf(os.Stderr, "Exported to %s\n", written)
		}
		return nil
	}

	content, err := exporter.Export(transcript)
	if err != nil {
		return &CommandError{Command: "export", Err: err}
	}
	_, err = os.Stdout.Write(content)
	return err
}
