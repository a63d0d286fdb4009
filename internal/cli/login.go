// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// login.go - Account commands: login, logout, register.
//
// Command: login
// Short:   Sign in to the Ragline backend
// Aliases: signin
//
// Passwords are read without echo via the terminal; they are never
// accepted on the command line where they would land in shell history.
//
// Examples:
//   ragline login
//   ragline login --email ana@example.com
//   ragline logout
//   ragline register --email ana@example.com --name "Ana"
package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// HandleLogin handles the "login" command.
func HandleLogin(args Args) error {
	app, err := NewApp(args)
	if err != nil {
		return err
	}

	parser := NewArgParser(args.Raw)
	email := parser.Flag("email")
	if email == "" {
		email, err = readLine("Email: ")
		if err != nil {
			return err
		}
	}
	if email == "" {
		return NewUsageError("login needs an email address")
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), app.Config.RequestTimeout())
	defer cancel()

	resp, err := app.Client.Login(ctx, email, password)
	if err != nil {
		return &CommandError{Command: "login", Err: err}
	}

	if args.JSON {
		return NewJSONResponse("login", map[string]string{
			"email": resp.User.Email,
			"role":  resp.User.Role,
		}).Print()
	}
	fmt.Printf("Signed in as %s (%s)\n", resp.User.Email, resp.User.Role)
	if app.Tokens.Tier().String() == "session" {
		fmt.Println("Token held in memory only; it will not survive this process.")
	}
	return nil
}

// HandleLogout handles the "logout" command.
func HandleLogout(args Args) error {
	app, err := NewApp(args)
	if err != nil {
		return err
	}

	if !app.Tokens.HasToken() {
		fmt.Println("Not signed in.")
		return nil
	}

	// Best effort: the server invalidates the token, but the local copy
	// is discarded regardless.
	ctx, cancel := context.WithTimeout(context.Background(), app.Config.RequestTimeout())
	defer cancel()
	if err := app.Client.Logout(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "warning: backend logout failed: %v\n", err)
	}

	if err := app.Tokens.Clear(); err != nil {
		return &CommandError{Command: "logout", Err: err}
	}
	fmt.Println("Signed out.")
	return nil
}

// HandleRegister handles the "register" command.
func HandleRegister(args Args) error {
	app, err := NewApp(args)
	if err != nil {
		return err
	}

	parser := NewArgParser(args.Raw)
	email := parser.Flag("email")
	if email == "" {
		email, err = readLine("Email: ")
		if err != nil {
			return err
		}
	}
	if email == "" {
		return NewUsageError("register needs an email address")
	}

	name := parser.Flag("name")
	if name == "" {
		name, err = readLine("Name (optional): ")
		if err != nil {
			return err
		}
	}

	password, err := readPassword("Password: ")
	if err != nil {
		return err
	}
	confirm, err := readPassword("Confirm password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return NewUsageError("passwords do not match")
	}

	ctx, cancel := context.WithTimeout(context.Background(), app.Config.RequestTimeout())
	defer cancel()

	resp, err := app.Client.Register(ctx, email, password, name)
	if err != nil {
		return &CommandError{Command: "register", Err: err}
	}

	fmt.Printf("Account created; signed in as %s\n", resp.User.Email)
	return nil
}

// =============================================================================
// TERMINAL INPUT
// =============================================================================

// readLine reads one line of echoed input from stdin.
func readLine(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads a password without echo. Falls back to echoed
// input when stdin is not a terminal (piped input in scripts).
func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return readLine(prompt)
	}

	fmt.Print(prompt)
	secret, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(secret), nil
}
