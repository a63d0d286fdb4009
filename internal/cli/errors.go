// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error handling and exit codes for ragline commands.
//
// Handlers always return errors; main decides how to display them and
// which exit code to use. Exit codes are stable so scripts can branch
// on failure categories.

package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/ragline/ragline-tui/internal/api"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitAuthError    = 4
	ExitNetworkError = 5
	ExitNotFound     = 6
	ExitTimeout      = 7
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError wraps a failure with the command context it happened in.
type CommandError struct {
	Command string
	Action  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s %s: %v", e.Command, e.Action, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// UsageError marks invalid command-line input; it maps to ExitUsageError
// and the message should tell the user the correct form.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// NewUsageError creates a UsageError.
func NewUsageError(format string, a ...any) error {
	return &UsageError{Message: fmt.Sprintf(format, a...)}
}

// =============================================================================
// EXIT CODE MAPPING
// =============================================================================

// GetExitCode maps an error to its exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usage *UsageError
	if errors.As(err, &usage) {
		return ExitUsageError
	}

	switch {
	case errors.Is(err, api.ErrAuthRequired), errors.Is(err, api.ErrForbidden):
		return ExitAuthError
	case errors.Is(err, api.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return ExitTimeout
		}
		return ExitNetworkError
	}

	return ExitGeneralError
}

// Exit prints the error to stderr and exits with its mapped code. A nil
// error exits 0 silently.
func Exit(err error) {
	if err == nil {
		os.Exit(ExitSuccess)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(GetExitCode(err))
}
