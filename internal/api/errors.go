// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// =============================================================================
// ERROR KINDS
// =============================================================================

// ErrorKind classifies an API failure into a category callers can branch on
// without inspecting status codes.
type ErrorKind int

const (
	// KindNetwork covers transport failures: DNS, refused connections, timeouts.
	KindNetwork ErrorKind = iota
	// KindBadRequest is a 400 response.
	KindBadRequest
	// KindAuthRequired is a 401 response. The stored token is cleared.
	KindAuthRequired
	// KindForbidden is a 403 response.
	KindForbidden
	// KindNotFound is a 404 response.
	KindNotFound
	// KindConflict is a 409 response.
	KindConflict
	// KindValidation is a 422 response.
	KindValidation
	// KindRateLimited is a 429 response.
	KindRateLimited
	// KindServer is any 5xx response.
	KindServer
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindBadRequest:
		return "bad request"
	case KindAuthRequired:
		return "auth required"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	case KindRateLimited:
		return "rate limited"
	case KindServer:
		return "server"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Sentinel errors for errors.Is checks against APIError kinds.
var (
	// ErrAuthRequired indicates the request needs a valid token.
	ErrAuthRequired = errors.New("authentication required")

	// ErrForbidden indicates the token lacks permission for the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")
)

// =============================================================================
// API ERROR
// =============================================================================

// APIError is the single error type every Ragline backend failure is
// normalized into. It is built once at the response boundary so the rest of
// the client never parses error bodies.
type APIError struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("ragline api error [%s] (HTTP %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("ragline api error [%s]: %s", e.Kind, e.Message)
}

// Is allows APIError to match the sentinel errors above.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrAuthRequired:
		return e.Kind == KindAuthRequired
	case ErrForbidden:
		return e.Kind == KindForbidden
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrRateLimited:
		return e.Kind == KindRateLimited
	}
	return false
}

// IsAuthError reports whether err is a 401 in disguise.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthRequired)
}

// NetworkError wraps a transport failure into an APIError.
func NetworkError(err error) *APIError {
	return &APIError{
		Kind:    KindNetwork,
		Message: err.Error(),
	}
}

// =============================================================================
// RESPONSE NORMALIZATION
// =============================================================================

// errorBody covers the error shapes the backend produces. "detail" can be a
// string or, for validation failures, a list of field errors.
type errorBody struct {
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail"`
	ErrMsg  string          `json:"error"`
}

type validationDetail struct {
	Loc []json.RawMessage `json:"loc"`
	Msg string            `json:"msg"`
}

// newAPIError converts a non-2xx response into an APIError, probing the body
// for the message in the order the backend emits them.
func newAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		Kind:       kindForStatus(statusCode),
		StatusCode: statusCode,
	}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		switch {
		case parsed.Message != "":
			apiErr.Message = parsed.Message
		case len(parsed.Detail) > 0:
			apiErr.Message = detailMessage(parsed.Detail)
		case parsed.ErrMsg != "":
			apiErr.Message = parsed.ErrMsg
		}
	}

	if apiErr.Message == "" {
		text := strings.TrimSpace(string(body))
		if text != "" && len(text) <= 200 {
			apiErr.Message = text
		} else {
			apiErr.Message = http.StatusText(statusCode)
		}
	}

	return apiErr
}

// detailMessage renders a "detail" field, which is either a plain string or a
// list of validation errors.
func detailMessage(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var details []validationDetail
	if err := json.Unmarshal(raw, &details); err == nil && len(details) > 0 {
		var msgs []string
		for _, d := range details {
			msgs = append(msgs, d.Msg)
		}
		return strings.Join(msgs, "; ")
	}

	return string(raw)
}

func kindForStatus(statusCode int) ErrorKind {
	switch statusCode {
	case http.StatusBadRequest:
		return KindBadRequest
	case http.StatusUnauthorized:
		return KindAuthRequired
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusConflict:
		return KindConflict
	case http.StatusUnprocessableEntity:
		return KindValidation
	case http.StatusTooManyRequests:
		return KindRateLimited
	}
	if statusCode >= 500 {
		return KindServer
	}
	return KindBadRequest
}
