// Package errtypes defines the domain error taxonomy (spec §7), adapted from
// the teacher's internal/errors/types.go retry-ability classification.
package errtypes

import (
	"errors"
	"fmt"
)

// IndexerUnavailableError means the external markdown indexer subprocess
// could not be invoked (binary missing, spawn failure). It fails fast at the
// task-service boundary; an empty result set is a distinct, valid outcome.
type IndexerUnavailableError struct {
	Err error
}

func (e *IndexerUnavailableError) Error() string {
	return fmt.Sprintf("indexer unavailable: %v", e.Err)
}

func (e *IndexerUnavailableError) Unwrap() error { return e.Err }

// SpawnError wraps a failure to launch the AI assistant subprocess, a
// worktree setup failure, or a pane-create failure. These never propagate
// past the supervisor; they become a structured "blocked" reason on the task.
type SpawnError struct {
	TaskID string
	Stage  string // "worktree_setup" | "subprocess_launch" | "pane_create"
	Err    error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn failed for task %s at %s: %v", e.TaskID, e.Stage, e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Reason renders the structured reason string persisted onto the blocked task.
func (e *SpawnError) Reason() string {
	return fmt.Sprintf("%s_failed: %v", e.Stage, e.Err)
}

// OAuthErrorCode enumerates the RFC 6749 / OAuth 2.1 error codes spec §4.6 names.
type OAuthErrorCode string

const (
	ErrInvalidRequest       OAuthErrorCode = "invalid_request"
	ErrInvalidClient        OAuthErrorCode = "invalid_client"
	ErrInvalidGrant         OAuthErrorCode = "invalid_grant"
	ErrUnauthorizedClient   OAuthErrorCode = "unauthorized_client"
	ErrUnsupportedGrantType OAuthErrorCode = "unsupported_grant_type"
	ErrInvalidScope         OAuthErrorCode = "invalid_scope"
	ErrAccessDenied         OAuthErrorCode = "access_denied"
	ErrServerError          OAuthErrorCode = "server_error"
)

// OAuthError carries an RFC 6749 error code plus a human description, and
// the HTTP status it maps to.
type OAuthError struct {
	Code        OAuthErrorCode
	Description string
	Status      int
}

func (e *OAuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// NewOAuthError builds an OAuthError, defaulting the HTTP status from the code
// per the mapping in spec §7.
func NewOAuthError(code OAuthErrorCode, description string) *OAuthError {
	return &OAuthError{Code: code, Description: description, Status: statusForCode(code)}
}

func statusForCode(code OAuthErrorCode) int {
	switch code {
	case ErrInvalidClient:
		return 401
	case ErrAccessDenied, ErrUnauthorizedClient:
		return 403
	case ErrServerError:
		return 500
	default:
		return 400
	}
}

// ValidationError represents malformed or missing user input at an HTTP
// boundary — surfaced immediately as 400 with structured detail.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// AsSpawnError extracts a *SpawnError from err, if present.
func AsSpawnError(err error) (*SpawnError, bool) {
	var se *SpawnError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
