package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// HTTPError defines errors that can be mapped to HTTP status codes.
type HTTPError interface {
	error
	StatusCode() int
}

// Domain error types implementing HTTPError interface
type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// UnauthorizedError indicates authentication failure
	UnauthorizedError struct {
		Message string
	}
)

func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *UnauthorizedError) Error() string { return e.Message }

func (e *NotFoundError) StatusCode() int     { return http.StatusNotFound }
func (e *ValidationError) StatusCode() int   { return http.StatusBadRequest }
func (e *UnauthorizedError) StatusCode() int { return http.StatusUnauthorized }

func (e *NotFoundError) Is(target error) bool   { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConversationBlocked is returned in manual reconcile mode while the thread
	// still has live runs. The caller must unblock before submitting.
	ErrConversationBlocked = errors.New("conversation blocked by a live run")

	// ErrUpstream wraps transient failures of the hosted assistant backend.
	ErrUpstream = errors.New("assistant backend unavailable")
)

// ConflictError represents a resource conflict with details about the existing resource
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (conversation_lease, thread)
	ResourceID   string // ID of the existing/conflicting resource
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return e.Message
}

// StatusCode implements the HTTPError interface
func (e *ConflictError) StatusCode() int {
	return http.StatusConflict
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// BlockedError carries the live runs that keep a conversation blocked.
type BlockedError struct {
	ThreadID string
	RunIDs   []string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("thread %s has live runs: %s", e.ThreadID, strings.Join(e.RunIDs, ", "))
}

func (e *BlockedError) StatusCode() int { return http.StatusConflict }

func (e *BlockedError) Is(target error) bool { return target == ErrConversationBlocked }

// SubmissionError is a failed create_message or create_run. The turn is abandoned
// and never retried automatically: there is no idempotency key to dedupe a resend.
type SubmissionError struct {
	Stage string // "create_message" or "create_run"
	Err   error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

func (e *SubmissionError) StatusCode() int { return http.StatusBadGateway }
