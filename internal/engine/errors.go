package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/shadowgov/internal/game"
)

// Error is a failure detected while running a session.
//
// The first three codes are recoverable: the engine re-prompts the same
// provider and eventually substitutes a default choice. StateCorruption
// aborts the session.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Player is the seat involved, if any.
	Player string

	// Phase is the phase the error occurred in.
	Phase game.Phase

	// Err is the underlying cause.
	Err error
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// CodeIllegalAction is a well-formed response whose choice is not legal.
	CodeIllegalAction ErrorCode = "ILLEGAL_ACTION"

	// CodeProtocolViolation is a malformed response: wrong kind, a provider
	// error or a provider panic.
	CodeProtocolViolation ErrorCode = "PROTOCOL_VIOLATION"

	// CodeAgentTimeout is a provider that did not answer before its deadline.
	CodeAgentTimeout ErrorCode = "AGENT_TIMEOUT"

	// CodeStateCorruption is a broken invariant. The session cannot continue.
	CodeStateCorruption ErrorCode = "STATE_CORRUPTION"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Player != "" {
		return fmt.Sprintf("%s: %s (player=%s, phase=%s)", e.Code, e.Message, e.Player, e.Phase)
	}
	if e.Phase != "" {
		return fmt.Sprintf("%s: %s (phase=%s)", e.Code, e.Message, e.Phase)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsStateCorruption reports whether err aborted a session.
func IsStateCorruption(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == CodeStateCorruption
	}
	return false
}

// CodeOf returns the engine error code of err, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func newCorruption(phase game.Phase, err error) *Error {
	return &Error{
		Code:    CodeStateCorruption,
		Message: err.Error(),
		Phase:   phase,
		Err:     err,
	}
}
