// Package errors provides structured error types for gerrywalk.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across the library and CLI
//   - Machine-readable error codes for programmatic handling
//   - Typed errors for the sampling failure modes a caller must tell apart
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - *_EXHAUSTED: Bounded search budgets that ran out
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidInput, "unknown node: %d", v)
//	if errors.Is(err, errors.ErrCodeInvalidInput) {
//	    // Handle validation error
//	}
//
//	// Typed errors carry their code too
//	var me *errors.MetagraphExhaustion
//	if stderrors.As(err, &me) {
//	    // every adjacent district pair failed for this step
//	}
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput      Code = "INVALID_INPUT"
	ErrCodeInvalidGraph      Code = "INVALID_GRAPH"
	ErrCodeInvalidAssignment Code = "INVALID_ASSIGNMENT"
	ErrCodeInvalidConfig     Code = "INVALID_CONFIG"
	ErrCodeUnknownUpdater    Code = "UNKNOWN_UPDATER"

	// Chain construction and constraint errors
	ErrCodeDuplicateAssignment Code = "DUPLICATE_ASSIGNMENT"
	ErrCodeConfiguration       Code = "CONFIGURATION_ERROR"
	ErrCodeConstraintType      Code = "CONSTRAINT_TYPE"

	// Proposal errors
	ErrCodeBalanceExhausted   Code = "BALANCE_EXHAUSTED"
	ErrCodeMetagraphExhausted Code = "METAGRAPH_EXHAUSTED"
	ErrCodeReversibility      Code = "REVERSIBILITY"
	ErrCodePopulationBalance  Code = "POPULATION_BALANCE"
	ErrCodeProposalsExhausted Code = "PROPOSALS_EXHAUSTED"
	ErrCodeDisconnected       Code = "DISCONNECTED"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// coded is implemented by the typed errors below.
type coded interface {
	error
	Code() Code
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error or a typed domain error
// with a matching code.
func Is(err error, code Code) bool {
	return GetCode(err) == code && code != ""
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if no error in the chain carries a code.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var c coded
	if errors.As(err, &c) {
		return c.Code()
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// =============================================================================
// Domain Error Types
// =============================================================================

// ConfigurationError reports that the initial partition handed to a chain
// fails one or more constraints. Failures lists every failing constraint by
// name, in validator order.
type ConfigurationError struct {
	Failures []string
	Cause    error // aggregated per-constraint errors (optional)
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("initial state is invalid: failed constraints: %s", strings.Join(e.Failures, ", "))
}

func (e *ConfigurationError) Unwrap() error { return e.Cause }

// Code returns the error code for this error type.
func (e *ConfigurationError) Code() Code { return ErrCodeConfiguration }

// ConstraintTypeError reports a constraint whose predicate returned
// something other than a boolean.
type ConstraintTypeError struct {
	Constraint string
	Got        string // dynamic type of the returned value
}

func (e *ConstraintTypeError) Error() string {
	return fmt.Sprintf("constraint %q returned %s, want bool", e.Constraint, e.Got)
}

// Code returns the error code for this error type.
func (e *ConstraintTypeError) Code() Code { return ErrCodeConstraintType }

// BalanceExhaustion reports that no balanced cut was found for one pair of
// parts within the tree-redraw budget. Proposals recover from it by trying
// another pair.
type BalanceExhaustion struct {
	Parts    [2]int
	Attempts int
}

func (e *BalanceExhaustion) Error() string {
	return fmt.Sprintf("no balanced cut for parts %d and %d after %d trees", e.Parts[0], e.Parts[1], e.Attempts)
}

// Code returns the error code for this error type.
func (e *BalanceExhaustion) Code() Code { return ErrCodeBalanceExhausted }

// MetagraphExhaustion reports that every adjacent pair of parts was
// exhausted during a single proposal.
type MetagraphExhaustion struct {
	Pairs int
}

func (e *MetagraphExhaustion) Error() string {
	return fmt.Sprintf("all %d adjacent part pairs exhausted without a balanced cut", e.Pairs)
}

// Code returns the error code for this error type.
func (e *MetagraphExhaustion) Code() Code { return ErrCodeMetagraphExhausted }

// ReversibilityError reports that a reversible proposal found more balance
// edges than its configured bound M.
type ReversibilityError struct {
	Cuts int
	M    int
}

func (e *ReversibilityError) Error() string {
	return fmt.Sprintf("found %d balance edges, more than M=%d; increase M", e.Cuts, e.M)
}

// Code returns the error code for this error type.
func (e *ReversibilityError) Code() Code { return ErrCodeReversibility }

// DuplicateAssignmentError reports a node assigned to two different parts.
type DuplicateAssignmentError struct {
	Node   int
	First  int
	Second int
}

func (e *DuplicateAssignmentError) Error() string {
	return fmt.Sprintf("node %d assigned to both part %d and part %d", e.Node, e.First, e.Second)
}

// Code returns the error code for this error type.
func (e *DuplicateAssignmentError) Code() Code { return ErrCodeDuplicateAssignment }
