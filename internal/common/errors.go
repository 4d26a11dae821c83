package common

import (
	"context"
	"errors"
	"fmt"
)

// FailureKind classifies a stage failure. The kind decides retryability and
// how the pipeline terminalizes the document.
type FailureKind string

const (
	// Non-transient extraction failures: retrying cannot fix the input.
	FailureUnsupportedFormat FailureKind = "UNSUPPORTED_FORMAT"
	FailureCorruptFile       FailureKind = "CORRUPT_FILE"

	// Transient failures: the same input may succeed on retry.
	FailureEngineUnavailable FailureKind = "ENGINE_UNAVAILABLE"
	FailureTimeout           FailureKind = "TIMEOUT"
	FailureConnectionRefused FailureKind = "CONNECTION_REFUSED"

	// Non-retryable at the stage, but the document continues with a
	// degraded (all-missing) record instead of failing.
	FailureMalformedResponse FailureKind = "MALFORMED_RESPONSE"

	// A defect in a validation rule, isolated per rule.
	FailureRuleError FailureKind = "RULE_ERROR"

	// Fatal: resource exhaustion and the like. The only kind that escapes
	// to the batch caller.
	FailureEnvironment FailureKind = "ENVIRONMENT"
)

// Transient reports whether a retry with the same input is worthwhile.
func (k FailureKind) Transient() bool {
	switch k {
	case FailureEngineUnavailable, FailureTimeout, FailureConnectionRefused:
		return true
	}
	return false
}

// StageError is the structured cause attached to a failed stage attempt.
type StageError struct {
	Stage string // "extract" | "parse" | "validate"
	Kind  FailureKind
	Err   error
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Stage, e.Kind)
}

func (e *StageError) Unwrap() error { return e.Err }

func NewStageError(stage string, kind FailureKind, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Err: err}
}

// KindOf extracts the failure kind from an error chain. Plain context
// timeouts count as FailureTimeout; anything unclassified is treated as an
// environment failure so it is never silently swallowed.
func KindOf(err error) FailureKind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	return FailureEnvironment
}

// IsTransient reports whether the error chain carries a retryable kind.
func IsTransient(err error) bool {
	return KindOf(err).Transient()
}

// IsEnvironment reports whether the error must propagate to the batch caller.
func IsEnvironment(err error) bool {
	return KindOf(err) == FailureEnvironment
}

// WrapError annotates err with a message, preserving the chain.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
