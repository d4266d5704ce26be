package domain

import (
	"errors"
)

// Domain error types. A merge conflict is deliberately NOT represented here:
// conflicts are a first-class outcome of the merge engine and travel as normal
// return values, never as errors.
type (
	// NotFoundError indicates a resource was not found
	NotFoundError struct {
		Message string
	}

	// ValidationError indicates invalid input
	ValidationError struct {
		Message string
	}

	// PreconditionError indicates an operation was attempted against a
	// resource in the wrong state (branch not in draft, no rebase in
	// progress, item not in conflict)
	PreconditionError struct {
		Message string
	}
)

// Error implementations
func (e *NotFoundError) Error() string     { return e.Message }
func (e *ValidationError) Error() string   { return e.Message }
func (e *PreconditionError) Error() string { return e.Message }

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrPrecondition = errors.New("precondition failed")
)

func (e *NotFoundError) Is(target error) bool     { return target == ErrNotFound }
func (e *ValidationError) Is(target error) bool   { return target == ErrValidation }
func (e *PreconditionError) Is(target error) bool { return target == ErrPrecondition }

// ConflictError represents a uniqueness conflict with details about the
// existing resource (e.g. a duplicate slug within a branch)
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (content_item, branch, snapshot)
	ResourceID   string // ID of the existing/conflicting resource
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	return e.Message
}

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
