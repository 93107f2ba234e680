package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/arbor/internal/lane"
	"github.com/roach88/arbor/internal/reconcile"
	"github.com/roach88/arbor/internal/view"
)

// ErrEngineStopped is returned by Submit after Stop.
var ErrEngineStopped = errors.New("engine stopped")

// RuntimeError represents a failure that ended a pass.
//
// Runtime errors include:
//   - Description error without an enclosing boundary
//   - Host mutation failure during commit
//   - Re-entrant Work call
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Path locates the failure in the tree, when known.
	Path view.Path

	// Lanes are the lanes of the failed pass. Their updates were dropped.
	Lanes lane.Lanes

	// Err is the underlying error.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeDescription indicates a malformed description with no boundary
	// above it.
	ErrCodeDescription RuntimeErrorCode = "DESCRIPTION_ERROR"

	// ErrCodeHostFailure indicates a host primitive failed during commit.
	// The commit is partially applied.
	ErrCodeHostFailure RuntimeErrorCode = "HOST_FAILURE"

	// ErrCodeReentrantWork indicates Work was called while a unit of work was
	// running, e.g. from a commit hook.
	ErrCodeReentrantWork RuntimeErrorCode = "REENTRANT_WORK"
)

// ErrReentrantWork is returned by Work when it is already running.
var ErrReentrantWork = &RuntimeError{
	Code:    ErrCodeReentrantWork,
	Message: "Work called while the work loop is running",
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if len(e.Path) > 0 {
		msg += fmt.Sprintf(" (path=%s)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsDescriptionError returns true if err is a fatal description error.
// Uses errors.As to handle wrapped errors.
func IsDescriptionError(err error) bool {
	return hasCode(err, ErrCodeDescription)
}

// IsHostFailure returns true if err is a host mutation failure.
func IsHostFailure(err error) bool {
	return hasCode(err, ErrCodeHostFailure)
}

// IsReentrantError returns true if err reports a re-entrant Work call.
func IsReentrantError(err error) bool {
	return hasCode(err, ErrCodeReentrantWork)
}

// NewDescriptionError creates a RuntimeError for an uncontained description
// error.
func NewDescriptionError(lanes lane.Lanes, de *reconcile.DescriptionError) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeDescription,
		Message: "malformed description with no error boundary",
		Path:    de.Path,
		Lanes:   lanes,
		Err:     de,
	}
}

// NewHostFailureError creates a RuntimeError for a failed commit.
func NewHostFailureError(lanes lane.Lanes, path view.Path, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeHostFailure,
		Message: "host mutation failed; commit partially applied",
		Path:    path,
		Lanes:   lanes,
		Err:     err,
	}
}

// BoundaryError is a description error contained at an error boundary.
type BoundaryError struct {
	// Boundary is the path of the boundary node that contained the error.
	Boundary view.Path
	Err      *reconcile.DescriptionError
}

func (e *BoundaryError) Error() string {
	return fmt.Sprintf("contained at %s: %v", e.Boundary, e.Err)
}

func (e *BoundaryError) Unwrap() error {
	return e.Err
}
