package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a caplog error code.
type ErrorCode string

const (
	ErrInvalidArgument     ErrorCode = "INVALID_ARGUMENT"     // 400
	ErrAmbiguousAddressing ErrorCode = "AMBIGUOUS_ADDRESSING" // 400
	ErrPathNotAllowed      ErrorCode = "PATH_NOT_ALLOWED"     // 403
	ErrNotFound            ErrorCode = "NOT_FOUND"            // 404
	ErrNameAlreadyExists   ErrorCode = "NAME_ALREADY_EXISTS"  // 409
	ErrInvalidDatasetFile  ErrorCode = "INVALID_DATASET_FILE" // 422
	ErrCancelled           ErrorCode = "CANCELLED"            // 499
	ErrInternal            ErrorCode = "INTERNAL"             // 500
)

// CaplogError represents a structured error with code, status, and details.
type CaplogError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *CaplogError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidArgument creates a 400 error for invalid operation parameters.
func NewInvalidArgument(msg string) *CaplogError {
	return &CaplogError{
		Code:    ErrInvalidArgument,
		Status:  400,
		Message: msg,
	}
}

// NewAmbiguousAddressing creates a 400 error for when both ID and name are provided.
func NewAmbiguousAddressing() *CaplogError {
	return &CaplogError{
		Code:    ErrAmbiguousAddressing,
		Status:  400,
		Message: "cannot specify both id and name; use one addressing mode",
	}
}

// NewPathNotAllowed creates a 403 error for export/import paths outside the allowlist.
func NewPathNotAllowed(path, reason string) *CaplogError {
	return &CaplogError{
		Code:    ErrPathNotAllowed,
		Status:  403,
		Message: fmt.Sprintf("path not allowed: %s", reason),
		Details: map[string]any{"path": path},
	}
}

// NewNotFound creates a 404 error for when a dataset cannot be found.
func NewNotFound(identifier string) *CaplogError {
	return &CaplogError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("dataset not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewNameAlreadyExists creates a 409 error for dataset name collisions.
func NewNameAlreadyExists(name string) *CaplogError {
	return &CaplogError{
		Code:    ErrNameAlreadyExists,
		Status:  409,
		Message: fmt.Sprintf("dataset named %q already exists", name),
		Details: map[string]any{"name": name},
	}
}

// NewInvalidDatasetFile creates a 422 error for malformed import files.
// line is 1-based; 0 means the problem is not tied to a specific line.
func NewInvalidDatasetFile(line int, reason string) *CaplogError {
	details := map[string]any{"reason": reason}
	if line > 0 {
		details["line"] = line
	}
	return &CaplogError{
		Code:    ErrInvalidDatasetFile,
		Status:  422,
		Message: fmt.Sprintf("invalid dataset file: %s", reason),
		Details: details,
	}
}

// NewCancelled creates a 499 error for a context-cancelled operation.
func NewCancelled(operation string) *CaplogError {
	return &CaplogError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("operation cancelled: %s", operation),
		Details: map[string]any{"operation": operation},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The original error is kept in Details for logging; the message stays generic.
func NewInternal(err error) *CaplogError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &CaplogError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if an error is a CaplogError with the given code.
// Unwraps wrapped errors.
func Is(err error, code ErrorCode) bool {
	var cErr *CaplogError
	if stderrors.As(err, &cErr) {
		return cErr.Code == code
	}
	return false
}
