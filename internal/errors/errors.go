package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a catalog error code.
type ErrorCode string

const (
	ErrValidation   ErrorCode = "VALIDATION"     // 400
	ErrNotFound     ErrorCode = "NOT_FOUND"      // 404
	ErrFileNotFound ErrorCode = "FILE_NOT_FOUND" // 404
	ErrLocked       ErrorCode = "LOCKED"         // 409
	ErrCancelled    ErrorCode = "CANCELLED"      // 499
	ErrStorage      ErrorCode = "STORAGE"        // 500
	ErrInternal     ErrorCode = "INTERNAL"       // 500
)

// CatalogError represents a structured error with code, status, and details.
type CatalogError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	cause error
}

// Error implements the error interface.
func (e *CatalogError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying driver or I/O error, if any.
func (e *CatalogError) Unwrap() error {
	return e.cause
}

// NewValidation creates a 400 error for caller-supplied input that cannot be written.
func NewValidation(msg string) *CatalogError {
	return &CatalogError{
		Code:    ErrValidation,
		Status:  400,
		Message: msg,
	}
}

// NewEmptyField creates a validation error naming the empty field.
func NewEmptyField(field string) *CatalogError {
	return &CatalogError{
		Code:    ErrValidation,
		Status:  400,
		Message: fmt.Sprintf("%s must not be empty", field),
		Details: map[string]any{"field": field},
	}
}

// NewNotFound creates a 404 error for a tape id that is not in storage.
func NewNotFound(id int64) *CatalogError {
	return &CatalogError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("tape not found: %d", id),
		Details: map[string]any{"id": id},
	}
}

// NewFileNotFound creates a 404 error for a missing import file.
func NewFileNotFound(path string) *CatalogError {
	return &CatalogError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewLocked creates a 409 error when another process owns the storage file.
func NewLocked(path string) *CatalogError {
	return &CatalogError{
		Code:    ErrLocked,
		Status:  409,
		Message: fmt.Sprintf("storage file is in use by another process: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewStorage creates a 500 error wrapping an I/O, connection, or schema failure.
func NewStorage(err error) *CatalogError {
	msg := "storage error"
	if err != nil {
		msg = err.Error()
	}
	return &CatalogError{
		Code:    ErrStorage,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// NewCancelled creates a 499 error when the caller's context ends mid-operation.
func NewCancelled(operation string) *CatalogError {
	return &CatalogError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
	}
}

// NewInternal creates a 500 error for failures outside the storage file,
// such as writing an export.
func NewInternal(err error) *CatalogError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &CatalogError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if an error is a CatalogError with the given code.
func Is(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// CodeOf returns the code of the first CatalogError in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var cErr *CatalogError
	if stderrors.As(err, &cErr) {
		return cErr.Code
	}
	return ""
}
