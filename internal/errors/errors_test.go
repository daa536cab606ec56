package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestCatalogError_Error(t *testing.T) {
	err := &CatalogError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "tape not found: 7",
	}

	expected := "NOT_FOUND: tape not found: 7"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewValidation(t *testing.T) {
	err := NewValidation("id must be a positive integer")

	if err.Code != ErrValidation {
		t.Errorf("Code = %q, want %q", err.Code, ErrValidation)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "id must be a positive integer" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewEmptyField(t *testing.T) {
	err := NewEmptyField("title")

	if err.Code != ErrValidation {
		t.Errorf("Code = %q, want %q", err.Code, ErrValidation)
	}
	if err.Message != "title must not be empty" {
		t.Errorf("Message = %q, want %q", err.Message, "title must not be empty")
	}
	if err.Details["field"] != "title" {
		t.Errorf("Details[field] = %v, want %q", err.Details["field"], "title")
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound(42)

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["id"] != int64(42) {
		t.Errorf("Details[id] = %v, want 42", err.Details["id"])
	}
}

func TestNewFileNotFound(t *testing.T) {
	err := NewFileNotFound("/tmp/backup.jsonl")

	if err.Code != ErrFileNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrFileNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
}

func TestNewLocked(t *testing.T) {
	err := NewLocked("/tmp/tapes.db")

	if err.Code != ErrLocked {
		t.Errorf("Code = %q, want %q", err.Code, ErrLocked)
	}
	if err.Status != 409 {
		t.Errorf("Status = %d, want 409", err.Status)
	}
}

func TestNewStorage(t *testing.T) {
	cause := fmt.Errorf("disk I/O error")
	err := NewStorage(cause)

	if err.Code != ErrStorage {
		t.Errorf("Code = %q, want %q", err.Code, ErrStorage)
	}
	if err.Status != 500 {
		t.Errorf("Status = %d, want 500", err.Status)
	}
	if err.Message != "disk I/O error" {
		t.Errorf("Message = %q, want %q", err.Message, "disk I/O error")
	}
	if !stderrors.Is(err, cause) {
		t.Error("NewStorage should wrap its cause")
	}
}

func TestNewStorage_NilError(t *testing.T) {
	err := NewStorage(nil)

	if err.Message != "storage error" {
		t.Errorf("Message = %q, want %q", err.Message, "storage error")
	}
}

func TestNewCancelled(t *testing.T) {
	err := NewCancelled("export")

	if err.Code != ErrCancelled {
		t.Errorf("Code = %q, want %q", err.Code, ErrCancelled)
	}
	if err.Status != 499 {
		t.Errorf("Status = %d, want 499", err.Status)
	}
	if err.Message != "export cancelled" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewInternal(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := NewInternal(cause)

	if err.Code != ErrInternal || err.Status != 500 {
		t.Errorf("got %s/%d, want INTERNAL/500", err.Code, err.Status)
	}
	if !stderrors.Is(err, cause) {
		t.Error("NewInternal should wrap its cause")
	}
	if NewInternal(nil).Message != "internal error" {
		t.Errorf("NewInternal(nil).Message = %q", NewInternal(nil).Message)
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		code     ErrorCode
		expected bool
	}{
		{"matching code", NewNotFound(1), ErrNotFound, true},
		{"different code", NewNotFound(1), ErrValidation, false},
		{"wrapped", fmt.Errorf("edit: %w", NewEmptyField("tape")), ErrValidation, true},
		{"plain error", fmt.Errorf("boom"), ErrStorage, false},
		{"nil", nil, ErrStorage, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.expected {
				t.Errorf("Is() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestCodeOf(t *testing.T) {
	if got := CodeOf(NewLocked("x")); got != ErrLocked {
		t.Errorf("CodeOf() = %q, want %q", got, ErrLocked)
	}
	if got := CodeOf(fmt.Errorf("plain")); got != "" {
		t.Errorf("CodeOf(plain) = %q, want empty", got)
	}
}
