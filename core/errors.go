package core

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a distillation error.
type ErrorCode string

const (
	ErrInput      ErrorCode = "INPUT"      // fatal: notebook structure unreadable
	ErrCell       ErrorCode = "CELL"       // non-fatal: one cell or output skipped
	ErrEstimation ErrorCode = "ESTIMATION" // non-fatal: tokenizer fell back
	ErrFormat     ErrorCode = "FORMAT"     // fatal: unsupported output format
	ErrOption     ErrorCode = "OPTION"     // fatal: invalid option value
)

// DistillError is a structured error with a code and optional details.
type DistillError struct {
	Code    ErrorCode
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *DistillError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DistillError) Unwrap() error {
	return e.Err
}

// NewInputError creates a fatal error for a malformed or unreadable notebook.
func NewInputError(msg string, err error) *DistillError {
	return &DistillError{
		Code:    ErrInput,
		Message: msg,
		Err:     err,
	}
}

// NewFormatError creates a fatal error for an unsupported output format.
func NewFormatError(format string) *DistillError {
	return &DistillError{
		Code:    ErrFormat,
		Message: fmt.Sprintf("unsupported output format %q (want one of %v)", format, SupportedFormats()),
		Details: map[string]any{"format": format},
	}
}

// NewOptionError creates a fatal error for an invalid option value.
func NewOptionError(name string, value any) *DistillError {
	return &DistillError{
		Code:    ErrOption,
		Message: fmt.Sprintf("invalid value for %s: %v", name, value),
		Details: map[string]any{"option": name, "value": value},
	}
}

// Is checks if err, or anything it wraps, is a DistillError with the given code.
func Is(err error, code ErrorCode) bool {
	var dErr *DistillError
	if errors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// Diagnostic is a non-fatal problem recorded during a run.
type Diagnostic struct {
	Code      ErrorCode `json:"code"`
	CellIndex int       `json:"cell_index"` // -1 when not tied to a cell
	Message   string    `json:"message"`
}

// String formats the diagnostic for logs and text headers.
func (d Diagnostic) String() string {
	if d.CellIndex < 0 {
		return fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return fmt.Sprintf("%s: cell %d: %s", d.Code, d.CellIndex, d.Message)
}
