package errors

import (
	stderrors "errors"
	"fmt"

	"tfbpdash/domain/core"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, keeping the code of a wrapped
// AppError and deriving one from the domain sentinels otherwise
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    codeFor(err),
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// GetCode returns the error code if err is or wraps an AppError, otherwise
// the code derived from the domain sentinels
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	if err == nil {
		return ""
	}
	return codeFor(err)
}

func codeFor(err error) string {
	switch {
	case core.IsConfigurationError(err):
		return CodeConfigInvalid
	case core.IsInconsistentBaselineError(err):
		return CodeInconsistentBaseline
	case core.IsInvalidInputError(err):
		return CodeInvalidInput
	case stderrors.Is(err, core.ErrInsufficientData):
		return CodeInsufficientData
	}
	return CodeInternalError
}

// Predefined error codes
const (
	CodeConfigInvalid        = "CONFIG_INVALID"
	CodeInconsistentBaseline = "INCONSISTENT_BASELINE"
	CodeInsufficientData     = "INSUFFICIENT_DATA"
	CodeNotFound             = "NOT_FOUND"
	CodeInternalError        = "INTERNAL_ERROR"
	CodeInvalidInput         = "INVALID_INPUT"
)

// ConfigInvalid reports a bad configuration value. The result matches
// core.ErrConfiguration under errors.Is.
func ConfigInvalid(message string) *AppError {
	return &AppError{
		Code:    CodeConfigInvalid,
		Message: message,
		Cause:   core.ErrConfiguration,
	}
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    CodeInvalidInput,
		Message: message,
		Cause:   core.ErrInvalidInput,
	}
}
