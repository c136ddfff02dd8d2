package errors

import (
	"fmt"
)

// RiptideError is the structured error type for Riptide.
// It provides rich context for error handling, logging, and user presentation.
type RiptideError struct {
	// Code is the unique error code (e.g., "ERR_201_TENANT_NOT_FOUND").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, Storage, Network, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *RiptideError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *RiptideError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by code.
// This enables errors.Is() to work with RiptideError.
func (e *RiptideError) Is(target error) bool {
	if t, ok := target.(*RiptideError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *RiptideError) WithDetail(key, value string) *RiptideError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
// Returns the error for method chaining.
func (e *RiptideError) WithSuggestion(suggestion string) *RiptideError {
	e.Suggestion = suggestion
	return e
}

// New creates a new RiptideError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *RiptideError {
	return &RiptideError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a RiptideError from an existing error.
// The error's message becomes the RiptideError message.
func Wrap(code string, err error) *RiptideError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *RiptideError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// StorageError creates a partition/index storage error.
func StorageError(message string, cause error) *RiptideError {
	return New(ErrCodeCorruptIndex, message, cause)
}

// ValidationError creates a request validation error.
func ValidationError(message string, cause error) *RiptideError {
	return New(ErrCodeInvalidInput, message, cause)
}

// SourceError creates a search-source failure error.
// The engine absorbs these into fallback-tier selection.
func SourceError(message string, cause error) *RiptideError {
	return New(ErrCodeSourceFailed, message, cause)
}

// SourceTimeoutError creates a search-source deadline error.
func SourceTimeoutError(message string, cause error) *RiptideError {
	return New(ErrCodeSourceTimeout, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *RiptideError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable checks if an error is retryable.
// Returns true if the error is a RiptideError with Retryable flag set.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if re, ok := err.(*RiptideError); ok {
		return re.Retryable
	}
	return false
}

// IsFatal checks if an error has fatal severity.
// Fatal errors should abort the current operation.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if re, ok := err.(*RiptideError); ok {
		return re.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a RiptideError.
// Returns empty string if not a RiptideError.
func GetCode(err error) string {
	if re, ok := err.(*RiptideError); ok {
		return re.Code
	}
	return ""
}

// GetCategory extracts the category from a RiptideError.
// Returns empty string if not a RiptideError.
func GetCategory(err error) Category {
	if re, ok := err.(*RiptideError); ok {
		return re.Category
	}
	return ""
}
