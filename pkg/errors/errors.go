package errors

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryRejectedInput ErrorCategory = "rejected_input"
	CategoryParse         ErrorCategory = "parse"
	CategoryCollaborator  ErrorCategory = "collaborator"
	CategoryConfiguration ErrorCategory = "configuration"
	CategoryStore         ErrorCategory = "store"
	CategoryInternal      ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// Rejected-input errors: the request fails fast, no partial output.
	CodeUnauthenticated ErrorCode = "unauthenticated"
	CodeMissingFile     ErrorCode = "missing_file"
	CodeWrongFileType   ErrorCode = "wrong_file_type"
	CodeFileTooLarge    ErrorCode = "file_too_large"
	CodeTooManyRows     ErrorCode = "too_many_rows"

	// Parse errors
	CodeInvalidFormat ErrorCode = "invalid_format"
	CodeEncodingError ErrorCode = "encoding_error"

	// Collaborator errors (column inference, transliteration, invoice store)
	CodeInferenceFailed ErrorCode = "inference_failed"
	CodeTranslitFailed  ErrorCode = "transliteration_failed"
	CodeInvalidResponse ErrorCode = "invalid_response"

	// Configuration errors
	CodeInvalidConfig ErrorCode = "invalid_config"
	CodeMissingConfig ErrorCode = "missing_config"

	// Store errors
	CodeStoreUnavailable ErrorCode = "store_unavailable"
	CodeQueryFailed      ErrorCode = "query_failed"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// ReconcilerError is the base error type for all application errors
type ReconcilerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *ReconcilerError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *ReconcilerError) Unwrap() error {
	return e.Cause
}

// HTTPStatus returns the HTTP status code to report for the error.
// Rejected-input errors map to client statuses; everything else is opaque.
func (e *ReconcilerError) HTTPStatus() int {
	switch e.Code {
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case CodeMissingFile, CodeWrongFileType, CodeTooManyRows:
		return http.StatusBadRequest
	}

	switch e.Category {
	case CategoryRejectedInput, CategoryParse:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// GetExitCode returns an appropriate process exit code for CLI usage
func (e *ReconcilerError) GetExitCode() int {
	switch e.Category {
	case CategoryRejectedInput:
		return 2
	case CategoryParse:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryCollaborator, CategoryStore:
		return 5
	case CategoryInternal:
		return 6
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *ReconcilerError) WithContext(key string, value interface{}) *ReconcilerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// New creates a new ReconcilerError
func New(category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ReconcilerError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// stackTracer interface for extracting stack traces
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// Specific error constructors

// RejectedInput creates an input-rejection error. These fail the run before
// any decoding or matching work and carry a single human-readable message.
func RejectedInput(code ErrorCode, detail string) *ReconcilerError {
	var message string

	switch code {
	case CodeUnauthenticated:
		message = "authentication required"
	case CodeMissingFile:
		message = "no file was provided"
	case CodeWrongFileType:
		message = fmt.Sprintf("unsupported file type: %s", detail)
	case CodeFileTooLarge:
		message = fmt.Sprintf("file exceeds the maximum size: %s", detail)
	case CodeTooManyRows:
		message = fmt.Sprintf("file has too many rows: %s", detail)
	default:
		message = "request rejected"
	}

	result := New(CategoryRejectedInput, code, message)
	if detail != "" {
		result = result.WithContext("detail", detail)
	}
	return result
}

// ParseError creates a parsing-related error for the table as a whole.
// Individual malformed rows are dropped, not reported through this type.
func ParseError(code ErrorCode, line int, err error) *ReconcilerError {
	var message string

	switch code {
	case CodeInvalidFormat:
		message = fmt.Sprintf("the file could not be read as a delimited table (line %d)", line)
	case CodeEncodingError:
		message = fmt.Sprintf("the file encoding could not be recovered (line %d)", line)
	default:
		message = fmt.Sprintf("parse error at line %d", line)
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryParse, code, message)
	} else {
		result = New(CategoryParse, code, message)
	}

	return result.WithContext("line", line)
}

// CollaboratorError creates an error for an external capability call. Callers
// are expected to log these and fall back; they never fail a run on their own.
func CollaboratorError(code ErrorCode, service string, err error) *ReconcilerError {
	var message string

	switch code {
	case CodeInferenceFailed:
		message = fmt.Sprintf("column inference call to %s failed", service)
	case CodeTranslitFailed:
		message = fmt.Sprintf("transliteration call to %s failed", service)
	case CodeInvalidResponse:
		message = fmt.Sprintf("%s returned a structurally invalid response", service)
	default:
		message = fmt.Sprintf("collaborator %s failed", service)
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryCollaborator, code, message)
	} else {
		result = New(CategoryCollaborator, code, message)
	}

	return result.WithContext("service", service)
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, err error) *ReconcilerError {
	var message string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s'", setting)
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryConfiguration, code, message)
	} else {
		result = New(CategoryConfiguration, code, message)
	}

	return result.WithContext("setting", setting)
}

// StoreError creates an invoice-store error
func StoreError(code ErrorCode, operation string, err error) *ReconcilerError {
	var message string

	switch code {
	case CodeStoreUnavailable:
		message = fmt.Sprintf("invoice store unavailable during %s", operation)
	case CodeQueryFailed:
		message = fmt.Sprintf("invoice store query failed during %s", operation)
	default:
		message = fmt.Sprintf("invoice store error during %s", operation)
	}

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryStore, code, message)
	} else {
		result = New(CategoryStore, code, message)
	}

	return result.WithContext("operation", operation)
}

// InternalError creates an internal error. Reported to clients as a generic
// internal failure without detail.
func InternalError(operation string, err error) *ReconcilerError {
	message := fmt.Sprintf("unexpected error during %s", operation)

	var result *ReconcilerError
	if err != nil {
		result = Wrap(err, CategoryInternal, CodeUnexpectedError, message)
	} else {
		result = New(CategoryInternal, CodeUnexpectedError, message)
	}

	return result.WithContext("operation", operation)
}

// Utility functions

// IsReconcilerError checks if an error is a ReconcilerError
func IsReconcilerError(err error) bool {
	_, ok := err.(*ReconcilerError)
	return ok
}

// AsReconcilerError extracts a ReconcilerError from an error chain
func AsReconcilerError(err error) (*ReconcilerError, bool) {
	var reconcilerErr *ReconcilerError
	if errors.As(err, &reconcilerErr) {
		return reconcilerErr, true
	}
	return nil, false
}

// IsRejectedInput reports whether the error is an input rejection, meaning
// the run was refused before producing any output.
func IsRejectedInput(err error) bool {
	if re, ok := AsReconcilerError(err); ok {
		return re.Category == CategoryRejectedInput
	}
	return false
}

// WrapIfNeeded wraps an error if it's not already a ReconcilerError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr
	}

	return Wrap(err, category, code, message)
}
