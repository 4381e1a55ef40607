// Package errors provides structured error handling for the Cat API connector
package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeInternal represents internal system errors
	ErrorTypeInternal ErrorType = "internal"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfig represents configuration errors (missing api_key etc.)
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeUnsupportedTable represents a table name outside the supported set
	ErrorTypeUnsupportedTable ErrorType = "unsupported_table"
	// ErrorTypeAPI represents a non-200 response from the upstream API
	ErrorTypeAPI ErrorType = "api"
	// ErrorTypeResponseFormat represents a response body of the wrong shape
	ErrorTypeResponseFormat ErrorType = "response_format"
	// ErrorTypeConnection represents transport errors
	ErrorTypeConnection ErrorType = "connection"
	// ErrorTypeTimeout represents timeout errors
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeRateLimit represents client-side rate limit waits that failed
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeFile represents file operation errors
	ErrorTypeFile ErrorType = "file"
)

// Error represents a structured error with context
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details map[string]interface{}
	Stack   []StackFrame
}

// StackFrame represents a single frame in the call stack
type StackFrame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a key-value detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with a formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	// If already our error type, preserve the stack
	var existingErr *Error
	if errors.As(err, &existingErr) {
		return &Error{
			Type:    errType,
			Message: message,
			Cause:   err,
			Stack:   existingErr.Stack,
		}
	}

	return &Error{
		Type:    errType,
		Message: message,
		Cause:   err,
		Stack:   captureStack(2),
	}
}

// UnsupportedTable reports a table name the connector does not serve
func UnsupportedTable(table string) *Error {
	return &Error{
		Type:    ErrorTypeUnsupportedTable,
		Message: fmt.Sprintf("unsupported table: %q", table),
		Details: map[string]interface{}{"table": table},
		Stack:   captureStack(2),
	}
}

// NewAPIError reports a non-200 upstream response. The status code and the
// raw body are kept in Details under "status_code" and "body".
func NewAPIError(resource string, statusCode int, body string) *Error {
	return &Error{
		Type:    ErrorTypeAPI,
		Message: fmt.Sprintf("catapi error for %s: %d %s", resource, statusCode, body),
		Details: map[string]interface{}{
			"resource":    resource,
			"status_code": statusCode,
			"body":        body,
		},
		Stack: captureStack(2),
	}
}

// StatusCode extracts the HTTP status of an API error anywhere in the chain.
func StatusCode(err error) (int, bool) {
	var e *Error
	for errors.As(err, &e) {
		if e.Type == ErrorTypeAPI {
			code, ok := e.Details["status_code"].(int)
			return code, ok
		}
		err = e.Cause
	}
	return 0, false
}

// IsRetryable returns true if the error is retryable
func IsRetryable(err error) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}

	switch e.Type {
	case ErrorTypeRateLimit, ErrorTypeTimeout, ErrorTypeConnection:
		return true
	case ErrorTypeAPI:
		code, _ := e.Details["status_code"].(int)
		return code == 429 || code >= 500
	default:
		return false
	}
}

// GetType returns the type of the outermost structured error, or
// ErrorTypeInternal for plain errors.
func GetType(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeInternal
}

// IsType checks if any error in the chain is of the given type
func IsType(err error, errType ErrorType) bool {
	var e *Error
	for errors.As(err, &e) {
		if e.Type == errType {
			return true
		}
		err = e.Cause
	}
	return false
}

// captureStack captures the current call stack
func captureStack(skip int) []StackFrame {
	const maxFrames = 32
	frames := make([]StackFrame, 0, maxFrames)

	for i := skip; i < maxFrames+skip; i++ {
		pc, file, line, ok := runtime.Caller(i)
		if !ok {
			break
		}

		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}

		frames = append(frames, StackFrame{
			Function: fn.Name(),
			File:     file,
			Line:     line,
		})
	}

	return frames
}
