// Package errors provides structured error types for logscope.
//
// This package follows Go best practices for error handling:
// - Sentinel errors for type checking with errors.Is()
// - Error wrapping with context using fmt.Errorf("%w", err)
// - Structured error types for detailed information
// - Error codes for machine-readable categorization
//
// Error code ranges:
// - 1xxx: Configuration errors
// - 2xxx: Ingestion errors
// - 3xxx: Analysis errors
// - 4xxx: Report errors
// - 9xxx: General errors
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a machine-readable error identifier.
type ErrorCode string

// Configuration error codes (1xxx)
const (
	ErrCodeConfigInvalid    ErrorCode = "LOGSCOPE_1001"
	ErrCodeConfigValidation ErrorCode = "LOGSCOPE_1002"
)

// Ingestion error codes (2xxx)
const (
	ErrCodeIngestFileNotFound     ErrorCode = "LOGSCOPE_2001"
	ErrCodeIngestPermissionDenied ErrorCode = "LOGSCOPE_2002"
	ErrCodeIngestReadFailed       ErrorCode = "LOGSCOPE_2003"
	ErrCodeIngestTailFailed       ErrorCode = "LOGSCOPE_2004"
)

// Analysis error codes (3xxx)
const (
	ErrCodeAnalyzeNoEntries   ErrorCode = "LOGSCOPE_3001"
	ErrCodeAnalyzeWindowFull  ErrorCode = "LOGSCOPE_3002"
	ErrCodeAnalyzeInterrupted ErrorCode = "LOGSCOPE_3003"
)

// Report error codes (4xxx)
const (
	ErrCodeReportEncodeFailed ErrorCode = "LOGSCOPE_4001"
	ErrCodeReportWriteFailed  ErrorCode = "LOGSCOPE_4002"
)

// General error codes (9xxx)
const (
	ErrCodeUnknown ErrorCode = "LOGSCOPE_9999"
)

// Sentinel errors for type checking with errors.Is()
var (
	// Configuration errors
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrConfigValidation = errors.New("configuration validation failed")

	// Ingestion errors
	ErrIngestFileNotFound     = errors.New("log file not found")
	ErrIngestPermissionDenied = errors.New("permission denied")
	ErrIngestReadFailed       = errors.New("log read failed")
	ErrIngestTailFailed       = errors.New("log tail failed")

	// Analysis errors
	ErrAnalyzeNoEntries = errors.New("no log lines parsed")

	// Report errors
	ErrReportEncodeFailed = errors.New("report encoding failed")
	ErrReportWriteFailed  = errors.New("report write failed")
)

// LogscopeError is the base error type with structured information.
type LogscopeError struct {
	Code        ErrorCode
	Message     string
	Context     map[string]interface{}
	IsRetryable bool
	Cause       error
}

// Error implements the error interface.
func (e *LogscopeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *LogscopeError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error matches this error's cause.
func (e *LogscopeError) Is(target error) bool {
	if e.Cause != nil {
		return errors.Is(e.Cause, target)
	}
	return false
}

// WithContext adds context information to the error.
func (e *LogscopeError) WithContext(key string, value interface{}) *LogscopeError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// ToMap converts the error to a map for structured logging.
func (e *LogscopeError) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"error_code":   string(e.Code),
		"message":      e.Message,
		"is_retryable": e.IsRetryable,
	}
	if e.Context != nil {
		m["context"] = e.Context
	}
	if e.Cause != nil {
		m["cause"] = e.Cause.Error()
	}
	return m
}

// New creates a new LogscopeError.
func New(code ErrorCode, message string, cause error) *LogscopeError {
	return &LogscopeError{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Configuration Error constructors

// NewConfigValidationError creates a configuration validation error.
func NewConfigValidationError(field string, value interface{}, reason string) *LogscopeError {
	return &LogscopeError{
		Code:        ErrCodeConfigValidation,
		Message:     fmt.Sprintf("validation failed for '%s': %s", field, reason),
		Cause:       ErrConfigValidation,
		IsRetryable: false,
		Context: map[string]interface{}{
			"field":  field,
			"value":  fmt.Sprintf("%v", value),
			"reason": reason,
		},
	}
}

// Ingestion Error constructors

// NewIngestFileNotFoundError creates a file not found error.
func NewIngestFileNotFoundError(path string) *LogscopeError {
	return &LogscopeError{
		Code:        ErrCodeIngestFileNotFound,
		Message:     fmt.Sprintf("log file not found: %s", path),
		Cause:       ErrIngestFileNotFound,
		IsRetryable: false,
		Context: map[string]interface{}{
			"path": path,
		},
	}
}

// NewIngestPermissionDeniedError creates a permission denied error.
func NewIngestPermissionDeniedError(path string) *LogscopeError {
	return &LogscopeError{
		Code:        ErrCodeIngestPermissionDenied,
		Message:     fmt.Sprintf("permission denied reading: %s", path),
		Cause:       ErrIngestPermissionDenied,
		IsRetryable: false,
		Context: map[string]interface{}{
			"path": path,
		},
	}
}

// NewIngestReadError creates a read error.
func NewIngestReadError(source string, cause error) *LogscopeError {
	return &LogscopeError{
		Code:        ErrCodeIngestReadFailed,
		Message:     fmt.Sprintf("failed reading from %s", source),
		Cause:       cause,
		IsRetryable: true,
		Context: map[string]interface{}{
			"source": source,
		},
	}
}

// NewIngestTailError creates a tail error.
func NewIngestTailError(path string, cause error) *LogscopeError {
	return &LogscopeError{
		Code:        ErrCodeIngestTailFailed,
		Message:     fmt.Sprintf("failed tailing %s", path),
		Cause:       cause,
		IsRetryable: true,
		Context: map[string]interface{}{
			"path": path,
		},
	}
}

// Analysis Error constructors

// NewAnalyzeNoEntriesError is returned when no line in the input matched a
// known access-log format.
func NewAnalyzeNoEntriesError(source string, totalLines int) *LogscopeError {
	return &LogscopeError{
		Code:        ErrCodeAnalyzeNoEntries,
		Message:     fmt.Sprintf("no log lines parsed from %s (%d lines read); check format", source, totalLines),
		Cause:       ErrAnalyzeNoEntries,
		IsRetryable: false,
		Context: map[string]interface{}{
			"source":      source,
			"total_lines": totalLines,
		},
	}
}

// Report Error constructors

// NewReportEncodeError creates a report encoding error.
func NewReportEncodeError(format string, cause error) *LogscopeError {
	return &LogscopeError{
		Code:        ErrCodeReportEncodeFailed,
		Message:     fmt.Sprintf("failed to encode report as %s", format),
		Cause:       cause,
		IsRetryable: false,
		Context: map[string]interface{}{
			"format": format,
		},
	}
}

// NewReportWriteError creates a report write error.
func NewReportWriteError(cause error) *LogscopeError {
	return &LogscopeError{
		Code:        ErrCodeReportWriteFailed,
		Message:     "failed to write report",
		Cause:       cause,
		IsRetryable: true,
		Context:     make(map[string]interface{}),
	}
}

// IsRetryableError checks if an error is retryable.
func IsRetryableError(err error) bool {
	var lerr *LogscopeError
	if errors.As(err, &lerr) {
		return lerr.IsRetryable
	}
	return false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	var lerr *LogscopeError
	if errors.As(err, &lerr) {
		return lerr.Code
	}
	return ErrCodeUnknown
}
