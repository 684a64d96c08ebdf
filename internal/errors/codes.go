package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents internal error codes for compaction operations
type ErrorCode int

const (
	// Success
	ErrCodeOK ErrorCode = 0

	// Configuration errors (fatal at startup)
	ErrCodeConfig ErrorCode = 1000

	// Merge errors (per-batch, never abort the cycle)
	ErrCodeSchemaMismatch ErrorCode = 2000
	ErrCodeMalformedInput ErrorCode = 2001
	ErrCodeEmptyMerge     ErrorCode = 2002
	ErrCodeEncodeFailed   ErrorCode = 2003

	// Transport errors (object store I/O, abort the cycle)
	ErrCodeTransport ErrorCode = 3000
)

// CompactionError represents a structured error with code and context
type CompactionError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Cause   error
}

// Error implements the error interface
func (e *CompactionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *CompactionError) Unwrap() error {
	return e.Cause
}

// NewCompactionError creates a new CompactionError
func NewCompactionError(code ErrorCode, message string, cause error) *CompactionError {
	return &CompactionError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Cause:   cause,
	}
}

// WithDetail adds a detail to the error
func (e *CompactionError) WithDetail(key string, value interface{}) *CompactionError {
	e.Details[key] = value
	return e
}

// Convenience constructors for common errors

func ConfigError(message string, cause error) *CompactionError {
	return NewCompactionError(ErrCodeConfig, message, cause)
}

func SchemaMismatch(key, want, got string) *CompactionError {
	return NewCompactionError(ErrCodeSchemaMismatch, fmt.Sprintf("schema mismatch in %s", key), nil).
		WithDetail("key", key).
		WithDetail("want", want).
		WithDetail("got", got)
}

func MalformedInput(key string, cause error) *CompactionError {
	return NewCompactionError(ErrCodeMalformedInput, fmt.Sprintf("malformed parquet file %s", key), cause).
		WithDetail("key", key)
}

func EmptyMerge(keys []string) *CompactionError {
	return NewCompactionError(ErrCodeEmptyMerge, fmt.Sprintf("merge of %d files produced no rows", len(keys)), nil).
		WithDetail("input_count", len(keys))
}

func EncodeFailed(key string, cause error) *CompactionError {
	return NewCompactionError(ErrCodeEncodeFailed, fmt.Sprintf("failed to encode output %s", key), cause).
		WithDetail("key", key)
}

// GetCode extracts the error code from an error, unwrapping as needed.
// Errors that are not CompactionErrors are classified as transport: store
// failures are passed through unwrapped and must abort the cycle
func GetCode(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var ce *CompactionError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ErrCodeTransport
}

// IsMergeFailure reports whether err is a per-batch merge failure (schema
// mismatch, malformed input, empty merge). Everything else, store transport
// errors in particular, must propagate and abort the cycle
func IsMergeFailure(err error) bool {
	switch GetCode(err) {
	case ErrCodeSchemaMismatch, ErrCodeMalformedInput, ErrCodeEmptyMerge, ErrCodeEncodeFailed:
		return true
	default:
		return false
	}
}
