// SPDX-License-Identifier: Apache-2.0
// Package errors provides typed error handling with rich context for Agora.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies Agora errors for monitoring and recovery.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeInvalidInput indicates the input was invalid.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeStorage indicates an I/O failure in the record store.
	CodeStorage ErrorCode = "STORAGE_ERROR"

	// CodeNotFound indicates a record was not found.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeDecode indicates a persisted record failed to parse.
	CodeDecode ErrorCode = "DECODE_ERROR"

	// CodeIntegrity indicates an integrity digest mismatch on decrypt.
	CodeIntegrity ErrorCode = "INTEGRITY_ERROR"
)

// AgoraError is a typed error with context for observability.
// It implements the error interface and can be unwrapped with errors.As().
type AgoraError struct {
	Code        ErrorCode
	Message     string
	Err         error
	Context     map[string]any
	Recoverable bool
}

// Error implements the error interface.
func (e *AgoraError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *AgoraError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *AgoraError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Message     string         `json:"message"`
		Code        string         `json:"code"`
		Err         string         `json:"error,omitempty"`
		Recoverable bool           `json:"recoverable"`
		Context     map[string]any `json:"context,omitempty"`
	}{
		Message:     e.Message,
		Code:        string(e.Code),
		Err:         fmt.Sprintf("%v", e.Err),
		Recoverable: e.Recoverable,
		Context:     e.Context,
	})
}

// New creates a new AgoraError with the given code, message, and cause.
func New(code ErrorCode, msg string, cause error) *AgoraError {
	return &AgoraError{
		Code:    code,
		Message: msg,
		Err:     cause,
		Context: make(map[string]any),
	}
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *AgoraError) WithContext(key string, value any) *AgoraError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithRecoverable sets whether the error can be recovered from.
// Returns the error for method chaining.
func (e *AgoraError) WithRecoverable(recoverable bool) *AgoraError {
	e.Recoverable = recoverable
	return e
}

// AsAgoraError attempts to convert an error to an AgoraError.
// Returns the error as AgoraError if it is one, or wraps it otherwise.
func AsAgoraError(err error) *AgoraError {
	if err == nil {
		return nil
	}
	var ae *AgoraError
	if stderrors.As(err, &ae) {
		return ae
	}
	return New(CodeInternal, "wrapped error", err)
}

// HasCode reports whether err carries the given error code.
func HasCode(err error, code ErrorCode) bool {
	var ae *AgoraError
	if stderrors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}
