package errors

import (
	"errors"
	"fmt"
)

// Error codes for programmatic handling.
const (
	CodeConfigInvalid  = "CONFIG_INVALID"
	CodeInvalidInput   = "INVALID_INPUT"
	CodeNotFound       = "NOT_FOUND"
	CodeProviderError  = "PROVIDER_ERROR"
	CodeEmbedderError  = "EMBEDDER_ERROR"
	CodeClassifyError  = "CLASSIFY_ERROR"
	CodeAPIKeyMissing  = "API_KEY_MISSING"
	CodeStoreError     = "STORE_ERROR"
	CodeTransportError = "TRANSPORT_ERROR"
)

// AttuneError is a structured error with a code and actionable suggestion.
type AttuneError struct {
	Code       string // machine-readable code (e.g. NOT_FOUND)
	Message    string // human-readable description
	Suggestion string // actionable fix
	Err        error  // wrapped underlying error
}

// Error implements the error interface.
func (e *AttuneError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap supports errors.Is / errors.As.
func (e *AttuneError) Unwrap() error {
	return e.Err
}

// New creates an AttuneError with the given code and message.
func New(code, message string) *AttuneError {
	return &AttuneError{Code: code, Message: message}
}

// Wrap creates an AttuneError wrapping an existing error.
func Wrap(code, message string, err error) *AttuneError {
	return &AttuneError{Code: code, Message: message, Err: err}
}

// WithSuggestion returns a copy with the suggestion set.
func (e *AttuneError) WithSuggestion(suggestion string) *AttuneError {
	e.Suggestion = suggestion
	return e
}

// Is checks whether target matches this error's code.
func (e *AttuneError) Is(target error) bool {
	var ae *AttuneError
	if errors.As(target, &ae) {
		return e.Code == ae.Code
	}
	return false
}

// AsCode extracts the AttuneError code from an error, or "" if not an AttuneError.
func AsCode(err error) string {
	var ae *AttuneError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

// IsNotFound reports whether err carries the NOT_FOUND code.
func IsNotFound(err error) bool {
	return AsCode(err) == CodeNotFound
}

// Suggestion extracts the suggestion from an error, or "" if not an AttuneError.
func Suggestion(err error) string {
	var ae *AttuneError
	if errors.As(err, &ae) {
		return ae.Suggestion
	}
	return ""
}
