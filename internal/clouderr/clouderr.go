// Package clouderr defines the structured error hierarchy shared by the
// planning and dispatch layers.
//
// Every error carries a fixed machine-readable Code so callers can branch
// programmatically without parsing messages. Errors created here wrap an
// optional cause and participate in errors.Is/errors.As chains.
package clouderr

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Code is a machine-readable error category.
type Code string

// Error codes surfaced by the planning core. SecretNotFound and
// ProviderMismatch are reserved for adjacent layers (credential loading,
// platform guard rails) and are never produced by planning itself.
const (
	CodeCloudValidation    Code = "CLOUD_VALIDATION"
	CodeCidrOverlap        Code = "CIDR_OVERLAP"
	CodeCidrInvalid        Code = "CIDR_INVALID"
	CodeUnsupportedFeature Code = "UNSUPPORTED_FEATURE"
	CodeConfigMissing      Code = "CONFIG_MISSING"
	CodeConfigInvalid      Code = "CONFIG_INVALID"
	CodeSecretNotFound     Code = "SECRET_NOT_FOUND"
	CodeProviderMismatch   Code = "PROVIDER_MISMATCH"
)

// Error is the base error type for all planning failures.
type Error struct {
	// Code categorizes the failure for programmatic handling.
	Code Code
	// Message is the human-readable description.
	Message string
	// Err is the wrapped cause, if any.
	Err error
}

// New creates an Error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
// Arguments are passed through fmt, so %w wraps a cause.
func Newf(code Code, format string, args ...any) *Error {
	err := fmt.Errorf(format, args...)
	return &Error{Code: code, Message: err.Error(), Err: errors.Unwrap(err)}
}

// Wrap creates an Error that carries cause as its wrapped error.
func Wrap(code Code, cause error, message string) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause for errors.Is/errors.As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// MarshalJSON renders the error with its code so API consumers can branch on it.
func (e *Error) MarshalJSON() ([]byte, error) {
	var cause string
	if e.Err != nil {
		cause = e.Err.Error()
	}
	return json.Marshal(&struct {
		Code    Code   `json:"code"`
		Message string `json:"message"`
		Cause   string `json:"cause,omitempty"`
	}{
		Code:    e.Code,
		Message: e.Message,
		Cause:   cause,
	})
}

// CodeOf returns the code of the first *Error in err's chain,
// or the empty Code when none is present.
func CodeOf(err error) Code {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// HasCode reports whether err's chain contains an *Error with the given code.
func HasCode(err error, code Code) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}
