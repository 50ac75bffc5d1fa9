package identity

import (
	"errors"
	"fmt"
)

// AuthCode classifies why credential resolution failed.
type AuthCode string

const (
	CodeInvalidCredential AuthCode = "invalid_credential"
	CodeExpired           AuthCode = "expired"
	CodeRevoked           AuthCode = "revoked"
	CodeNotFound          AuthCode = "not_found"
	CodeDisabled          AuthCode = "disabled"
)

// AuthError is a classified authentication failure. All codes are terminal
// for the request; none are retried by this package.
type AuthError struct {
	Code AuthCode
	err  error
}

// NewAuthError wraps err with a classification code. err may be nil.
func NewAuthError(code AuthCode, err error) *AuthError {
	return &AuthError{Code: code, err: err}
}

func (e *AuthError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("authentication failed (%s): %v", e.Code, e.err)
	}
	return fmt.Sprintf("authentication failed (%s)", e.Code)
}

func (e *AuthError) Unwrap() error {
	return e.err
}

// Is allows errors.Is comparisons against another AuthError by code.
func (e *AuthError) Is(target error) bool {
	var other *AuthError
	if !errors.As(target, &other) {
		return false
	}
	return e.Code == other.Code
}

// AuthCodeOf returns the classification code of err, or CodeInvalidCredential
// if err is not an AuthError. Unclassified failures fail closed.
func AuthCodeOf(err error) AuthCode {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return CodeInvalidCredential
}
