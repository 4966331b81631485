package api

import (
	"errors"
	"fmt"
)

// Error represents a failed remote call, categorized so callers can decide
// between rollback and benign no-op handling.
//
// Categories:
//   - NetworkFailure: the call did not complete (transport error, 5xx)
//   - Conflict: the remote state already moved past the request (409)
//   - NotFound: the referenced entity no longer exists (404)
//   - Unauthorized: the caller lacks permission (401, 403)
//
// Conflict and NotFound are benign for optimistic commands: they mean the
// local view was ahead of or behind the remote truth, not that anything is
// broken. NetworkFailure and Unauthorized require rollback.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Status is the HTTP status code, 0 for transport failures.
	Status int

	// Err is the underlying transport error, if any.
	Err error
}

// ErrorCode categorizes remote call failures.
type ErrorCode string

const (
	// ErrCodeNetworkFailure indicates the remote call did not complete.
	ErrCodeNetworkFailure ErrorCode = "NETWORK_FAILURE"

	// ErrCodeConflict indicates the request conflicts with remote state.
	ErrCodeConflict ErrorCode = "CONFLICT"

	// ErrCodeNotFound indicates the referenced entity does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeUnauthorized indicates the caller lacks permission.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status=%d)", e.Code, e.Message, e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying transport error, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsConflict returns true if the error is a conflict error.
// Uses errors.As to handle wrapped errors.
func IsConflict(err error) bool {
	return hasCode(err, ErrCodeConflict)
}

// IsNotFound returns true if the error is a not-found error.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

// IsUnauthorized returns true if the error is an authorization error.
func IsUnauthorized(err error) bool {
	return hasCode(err, ErrCodeUnauthorized)
}

// IsNetworkFailure returns true if the remote call did not complete.
func IsNetworkFailure(err error) bool {
	return hasCode(err, ErrCodeNetworkFailure)
}

// IsBenign returns true for categories that resolve an optimistic command
// to a no-op rather than a rollback.
func IsBenign(err error) bool {
	return IsConflict(err) || IsNotFound(err)
}

func hasCode(err error, code ErrorCode) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}

func networkError(msg string, err error) *Error {
	return &Error{Code: ErrCodeNetworkFailure, Message: msg, Err: err}
}

// errorFromStatus maps an HTTP status code to the taxonomy. Statuses that
// don't fit a specific category are reported as network failures, which is
// the conservative choice: the caller rolls back and surfaces the error.
func errorFromStatus(status int, msg string) *Error {
	var code ErrorCode
	switch status {
	case 401, 403:
		code = ErrCodeUnauthorized
	case 404:
		code = ErrCodeNotFound
	case 409:
		code = ErrCodeConflict
	default:
		code = ErrCodeNetworkFailure
	}
	return &Error{Code: code, Message: msg, Status: status}
}
