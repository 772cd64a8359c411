// Package apperr defines the typed error taxonomy surfaced by the settlement
// engine. Every externally observable failure carries a stable Code so callers
// (and the HTTP layer) can act on it without string matching.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a failure class.
type Code string

const (
	// Not found.
	CodeNotFound      Code = "NOT_FOUND"
	CodeUserNotFound  Code = "USER_NOT_FOUND"
	CodeGroupNotFound Code = "GROUP_NOT_FOUND"

	// Bad input: malformed amounts, missing required fields, illegal status
	// transitions, zero participants.
	CodeInvalidInput   Code = "INVALID_INPUT"
	CodeNoParticipants Code = "NO_PARTICIPANTS"

	// Permission.
	CodeNoAccessPermission Code = "NO_ACCESS_PERMISSION"
	CodeNotGroupMember     Code = "NOT_GROUP_MEMBER"

	// Authentication.
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeInvalidToken Code = "INVALID_TOKEN"
	CodeTokenExpired Code = "TOKEN_EXPIRED"

	// Conflict.
	CodeDuplicateUser Code = "DUPLICATE_USER"

	// Server side.
	CodeInternal            Code = "INTERNAL_SERVER_ERROR"
	CodeExternalServerError Code = "EXTERNAL_SERVER_ERROR"
)

// Error is a typed failure with a stable code.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates a typed error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a typed error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a typed error that wraps a cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the failure code from err, or CodeInternal if err carries
// no typed error.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// HTTPStatus maps a failure code to an HTTP status.
func HTTPStatus(code Code) int {
	switch code {
	case CodeNotFound, CodeUserNotFound, CodeGroupNotFound:
		return http.StatusNotFound
	case CodeInvalidInput, CodeNoParticipants:
		return http.StatusBadRequest
	case CodeExternalServerError:
		return http.StatusBadGateway
	case CodeUnauthorized, CodeInvalidToken, CodeTokenExpired:
		return http.StatusUnauthorized
	case CodeNoAccessPermission, CodeNotGroupMember:
		return http.StatusForbidden
	case CodeDuplicateUser:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
