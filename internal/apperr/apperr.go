package apperr

import (
	"errors"
	"net/http"

	"gorm.io/gorm"
)

var (
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)

// Client facing messages.
const (
	MsgUnexpected         = "Unexpected error."
	MsgValidation         = "Validation error."
	MsgInvalidJSON        = "Invalid JSON body."
	MsgUnauthorized       = "Unauthorized."
	MsgAccessDenied       = "Access denied."
	MsgInvalidCreds       = "Invalid credentials."
	MsgUserDisabled       = "User is disabled."
	MsgUserExists         = "User already exists."
	MsgProjectNotFound    = "Project not found."
	MsgProjectForbidden   = "You do not have permission to access this project."
	MsgResourceExists     = "Resource already exists."
	MsgTokenExpired       = "Token expired."
	MsgInvalidToken       = "Invalid token."
	MsgTokenRevoked       = "Token revoked."
	MsgInvalidRefresh     = "Invalid refresh token."
	MsgEmailRequired      = "Email is required."
	MsgEmailInvalid       = "Email must be valid."
	MsgEmailTooLong       = "Email must have at most 320 characters."
	MsgPasswordRequired   = "Password is required."
	MsgPasswordTooLong    = "Password must have at most 72 bytes."
	MsgNotFound           = "Resource not found."
	MsgMethodNotAllowed   = "Method not allowed."
	MsgServiceUnavailable = "Service unavailable."
)

// Gate failure codes, also used in the WWW-Authenticate challenge.
const (
	CodeTokenExpired = "token_expired"
	CodeInvalidToken = "invalid_token"
	CodeTokenRevoked = "token_revoked"
)

type Error struct {
	Kind    error
	Message string
	Code    string
	Fields  map[string]string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() error { return e.Kind }

func Validation(msg string, fields map[string]string) *Error {
	return &Error{Kind: ErrValidation, Message: msg, Fields: fields}
}

func Unauthorized(msg string) *Error {
	return &Error{Kind: ErrUnauthorized, Message: msg}
}

// TokenRejected is an Unauthorized carrying a gate failure code.
func TokenRejected(code, msg string) *Error {
	return &Error{Kind: ErrUnauthorized, Message: msg, Code: code}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: ErrForbidden, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: ErrNotFound, Message: msg}
}

func Conflict(msg string) *Error {
	return &Error{Kind: ErrConflict, Message: msg}
}

// Status maps an error to its HTTP status. Unknown errors are 500.
func Status(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict), errors.Is(err, gorm.ErrDuplicatedKey):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
