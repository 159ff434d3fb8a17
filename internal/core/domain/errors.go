package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error that reaches the HTTP boundary is classified by
// errors.Is against one of these; anything else is treated as internal.
var (
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// Error carries a caller-facing message and the kind it belongs to.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// NewError builds an *Error of the given kind with a formatted message.
func NewError(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Message returns the caller-facing message of err, or fallback when err
// carries none.
func Message(err error, fallback string) string {
	var de *Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return fallback
}

var (
	// ErrInvalidCredentials is returned for both unknown emails and wrong
	// passwords so callers cannot tell the two apart.
	ErrInvalidCredentials  = &Error{Kind: ErrUnauthorized, Message: "invalid credentials"}
	ErrInvalidToken        = &Error{Kind: ErrUnauthorized, Message: "invalid token"}
	ErrInvalidRefreshToken = &Error{Kind: ErrUnauthorized, Message: "invalid or expired token"}
	ErrUserNotFound        = &Error{Kind: ErrUnauthorized, Message: "user not found"}
	ErrEmailTaken          = &Error{Kind: ErrConflict, Message: "email already registered"}
	ErrFileNotStored       = &Error{Kind: ErrValidation, Message: "file not found in storage"}
	ErrEmptyFile           = &Error{Kind: ErrValidation, Message: "file is empty"}
)
