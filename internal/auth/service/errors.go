package service

import "errors"

// Error classes. Every sentinel below wraps exactly one of these so callers
// can branch on the class with errors.Is.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
)

var (
	// ErrInvalidCredentials is the single opaque login failure. It does not
	// say whether the email exists.
	ErrInvalidCredentials = classed(ErrUnauthorized, "invalid email or password")
	ErrInvalidToken       = classed(ErrUnauthorized, "invalid token")
	ErrAccountInactive    = classed(ErrUnauthorized, "user account is inactive")
	ErrInvalidOldPassword = classed(ErrUnauthorized, "invalid old password")

	ErrRegistrationDisabled  = classed(ErrBadRequest, "registration is not allowed")
	ErrPasswordResetDisabled = classed(ErrBadRequest, "password reset is not allowed")
	ErrLogoutDisabled        = classed(ErrBadRequest, "logout is not allowed")

	ErrUserNotFound = errors.New("user not found")
)

type classError struct {
	class error
	msg   string
}

func classed(class error, msg string) error {
	return &classError{class: class, msg: msg}
}

func (e *classError) Error() string { return e.msg }
func (e *classError) Unwrap() error { return e.class }

// ValidationError reports bad input on a single field. The message is safe
// to show to the caller.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
