package authist

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrorCode names a failure in the authentication taxonomy.
type ErrorCode string

const (
	CodeAuthenticationRequired            ErrorCode = "AuthenticationRequired"
	CodeUnsupportedAuthorization          ErrorCode = "UnsupportedAuthorization"
	CodeInvalidToken                      ErrorCode = "InvalidToken"
	CodeInvalidTokenType                  ErrorCode = "InvalidTokenType"
	CodeUserNotFound                      ErrorCode = "UserNotFound"
	CodePasswordMismatch                  ErrorCode = "PasswordMismatch"
	CodePasswordRequired                  ErrorCode = "PasswordRequired"
	CodeUsernameRequired                  ErrorCode = "UsernameRequired"
	CodeEmailRequired                     ErrorCode = "EmailRequired"
	CodeMissingRefreshToken               ErrorCode = "MissingRefreshToken"
	CodeResetPasswordTokenRequired        ErrorCode = "ResetPasswordTokenRequired"
	CodeInvalidResetPasswordToken         ErrorCode = "InvalidResetPasswordToken"
	CodeUpdatePasswordNotImplemented      ErrorCode = "UpdatePasswordNotImplemented"
	CodeSaveNonExistingUserNotImplemented ErrorCode = "SaveNonExistingUserNotImplemented"
)

// Error is a taxonomy failure. Two errors match under errors.Is when
// their codes are equal.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

var (
	ErrAuthenticationRequired            = &Error{Code: CodeAuthenticationRequired, Message: "Authentication is required, please provide the authorization header!"}
	ErrUnsupportedAuthorization          = &Error{Code: CodeUnsupportedAuthorization, Message: "Unsupported authorization type, only bearer tokens are accepted!"}
	ErrInvalidToken                      = &Error{Code: CodeInvalidToken, Message: "The provided token is invalid or has expired!"}
	ErrInvalidTokenType                  = &Error{Code: CodeInvalidTokenType, Message: "The provided token cannot be used for this operation!"}
	ErrUserNotFound                      = &Error{Code: CodeUserNotFound, Message: "It seems this user doesn't exist, are you sure you entered correct credentials?"}
	ErrPasswordMismatch                  = &Error{Code: CodePasswordMismatch, Message: "You entered a wrong password!"}
	ErrPasswordRequired                  = &Error{Code: CodePasswordRequired, Message: "Password is required field, please enter the password!"}
	ErrUsernameRequired                  = &Error{Code: CodeUsernameRequired, Message: "Username is required field, please enter the username!"}
	ErrEmailRequired                     = &Error{Code: CodeEmailRequired, Message: "Email is required field, please enter the email!"}
	ErrMissingRefreshToken               = &Error{Code: CodeMissingRefreshToken, Message: "Refresh token is required!"}
	ErrResetPasswordTokenRequired        = &Error{Code: CodeResetPasswordTokenRequired, Message: "Reset password token is required!"}
	ErrInvalidResetPasswordToken         = &Error{Code: CodeInvalidResetPasswordToken, Message: "The reset password token is invalid!"}
	ErrUpdatePasswordNotImplemented      = &Error{Code: CodeUpdatePasswordNotImplemented, Message: "Function `updatePassword` is not implemented!"}
	ErrSaveNonExistingUserNotImplemented = &Error{Code: CodeSaveNonExistingUserNotImplemented, Message: "Function `saveNonExistingUser` is not implemented!"}
)

func (e *Error) Error() string {
	if e == nil {
		return "authist error"
	}
	if e.Err != nil {
		return string(e.Code) + ": " + e.Message + ": " + e.Err.Error()
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil || e == nil {
		return false
	}
	return t.Code == e.Code
}

// Wrap returns a copy of e carrying cause. The sentinel is left untouched.
func (e *Error) Wrap(cause error) *Error {
	clone := *e
	clone.Err = cause
	return &clone
}

// MarshalJSON exposes the code and message only. Causes and stack traces
// stay server side.
func (e *Error) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Message   string    `json:"message"`
		ErrorCode ErrorCode `json:"errorCode"`
	}{
		Message:   e.Message,
		ErrorCode: e.Code,
	})
}

// CodeOf returns the taxonomy code carried by err, if any.
func CodeOf(err error) (ErrorCode, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Code, true
	}
	return "", false
}

// IsNotImplemented reports configuration failures, as opposed to data
// failures.
func IsNotImplemented(err error) bool {
	return errors.Is(err, ErrUpdatePasswordNotImplemented) ||
		errors.Is(err, ErrSaveNonExistingUserNotImplemented)
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "token is expired")
}
