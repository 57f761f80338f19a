package authist

import (
	"context"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// InputError reports a value rejected by one of the validation hooks
// below. It is not part of the error taxonomy.
type InputError struct {
	Field string
	Err   error
}

func (e *InputError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// require returns sentinel when value is blank.
func require(value string, sentinel *Error) error {
	if err := validation.Validate(strings.TrimSpace(value), validation.Required); err != nil {
		return sentinel
	}
	return nil
}

// PasswordPolicy returns a ValidatePassword hook enforcing a length range.
func PasswordPolicy(min, max int) func(ctx context.Context, password string) error {
	return func(_ context.Context, password string) error {
		err := validation.Validate(password,
			validation.Required,
			validation.Length(min, max),
		)
		if err != nil {
			return &InputError{Field: "password", Err: err}
		}
		return nil
	}
}

// RequireEmailFormat is a ValidateIdentity hook that rejects malformed
// email addresses.
func RequireEmailFormat(_ context.Context, info UserInfo, _ string) error {
	if err := require(info.Email, ErrEmailRequired); err != nil {
		return err
	}
	if err := validation.Validate(info.Email, is.Email); err != nil {
		return &InputError{Field: "email", Err: err}
	}
	return nil
}

// ConfirmPassword checks a repeated password entry. It reports an
// InputError for the confirmation field when the two differ or the
// confirmation is missing.
func ConfirmPassword(password, confirmation string) error {
	err := validation.Validate(confirmation,
		validation.Required,
		validation.By(func(value any) error {
			if s, _ := value.(string); s != password {
				return errors.New("does not match the password")
			}
			return nil
		}),
	)
	if err != nil {
		return &InputError{Field: "passwordConfirmation", Err: err}
	}
	return nil
}
