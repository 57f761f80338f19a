package authist

import (
	"context"
	"strings"
	"time"
)

// ResetToken is handed back by RequestReset. Callers decide whether to
// mail it or return it.
type ResetToken struct {
	Token string `json:"token"`
}

// ResetPasswordService issues and redeems reset-password tokens for the
// email/password provider.
type ResetPasswordService struct {
	codec *TokenCodec
	ttl   time.Duration
	opts  *PasswordProviderOptions
	hooks ProviderHooks
}

// NewResetPasswordService builds the service. Reset tokens share the
// access token lifetime.
func NewResetPasswordService(codec *TokenCodec, tokenOpts TokenOptions, opts *PasswordProviderOptions, hooks ProviderHooks) *ResetPasswordService {
	if hooks.Logger == nil {
		hooks.Logger = defaultLogger()
	}
	return &ResetPasswordService{
		codec: codec,
		ttl:   tokenOpts.accessLifetime(),
		opts:  opts,
		hooks: hooks,
	}
}

// RequestReset issues a reset token for the identity registered under
// email.
func (s *ResetPasswordService) RequestReset(ctx context.Context, email string) (*ResetToken, error) {
	email = strings.TrimSpace(email)
	if err := require(email, ErrEmailRequired); err != nil {
		return nil, s.fail(ctx, err)
	}

	identity, err := s.opts.GetIdentity(ctx, email)
	if err != nil {
		return nil, s.fail(ctx, err)
	}
	if identity == nil {
		return nil, s.fail(ctx, ErrUserNotFound)
	}
	user := strip(identity)

	token, err := s.issue(ctx, user, email)
	if err != nil {
		return nil, s.fail(ctx, err)
	}

	if s.opts.SendResetPasswordEmail != nil {
		if err := s.opts.SendResetPasswordEmail(ctx, token, user); err != nil {
			return nil, s.fail(ctx, err)
		}
	}

	if s.opts.SaveResetPasswordToken != nil {
		if err := s.opts.SaveResetPasswordToken(ctx, token, user); err != nil {
			return nil, s.fail(ctx, err)
		}
	}

	emitActivity(ctx, s.hooks.ActivitySink, s.hooks.Logger, ActivityEvent{
		EventType: ActivityEventPasswordResetRequested,
		Provider:  ProviderEmailPassword,
		UserID:    user.UID,
	})

	return &ResetToken{Token: token}, nil
}

// ConfirmReset redeems token and stores newPassword. Without an
// UpdatePassword hook it fails before looking at the token.
func (s *ResetPasswordService) ConfirmReset(ctx context.Context, token, newPassword string) error {
	if s.opts.UpdatePassword == nil {
		return s.fail(ctx, ErrUpdatePasswordNotImplemented)
	}

	token = strings.TrimSpace(token)
	if err := require(token, ErrResetPasswordTokenRequired); err != nil {
		return s.fail(ctx, err)
	}

	user, err := s.resolve(ctx, token)
	if err != nil {
		return s.fail(ctx, err)
	}

	if err := require(newPassword, ErrPasswordRequired); err != nil {
		return s.fail(ctx, err)
	}

	if s.opts.ValidatePassword != nil {
		if err := s.opts.ValidatePassword(ctx, newPassword); err != nil {
			return s.fail(ctx, err)
		}
	}

	hashed, err := s.opts.HashPassword(newPassword)
	if err != nil {
		return s.fail(ctx, err)
	}

	if err := s.opts.UpdatePassword(ctx, hashed, user); err != nil {
		return s.fail(ctx, err)
	}

	emitActivity(ctx, s.hooks.ActivitySink, s.hooks.Logger, ActivityEvent{
		EventType: ActivityEventPasswordResetSuccess,
		Provider:  ProviderEmailPassword,
		UserID:    user.UID,
	})

	return nil
}

func (s *ResetPasswordService) issue(ctx context.Context, user *User, email string) (string, error) {
	if s.opts.GetResetPasswordToken != nil {
		return s.opts.GetResetPasswordToken(ctx, user)
	}
	if user.Email != "" {
		email = user.Email
	}
	return s.codec.Sign(KindResetPassword, TokenPayload{Email: email}, s.ttl)
}

func (s *ResetPasswordService) resolve(ctx context.Context, token string) (*User, error) {
	if s.opts.ValidateResetPasswordToken != nil {
		user, err := s.opts.ValidateResetPasswordToken(ctx, token)
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, ErrUserNotFound
		}
		return user, nil
	}

	claims, err := s.codec.Verify(token, KindResetPassword)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(claims.Email) == "" {
		return nil, ErrInvalidResetPasswordToken
	}

	identity, err := s.opts.GetIdentity(ctx, claims.Email)
	if err != nil {
		return nil, err
	}
	if identity == nil {
		return nil, ErrUserNotFound
	}
	return strip(identity), nil
}

func (s *ResetPasswordService) fail(ctx context.Context, err error) error {
	return notify(ctx, s.hooks.OnAuthenticationFailure, err)
}
