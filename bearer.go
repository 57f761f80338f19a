package authist

import (
	"context"
	"strings"
)

// BearerVerifier authenticates an Authorization header value.
type BearerVerifier struct {
	codec       *TokenCodec
	getUserByID UserLookup
	onFailure   FailureHook
}

func NewBearerVerifier(codec *TokenCodec, getUserByID UserLookup, onFailure FailureHook) *BearerVerifier {
	return &BearerVerifier{
		codec:       codec,
		getUserByID: getUserByID,
		onFailure:   onFailure,
	}
}

// Verify resolves header to a user. The scheme match is case-insensitive
// and the token is everything after the first space.
func (v *BearerVerifier) Verify(ctx context.Context, header string) (*User, error) {
	user, _, err := v.VerifyClaims(ctx, header)
	return user, err
}

// VerifyClaims is Verify that also returns the decoded access token.
func (v *BearerVerifier) VerifyClaims(ctx context.Context, header string) (*User, *TokenClaims, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return nil, nil, notify(ctx, v.onFailure, ErrAuthenticationRequired)
	}

	scheme, token, _ := strings.Cut(header, " ")
	if !strings.EqualFold(scheme, "bearer") {
		return nil, nil, notify(ctx, v.onFailure, ErrUnsupportedAuthorization)
	}

	return v.resolve(ctx, token)
}

// VerifyToken resolves a raw access token that was taken from somewhere
// other than the Authorization header.
func (v *BearerVerifier) VerifyToken(ctx context.Context, token string) (*User, *TokenClaims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil, notify(ctx, v.onFailure, ErrAuthenticationRequired)
	}
	return v.resolve(ctx, token)
}

func (v *BearerVerifier) resolve(ctx context.Context, token string) (*User, *TokenClaims, error) {
	claims, err := v.codec.Verify(token, KindAccess)
	if err != nil {
		return nil, nil, notify(ctx, v.onFailure, err)
	}

	user, err := v.getUserByID(ctx, claims.UserID())
	if err != nil {
		return nil, nil, notify(ctx, v.onFailure, err)
	}
	if user == nil {
		return nil, nil, notify(ctx, v.onFailure, ErrUserNotFound)
	}

	return user, claims, nil
}
