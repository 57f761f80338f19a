package authist

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RevocationStore remembers refresh token ids that were already redeemed.
// Entries only need to live until the token would expire anyway.
type RevocationStore interface {
	// Consume marks tokenID as used until the given time and reports
	// whether this call was the first to do so. The check and the write
	// must be atomic.
	Consume(ctx context.Context, tokenID string, until time.Time) (bool, error)
}

// CredentialService mints access/refresh pairs and redeems refresh tokens.
type CredentialService struct {
	codec       *TokenCodec
	accessTTL   time.Duration
	refreshTTL  time.Duration
	getUserByID UserLookup
	revocations RevocationStore
	onFailure   FailureHook
	logger      Logger
}

// NewCredentialService wires a credential service on top of codec.
func NewCredentialService(codec *TokenCodec, opts TokenOptions, getUserByID UserLookup, onFailure FailureHook, logger Logger) *CredentialService {
	if logger == nil {
		logger = defaultLogger()
	}
	return &CredentialService{
		codec:       codec,
		accessTTL:   opts.accessLifetime(),
		refreshTTL:  opts.refreshLifetime(),
		getUserByID: getUserByID,
		revocations: opts.RevocationStore,
		onFailure:   onFailure,
		logger:      logger,
	}
}

// Issue mints a fresh credential pair for user. ExpiresIn and
// RefreshExpiresIn mirror the lifetimes embedded in each token.
func (s *CredentialService) Issue(ctx context.Context, user *User) (*Credentials, error) {
	if user == nil || user.UID == "" {
		return nil, notify(ctx, s.onFailure, ErrUserNotFound)
	}

	payload := TokenPayload{UID: user.UID}

	access, err := s.codec.Sign(KindAccess, payload, s.accessTTL)
	if err != nil {
		return nil, notify(ctx, s.onFailure, err)
	}

	refresh, err := s.codec.Sign(KindRefresh, payload, s.refreshTTL)
	if err != nil {
		return nil, notify(ctx, s.onFailure, err)
	}

	return &Credentials{
		AccessToken:      access,
		RefreshToken:     refresh,
		ExpiresIn:        int64(s.accessTTL / time.Second),
		RefreshExpiresIn: int64(s.refreshTTL / time.Second),
	}, nil
}

// Refresh redeems a refresh token for the user it names and a new pair.
// Without a RevocationStore the presented token stays valid until it
// expires. With one, the token is consumed before the new pair is minted,
// so of several concurrent redemptions exactly one succeeds.
func (s *CredentialService) Refresh(ctx context.Context, refreshToken string) (*UserCredentials, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return nil, notify(ctx, s.onFailure, ErrMissingRefreshToken)
	}

	claims, err := s.codec.Verify(refreshToken, KindRefresh)
	if err != nil {
		return nil, notify(ctx, s.onFailure, err)
	}

	user, err := s.getUserByID(ctx, claims.UserID())
	if err != nil {
		return nil, notify(ctx, s.onFailure, err)
	}
	if user == nil {
		return nil, notify(ctx, s.onFailure, ErrUserNotFound)
	}

	if s.revocations != nil {
		first, err := s.revocations.Consume(ctx, claims.TokenID(), claims.Expires())
		if err != nil {
			return nil, notify(ctx, s.onFailure, fmt.Errorf("authist: consume refresh token: %w", err))
		}
		if !first {
			return nil, notify(ctx, s.onFailure, ErrInvalidToken.Wrap(fmt.Errorf("refresh token %s was already redeemed", claims.TokenID())))
		}
	}

	creds, err := s.Issue(ctx, user)
	if err != nil {
		return nil, err
	}

	return &UserCredentials{User: user, Credentials: creds}, nil
}

// notify hands err to hook and returns it unchanged.
func notify(ctx context.Context, hook FailureHook, err error) error {
	if hook != nil && err != nil {
		hook(ctx, err)
	}
	return err
}
