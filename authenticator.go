package authist

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// ErrProviderNotConfigured is returned when a sign-in names a provider
// that was never registered.
var ErrProviderNotConfigured = errors.New("authist: provider not configured")

// Authist is the assembled toolkit: token codec, credential service,
// providers, reset flow and bearer verifier sharing one configuration.
type Authist struct {
	logger       Logger
	activitySink ActivitySink
	onFailure    FailureHook

	codec       *TokenCodec
	credentials *CredentialService
	bearer      *BearerVerifier
	reset       *ResetPasswordService

	emailPassword *PasswordProvider
	providers     map[string]Provider
}

// New validates opts and builds every component.
func New(opts Options) (*Authist, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = defaultLogger()
	}

	codec, err := NewTokenCodec(opts.Token, logger)
	if err != nil {
		return nil, err
	}

	hooks := ProviderHooks{
		OnAuthenticationFailure: opts.OnAuthenticationFailure,
		SendRegistrationEmail:   opts.SendRegistrationEmail,
		ActivitySink:            opts.ActivitySink,
		Logger:                  logger,
	}

	a := &Authist{
		logger:       logger,
		activitySink: hooks.ActivitySink,
		onFailure:    opts.OnAuthenticationFailure,
		codec:        codec,
		credentials:  NewCredentialService(codec, opts.Token, opts.GetUserByID, opts.OnAuthenticationFailure, logger),
		bearer:       NewBearerVerifier(codec, opts.GetUserByID, opts.OnAuthenticationFailure),
		providers:    map[string]Provider{},
	}

	if opts.EmailPassword != nil {
		a.emailPassword = NewEmailPasswordProvider(opts.EmailPassword, hooks)
		a.providers[a.emailPassword.Name()] = a.emailPassword
		a.reset = NewResetPasswordService(codec, opts.Token, opts.EmailPassword, hooks)
	}

	if opts.UsernamePassword != nil {
		p := NewUsernamePasswordProvider(opts.UsernamePassword, hooks)
		a.providers[p.Name()] = p
	}

	for name, o := range opts.OAuth {
		if o == nil {
			continue
		}
		p := NewOAuthProvider(name, o, hooks)
		a.providers[p.Name()] = p
	}

	for _, p := range opts.Providers {
		a.providers[p.Name()] = p
	}

	return a, nil
}

// Codec returns the TokenCodec used by this instance
func (a *Authist) Codec() *TokenCodec {
	return a.codec
}

func (a *Authist) Credentials() *CredentialService {
	return a.credentials
}

// Provider returns the provider registered under name.
func (a *Authist) Provider(name string) (Provider, bool) {
	p, ok := a.providers[name]
	return p, ok
}

// Providers lists registered provider names in order.
func (a *Authist) Providers() []string {
	names := make([]string, 0, len(a.providers))
	for name := range a.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SignIn resolves key/secret through the named provider and issues
// credentials for the resulting user.
func (a *Authist) SignIn(ctx context.Context, provider, key, secret string) (*UserCredentials, error) {
	p, ok := a.providers[provider]
	if !ok {
		err := fmt.Errorf("%w: %s", ErrProviderNotConfigured, provider)
		a.emitLoginFailure(ctx, provider, err)
		return nil, notify(ctx, a.onFailure, err)
	}

	user, err := p.ResolveIdentity(ctx, key, secret)
	if err != nil {
		a.emitLoginFailure(ctx, provider, err)
		return nil, err
	}

	creds, err := a.credentials.Issue(ctx, user)
	if err != nil {
		a.emitLoginFailure(ctx, provider, err)
		return nil, err
	}

	eventType := ActivityEventLoginSuccess
	if _, social := p.(*OAuthProvider); social {
		eventType = ActivityEventSocialLogin
	}
	emitActivity(ctx, a.activitySink, a.logger, ActivityEvent{
		EventType: eventType,
		Provider:  provider,
		UserID:    user.UID,
	})

	return &UserCredentials{User: user, Credentials: creds}, nil
}

func (a *Authist) SignInWithEmailAndPassword(ctx context.Context, email, password string) (*UserCredentials, error) {
	return a.SignIn(ctx, ProviderEmailPassword, email, password)
}

func (a *Authist) SignInWithUsernameAndPassword(ctx context.Context, username, password string) (*UserCredentials, error) {
	return a.SignIn(ctx, ProviderUsernamePassword, username, password)
}

// SignInWithProvider exchanges a third party access token through the
// named OAuth provider.
func (a *Authist) SignInWithProvider(ctx context.Context, provider, token string) (*UserCredentials, error) {
	return a.SignIn(ctx, provider, token, "")
}

// CreateUser registers an email/password identity explicitly.
func (a *Authist) CreateUser(ctx context.Context, email, password string) (*User, error) {
	if a.emailPassword == nil {
		return nil, notify(ctx, a.onFailure, ErrSaveNonExistingUserNotImplemented)
	}
	return a.emailPassword.CreateUser(ctx, email, password)
}

// RefreshToken redeems a refresh token for a new credential pair.
func (a *Authist) RefreshToken(ctx context.Context, refreshToken string) (*UserCredentials, error) {
	uc, err := a.credentials.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	emitActivity(ctx, a.activitySink, a.logger, ActivityEvent{
		EventType: ActivityEventTokenRefreshed,
		UserID:    uc.User.UID,
	})
	return uc, nil
}

// RequestPasswordReset issues a reset token for email.
func (a *Authist) RequestPasswordReset(ctx context.Context, email string) (*ResetToken, error) {
	if a.reset == nil {
		return nil, notify(ctx, a.onFailure, fmt.Errorf("%w: %s", ErrProviderNotConfigured, ProviderEmailPassword))
	}
	return a.reset.RequestReset(ctx, email)
}

// ResetPassword redeems a reset token and stores password.
func (a *Authist) ResetPassword(ctx context.Context, token, password string) error {
	if a.reset == nil {
		return notify(ctx, a.onFailure, ErrUpdatePasswordNotImplemented)
	}
	return a.reset.ConfirmReset(ctx, token, password)
}

// VerifyBearer authenticates an Authorization header value.
func (a *Authist) VerifyBearer(ctx context.Context, header string) (*User, error) {
	return a.bearer.Verify(ctx, header)
}

// VerifyBearerClaims is VerifyBearer that also returns the token claims.
func (a *Authist) VerifyBearerClaims(ctx context.Context, header string) (*User, *TokenClaims, error) {
	return a.bearer.VerifyClaims(ctx, header)
}

// VerifyAccessToken authenticates a raw access token.
func (a *Authist) VerifyAccessToken(ctx context.Context, token string) (*User, *TokenClaims, error) {
	return a.bearer.VerifyToken(ctx, token)
}

// Close releases background resources held by the codec.
func (a *Authist) Close() {
	a.codec.Close()
}

func (a *Authist) emitLoginFailure(ctx context.Context, provider string, err error) {
	metadata := map[string]any{"error": err.Error()}
	if code, ok := CodeOf(err); ok {
		metadata["code"] = string(code)
	}
	emitActivity(ctx, a.activitySink, a.logger, ActivityEvent{
		EventType: ActivityEventLoginFailure,
		Provider:  provider,
		Metadata:  metadata,
	})
}
