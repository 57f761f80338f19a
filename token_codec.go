package authist

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultSecret signs tokens when neither a private key nor a secret is
// configured. Anyone who knows it can mint tokens.
const DefaultSecret = "secret"

var asymmetricMethods = []string{
	"RS256", "RS384", "RS512",
	"PS256", "PS384", "PS512",
	"ES256", "ES384", "ES512",
	"EdDSA",
}

// TokenCodec mints and verifies kind-tagged JWTs.
type TokenCodec struct {
	method        jwt.SigningMethod
	signingKey    any
	keyfunc       jwt.Keyfunc
	parserOptions []jwt.ParserOption
	issuer        string
	audience      jwt.ClaimStrings
	now           func() time.Time
	jwks          *keyfunc.JWKS
	logger        Logger
}

// NewTokenCodec builds a codec from the token options. Signing prefers the
// private key, then the secret, then DefaultSecret with a warning.
// Verification prefers Keyfunc, then JWKSURL, then the public key, then
// the secret.
func NewTokenCodec(opts TokenOptions, logger Logger) (*TokenCodec, error) {
	if logger == nil {
		logger = defaultLogger()
	}

	c := &TokenCodec{
		issuer: opts.Issuer,
		now:    opts.Now,
		logger: logger,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if len(opts.Audience) > 0 {
		c.audience = append(jwt.ClaimStrings(nil), opts.Audience...)
	}

	secret := []byte(opts.Secret)

	switch {
	case opts.PrivateKey != nil:
		method, err := methodForPublicKey(opts.PrivateKey.Public())
		if err != nil {
			return nil, err
		}
		c.method = method
		c.signingKey = opts.PrivateKey
	case len(secret) > 0:
		c.method = jwt.SigningMethodHS256
		c.signingKey = secret
	default:
		logger.Warn("authist: no signing key configured, falling back to the default secret; configure a secret or key pair before deploying")
		secret = []byte(DefaultSecret)
		c.method = jwt.SigningMethodHS256
		c.signingKey = secret
	}

	validMethods := []string{}
	publicKey := opts.PublicKey
	if publicKey == nil && opts.PrivateKey != nil {
		publicKey = opts.PrivateKey.Public()
	}

	switch {
	case opts.Keyfunc != nil:
		c.keyfunc = opts.Keyfunc
		validMethods = asymmetricMethods
	case opts.JWKSURL != "":
		jwks, err := keyfunc.Get(opts.JWKSURL, keyfunc.Options{
			RefreshErrorHandler: func(err error) {
				logger.Error("authist: background refresh of JWK set failed: %v", err)
			},
			RefreshInterval:   time.Hour,
			RefreshRateLimit:  5 * time.Minute,
			RefreshTimeout:    10 * time.Second,
			RefreshUnknownKID: true,
		})
		if err != nil {
			return nil, fmt.Errorf("authist: load JWK set %q: %w", opts.JWKSURL, err)
		}
		c.jwks = jwks
		c.keyfunc = jwks.Keyfunc
		validMethods = asymmetricMethods
	case publicKey != nil:
		method, err := methodForPublicKey(publicKey)
		if err != nil {
			return nil, err
		}
		c.keyfunc = staticKeyfunc(publicKey)
		validMethods = []string{method.Alg()}
	default:
		c.keyfunc = staticKeyfunc(secret)
		validMethods = []string{jwt.SigningMethodHS256.Alg()}
	}

	c.parserOptions = []jwt.ParserOption{
		jwt.WithValidMethods(validMethods),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		c.parserOptions = append(c.parserOptions, jwt.WithIssuer(c.issuer))
	}
	if len(c.audience) > 0 {
		// jwt.WithAudience accepts a single value; every configured
		// audience is stamped, the first is required on verify.
		c.parserOptions = append(c.parserOptions, jwt.WithAudience(c.audience[0]))
	}

	return c, nil
}

// Sign mints a token of the given kind that expires after ttl.
func (c *TokenCodec) Sign(kind TokenKind, payload TokenPayload, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", fmt.Errorf("authist: token lifetime must be positive, got %s", ttl)
	}

	now := c.now()
	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   payload.UID,
			Issuer:    c.issuer,
			Audience:  c.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Kind:  kind,
		UID:   payload.UID,
		Email: payload.Email,
	}

	signed, err := jwt.NewWithClaims(c.method, claims).SignedString(c.signingKey)
	if err != nil {
		return "", fmt.Errorf("authist: sign %s: %w", kind, err)
	}
	return signed, nil
}

// Verify checks signature, expiry and kind. Integrity or expiry failures
// return ErrInvalidToken; a valid token of another kind returns
// ErrInvalidTokenType.
func (c *TokenCodec) Verify(raw string, expected TokenKind) (*TokenClaims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidToken
	}

	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, c.keyfunc, c.parserOptions...)
	if err != nil {
		return nil, ErrInvalidToken.Wrap(err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ExpiresAt == nil {
		return nil, ErrInvalidToken.Wrap(errors.New("token has no expiry"))
	}
	if claims.Kind != expected {
		return nil, ErrInvalidTokenType.Wrap(fmt.Errorf("expected %s, got %q", expected, claims.Kind))
	}

	return claims, nil
}

// Close stops the background JWK set refresh, if any.
func (c *TokenCodec) Close() {
	if c.jwks != nil {
		c.jwks.EndBackground()
	}
}

func staticKeyfunc(key any) jwt.Keyfunc {
	return func(*jwt.Token) (any, error) {
		return key, nil
	}
}

func methodForPublicKey(key crypto.PublicKey) (jwt.SigningMethod, error) {
	switch k := key.(type) {
	case *rsa.PublicKey:
		return jwt.SigningMethodRS256, nil
	case *ecdsa.PublicKey:
		switch k.Curve.Params().BitSize {
		case 256:
			return jwt.SigningMethodES256, nil
		case 384:
			return jwt.SigningMethodES384, nil
		case 521:
			return jwt.SigningMethodES512, nil
		}
		return nil, fmt.Errorf("authist: unsupported ECDSA curve %s", k.Curve.Params().Name)
	case ed25519.PublicKey:
		return jwt.SigningMethodEdDSA, nil
	}
	return nil, fmt.Errorf("authist: unsupported key type %T", key)
}
