package authist

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKind is the tag embedded in every signed token. It keeps access,
// refresh and reset tokens from being used in place of each other.
type TokenKind string

const (
	KindAccess        TokenKind = "accessToken"
	KindRefresh       TokenKind = "refreshToken"
	KindResetPassword TokenKind = "resetPasswordToken"
)

// TokenPayload is the subject data carried by a token.
type TokenPayload struct {
	UID   string
	Email string
}

// TokenClaims is the signed envelope.
type TokenClaims struct {
	jwt.RegisteredClaims
	Kind  TokenKind `json:"type"`
	UID   string    `json:"uid,omitempty"`
	Email string    `json:"email,omitempty"`
}

// UserID returns the uid claim, falling back to the subject.
func (c *TokenClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.Subject
}

// TokenID returns the jti claim.
func (c *TokenClaims) TokenID() string {
	return c.ID
}

// Expires returns the expiration time
func (c *TokenClaims) Expires() time.Time {
	if c.ExpiresAt != nil {
		return c.ExpiresAt.Time
	}
	return time.Time{}
}
