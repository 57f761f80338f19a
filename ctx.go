package authist

import (
	"context"
)

var userCtxKey = &contextKey{"user"}
var claimsCtxKey = &contextKey{"claims"}
var requestCtxKey = &contextKey{"request"}

type contextKey struct {
	name string
}

// WithContext sets the User in the given context
func WithContext(r context.Context, user *User) context.Context {
	return context.WithValue(r, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok && raw != nil
}

// WithClaimsContext sets the verified access token claims in the given context
func WithClaimsContext(r context.Context, claims *TokenClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// GetClaims extracts the access token claims from the standard context
func GetClaims(ctx context.Context) (*TokenClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*TokenClaims)
	return raw, ok && raw != nil
}

// WithRequest attaches the transport request (an *http.Request, a
// *fiber.Ctx, ...) so collaborators can inspect it.
func WithRequest(ctx context.Context, req any) context.Context {
	return context.WithValue(ctx, requestCtxKey, req)
}

// RequestFromContext returns whatever WithRequest stored.
func RequestFromContext(ctx context.Context) (any, bool) {
	req := ctx.Value(requestCtxKey)
	return req, req != nil
}
