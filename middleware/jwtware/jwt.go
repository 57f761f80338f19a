package jwtware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-authist"
)

var defaultTokenLookup = "header:" + fiber.HeaderAuthorization

// TokenVerifier resolves a presented credential to a user. Header values
// go through VerifyClaims so the scheme is checked; tokens from any other
// source go through VerifyToken.
type TokenVerifier interface {
	VerifyClaims(ctx context.Context, header string) (*authist.User, *authist.TokenClaims, error)
	VerifyToken(ctx context.Context, token string) (*authist.User, *authist.TokenClaims, error)
}

// ValidationListener is invoked after a token has been verified and before
// the request proceeds.
type ValidationListener func(c *fiber.Ctx, user *authist.User, claims *authist.TokenClaims) error

type Config struct {
	Filter         func(*fiber.Ctx) bool
	SuccessHandler fiber.Handler
	ErrorHandler   fiber.ErrorHandler
	// Verifier is required.
	Verifier TokenVerifier
	// ContextKey is the Locals key for the resolved user.
	ContextKey string
	// ClaimsKey is the Locals key for the access token claims.
	ClaimsKey string
	// TokenLookup is a comma separated list of source:name pairs, e.g.
	// "header:Authorization,cookie:jwt,query:auth_token,param:token".
	TokenLookup string

	ValidationListeners []ValidationListener
}

// New returns a middleware that authenticates the request and stores the
// user in Locals and in the request user context.
func New(config ...Config) fiber.Handler {
	cfg := GetDefaultConfig(config...)
	extractors := GetExtractors(cfg.TokenLookup)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		ctx := authist.WithRequest(c.UserContext(), c)

		var (
			user   *authist.User
			claims *authist.TokenClaims
			err    error
		)
		source, raw := ExtractRawToken(c, extractors)
		switch source {
		case "header", "":
			user, claims, err = cfg.Verifier.VerifyClaims(ctx, raw)
		default:
			user, claims, err = cfg.Verifier.VerifyToken(ctx, raw)
		}
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		for _, listener := range cfg.ValidationListeners {
			if listener == nil {
				continue
			}
			if err := listener(c, user, claims); err != nil {
				return cfg.ErrorHandler(c, err)
			}
		}

		c.Locals(cfg.ContextKey, user)
		c.Locals(cfg.ClaimsKey, claims)

		ctx = authist.WithContext(c.UserContext(), user)
		ctx = authist.WithClaimsContext(ctx, claims)
		c.SetUserContext(ctx)

		return cfg.SuccessHandler(c)
	}
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
			if authErr, ok := err.(*authist.Error); ok {
				return c.Status(fiber.StatusUnauthorized).JSON(authErr)
			}
			return c.Status(fiber.StatusUnauthorized).SendString("Invalid or expired token")
		}
	}

	if cfg.Verifier == nil {
		panic("AUTH: JWT middleware configuration: Verifier is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.ClaimsKey == "" {
		cfg.ClaimsKey = "claims"
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	return cfg
}

// JWTExtractor reads a credential from one request source.
type JWTExtractor struct {
	Source string
	Read   func(c *fiber.Ctx) string
}

// ExtractRawToken returns the first non empty credential along with the
// source it came from. Both are empty when nothing was presented.
func ExtractRawToken(c *fiber.Ctx, extractors []JWTExtractor) (string, string) {
	for _, extractor := range extractors {
		if raw := strings.TrimSpace(extractor.Read(c)); raw != "" {
			return extractor.Source, raw
		}
	}
	return "", ""
}

func GetExtractors(tokenLookup string) []JWTExtractor {
	extractors := make([]JWTExtractor, 0)

	// header:Authorization,cookie:jwt,query:auth_token,param:token
	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) != 2 {
			continue
		}

		source, name := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
		switch source {
		case "header":
			extractors = append(extractors, JWTExtractor{Source: source, Read: jwtFromHeader(name)})
		case "query":
			extractors = append(extractors, JWTExtractor{Source: source, Read: jwtFromQuery(name)})
		case "param":
			extractors = append(extractors, JWTExtractor{Source: source, Read: jwtFromParam(name)})
		case "cookie":
			extractors = append(extractors, JWTExtractor{Source: source, Read: jwtFromCookie(name)})
		}
	}

	return extractors
}

// jwtFromHeader returns the full header value, scheme included.
func jwtFromHeader(header string) func(c *fiber.Ctx) string {
	return func(c *fiber.Ctx) string {
		return c.Get(header)
	}
}

func jwtFromQuery(param string) func(c *fiber.Ctx) string {
	return func(c *fiber.Ctx) string {
		return c.Query(param)
	}
}

func jwtFromParam(param string) func(c *fiber.Ctx) string {
	return func(c *fiber.Ctx) string {
		return c.Params(param)
	}
}

func jwtFromCookie(name string) func(c *fiber.Ctx) string {
	return func(c *fiber.Ctx) string {
		return c.Cookies(name)
	}
}
