// Package fiberauth exposes an authist.Authist over Fiber: sign-in,
// refresh and password reset handlers, plus a bearer middleware.
package fiberauth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-authist"
	"github.com/goliatone/go-authist/middleware/jwtware"
)

// Config controls handler behavior.
type Config struct {
	// Prefix for RegisterRoutes. Defaults to "/auth".
	Prefix string
	// ContextKey is the Locals key for the authenticated user.
	ContextKey string
	// TokenLookup is forwarded to the bearer middleware.
	TokenLookup  string
	ErrorHandler func(c *fiber.Ctx, route Route, err error) error
	// ExposeResetToken returns the reset token in the recover response.
	// Only meant for development setups without an email sender.
	ExposeResetToken bool
	// ConfirmPassword makes /signup and /password/reset require a matching
	// passwordConfirmation field.
	ConfirmPassword bool
	Logger          authist.Logger
}

// Handlers binds an Authist instance to Fiber.
type Handlers struct {
	auth   *authist.Authist
	config Config
}

// New returns handlers for auth.
func New(auth *authist.Authist, cfg ...Config) *Handlers {
	var config Config
	if len(cfg) > 0 {
		config = cfg[0]
	}
	if config.Prefix == "" {
		config.Prefix = "/auth"
	}
	if config.ContextKey == "" {
		config.ContextKey = "user"
	}
	if config.ErrorHandler == nil {
		config.ErrorHandler = DefaultErrorHandler(config.Logger)
	}
	return &Handlers{auth: auth, config: config}
}

// RegisterRoutes mounts every handler under the configured prefix.
func (h *Handlers) RegisterRoutes(router fiber.Router) {
	group := router.Group(h.config.Prefix)

	group.Post("/signin/email", h.SignInWithEmailAndPassword)
	group.Post("/signin/username", h.SignInWithUsernameAndPassword)
	group.Post("/signin/provider/:provider", h.SignInWithProvider)
	group.Post("/signup", h.CreateUser)
	group.Post("/token/refresh", h.RefreshToken)
	group.Post("/password/recover", h.RecoverPassword)
	group.Post("/password/reset", h.ResetPassword)
	group.Get("/me", h.Bearer(), h.Me)
}

// Bearer returns a middleware that requires a valid access token.
func (h *Handlers) Bearer() fiber.Handler {
	return jwtware.New(jwtware.Config{
		Verifier:    bearer{h.auth},
		ContextKey:  h.config.ContextKey,
		TokenLookup: h.config.TokenLookup,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return h.config.ErrorHandler(c, RouteBearer, err)
		},
	})
}

type request struct {
	Email        string `json:"email" form:"email"`
	Username     string `json:"username" form:"username"`
	Password     string `json:"password" form:"password"`
	Token        string `json:"token" form:"token"`
	RefreshToken string `json:"refreshToken" form:"refreshToken"`
	Confirmation string `json:"passwordConfirmation" form:"passwordConfirmation"`
}

// parseRequest reads the body and fills the remaining fields from the
// query string.
func parseRequest(c *fiber.Ctx) (*request, error) {
	req := &request{}
	if len(c.Body()) > 0 {
		if err := c.BodyParser(req); err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "malformed request body")
		}
	}

	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = c.Query(key)
		}
	}
	fill(&req.Email, "email")
	fill(&req.Username, "username")
	fill(&req.Password, "password")
	fill(&req.Token, "token")
	fill(&req.RefreshToken, "refreshToken")
	fill(&req.Confirmation, "passwordConfirmation")

	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	return req, nil
}

func (h *Handlers) confirm(req *request) error {
	if !h.config.ConfirmPassword {
		return nil
	}
	return authist.ConfirmPassword(req.Password, req.Confirmation)
}

func requestContext(c *fiber.Ctx) context.Context {
	return authist.WithRequest(c.UserContext(), c)
}

func (h *Handlers) SignInWithEmailAndPassword(c *fiber.Ctx) error {
	req, err := parseRequest(c)
	if err != nil {
		return h.config.ErrorHandler(c, RouteSignIn, err)
	}

	creds, err := h.auth.SignInWithEmailAndPassword(requestContext(c), req.Email, req.Password)
	if err != nil {
		return h.config.ErrorHandler(c, RouteSignIn, err)
	}
	return c.JSON(creds)
}

func (h *Handlers) SignInWithUsernameAndPassword(c *fiber.Ctx) error {
	req, err := parseRequest(c)
	if err != nil {
		return h.config.ErrorHandler(c, RouteSignIn, err)
	}

	creds, err := h.auth.SignInWithUsernameAndPassword(requestContext(c), req.Username, req.Password)
	if err != nil {
		return h.config.ErrorHandler(c, RouteSignIn, err)
	}
	return c.JSON(creds)
}

// SignInWithProvider expects the provider access token in "token".
func (h *Handlers) SignInWithProvider(c *fiber.Ctx) error {
	req, err := parseRequest(c)
	if err != nil {
		return h.config.ErrorHandler(c, RouteSignIn, err)
	}

	creds, err := h.auth.SignInWithProvider(requestContext(c), c.Params("provider"), req.Token)
	if err != nil {
		return h.config.ErrorHandler(c, RouteSignIn, err)
	}
	return c.JSON(creds)
}

func (h *Handlers) CreateUser(c *fiber.Ctx) error {
	req, err := parseRequest(c)
	if err != nil {
		return h.config.ErrorHandler(c, RouteSignIn, err)
	}

	if err := h.confirm(req); err != nil {
		return h.config.ErrorHandler(c, RouteSignIn, err)
	}

	user, err := h.auth.CreateUser(requestContext(c), req.Email, req.Password)
	if err != nil {
		return h.config.ErrorHandler(c, RouteSignIn, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

func (h *Handlers) RefreshToken(c *fiber.Ctx) error {
	req, err := parseRequest(c)
	if err != nil {
		return h.config.ErrorHandler(c, RouteRefresh, err)
	}

	creds, err := h.auth.RefreshToken(requestContext(c), req.RefreshToken)
	if err != nil {
		return h.config.ErrorHandler(c, RouteRefresh, err)
	}
	return c.JSON(creds)
}

// RecoverPassword starts a reset. The token is delivered by the
// configured email hook and only echoed back when ExposeResetToken is set.
func (h *Handlers) RecoverPassword(c *fiber.Ctx) error {
	req, err := parseRequest(c)
	if err != nil {
		return h.config.ErrorHandler(c, RouteReset, err)
	}

	token, err := h.auth.RequestPasswordReset(requestContext(c), req.Email)
	if err != nil {
		return h.config.ErrorHandler(c, RouteReset, err)
	}

	if h.config.ExposeResetToken {
		return c.Status(fiber.StatusAccepted).JSON(token)
	}
	return c.SendStatus(fiber.StatusAccepted)
}

func (h *Handlers) ResetPassword(c *fiber.Ctx) error {
	req, err := parseRequest(c)
	if err != nil {
		return h.config.ErrorHandler(c, RouteReset, err)
	}

	if err := h.confirm(req); err != nil {
		return h.config.ErrorHandler(c, RouteReset, err)
	}

	if err := h.auth.ResetPassword(requestContext(c), req.Token, req.Password); err != nil {
		return h.config.ErrorHandler(c, RouteReset, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Me returns the user stored by the bearer middleware.
func (h *Handlers) Me(c *fiber.Ctx) error {
	user, ok := authist.FromContext(c.UserContext())
	if !ok {
		return h.config.ErrorHandler(c, RouteBearer, authist.ErrAuthenticationRequired)
	}
	return c.JSON(user)
}

// bearer adapts Authist to jwtware.TokenVerifier.
type bearer struct {
	auth *authist.Authist
}

func (b bearer) VerifyClaims(ctx context.Context, header string) (*authist.User, *authist.TokenClaims, error) {
	return b.auth.VerifyBearerClaims(ctx, header)
}

func (b bearer) VerifyToken(ctx context.Context, token string) (*authist.User, *authist.TokenClaims, error) {
	return b.auth.VerifyAccessToken(ctx, token)
}
