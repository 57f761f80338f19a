package fiberauth

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-authist"
	"github.com/goliatone/go-authist/social"
)

// Route identifies which kind of endpoint produced an error.
type Route int

const (
	RouteSignIn Route = iota
	RouteBearer
	RouteRefresh
	RouteReset
)

// ErrorResponse is the body written for failures that are not taxonomy
// errors.
type ErrorResponse struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
	Provider  string `json:"provider,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// StatusFor maps err to an HTTP status for the given route.
func StatusFor(route Route, err error) int {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code
	}

	if errors.Is(err, authist.ErrProviderNotConfigured) {
		return fiber.StatusNotFound
	}

	var inputErr *authist.InputError
	if errors.As(err, &inputErr) {
		return fiber.StatusBadRequest
	}

	if _, ok := social.AsProviderError(err); ok {
		return fiber.StatusBadGateway
	}

	if authist.IsNotImplemented(err) {
		return fiber.StatusNotImplemented
	}

	if _, ok := authist.CodeOf(err); !ok {
		return fiber.StatusInternalServerError
	}

	switch route {
	case RouteBearer, RouteRefresh:
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusBadRequest
	}
}

// DefaultErrorHandler writes err as JSON with the status from StatusFor.
// Unexpected errors are logged and reported without detail.
func DefaultErrorHandler(logger authist.Logger) func(c *fiber.Ctx, route Route, err error) error {
	return func(c *fiber.Ctx, route Route, err error) error {
		status := StatusFor(route, err)

		var authErr *authist.Error
		if errors.As(err, &authErr) {
			return c.Status(status).JSON(authErr)
		}

		if perr, ok := social.AsProviderError(err); ok {
			return c.Status(status).JSON(ErrorResponse{
				Message:   perr.Error(),
				ErrorCode: "ProviderError",
				Provider:  perr.Provider,
				Retryable: perr.Retryable(),
			})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(status).JSON(ErrorResponse{
				Message:   fiberErr.Message,
				ErrorCode: "BadRequest",
			})
		}

		var inputErr *authist.InputError
		if errors.As(err, &inputErr) {
			return c.Status(status).JSON(ErrorResponse{
				Message:   inputErr.Error(),
				ErrorCode: "InvalidInput",
			})
		}

		if errors.Is(err, authist.ErrProviderNotConfigured) {
			return c.Status(status).JSON(ErrorResponse{
				Message:   err.Error(),
				ErrorCode: "ProviderNotConfigured",
			})
		}

		if logger != nil {
			logger.Error("authist: %s %s failed: %v", c.Method(), c.Path(), err)
		}
		return c.Status(status).JSON(ErrorResponse{
			Message:   fiber.ErrInternalServerError.Message,
			ErrorCode: "InternalError",
		})
	}
}
