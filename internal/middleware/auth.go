// Package middleware provides the HTTP middleware chain: authentication, logging, rate limiting, tracing, and metrics.
package middleware

import (
	"context"
	"strings"

	"github.com/marinaua13/social-media-api/internal/models"

	"github.com/gofiber/fiber/v2"
)

// TokenVerifier validates an access token and returns the user it was issued to.
type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (uint, error)
}

func unauthorized(c *fiber.Ctx, message string) error {
	return models.RespondWithError(c, fiber.StatusUnauthorized, models.NewUnauthorizedError(message))
}

// rejectToken answers a failed verification. Only an internal failure, such as
// the user store being down, is not the caller's fault.
func rejectToken(c *fiber.Ctx, err error) error {
	if models.IsCode(err, models.CodeInternal) {
		return models.RespondWithError(c, fiber.StatusInternalServerError, err)
	}
	return unauthorized(c, "Invalid or expired token")
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// AuthRequired rejects requests without a valid "Bearer <access token>" header
// and stores the caller's id in c.Locals("userID").
func AuthRequired(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get("Authorization") == "" {
			return unauthorized(c, "Authentication credentials were not provided")
		}
		token, ok := bearerToken(c)
		if !ok {
			return unauthorized(c, "Invalid authorization header format")
		}

		userID, err := verifier.VerifyAccessToken(c.UserContext(), token)
		if err != nil {
			return rejectToken(c, err)
		}

		c.Locals("userID", userID)
		c.SetUserContext(WithUserID(c.UserContext(), userID))
		return c.Next()
	}
}

// WebSocketAuthRequired validates an access token passed as ?token= (browsers cannot
// set headers on upgrade requests), falling back to the Authorization header.
func WebSocketAuthRequired(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Query("token")
		if token == "" {
			var ok bool
			token, ok = bearerToken(c)
			if !ok {
				return unauthorized(c, "Token required")
			}
		}

		userID, err := verifier.VerifyAccessToken(c.UserContext(), token)
		if err != nil {
			return rejectToken(c, err)
		}

		c.Locals("userID", userID)
		return c.Next()
	}
}
