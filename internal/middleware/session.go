// Package middleware provides request-scoped middleware: session resolution,
// structured logging, rate limiting, tracing and metrics.
package middleware

import (
	"context"
	"strings"

	"mosaic/internal/models"

	"github.com/gofiber/fiber/v2"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "token"

// SessionResolver turns a raw token into the user it belongs to.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
}

// Session attaches the caller's identity when a valid token is presented.
// It never rejects; routes that need identity add their own guard.
func Session(resolver SessionResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := TokenFromRequest(c)
		if token == "" {
			return c.Next()
		}

		user, err := resolver.Resolve(c.UserContext(), token)
		if err != nil || user == nil {
			if models.StatusFor(err) == fiber.StatusInternalServerError {
				Logger.ErrorContext(c.UserContext(), "session resolution failed", "error", err)
			}
			return c.Next()
		}

		c.Locals("userID", user.ID)
		c.Locals("user", user)
		c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, user.ID))
		return c.Next()
	}
}

// TokenFromRequest reads the session cookie, falling back to a bearer header.
func TokenFromRequest(c *fiber.Ctx) string {
	if token := c.Cookies(SessionCookie); token != "" {
		return token
	}
	if scheme, token, ok := strings.Cut(c.Get(fiber.HeaderAuthorization), " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

// CurrentUser returns the user attached by Session, if any.
func CurrentUser(c *fiber.Ctx) (*models.User, bool) {
	user, ok := c.Locals("user").(*models.User)
	return user, ok && user != nil
}
