package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/vitalog/vitalog-api/internal/core/domain"
	"github.com/vitalog/vitalog-api/internal/core/ports"
)

// Context keys set by the auth middlewares.
const (
	UserIDKey = "user_id"
	EmailKey  = "email"
)

// Auth requires a valid access token and injects its subject into context.
func Auth(tokens ports.TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}
			if err := authenticate(c, tokens, authHeader); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// OptionalAuth lets anonymous requests through but still rejects a bearer
// token that is present and invalid.
func OptionalAuth(tokens ports.TokenIssuer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return next(c)
			}
			if err := authenticate(c, tokens, authHeader); err != nil {
				return err
			}
			return next(c)
		}
	}
}

func authenticate(c echo.Context, tokens ports.TokenIssuer, authHeader string) error {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization header")
	}

	payload, err := tokens.Verify(parts[1])
	if err != nil || payload.Type != domain.TokenAccess {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	c.Set(UserIDKey, payload.Subject)
	c.Set(EmailKey, payload.Email)
	return nil
}
