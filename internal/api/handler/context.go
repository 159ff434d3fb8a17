package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vitalog/vitalog-api/internal/api/middleware"
)

// ctxUserID returns the authenticated user id, or "" for anonymous requests.
func ctxUserID(c echo.Context) string {
	id, _ := c.Get(middleware.UserIDKey).(string)
	return id
}

// requireUserID fails fast when a route that needs an identity was reached
// without one, which means the Auth middleware was not mounted.
func requireUserID(c echo.Context) (string, error) {
	id := ctxUserID(c)
	if id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return id, nil
}
