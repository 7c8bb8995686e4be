package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
)

// Context keys set by RequireAuth for downstream handlers.
const (
	ContextUserUID   = "userUID"
	ContextUserEmail = "userEmail"
	ContextUserName  = "userName"
)

// TokenVerifier verifies a Firebase ID token. *auth.Client satisfies it;
// tests inject a fake.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// RequireAuth returns a middleware that verifies the bearer ID token and
// places the caller's UID, email and name on the request context.
func RequireAuth(verifier TokenVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if verifier == nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "Authentication is not configured on this server")
			}

			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}

			decoded, err := verifier.VerifyIDToken(c.Request().Context(), strings.TrimSpace(token))
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized")
			}

			c.Set(ContextUserUID, decoded.UID)
			if email, ok := decoded.Claims["email"].(string); ok {
				c.Set(ContextUserEmail, email)
			}
			if name, ok := decoded.Claims["name"].(string); ok {
				c.Set(ContextUserName, name)
			}

			return next(c)
		}
	}
}

// UserUID returns the authenticated caller's UID, empty when unauthenticated.
func UserUID(c echo.Context) string {
	return stringFromContext(c, ContextUserUID)
}

// UserEmail returns the authenticated caller's email claim.
func UserEmail(c echo.Context) string {
	return stringFromContext(c, ContextUserEmail)
}

// UserName returns the authenticated caller's name claim.
func UserName(c echo.Context) string {
	return stringFromContext(c, ContextUserName)
}

func stringFromContext(c echo.Context, key string) string {
	if v, ok := c.Get(key).(string); ok {
		return v
	}
	return ""
}
