package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"

	"edportal/internal/models"
	"edportal/internal/payments"
)

// ContextUserRole carries the resolved role after a role check.
const ContextUserRole = "userRole"

// UserFetcher loads a user profile document. Implementations return
// payments.ErrUserNotFound when the profile is absent.
type UserFetcher interface {
	GetUser(ctx context.Context, collection, uid string) (*models.User, error)
}

// RequireRole returns a middleware that loads the caller's profile and
// allows the request only when their role is one of the given roles. A
// missing role on the profile defaults to teacherDefault.
func RequireRole(users UserFetcher, usersCollection string, roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid := UserUID(c)
			if uid == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required for role check")
			}

			user, err := users.GetUser(c.Request().Context(), usersCollection, uid)
			if err != nil {
				if errors.Is(err, payments.ErrUserNotFound) {
					return echo.NewHTTPError(http.StatusNotFound, "User profile not found")
				}
				return fmt.Errorf("role check for %s: %w", uid, err)
			}

			role := user.Role
			if role == "" {
				role = models.RoleTeacherDefault
			}

			if !slices.Contains(roles, role) {
				return echo.NewHTTPError(http.StatusForbidden, "Access denied for role "+role)
			}

			c.Set(ContextUserRole, role)
			return next(c)
		}
	}
}

// RequireTeacher allows any teacher tier.
func RequireTeacher(users UserFetcher, usersCollection string) echo.MiddlewareFunc {
	return RequireRole(users, usersCollection, models.TeacherRoles()...)
}

// RequirePremiumTeacher allows only the paid teacher tiers.
func RequirePremiumTeacher(users UserFetcher, usersCollection string) echo.MiddlewareFunc {
	return RequireRole(users, usersCollection, models.PremiumTeacherRoles()...)
}

// RequireAdmin allows only administrators.
func RequireAdmin(users UserFetcher, usersCollection string) echo.MiddlewareFunc {
	return RequireRole(users, usersCollection, models.RoleAdmin)
}
