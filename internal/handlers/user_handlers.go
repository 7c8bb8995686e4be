package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"edportal/internal/middleware"
	"edportal/internal/models"
	"edportal/internal/payments"
	"edportal/internal/store"
)

// UserHandler serves portal profile documents.
type UserHandler struct {
	store     *store.Client
	qualifier string
}

func NewUserHandler(st *store.Client, qualifier string) *UserHandler {
	return &UserHandler{store: st, qualifier: qualifier}
}

func (h *UserHandler) collection() string {
	return h.qualifier + payments.TableUsers
}

// Me returns the caller's own profile document.
func (h *UserHandler) Me(c echo.Context) error {
	user, err := h.store.GetUser(c.Request().Context(), h.collection(), middleware.UserUID(c))
	if err != nil {
		if errors.Is(err, payments.ErrUserNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "User not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}
	return c.JSON(http.StatusOK, user)
}

// Register creates the caller's profile document if it does not exist yet.
// Safe to call repeatedly.
func (h *UserHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid registration payload")
	}
	if req.Role == "" {
		req.Role = models.RoleConsumer
	}

	user := &models.User{
		Email:    req.Email,
		FullName: req.FullName,
		Role:     req.Role,
	}

	created, err := h.store.CreateUserIfAbsent(c.Request().Context(), h.collection(), middleware.UserUID(c), user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}
	if !created {
		return c.JSON(http.StatusOK, map[string]string{"message": "User already exists"})
	}
	return c.JSON(http.StatusCreated, map[string]string{
		"message":  "User registered successfully",
		"fullName": req.FullName,
		"role":     req.Role,
	})
}
