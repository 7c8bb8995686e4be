package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"edportal/internal/models"
	"edportal/internal/payments"
	"edportal/internal/store"
)

// LessonHandler serves lesson plans.
type LessonHandler struct {
	store     *store.Client
	qualifier string
}

func NewLessonHandler(st *store.Client, qualifier string) *LessonHandler {
	return &LessonHandler{store: st, qualifier: qualifier}
}

func (h *LessonHandler) collection() string {
	return h.qualifier + payments.TableLesson
}

// ListLessons returns all lesson plans.
func (h *LessonHandler) ListLessons(c echo.Context) error {
	lessons, err := h.store.ListLessons(c.Request().Context(), h.collection())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch lessons")
	}
	return c.JSON(http.StatusOK, lessons)
}

// CreateLesson stores a new lesson plan.
func (h *LessonHandler) CreateLesson(c echo.Context) error {
	var lesson models.Lesson
	if err := c.Bind(&lesson); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid lesson payload")
	}

	id, err := h.store.CreateLesson(c.Request().Context(), h.collection(), &lesson)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create lesson")
	}

	return c.JSON(http.StatusCreated, map[string]string{
		"message": "Lesson created successfully",
		"id":      id,
	})
}
