package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"edportal/internal/models"
	"edportal/internal/payments"
	"edportal/internal/store"
)

// UnitHandler serves content units ("nuggets").
type UnitHandler struct {
	store     *store.Client
	qualifier string
}

func NewUnitHandler(st *store.Client, qualifier string) *UnitHandler {
	return &UnitHandler{store: st, qualifier: qualifier}
}

func (h *UnitHandler) collection() string {
	return h.qualifier + payments.TableContent
}

// ListUnits returns public units only.
func (h *UnitHandler) ListUnits(c echo.Context) error {
	units, err := h.store.ListUnits(c.Request().Context(), h.collection())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch units")
	}

	public := []models.Unit{}
	for _, unit := range units {
		if unit.IsPublic {
			public = append(public, unit)
		}
	}
	return c.JSON(http.StatusOK, public)
}

// GetUnit returns one unit by id.
func (h *UnitHandler) GetUnit(c echo.Context) error {
	unit, err := h.store.GetUnit(c.Request().Context(), h.collection(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Unit not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch unit")
	}
	return c.JSON(http.StatusOK, unit)
}

// CreateUnit stores a new content unit.
func (h *UnitHandler) CreateUnit(c echo.Context) error {
	var unit models.Unit
	if err := c.Bind(&unit); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid unit payload")
	}

	id, err := h.store.CreateUnit(c.Request().Context(), h.collection(), &unit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create unit")
	}
	unit.ID = id

	return c.JSON(http.StatusCreated, unit)
}

// DeleteUnit removes a unit unless a lesson plan still references it.
func (h *UnitHandler) DeleteUnit(c echo.Context) error {
	id := c.Param("id")
	ctx := c.Request().Context()

	if _, err := h.store.GetUnit(ctx, h.collection(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Unit not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch unit")
	}

	lessons, err := h.store.ListLessons(ctx, h.qualifier+payments.TableLesson)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to check lesson references")
	}
	if titles := models.LessonsReferencingUnit(lessons, id); len(titles) > 0 {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf(
			"Cannot delete unit as it is used in the following lesson plans: %s", strings.Join(titles, ", ")))
	}

	if err := h.store.Delete(ctx, h.collection(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete unit")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Unit deleted successfully"})
}
