package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"edportal/internal/models"
	"edportal/internal/payments"
	"edportal/internal/services"
	"edportal/internal/store"
)

const moduleListCacheTTL = 5 * time.Minute

// ModuleHandler serves the learning module catalog.
type ModuleHandler struct {
	store     *store.Client
	cache     *services.RedisCache
	qualifier string
}

func NewModuleHandler(st *store.Client, cache *services.RedisCache, qualifier string) *ModuleHandler {
	return &ModuleHandler{store: st, cache: cache, qualifier: qualifier}
}

func (h *ModuleHandler) collection() string {
	return h.qualifier + payments.TableModule
}

func (h *ModuleHandler) cacheKey() string {
	return "modules:" + h.collection()
}

// ListModules returns the full module catalog, served through the
// read-through cache.
func (h *ModuleHandler) ListModules(c echo.Context) error {
	ctx := c.Request().Context()
	modules, err := services.GetOrSet(h.cache, ctx, h.cacheKey(), moduleListCacheTTL, func() ([]models.Module, error) {
		return h.store.ListModules(ctx, h.collection())
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch modules")
	}
	return c.JSON(http.StatusOK, modules)
}

// GetModule returns one module by id.
func (h *ModuleHandler) GetModule(c echo.Context) error {
	module, err := h.store.GetModule(c.Request().Context(), h.collection(), c.Param("id"))
	if err != nil {
		if errors.Is(err, payments.ErrModuleNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Module not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch module")
	}
	return c.JSON(http.StatusOK, module)
}

// CreateModule stores a new module.
func (h *ModuleHandler) CreateModule(c echo.Context) error {
	var module models.Module
	if err := c.Bind(&module); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid module payload")
	}
	if module.Tags == nil {
		module.Tags = []string{}
	}
	if module.LessonPlans == nil {
		module.LessonPlans = []string{}
	}

	ctx := c.Request().Context()
	id, err := h.store.CreateModule(ctx, h.collection(), &module)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create module")
	}
	module.ID = id

	_ = h.cache.Delete(ctx, h.cacheKey())
	return c.JSON(http.StatusCreated, module)
}

// EditModule updates the provided fields of an existing module, leaving
// unset fields untouched.
func (h *ModuleHandler) EditModule(c echo.Context) error {
	id := c.Param("id")
	ctx := c.Request().Context()

	existing, err := h.store.GetModule(ctx, h.collection(), id)
	if err != nil {
		if errors.Is(err, payments.ErrModuleNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Module not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch module")
	}

	var req models.Module
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid module payload")
	}

	fields := map[string]interface{}{}
	if req.Title != "" {
		fields["title"] = req.Title
		existing.Title = req.Title
	}
	if req.Description != "" {
		fields["description"] = req.Description
		existing.Description = req.Description
	}
	if req.Tags != nil {
		fields["tags"] = req.Tags
		existing.Tags = req.Tags
	}
	if req.LessonPlans != nil {
		fields["lessonPlans"] = req.LessonPlans
		existing.LessonPlans = req.LessonPlans
	}
	if req.Image != "" {
		fields["image"] = req.Image
		existing.Image = req.Image
	}
	if req.Price != 0 {
		fields["price"] = req.Price
		existing.Price = req.Price
	}

	if len(fields) > 0 {
		if err := h.store.UpsertMerge(ctx, h.collection(), id, fields); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update module")
		}
		_ = h.cache.Delete(ctx, h.cacheKey())
	}

	return c.JSON(http.StatusOK, existing)
}

// DeleteModule removes a module.
func (h *ModuleHandler) DeleteModule(c echo.Context) error {
	id := c.Param("id")
	ctx := c.Request().Context()

	exists, err := h.store.Exists(ctx, h.collection(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch module")
	}
	if !exists {
		return echo.NewHTTPError(http.StatusNotFound, "Module not found")
	}

	if err := h.store.Delete(ctx, h.collection(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete module")
	}

	_ = h.cache.Delete(ctx, h.cacheKey())
	return c.JSON(http.StatusOK, map[string]string{"message": "Module deleted successfully"})
}
