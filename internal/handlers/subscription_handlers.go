package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"edportal/internal/middleware"
	"edportal/internal/payments"
)

// SubscriptionHandler exposes the plan lifecycle: confirming a purchase
// and querying, cancelling or reactivating the resulting subscription.
type SubscriptionHandler struct {
	subs *payments.SubscriptionService
}

func NewSubscriptionHandler(subs *payments.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subs: subs}
}

// ConfirmPayment verifies a succeeded payment intent and activates the
// purchased plan on the caller's profile.
func (h *SubscriptionHandler) ConfirmPayment(c echo.Context) error {
	var req ConfirmPaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Payment intent ID required")
	}

	result, err := h.subs.ConfirmPayment(c.Request().Context(), requester(c), req.PaymentIntentID)
	if err != nil {
		return mapSubscriptionError(err, "Error confirming payment")
	}
	return c.JSON(http.StatusOK, result)
}

// Status returns the caller's current plan.
func (h *SubscriptionHandler) Status(c echo.Context) error {
	status, err := h.subs.Status(c.Request().Context(), middleware.UserUID(c))
	if err != nil {
		return mapSubscriptionError(err, "Error fetching subscription status")
	}
	return c.JSON(http.StatusOK, status)
}

// Cancel downgrades the caller to the basic plan immediately.
func (h *SubscriptionHandler) Cancel(c echo.Context) error {
	var req CancelSubscriptionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid cancellation payload")
	}

	if err := h.subs.Cancel(c.Request().Context(), requester(c), req.Reason, req.Feedback); err != nil {
		return mapSubscriptionError(err, "Error cancelling subscription")
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message":            "Subscription cancelled successfully",
		"newPlan":            "basic",
		"subscriptionStatus": "cancelled",
	})
}

// Reactivate flips a cancelled subscription back to active.
func (h *SubscriptionHandler) Reactivate(c echo.Context) error {
	if err := h.subs.Reactivate(c.Request().Context(), requester(c)); err != nil {
		return mapSubscriptionError(err, "Error reactivating subscription")
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message":            "Subscription reactivated successfully",
		"subscriptionStatus": "active",
	})
}

func mapSubscriptionError(err error, fallback string) error {
	switch {
	case errors.Is(err, payments.ErrMissingPaymentIntentID),
		errors.Is(err, payments.ErrPaymentNotCompleted),
		errors.Is(err, payments.ErrNotSubscribed),
		errors.Is(err, payments.ErrNotCancelled):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, payments.ErrPaymentOwnership):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	case errors.Is(err, payments.ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}
	return mapCheckoutError(err, fallback)
}
