package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"edportal/internal/middleware"
	"edportal/internal/payments"
)

// PaymentHandler exposes the checkout and webhook endpoints. The webhook
// route must be registered with the raw (unparsed) request body available,
// since signature verification covers the exact bytes sent.
type PaymentHandler struct {
	checkout *payments.CheckoutService
	webhook  *payments.WebhookProcessor
}

func NewPaymentHandler(checkout *payments.CheckoutService, webhook *payments.WebhookProcessor) *PaymentHandler {
	return &PaymentHandler{checkout: checkout, webhook: webhook}
}

// requireCheckout rejects checkout requests when no Stripe secret key was
// configured at startup.
func (h *PaymentHandler) requireCheckout() error {
	if h.checkout == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Payment service is currently unavailable. Please contact support.")
	}
	return nil
}

func requester(c echo.Context) payments.Requester {
	return payments.Requester{
		UID:   middleware.UserUID(c),
		Name:  middleware.UserName(c),
		Email: middleware.UserEmail(c),
	}
}

// Test reports that the payment routes are mounted.
func (h *PaymentHandler) Test(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":   "Payment routes are working!",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"endpoints": []string{
			"POST /create-payment-intent (requires auth)",
			"POST /create-module-checkout-session (requires auth)",
			"POST /create-embedded-checkout-session (requires auth)",
			"POST /webhook",
			"GET /history (requires auth)",
			"GET /test",
		},
	})
}

// CreateModuleCheckoutSession creates an embedded checkout session for a
// priced module.
func (h *PaymentHandler) CreateModuleCheckoutSession(c echo.Context) error {
	if err := h.requireCheckout(); err != nil {
		return err
	}
	var req ModuleCheckoutRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "moduleId is required")
	}

	result, err := h.checkout.CreateModuleCheckoutSession(c.Request().Context(), requester(c), req.ModuleID)
	if err != nil {
		return mapCheckoutError(err, "Error creating module checkout session")
	}
	return c.JSON(http.StatusOK, result)
}

// CreateEmbeddedCheckoutSession creates an embedded checkout session for a
// fixed subscription plan.
func (h *PaymentHandler) CreateEmbeddedCheckoutSession(c echo.Context) error {
	if err := h.requireCheckout(); err != nil {
		return err
	}
	var req PlanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid plan type")
	}

	result, err := h.checkout.CreateEmbeddedCheckoutSession(c.Request().Context(), requester(c), req.PlanType)
	if err != nil {
		return mapCheckoutError(err, "Error creating checkout session")
	}
	return c.JSON(http.StatusOK, result)
}

// CreatePaymentIntent starts the bare payment-intent upgrade flow.
func (h *PaymentHandler) CreatePaymentIntent(c echo.Context) error {
	if err := h.requireCheckout(); err != nil {
		return err
	}
	var req PlanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid plan type")
	}

	result, err := h.checkout.CreatePaymentIntent(c.Request().Context(), requester(c), req.PlanType)
	if err != nil {
		return mapCheckoutError(err, "Error creating payment intent")
	}
	return c.JSON(http.StatusOK, result)
}

// History returns the caller's payment ledger entries, newest first.
func (h *PaymentHandler) History(c echo.Context) error {
	if err := h.requireCheckout(); err != nil {
		return err
	}
	entries, err := h.checkout.History(c.Request().Context(), middleware.UserUID(c))
	if err != nil {
		log.Printf("Error fetching payment history: %v", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}
	return c.JSON(http.StatusOK, entries)
}

// Webhook is the processor's asynchronous event ingress. Any verified
// event is acknowledged with 200 whether or not it was acted on; only a
// signature failure returns 400, which is the single path meant to
// trigger processor-side redelivery.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.String(http.StatusBadRequest, "Webhook Error: failed to read request body")
	}
	sig := c.Request().Header.Get("Stripe-Signature")

	if err := h.webhook.Handle(c.Request().Context(), payload, sig); err != nil {
		var cfgErr *payments.ConfigError
		if errors.As(err, &cfgErr) {
			return c.String(http.StatusInternalServerError, cfgErr.Reason)
		}
		var sigErr *payments.SignatureError
		if errors.As(err, &sigErr) {
			log.Printf("Webhook signature verification failed: %v", sigErr)
			return c.String(http.StatusBadRequest, "Webhook Error: "+sigErr.Error())
		}
		return c.String(http.StatusBadRequest, "Webhook Error: "+err.Error())
	}

	return c.JSON(http.StatusOK, map[string]bool{"received": true})
}

// mapCheckoutError translates core errors into the API's taxonomy: client
// input 400, missing entities 404, operator misconfiguration 500 with the
// operator-facing reason, anything else 500 with a generic message.
func mapCheckoutError(err error, fallback string) error {
	switch {
	case errors.Is(err, payments.ErrMissingModuleID),
		errors.Is(err, payments.ErrInvalidPrice),
		errors.Is(err, payments.ErrInvalidPlanType):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, payments.ErrModuleNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "Module not found")
	case errors.Is(err, payments.ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "User not found")
	}

	var cfgErr *payments.ConfigError
	if errors.As(err, &cfgErr) {
		return echo.NewHTTPError(http.StatusInternalServerError, cfgErr.Error())
	}

	log.Printf("%s: %v", fallback, err)
	return echo.NewHTTPError(http.StatusInternalServerError, fallback)
}
