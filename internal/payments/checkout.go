package payments

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"regexp"
	"strings"

	stripe "github.com/stripe/stripe-go/v82"

	"edportal/internal/models"
)

var (
	ErrMissingModuleID = errors.New("moduleId is required")
	ErrModuleNotFound  = errors.New("module not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidPrice    = errors.New("this module does not have a valid paid price")
	ErrInvalidPlanType = errors.New("invalid plan type")
)

// Subscription plan amounts in cents.
const (
	premiumMonthlyCents int64 = 999
	premiumYearlyCents  int64 = 10000
)

var httpSchemeRe = regexp.MustCompile(`(?i)^https?://`)

// ModuleGetter loads a module document from a qualified collection.
// Implementations return ErrModuleNotFound when the document is absent.
type ModuleGetter interface {
	GetModule(ctx context.Context, collection, id string) (*models.Module, error)
}

// UserGetter loads a user profile from a qualified collection.
// Implementations return ErrUserNotFound when the document is absent.
type UserGetter interface {
	GetUser(ctx context.Context, collection, uid string) (*models.User, error)
}

// Requester identifies the authenticated caller of a checkout operation.
type Requester struct {
	UID   string
	Name  string
	Email string
}

// Label is the human-readable tag stored on ledger rows: the caller's name
// when known, else their email.
func (r Requester) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Email
}

// ModuleCheckoutResult is the client-facing payload of a module checkout
// session creation.
type ModuleCheckoutResult struct {
	ClientSecret          string `json:"clientSecret"`
	SessionID             string `json:"sessionId"`
	Livemode              bool   `json:"livemode"`
	StripePublishableKey  string `json:"stripePublishableKey"`
	PaymentLogID          string `json:"paymentLogId"`
	PaymentLogsCollection string `json:"paymentLogsCollection"`
	Project               string `json:"project,omitempty"`
}

// EmbeddedCheckoutResult is returned by the plan-type embedded checkout.
type EmbeddedCheckoutResult struct {
	ClientSecret string `json:"clientSecret"`
	SessionID    string `json:"sessionId"`
}

// PaymentIntentResult is returned by the bare payment-intent flow.
type PaymentIntentResult struct {
	ClientSecret    string `json:"clientSecret"`
	PaymentIntentID string `json:"paymentIntentId"`
}

// AttachResult records the outcome of the best-effort metadata
// back-attachment. The caller always proceeds regardless; the tag only
// exists so the swallow is visible instead of buried in a discarded error.
type AttachResult struct {
	Attached bool
	Reason   string
}

// CheckoutService creates remote checkout sessions and writes the matching
// "created" ledger rows. All dependencies are injected at startup; the
// service holds no mutable state and is safe for concurrent use.
type CheckoutService struct {
	keys      Keys
	qualifier string
	processor ProcessorClient
	ledger    LedgerStore
	modules   ModuleGetter
	users     UserGetter
	domain    string
	basename  string
	project   string
}

func NewCheckoutService(keys Keys, qualifier string, processor ProcessorClient, ledger LedgerStore, modules ModuleGetter, users UserGetter, domain, basename, project string) *CheckoutService {
	return &CheckoutService{
		keys:      keys,
		qualifier: qualifier,
		processor: processor,
		ledger:    ledger,
		modules:   modules,
		users:     users,
		domain:    domain,
		basename:  basename,
		project:   project,
	}
}

// normalizeBasename guarantees a leading slash and strips trailing slashes,
// falling back when the configured value is blank.
func normalizeBasename(value, fallback string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		raw = fallback
	}
	if !strings.HasPrefix(raw, "/") {
		raw = "/" + raw
	}
	return strings.TrimRight(raw, "/")
}

// joinDomainAndBasename appends the SPA mounting path to the public domain,
// tolerating a domain that already carries it.
func joinDomainAndBasename(domain, basename string) string {
	d := strings.TrimRight(strings.TrimSpace(domain), "/")
	if d == "" {
		return ""
	}
	if strings.HasSuffix(d, basename) {
		return d
	}
	return d + basename
}

// appBaseURL resolves the absolute URL the return link mounts on. The
// domain must carry an http(s) scheme; anything else is an operator error.
func (s *CheckoutService) appBaseURL() (string, error) {
	domain := strings.TrimSpace(s.domain)
	if !httpSchemeRe.MatchString(domain) {
		return "", &ConfigError{Reason: "DOMAIN must start with http:// or https://"}
	}
	basename := normalizeBasename(s.basename, "/portal")
	return joinDomainAndBasename(domain, basename), nil
}

// CreateModuleCheckoutSession creates an embedded checkout session for a
// priced module and persists the "created" ledger row keyed by session id.
func (s *CheckoutService) CreateModuleCheckoutSession(ctx context.Context, req Requester, moduleID string) (*ModuleCheckoutResult, error) {
	if strings.TrimSpace(moduleID) == "" {
		return nil, ErrMissingModuleID
	}

	appBaseURL, err := s.appBaseURL()
	if err != nil {
		return nil, err
	}

	module, err := s.modules.GetModule(ctx, s.qualifier+TableModule, moduleID)
	if err != nil {
		return nil, err
	}
	if module.Price <= 0 || math.IsNaN(module.Price) || math.IsInf(module.Price, 0) {
		return nil, ErrInvalidPrice
	}

	unitAmount := ToCents(module.Price)
	title := module.Title
	if title == "" {
		title = "Module Purchase"
	}

	params := &stripe.CheckoutSessionParams{
		UIMode: stripe.String(string(stripe.CheckoutSessionUIModeEmbedded)),
		Mode:   stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyUSD)),
					UnitAmount: stripe.Int64(unitAmount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(title),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{
				"purchaseType": models.PurchaseTypeModule,
				"moduleId":     moduleID,
				"userId":       req.UID,
			},
		},
		// Land the user back on a real SPA route, not a blank page. The
		// processor substitutes the session id into the template parameter.
		ReturnURL: stripe.String(fmt.Sprintf("%s/module/%s?checkout=success&session_id={CHECKOUT_SESSION_ID}", appBaseURL, moduleID)),
	}
	params.AddMetadata("purchaseType", models.PurchaseTypeModule)
	params.AddMetadata("moduleId", moduleID)
	params.AddMetadata("userId", req.UID)

	session, err := s.processor.CreateCheckoutSession(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	if attach := s.attachSessionToIntent(session, moduleID, req.UID); !attach.Attached {
		log.Printf("Failed to attach checkoutSessionId to payment intent metadata: %s", attach.Reason)
	}

	publishableKey := s.keys.ResolvePublishableKey(session.Livemode)
	if err := ValidatePublishableKey(publishableKey, session.Livemode); err != nil {
		return nil, err
	}

	logsCollection := s.qualifier + TablePaymentLogs
	fields := map[string]interface{}{
		"action":            "module_checkout_session_created",
		"status":            models.LedgerStatusCreated,
		"checkoutSessionId": session.ID,
		"paymentIntentId":   paymentIntentID(session),
		"userId":            req.UID,
		"userLabel":         req.Label(),
		"userEmail":         req.Email,
		"moduleId":          moduleID,
		"moduleTitle":       title,
		// Both human-friendly dollars and processor cents, kept in lockstep.
		"amount":        FromCents(unitAmount),
		"amountCents":   unitAmount,
		"currency":      "usd",
		"project":       s.project,
		"createdAt":     ServerTimestamp,
		"lastEventType": "module_checkout_session_created",
	}
	if err := s.ledger.UpsertMerge(ctx, logsCollection, session.ID, fields); err != nil {
		return nil, fmt.Errorf("failed to write payment log for session %s: %w", session.ID, err)
	}

	return &ModuleCheckoutResult{
		ClientSecret:          session.ClientSecret,
		SessionID:             session.ID,
		Livemode:              session.Livemode,
		StripePublishableKey:  publishableKey,
		PaymentLogID:          session.ID,
		PaymentLogsCollection: logsCollection,
		Project:               s.project,
	}, nil
}

// attachSessionToIntent plants the checkout session id on the payment
// intent's metadata so a payment_intent.succeeded delivered before (or
// instead of) checkout.session.completed can still be correlated back to
// the one ledger row. Best-effort: a failure is reported, never fatal.
func (s *CheckoutService) attachSessionToIntent(session *stripe.CheckoutSession, moduleID, userID string) AttachResult {
	piID := paymentIntentID(session)
	if piID == "" {
		return AttachResult{Attached: false, Reason: "session has no payment intent"}
	}
	params := &stripe.PaymentIntentParams{}
	params.AddMetadata("purchaseType", models.PurchaseTypeModule)
	params.AddMetadata("moduleId", moduleID)
	params.AddMetadata("userId", userID)
	params.AddMetadata("checkoutSessionId", session.ID)
	if _, err := s.processor.UpdatePaymentIntent(piID, params); err != nil {
		return AttachResult{Attached: false, Reason: err.Error()}
	}
	return AttachResult{Attached: true}
}

// CreateEmbeddedCheckoutSession creates an embedded checkout for a fixed
// subscription plan and records the "created" ledger row.
func (s *CheckoutService) CreateEmbeddedCheckoutSession(ctx context.Context, req Requester, planType string) (*EmbeddedCheckoutResult, error) {
	amount, err := planAmountCents(planType)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUser(ctx, s.qualifier+TableUsers, req.UID)
	if err != nil {
		return nil, err
	}

	name := "Premium (Monthly)"
	if planType == models.PurchaseTypePremiumYearly {
		name = "Premium (Yearly)"
	}

	params := &stripe.CheckoutSessionParams{
		UIMode: stripe.String(string(stripe.CheckoutSessionUIModeEmbedded)),
		Mode:   stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyUSD)),
					UnitAmount: stripe.Int64(amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(name),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: map[string]string{
				"purchaseType": planType,
				"userId":       req.UID,
			},
		},
		CustomerEmail: stripe.String(user.Email),
		ReturnURL:     stripe.String(fmt.Sprintf("%s/return?session_id={CHECKOUT_SESSION_ID}", strings.TrimRight(s.domain, "/"))),
	}
	params.AddMetadata("userId", req.UID)
	params.AddMetadata("planType", planType)
	params.AddMetadata("userEmail", user.Email)

	session, err := s.processor.CreateCheckoutSession(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout session: %w", err)
	}

	fields := map[string]interface{}{
		"action":            "embedded_checkout_session_created",
		"status":            models.LedgerStatusCreated,
		"checkoutSessionId": session.ID,
		"paymentIntentId":   paymentIntentID(session),
		"userId":            req.UID,
		"userEmail":         user.Email,
		"purchaseType":      planType,
		"amount":            FromCents(amount),
		"amountCents":       amount,
		"currency":          "usd",
		"createdAt":         ServerTimestamp,
		"lastEventType":     "embedded_checkout_session_created",
	}
	if err := s.ledger.UpsertMerge(ctx, s.qualifier+TablePaymentLogs, session.ID, fields); err != nil {
		log.Printf("Failed to write payment log for embedded session %s: %v", session.ID, err)
	}

	return &EmbeddedCheckoutResult{
		ClientSecret: session.ClientSecret,
		SessionID:    session.ID,
	}, nil
}

// CreatePaymentIntent starts the bare payment-intent upgrade flow for a
// fixed subscription plan.
func (s *CheckoutService) CreatePaymentIntent(ctx context.Context, req Requester, planType string) (*PaymentIntentResult, error) {
	amount, err := planAmountCents(planType)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUser(ctx, s.qualifier+TableUsers, req.UID)
	if err != nil {
		return nil, err
	}

	upgradeFrom := user.SubscriptionType
	if upgradeFrom == "" {
		upgradeFrom = "basic"
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(string(stripe.CurrencyUSD)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("userId", req.UID)
	params.AddMetadata("planType", planType)
	params.AddMetadata("userEmail", user.Email)
	params.AddMetadata("upgradeFrom", upgradeFrom)

	intent, err := s.processor.CreatePaymentIntent(params)
	if err != nil {
		if _, logErr := s.ledger.Append(ctx, s.qualifier+TablePaymentLogs, map[string]interface{}{
			"userId":    req.UID,
			"action":    "payment_intent_error",
			"status":    models.LedgerStatusError,
			"error":     err.Error(),
			"createdAt": ServerTimestamp,
		}); logErr != nil {
			log.Printf("Failed to append payment_intent_error row: %v", logErr)
		}
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	fields := map[string]interface{}{
		"action":          "payment_intent_created",
		"status":          models.LedgerStatusCreated,
		"paymentIntentId": intent.ID,
		"userId":          req.UID,
		"userEmail":       user.Email,
		"purchaseType":    planType,
		"amount":          FromCents(amount),
		"amountCents":     amount,
		"currency":        "usd",
		"createdAt":       ServerTimestamp,
		"lastEventType":   "payment_intent_created",
	}
	if err := s.ledger.UpsertMerge(ctx, s.qualifier+TablePaymentLogs, intent.ID, fields); err != nil {
		log.Printf("Failed to write payment log for intent %s: %v", intent.ID, err)
	}

	return &PaymentIntentResult{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
	}, nil
}

// History returns the caller's ledger entries, newest first, capped at 20.
func (s *CheckoutService) History(ctx context.Context, userID string) ([]models.LedgerEntry, error) {
	return s.ledger.ListByUser(ctx, s.qualifier+TablePaymentLogs, userID, 20)
}

func planAmountCents(planType string) (int64, error) {
	switch planType {
	case models.PurchaseTypePremium:
		return premiumMonthlyCents, nil
	case models.PurchaseTypePremiumYearly:
		return premiumYearlyCents, nil
	}
	return 0, ErrInvalidPlanType
}

func paymentIntentID(session *stripe.CheckoutSession) string {
	if session == nil || session.PaymentIntent == nil {
		return ""
	}
	return session.PaymentIntent.ID
}
