package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"edportal/internal/models"
)

// SignatureError marks a webhook payload that verified against none of the
// configured signing secrets. It is the only error class that should make
// the processor redeliver: nothing was written and nothing was understood.
type SignatureError struct {
	Err error
}

func (e *SignatureError) Error() string {
	if e.Err == nil {
		return "webhook signature verification failed"
	}
	return e.Err.Error()
}

func (e *SignatureError) Unwrap() error { return e.Err }

// WebhookProcessor applies verified processor events to the payment ledger.
// It keeps no cross-call state; idempotency comes from merge-writes keyed
// by checkout session id, so redelivery and out-of-order delivery of the
// two settlement events converge to the same document.
type WebhookProcessor struct {
	secrets []string
	ledger  LedgerStore
}

func NewWebhookProcessor(keys Keys, ledger LedgerStore) *WebhookProcessor {
	return &WebhookProcessor{
		secrets: keys.WebhookSecretCandidates(),
		ledger:  ledger,
	}
}

// Handle verifies and applies one webhook delivery.
//
// Error contract: a *ConfigError means no secret is configured at all
// (500), a *SignatureError means verification failed (400, redelivered).
// A nil return means the event was received; ledger write failures after
// successful verification are logged and swallowed on purpose, because a
// transient storage failure must not trigger an endless redelivery storm
// for an event whose meaning was already understood.
func (p *WebhookProcessor) Handle(ctx context.Context, payload []byte, sigHeader string) error {
	if len(p.secrets) == 0 {
		return &ConfigError{Reason: "missing STRIPE_WEBHOOK_SECRET_TEST/STRIPE_WEBHOOK_SECRET_LIVE (or STRIPE_WEBHOOK_SECRET)"}
	}

	var event stripe.Event
	var lastErr error
	verified := false
	for _, secret := range p.secrets {
		e, err := webhook.ConstructEventWithOptions(payload, sigHeader, secret, webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
		if err == nil {
			event = e
			verified = true
			break
		}
		lastErr = err
	}
	if !verified {
		if lastErr == nil {
			lastErr = fmt.Errorf("webhook signature verification failed")
		}
		return &SignatureError{Err: lastErr}
	}

	log.Printf("Stripe event type: %s", event.Type)

	// Only the two settlement events mutate the ledger. Everything else is
	// acknowledged and ignored so the processor stops redelivering it.
	switch event.Type {
	case "checkout.session.completed":
		p.applySessionCompleted(ctx, &event)
	case "payment_intent.succeeded":
		p.applyIntentSucceeded(ctx, &event)
	}
	return nil
}

func (p *WebhookProcessor) applySessionCompleted(ctx context.Context, event *stripe.Event) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		log.Printf("Failed to parse checkout.session.completed payload: %v", err)
		return
	}

	sessionID := strings.TrimSpace(session.ID)
	if sessionID == "" {
		log.Printf("checkout.session.completed without a session id; skipping ledger write")
		return
	}

	// The verified event's own livemode flag decides the collection. Local
	// key configuration is never consulted here.
	collection := QualifierForLivemode(event.Livemode) + TablePaymentLogs

	fields := map[string]interface{}{
		"status":            models.LedgerStatusCompleted,
		"checkoutSessionId": sessionID,
		"paymentIntentId":   paymentIntentID(&session),
		"purchaseType":      session.Metadata["purchaseType"],
		"userId":            session.Metadata["userId"],
		"moduleId":          session.Metadata["moduleId"],
		"completedAt":       ServerTimestamp,
		"lastEventType":     "checkout.session.completed",
	}
	// A payload without amount_total decodes to zero; merging that would
	// clobber the creation-time amounts, so only a present total is written.
	if session.AmountTotal != 0 {
		fields["amount"] = FromCents(session.AmountTotal)
		fields["amountCents"] = session.AmountTotal
		fields["currency"] = string(session.Currency)
	}

	if err := p.ledger.UpsertMerge(ctx, collection, sessionID, fields); err != nil {
		log.Printf("Failed to write %s from checkout.session.completed (session %s): %v", collection, sessionID, err)
		return
	}
	log.Printf("Updated payment log doc: collection=%s id=%s livemode=%t", collection, sessionID, event.Livemode)
}

func (p *WebhookProcessor) applyIntentSucceeded(ctx context.Context, event *stripe.Event) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		log.Printf("Failed to parse payment_intent.succeeded payload: %v", err)
		return
	}

	// Without the planted checkoutSessionId this event cannot locate the
	// one-row-per-purchase document; creating a row keyed by intent id
	// would break that identity, so skip the write but still acknowledge.
	sessionID := strings.TrimSpace(intent.Metadata["checkoutSessionId"])
	if sessionID == "" {
		log.Printf("payment_intent.succeeded missing checkoutSessionId; skipping single-row update (intent %s)", intent.ID)
		return
	}

	collection := QualifierForLivemode(event.Livemode) + TablePaymentLogs

	fields := map[string]interface{}{
		"status":            models.LedgerStatusSucceeded,
		"checkoutSessionId": sessionID,
		"paymentIntentId":   intent.ID,
		"purchaseType":      intent.Metadata["purchaseType"],
		"userId":            intent.Metadata["userId"],
		"moduleId":          intent.Metadata["moduleId"],
		"paidAt":            ServerTimestamp,
		"lastEventType":     "payment_intent.succeeded",
	}
	if intent.Amount != 0 {
		fields["amount"] = FromCents(intent.Amount)
		fields["amountCents"] = intent.Amount
		fields["currency"] = string(intent.Currency)
	}

	if err := p.ledger.UpsertMerge(ctx, collection, sessionID, fields); err != nil {
		log.Printf("Failed to write %s from payment_intent.succeeded (session %s): %v", collection, sessionID, err)
		return
	}
	log.Printf("Updated payment log doc: collection=%s id=%s livemode=%t", collection, sessionID, event.Livemode)
}
