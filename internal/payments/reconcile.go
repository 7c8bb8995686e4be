package payments

import (
	"context"
	"log"
	"time"

	stripe "github.com/stripe/stripe-go/v82"

	"edportal/internal/models"
)

// Reconciler sweeps ledger entries stuck in "created" and settles them from
// the processor's own record of the checkout session. Webhook write
// failures are swallowed by design, so without this sweep an entry could
// stay "created" forever even though the customer paid.
type Reconciler struct {
	ledger      LedgerStore
	processor   ProcessorClient
	collections []string
	staleAfter  time.Duration
}

func NewReconciler(ledger LedgerStore, processor ProcessorClient, collections []string, staleAfter time.Duration) *Reconciler {
	return &Reconciler{
		ledger:      ledger,
		processor:   processor,
		collections: collections,
		staleAfter:  staleAfter,
	}
}

// Sweep visits every stale "created" entry once and returns how many rows
// it settled. Entries already completed or succeeded are never touched:
// the status filter alone guarantees that.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	cutoff := time.Now().Add(-r.staleAfter)
	updated := 0
	for _, collection := range r.collections {
		entries, err := r.ledger.ListByStatus(ctx, collection, models.LedgerStatusCreated, cutoff)
		if err != nil {
			return updated, err
		}
		for _, entry := range entries {
			if ctx.Err() != nil {
				return updated, ctx.Err()
			}
			if entry.CheckoutSessionID == "" {
				// Bare payment-intent rows have no session to look up.
				continue
			}
			if r.reconcileEntry(ctx, collection, entry) {
				updated++
			}
		}
	}
	return updated, nil
}

func (r *Reconciler) reconcileEntry(ctx context.Context, collection string, entry models.LedgerEntry) bool {
	session, err := r.processor.GetCheckoutSession(entry.CheckoutSessionID, nil)
	if err != nil {
		log.Printf("Reconcile: failed to fetch session %s: %v", entry.CheckoutSessionID, err)
		return false
	}

	switch {
	case session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid:
		fields := map[string]interface{}{
			"status":          models.LedgerStatusCompleted,
			"paymentIntentId": paymentIntentID(session),
			"amount":          FromCents(session.AmountTotal),
			"amountCents":     session.AmountTotal,
			"currency":        string(session.Currency),
			"completedAt":     ServerTimestamp,
			"lastEventType":   "reconcile.checkout_session",
		}
		if err := r.ledger.UpsertMerge(ctx, collection, entry.CheckoutSessionID, fields); err != nil {
			log.Printf("Reconcile: failed to settle session %s: %v", entry.CheckoutSessionID, err)
			return false
		}
		log.Printf("Reconcile: marked session %s completed in %s", entry.CheckoutSessionID, collection)
		return true

	case session.Status == stripe.CheckoutSessionStatusExpired:
		fields := map[string]interface{}{
			"status":        models.LedgerStatusError,
			"lastEventType": "reconcile.session_expired",
		}
		if err := r.ledger.UpsertMerge(ctx, collection, entry.CheckoutSessionID, fields); err != nil {
			log.Printf("Reconcile: failed to expire session %s: %v", entry.CheckoutSessionID, err)
			return false
		}
		log.Printf("Reconcile: marked session %s expired in %s", entry.CheckoutSessionID, collection)
		return true
	}

	// Still open; the customer may yet pay. Leave it for the next sweep.
	return false
}
