package models

import "time"

// Ledger statuses. Not strictly ordered: checkout.session.completed and
// payment_intent.succeeded may arrive in either order, and each overwrites
// status with its own value while merging everything else.
const (
	LedgerStatusCreated   = "created"
	LedgerStatusCompleted = "completed"
	LedgerStatusSucceeded = "succeeded"
	LedgerStatusError     = "error"
)

const (
	PurchaseTypeModule        = "module"
	PurchaseTypePremium       = "premium"
	PurchaseTypePremiumYearly = "premiumYearly"
)

// LedgerEntry is one document per purchase attempt, keyed by the checkout
// session id. Both the session creator and the webhook receiver merge-write
// into the same document, so either writer may arrive first.
type LedgerEntry struct {
	ID                string  `firestore:"-" json:"id"`
	Action            string  `firestore:"action" json:"action,omitempty"`
	Status            string  `firestore:"status" json:"status"`
	CheckoutSessionID string  `firestore:"checkoutSessionId" json:"checkoutSessionId,omitempty"`
	PaymentIntentID   string  `firestore:"paymentIntentId" json:"paymentIntentId,omitempty"`
	PurchaseType      string  `firestore:"purchaseType" json:"purchaseType,omitempty"`
	UserID            string  `firestore:"userId" json:"userId,omitempty"`
	UserLabel         string  `firestore:"userLabel" json:"userLabel,omitempty"`
	UserEmail         string  `firestore:"userEmail" json:"userEmail,omitempty"`
	ModuleID          string  `firestore:"moduleId" json:"moduleId,omitempty"`
	ModuleTitle       string  `firestore:"moduleTitle" json:"moduleTitle,omitempty"`
	Amount            float64 `firestore:"amount" json:"amount"`
	AmountCents       int64   `firestore:"amountCents" json:"amountCents"`
	Currency          string  `firestore:"currency" json:"currency,omitempty"`
	Project           string  `firestore:"project" json:"project,omitempty"`
	LastEventType     string  `firestore:"lastEventType" json:"lastEventType,omitempty"`

	// Server-assigned, write-once per field: each writer only sets its own
	// timestamp, and merges never clear previously written siblings.
	CreatedAt   *time.Time `firestore:"createdAt" json:"createdAt,omitempty"`
	CompletedAt *time.Time `firestore:"completedAt" json:"completedAt,omitempty"`
	PaidAt      *time.Time `firestore:"paidAt" json:"paidAt,omitempty"`
}
