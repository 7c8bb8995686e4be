package payments

import (
	"context"
	"math"
	"time"

	"edportal/internal/models"
)

// ServerTimestamp is a sentinel field value replaced by the store with a
// server-assigned time at write. Each writer only ever sets its own
// timestamp field, so once written a timestamp is never overwritten.
var ServerTimestamp = serverTimestamp{}

type serverTimestamp struct{}

// LedgerStore is the storage contract for payment ledger entries.
//
// UpsertMerge must set only the given fields, leaving existing siblings
// untouched and creating the document when absent. That makes the two
// ledger writers (session creation and webhook settlement) commutative:
// either may arrive first and the document converges to the field union.
// Append creates an audit row under a generated id, for events that are
// not keyed by a checkout session (upgrade confirmations, cancellations,
// processor failures).
type LedgerStore interface {
	UpsertMerge(ctx context.Context, collection, docID string, fields map[string]interface{}) error
	Append(ctx context.Context, collection string, fields map[string]interface{}) (string, error)
	ListByUser(ctx context.Context, collection, userID string, limit int) ([]models.LedgerEntry, error)
	ListByStatus(ctx context.Context, collection, status string, olderThan time.Time) ([]models.LedgerEntry, error)
}

// ToCents converts decimal currency units to integer minor units.
func ToCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromCents converts integer minor units back to decimal currency units.
// Ledger entries store both: cents for machine precision, the decimal for
// human readability, with amountCents == round(amount*100) invariant.
func FromCents(cents int64) float64 {
	return float64(cents) / 100
}
