package payments

import "strings"

// ProdQualifier prefixes collection names carrying real-money data so test
// and production traffic stay physically isolated in storage.
const ProdQualifier = "prod."

// Logical collection names used by the payment subsystem. The active
// qualifier is prepended to each at write time.
const (
	TableUsers       = "users"
	TablePaymentLogs = "payment_logs"
	TableModule      = "module"
	TableLesson      = "lesson"
	TableContent     = "content"
)

// ResolveQualifier derives the collection name prefix. Precedence: an
// explicit override, then a livemode signal when one is available, then the
// active secret key's prefix as a last resort.
func ResolveQualifier(override string, livemode *bool, secretKey string) string {
	if q := strings.TrimSpace(override); q != "" {
		return q
	}
	if livemode != nil {
		return QualifierForLivemode(*livemode)
	}
	if strings.HasPrefix(secretKey, liveSecretKeyPrefix) {
		return ProdQualifier
	}
	return ""
}

// QualifierForLivemode maps a verified event's livemode flag to a prefix.
// Inside a webhook the event's own flag is authoritative: deriving the
// prefix from local key configuration could route a live event into test
// collections when the operator misconfigures keys.
func QualifierForLivemode(livemode bool) string {
	if livemode {
		return ProdQualifier
	}
	return ""
}
