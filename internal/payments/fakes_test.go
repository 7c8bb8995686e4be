package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go/v82"

	"edportal/internal/models"
)

// fakeLedger is an in-memory LedgerStore with real merge semantics: a
// write only touches the given fields, so tests can assert that the two
// settlement writers converge on a field union.
type fakeLedger struct {
	docs    map[string]map[string]map[string]interface{}
	writes  []ledgerWrite
	failErr error

	history []models.LedgerEntry
	stale   []models.LedgerEntry
}

type ledgerWrite struct {
	collection string
	docID      string
	fields     map[string]interface{}
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{docs: make(map[string]map[string]map[string]interface{})}
}

func (l *fakeLedger) UpsertMerge(ctx context.Context, collection, docID string, fields map[string]interface{}) error {
	if l.failErr != nil {
		return l.failErr
	}
	l.writes = append(l.writes, ledgerWrite{collection: collection, docID: docID, fields: fields})
	if l.docs[collection] == nil {
		l.docs[collection] = make(map[string]map[string]interface{})
	}
	doc := l.docs[collection][docID]
	if doc == nil {
		doc = make(map[string]interface{})
		l.docs[collection][docID] = doc
	}
	for k, v := range fields {
		doc[k] = v
	}
	return nil
}

func (l *fakeLedger) Append(ctx context.Context, collection string, fields map[string]interface{}) (string, error) {
	if l.failErr != nil {
		return "", l.failErr
	}
	docID := fmt.Sprintf("log_%d", len(l.writes))
	if l.docs[collection] == nil {
		l.docs[collection] = make(map[string]map[string]interface{})
	}
	l.docs[collection][docID] = fields
	l.writes = append(l.writes, ledgerWrite{collection: collection, docID: docID, fields: fields})
	return docID, nil
}

func (l *fakeLedger) ListByUser(ctx context.Context, collection, userID string, limit int) ([]models.LedgerEntry, error) {
	if l.failErr != nil {
		return nil, l.failErr
	}
	return l.history, nil
}

func (l *fakeLedger) ListByStatus(ctx context.Context, collection, status string, olderThan time.Time) ([]models.LedgerEntry, error) {
	if l.failErr != nil {
		return nil, l.failErr
	}
	return l.stale, nil
}

func (l *fakeLedger) doc(collection, docID string) map[string]interface{} {
	if l.docs[collection] == nil {
		return nil
	}
	return l.docs[collection][docID]
}

// fakeProcessor is a canned ProcessorClient recording the params it was
// called with.
type fakeProcessor struct {
	session    *stripe.CheckoutSession
	sessionErr error
	intent     *stripe.PaymentIntent
	intentErr  error
	updateErr  error

	createdSessionParams *stripe.CheckoutSessionParams
	createdIntentParams  *stripe.PaymentIntentParams
	updatedIntentID      string
	updatedIntentParams  *stripe.PaymentIntentParams

	fetched  map[string]*stripe.CheckoutSession
	fetchErr error

	intents        map[string]*stripe.PaymentIntent
	intentFetchErr error
}

func (p *fakeProcessor) CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	p.createdSessionParams = params
	if p.sessionErr != nil {
		return nil, p.sessionErr
	}
	return p.session, nil
}

func (p *fakeProcessor) GetCheckoutSession(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}
	if s, ok := p.fetched[id]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("no such session: %s", id)
}

func (p *fakeProcessor) CreatePaymentIntent(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	p.createdIntentParams = params
	if p.intentErr != nil {
		return nil, p.intentErr
	}
	return p.intent, nil
}

func (p *fakeProcessor) GetPaymentIntent(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if p.intentFetchErr != nil {
		return nil, p.intentFetchErr
	}
	if i, ok := p.intents[id]; ok {
		return i, nil
	}
	return nil, fmt.Errorf("no such payment intent: %s", id)
}

func (p *fakeProcessor) UpdatePaymentIntent(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	p.updatedIntentID = id
	p.updatedIntentParams = params
	if p.updateErr != nil {
		return nil, p.updateErr
	}
	return &stripe.PaymentIntent{ID: id}, nil
}

// signPayload produces a Stripe-Signature header for the payload using the
// scheme the processor uses: HMAC-SHA256 over "<timestamp>.<payload>".
func signPayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}
