package payments

import (
	"context"
	"errors"
	"strings"
	"testing"

	stripe "github.com/stripe/stripe-go/v82"

	"edportal/internal/models"
)

type fakeModules struct {
	modules map[string]*models.Module
}

func (f *fakeModules) GetModule(ctx context.Context, collection, id string) (*models.Module, error) {
	if m, ok := f.modules[id]; ok {
		return m, nil
	}
	return nil, ErrModuleNotFound
}

type fakeUsers struct {
	users map[string]*models.User
}

func (f *fakeUsers) GetUser(ctx context.Context, collection, uid string) (*models.User, error) {
	if u, ok := f.users[uid]; ok {
		return u, nil
	}
	return nil, ErrUserNotFound
}

func testKeys() Keys {
	return Keys{
		SecretKeyTest:      "sk_test_a",
		PublishableKeyTest: "pk_test_a",
		PublishableKeyLive: "pk_live_a",
		WebhookSecretTest:  "whsec_t",
	}
}

func newTestCheckout(ledger *fakeLedger, processor *fakeProcessor) *CheckoutService {
	modules := &fakeModules{modules: map[string]*models.Module{
		"mod-1": {ID: "mod-1", Title: "Fractions Unit", Price: 12.50},
		"mod-0": {ID: "mod-0", Title: "Free Sampler", Price: 0},
	}}
	users := &fakeUsers{users: map[string]*models.User{
		"uid-1": {Email: "pat@example.com", FullName: "Pat Teacher", Role: models.RoleTeacherDefault},
	}}
	return NewCheckoutService(testKeys(), "", processor, ledger, modules, users, "https://portal.example.com", "/portal", "demo-project")
}

func TestNormalizeBasename(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/portal", "/portal"},
		{"portal", "/portal"},
		{"/portal/", "/portal"},
		{"  ", "/portal"},
		{"", "/portal"},
		{"/nested/app/", "/nested/app"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := normalizeBasename(tt.input, "/portal"); got != tt.expected {
				t.Errorf("normalizeBasename(%q) = %q; want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestJoinDomainAndBasename(t *testing.T) {
	tests := []struct {
		name     string
		domain   string
		basename string
		expected string
	}{
		{"plain join", "https://portal.example.com", "/portal", "https://portal.example.com/portal"},
		{"trailing slash on domain", "https://portal.example.com/", "/portal", "https://portal.example.com/portal"},
		{"domain already carries basename", "https://portal.example.com/portal", "/portal", "https://portal.example.com/portal"},
		{"empty domain", "", "/portal", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := joinDomainAndBasename(tt.domain, tt.basename); got != tt.expected {
				t.Errorf("joinDomainAndBasename(%q, %q) = %q; want %q", tt.domain, tt.basename, got, tt.expected)
			}
		})
	}
}

func TestAppBaseURLRequiresScheme(t *testing.T) {
	s := newTestCheckout(newFakeLedger(), &fakeProcessor{})
	s.domain = "portal.example.com"

	_, err := s.appBaseURL()
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError for schemeless domain, got %v", err)
	}
}

func TestCreateModuleCheckoutSessionValidation(t *testing.T) {
	ledger := newFakeLedger()
	s := newTestCheckout(ledger, &fakeProcessor{})
	req := Requester{UID: "uid-1", Name: "Pat Teacher", Email: "pat@example.com"}

	tests := []struct {
		name     string
		moduleID string
		wantErr  error
	}{
		{"missing module id", "  ", ErrMissingModuleID},
		{"unknown module", "mod-nope", ErrModuleNotFound},
		{"free module", "mod-0", ErrInvalidPrice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.CreateModuleCheckoutSession(context.Background(), req, tt.moduleID)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got error %v; want %v", err, tt.wantErr)
			}
		})
	}

	if len(ledger.writes) != 0 {
		t.Errorf("validation failures must not write the ledger, got %d writes", len(ledger.writes))
	}
}

func TestCreateModuleCheckoutSession(t *testing.T) {
	ledger := newFakeLedger()
	processor := &fakeProcessor{
		session: &stripe.CheckoutSession{
			ID:            "cs_test_123",
			ClientSecret:  "cs_test_123_secret",
			Livemode:      false,
			PaymentIntent: &stripe.PaymentIntent{ID: "pi_123"},
		},
	}
	s := newTestCheckout(ledger, processor)
	req := Requester{UID: "uid-1", Name: "Pat Teacher", Email: "pat@example.com"}

	result, err := s.CreateModuleCheckoutSession(context.Background(), req, "mod-1")
	if err != nil {
		t.Fatalf("CreateModuleCheckoutSession: %v", err)
	}

	if result.SessionID != "cs_test_123" || result.PaymentLogID != "cs_test_123" {
		t.Errorf("result ids = %q/%q; want cs_test_123 for both", result.SessionID, result.PaymentLogID)
	}
	if result.StripePublishableKey != "pk_test_a" {
		t.Errorf("publishable key = %q; want pk_test_a", result.StripePublishableKey)
	}
	if result.PaymentLogsCollection != "payment_logs" {
		t.Errorf("collection = %q; want payment_logs", result.PaymentLogsCollection)
	}

	// $12.50 becomes exactly 1250 cents on the session request.
	li := processor.createdSessionParams.LineItems[0].PriceData
	if *li.UnitAmount != 1250 {
		t.Errorf("unit amount = %d; want 1250", *li.UnitAmount)
	}

	// The return URL lands on the module route inside the SPA basename.
	returnURL := *processor.createdSessionParams.ReturnURL
	want := "https://portal.example.com/portal/module/mod-1?checkout=success&session_id={CHECKOUT_SESSION_ID}"
	if returnURL != want {
		t.Errorf("return URL = %q; want %q", returnURL, want)
	}

	// Session id planted on the intent for later correlation.
	if processor.updatedIntentID != "pi_123" {
		t.Fatalf("payment intent %q updated; want pi_123", processor.updatedIntentID)
	}
	if got := processor.updatedIntentParams.Params.Metadata["checkoutSessionId"]; got != "cs_test_123" {
		t.Errorf("intent metadata checkoutSessionId = %q; want cs_test_123", got)
	}

	doc := ledger.doc("payment_logs", "cs_test_123")
	if doc == nil {
		t.Fatal("expected a ledger row keyed by session id")
	}
	if doc["status"] != models.LedgerStatusCreated {
		t.Errorf("status = %v; want created", doc["status"])
	}
	if doc["amountCents"] != int64(1250) || doc["amount"] != 12.50 {
		t.Errorf("amounts = %v / %v; want 12.5 / 1250", doc["amount"], doc["amountCents"])
	}
	if doc["userLabel"] != "Pat Teacher" {
		t.Errorf("userLabel = %v; want the requester's name", doc["userLabel"])
	}
	if doc["createdAt"] != ServerTimestamp {
		t.Error("createdAt must be the server timestamp sentinel")
	}
}

func TestCreateModuleCheckoutSessionKeyMismatch(t *testing.T) {
	ledger := newFakeLedger()
	processor := &fakeProcessor{
		// Session came back live but only a test publishable key matches.
		session: &stripe.CheckoutSession{ID: "cs_live_1", Livemode: true},
	}
	s := newTestCheckout(ledger, processor)
	s.keys.PublishableKey = "pk_test_explicit"
	s.keys.PublishableKeyLive = ""

	_, err := s.CreateModuleCheckoutSession(context.Background(), Requester{UID: "uid-1"}, "mod-1")
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected *ConfigError on publishable key mismatch, got %v", err)
	}
	if len(ledger.writes) != 0 {
		t.Errorf("mismatch must fail before the ledger write, got %d writes", len(ledger.writes))
	}
}

func TestCreateModuleCheckoutSessionAttachFailureIsNotFatal(t *testing.T) {
	ledger := newFakeLedger()
	processor := &fakeProcessor{
		session: &stripe.CheckoutSession{
			ID:            "cs_test_9",
			Livemode:      false,
			PaymentIntent: &stripe.PaymentIntent{ID: "pi_9"},
		},
		updateErr: errors.New("intent locked"),
	}
	s := newTestCheckout(ledger, processor)

	result, err := s.CreateModuleCheckoutSession(context.Background(), Requester{UID: "uid-1"}, "mod-1")
	if err != nil {
		t.Fatalf("attach failure must not fail checkout: %v", err)
	}
	if result.SessionID != "cs_test_9" {
		t.Errorf("session id = %q; want cs_test_9", result.SessionID)
	}
	if ledger.doc("payment_logs", "cs_test_9") == nil {
		t.Error("ledger row must still be written after an attach failure")
	}
}

func TestPlanAmountCents(t *testing.T) {
	tests := []struct {
		planType string
		expected int64
		wantErr  bool
	}{
		{models.PurchaseTypePremium, 999, false},
		{models.PurchaseTypePremiumYearly, 10000, false},
		{"enterprise", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.planType, func(t *testing.T) {
			got, err := planAmountCents(tt.planType)
			if (err != nil) != tt.wantErr {
				t.Fatalf("planAmountCents(%q) error = %v; wantErr %t", tt.planType, err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("planAmountCents(%q) = %d; want %d", tt.planType, got, tt.expected)
			}
		})
	}
}

func TestCreateEmbeddedCheckoutSession(t *testing.T) {
	ledger := newFakeLedger()
	processor := &fakeProcessor{
		session: &stripe.CheckoutSession{ID: "cs_test_plan", ClientSecret: "secret_plan"},
	}
	s := newTestCheckout(ledger, processor)

	result, err := s.CreateEmbeddedCheckoutSession(context.Background(), Requester{UID: "uid-1"}, models.PurchaseTypePremium)
	if err != nil {
		t.Fatalf("CreateEmbeddedCheckoutSession: %v", err)
	}
	if result.SessionID != "cs_test_plan" || result.ClientSecret != "secret_plan" {
		t.Errorf("unexpected result %+v", result)
	}

	if got := *processor.createdSessionParams.CustomerEmail; got != "pat@example.com" {
		t.Errorf("customer email = %q; want the stored profile email", got)
	}

	doc := ledger.doc("payment_logs", "cs_test_plan")
	if doc == nil {
		t.Fatal("expected a ledger row keyed by session id")
	}
	if doc["amountCents"] != int64(999) {
		t.Errorf("amountCents = %v; want 999", doc["amountCents"])
	}
	if doc["purchaseType"] != models.PurchaseTypePremium {
		t.Errorf("purchaseType = %v; want premium", doc["purchaseType"])
	}
}

func TestCreateEmbeddedCheckoutSessionSurvivesLedgerFailure(t *testing.T) {
	ledger := newFakeLedger()
	ledger.failErr = errors.New("store down")
	processor := &fakeProcessor{
		session: &stripe.CheckoutSession{ID: "cs_test_plan", ClientSecret: "secret_plan"},
	}
	s := newTestCheckout(ledger, processor)

	result, err := s.CreateEmbeddedCheckoutSession(context.Background(), Requester{UID: "uid-1"}, models.PurchaseTypePremiumYearly)
	if err != nil {
		t.Fatalf("ledger failure must not fail the checkout: %v", err)
	}
	if result.ClientSecret != "secret_plan" {
		t.Errorf("client secret = %q; want secret_plan", result.ClientSecret)
	}
}

func TestCreatePaymentIntent(t *testing.T) {
	ledger := newFakeLedger()
	processor := &fakeProcessor{
		intent: &stripe.PaymentIntent{ID: "pi_plan", ClientSecret: "pi_plan_secret"},
	}
	s := newTestCheckout(ledger, processor)

	result, err := s.CreatePaymentIntent(context.Background(), Requester{UID: "uid-1"}, models.PurchaseTypePremiumYearly)
	if err != nil {
		t.Fatalf("CreatePaymentIntent: %v", err)
	}
	if result.PaymentIntentID != "pi_plan" {
		t.Errorf("intent id = %q; want pi_plan", result.PaymentIntentID)
	}

	if got := *processor.createdIntentParams.Amount; got != 10000 {
		t.Errorf("amount = %d; want 10000", got)
	}
	if got := processor.createdIntentParams.Params.Metadata["upgradeFrom"]; got != "basic" {
		t.Errorf("upgradeFrom = %q; want basic for a profile without a subscription", got)
	}

	// The bare-intent flow has no session, so the row is keyed by intent id.
	if ledger.doc("payment_logs", "pi_plan") == nil {
		t.Error("expected a ledger row keyed by payment intent id")
	}
}

func TestCreatePaymentIntentFailureLeavesErrorRow(t *testing.T) {
	ledger := newFakeLedger()
	processor := &fakeProcessor{intentErr: errors.New("card network down")}
	s := newTestCheckout(ledger, processor)

	_, err := s.CreatePaymentIntent(context.Background(), Requester{UID: "uid-1"}, models.PurchaseTypePremium)
	if err == nil {
		t.Fatal("expected the processor error to surface")
	}

	// The failure itself is audited so the ledger shows the attempt.
	var row map[string]interface{}
	for _, w := range ledger.writes {
		if w.collection == "payment_logs" && w.fields["action"] == "payment_intent_error" {
			row = w.fields
		}
	}
	if row == nil {
		t.Fatal("expected a payment_intent_error audit row")
	}
	if row["status"] != models.LedgerStatusError || row["userId"] != "uid-1" {
		t.Errorf("audit row fields %v", row)
	}
	if row["error"] == "" {
		t.Error("audit row must carry the processor error message")
	}
}

func TestCreatePaymentIntentUnknownUser(t *testing.T) {
	s := newTestCheckout(newFakeLedger(), &fakeProcessor{})
	_, err := s.CreatePaymentIntent(context.Background(), Requester{UID: "uid-nope"}, models.PurchaseTypePremium)
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("got %v; want ErrUserNotFound", err)
	}
}

func TestRequesterLabel(t *testing.T) {
	r := Requester{Name: "Pat", Email: "pat@example.com"}
	if r.Label() != "Pat" {
		t.Errorf("Label() = %q; want the name when set", r.Label())
	}
	r.Name = ""
	if r.Label() != "pat@example.com" {
		t.Errorf("Label() = %q; want the email fallback", r.Label())
	}
}

func TestToCents(t *testing.T) {
	tests := []struct {
		amount   float64
		expected int64
	}{
		{12.50, 1250},
		{9.99, 999},
		{0.1, 10},
		{100, 10000},
		// Classic float trap: 19.99*100 is 1998.9999... before rounding.
		{19.99, 1999},
	}

	for _, tt := range tests {
		if got := ToCents(tt.amount); got != tt.expected {
			t.Errorf("ToCents(%v) = %d; want %d", tt.amount, got, tt.expected)
		}
	}
}

func TestFromCentsRoundTrip(t *testing.T) {
	for _, cents := range []int64{0, 1, 999, 1250, 10000} {
		if got := ToCents(FromCents(cents)); got != cents {
			t.Errorf("round trip of %d cents gave %d", cents, got)
		}
	}
}

func TestHistoryUsesQualifiedCollection(t *testing.T) {
	ledger := newFakeLedger()
	ledger.history = []models.LedgerEntry{{ID: "cs_1", Status: models.LedgerStatusCompleted}}
	s := newTestCheckout(ledger, &fakeProcessor{})
	s.qualifier = ProdQualifier

	entries, err := s.History(context.Background(), "uid-1")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 1 || entries[0].ID != "cs_1" {
		t.Errorf("unexpected entries %+v", entries)
	}
}

func TestModuleTitleFallback(t *testing.T) {
	ledger := newFakeLedger()
	processor := &fakeProcessor{session: &stripe.CheckoutSession{ID: "cs_untitled"}}
	s := newTestCheckout(ledger, processor)
	s.modules = &fakeModules{modules: map[string]*models.Module{
		"mod-untitled": {ID: "mod-untitled", Price: 5},
	}}

	if _, err := s.CreateModuleCheckoutSession(context.Background(), Requester{UID: "uid-1"}, "mod-untitled"); err != nil {
		t.Fatalf("CreateModuleCheckoutSession: %v", err)
	}

	name := *processor.createdSessionParams.LineItems[0].PriceData.ProductData.Name
	if !strings.Contains(name, "Purchase") {
		t.Errorf("product name = %q; want the generic fallback", name)
	}
}
