package payments

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	stripe "github.com/stripe/stripe-go/v82"

	"edportal/internal/models"
)

var (
	ErrMissingPaymentIntentID = errors.New("payment intent ID required")
	ErrPaymentNotCompleted    = errors.New("payment not completed")
	ErrPaymentOwnership       = errors.New("payment verification failed")
	ErrNotSubscribed          = errors.New("cannot cancel basic subscription")
	ErrNotCancelled           = errors.New("subscription is not cancelled")
)

// UserStore is the storage contract for subscription state: profile reads
// plus merge-writes onto the same document.
type UserStore interface {
	UserGetter
	UpsertMerge(ctx context.Context, collection, docID string, fields map[string]interface{}) error
}

// SubscriptionStatus is the client-facing view of a profile's plan.
type SubscriptionStatus struct {
	SubscriptionType    string     `json:"subscriptionType"`
	SubscriptionStatus  string     `json:"subscriptionStatus"`
	SubscriptionEndDate *time.Time `json:"subscriptionEndDate"`
	CanUpgrade          bool       `json:"canUpgrade"`
}

// ConfirmResult reports an activated subscription.
type ConfirmResult struct {
	Message            string `json:"message"`
	SubscriptionType   string `json:"subscriptionType"`
	SubscriptionStatus string `json:"subscriptionStatus"`
}

// SubscriptionService applies plan purchases to user profiles. The grant
// path is pull-based: the client presents a payment intent id, and the
// service trusts nothing about it until it has re-fetched the intent from
// the processor and checked both its status and its owner.
type SubscriptionService struct {
	processor ProcessorClient
	ledger    LedgerStore
	users     UserStore
	qualifier string
}

func NewSubscriptionService(processor ProcessorClient, ledger LedgerStore, users UserStore, qualifier string) *SubscriptionService {
	return &SubscriptionService{
		processor: processor,
		ledger:    ledger,
		users:     users,
		qualifier: qualifier,
	}
}

func (s *SubscriptionService) usersCollection() string {
	return s.qualifier + TableUsers
}

func (s *SubscriptionService) logsCollection() string {
	return s.qualifier + TablePaymentLogs
}

// ConfirmPayment verifies a succeeded payment intent belongs to the caller
// and activates the purchased plan on their profile: subscription fields,
// end date by plan duration, and the matching role upgrade.
func (s *SubscriptionService) ConfirmPayment(ctx context.Context, req Requester, paymentIntentID string) (*ConfirmResult, error) {
	if strings.TrimSpace(paymentIntentID) == "" {
		return nil, ErrMissingPaymentIntentID
	}
	if s.processor == nil {
		return nil, &ConfigError{Reason: "payment processor is not configured"}
	}

	intent, err := s.processor.GetPaymentIntent(paymentIntentID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve payment intent %s: %w", paymentIntentID, err)
	}
	if intent.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, fmt.Errorf("%w: status %s", ErrPaymentNotCompleted, intent.Status)
	}
	if intent.Metadata["userId"] != req.UID {
		return nil, ErrPaymentOwnership
	}

	user, err := s.users.GetUser(ctx, s.usersCollection(), req.UID)
	if err != nil {
		return nil, err
	}

	targetPlan := intent.Metadata["planType"]
	endDate := planEndDate(targetPlan, time.Now())

	fields := map[string]interface{}{
		"subscriptionType":      targetPlan,
		"subscriptionStatus":    models.SubscriptionActive,
		"subscriptionStartDate": ServerTimestamp,
		"subscriptionEndDate":   endDate,
		"stripePaymentIntentId": paymentIntentID,
		"lastUpdated":           ServerTimestamp,
		"role":                  roleForPlan(targetPlan, user.Role),
	}
	if err := s.users.UpsertMerge(ctx, s.usersCollection(), req.UID, fields); err != nil {
		return nil, fmt.Errorf("failed to activate subscription for %s: %w", req.UID, err)
	}

	s.appendLog(ctx, map[string]interface{}{
		"userId":          req.UID,
		"action":          "payment_confirmed",
		"fromPlan":        intent.Metadata["upgradeFrom"],
		"toPlan":          targetPlan,
		"status":          models.LedgerStatusCompleted,
		"paymentIntentId": paymentIntentID,
		"amount":          FromCents(intent.Amount),
		"amountCents":     intent.Amount,
		"currency":        string(intent.Currency),
		"userEmail":       user.Email,
		"createdAt":       ServerTimestamp,
	})

	return &ConfirmResult{
		Message:            "Payment confirmed and subscription activated",
		SubscriptionType:   targetPlan,
		SubscriptionStatus: models.SubscriptionActive,
	}, nil
}

// Status returns the caller's current plan, defaulting to an active basic
// subscription for profiles that never purchased anything.
func (s *SubscriptionService) Status(ctx context.Context, uid string) (*SubscriptionStatus, error) {
	user, err := s.users.GetUser(ctx, s.usersCollection(), uid)
	if err != nil {
		return nil, err
	}

	planType := user.SubscriptionType
	if planType == "" {
		planType = models.PlanBasic
	}
	state := user.SubscriptionStatus
	if state == "" {
		state = models.SubscriptionActive
	}

	return &SubscriptionStatus{
		SubscriptionType:    planType,
		SubscriptionStatus:  state,
		SubscriptionEndDate: user.SubscriptionEndDate,
		CanUpgrade:          planType == models.PlanBasic,
	}, nil
}

// Cancel downgrades the caller to basic immediately and resets their role
// to the default teacher tier.
func (s *SubscriptionService) Cancel(ctx context.Context, req Requester, reason, feedback string) error {
	user, err := s.users.GetUser(ctx, s.usersCollection(), req.UID)
	if err != nil {
		return err
	}

	currentPlan := user.SubscriptionType
	if currentPlan == "" || currentPlan == models.PlanBasic {
		return ErrNotSubscribed
	}

	fields := map[string]interface{}{
		"subscriptionType":     models.PlanBasic,
		"subscriptionStatus":   models.SubscriptionCancelled,
		"subscriptionEndDate":  ServerTimestamp,
		"cancelledAt":          ServerTimestamp,
		"cancellationReason":   reason,
		"cancellationFeedback": feedback,
		"lastUpdated":          ServerTimestamp,
		"role":                 models.RoleTeacherDefault,
	}
	if err := s.users.UpsertMerge(ctx, s.usersCollection(), req.UID, fields); err != nil {
		return fmt.Errorf("failed to cancel subscription for %s: %w", req.UID, err)
	}

	s.appendLog(ctx, map[string]interface{}{
		"userId":    req.UID,
		"action":    "subscription_cancelled",
		"fromPlan":  currentPlan,
		"toPlan":    models.PlanBasic,
		"status":    models.SubscriptionCancelled,
		"reason":    reason,
		"feedback":  feedback,
		"userEmail": user.Email,
		"createdAt": ServerTimestamp,
	})
	return nil
}

// Reactivate flips a cancelled subscription back to active. It restores
// state only; a lapsed plan still needs a new purchase to extend its end
// date.
func (s *SubscriptionService) Reactivate(ctx context.Context, req Requester) error {
	user, err := s.users.GetUser(ctx, s.usersCollection(), req.UID)
	if err != nil {
		return err
	}
	if user.SubscriptionStatus != models.SubscriptionCancelled {
		return ErrNotCancelled
	}

	fields := map[string]interface{}{
		"subscriptionStatus": models.SubscriptionActive,
		"reactivatedAt":      ServerTimestamp,
		"lastUpdated":        ServerTimestamp,
	}
	if err := s.users.UpsertMerge(ctx, s.usersCollection(), req.UID, fields); err != nil {
		return fmt.Errorf("failed to reactivate subscription for %s: %w", req.UID, err)
	}

	s.appendLog(ctx, map[string]interface{}{
		"userId":    req.UID,
		"action":    "subscription_reactivated",
		"status":    "reactivated",
		"userEmail": user.Email,
		"createdAt": ServerTimestamp,
	})
	return nil
}

// appendLog writes a best-effort audit row. The subscription change it
// records has already committed, so a failure here is logged, not surfaced.
func (s *SubscriptionService) appendLog(ctx context.Context, fields map[string]interface{}) {
	if _, err := s.ledger.Append(ctx, s.logsCollection(), fields); err != nil {
		log.Printf("Failed to append %s audit row: %v", fields["action"], err)
	}
}

// planEndDate computes when a purchased plan lapses: one year for the
// yearly plan, one month for everything else.
func planEndDate(planType string, now time.Time) time.Time {
	if planType == models.PurchaseTypePremiumYearly {
		return now.AddDate(1, 0, 0)
	}
	return now.AddDate(0, 1, 0)
}

// roleForPlan maps a purchased plan to the role it grants, keeping the
// current role when the plan grants nothing.
func roleForPlan(planType, currentRole string) string {
	switch planType {
	case models.PurchaseTypePremium, models.PurchaseTypePremiumYearly:
		return models.RoleTeacherPlus
	case "enterprise":
		return models.RoleTeacherEnterprise
	}
	return currentRole
}
