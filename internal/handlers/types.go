package handlers

// ModuleCheckoutRequest starts a module purchase.
type ModuleCheckoutRequest struct {
	ModuleID string `json:"moduleId"`
}

// PlanRequest selects a fixed subscription plan.
type PlanRequest struct {
	PlanType string `json:"planType"`
}

// ConfirmPaymentRequest applies a completed purchase to the caller's plan.
type ConfirmPaymentRequest struct {
	PaymentIntentID string `json:"paymentIntentId"`
}

// CancelSubscriptionRequest carries the optional cancellation survey.
type CancelSubscriptionRequest struct {
	Reason   string `json:"reason"`
	Feedback string `json:"feedback"`
}

// RegisterRequest creates a portal profile for an authenticated user.
type RegisterRequest struct {
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
}
