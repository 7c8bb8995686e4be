package payments

import (
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// ProcessorClient is the slice of the payment processor API this subsystem
// uses. Wrapping the SDK keeps credential resolution at construction time
// and lets tests inject a fake processor.
type ProcessorClient interface {
	CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	GetCheckoutSession(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	CreatePaymentIntent(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	GetPaymentIntent(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	UpdatePaymentIntent(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

type stripeProcessor struct {
	api *client.API
}

// NewProcessorClient builds a Stripe-backed processor client for the given
// secret key. The key is fixed for the life of the client; live/test
// routing happens once at startup via Keys.ResolveSecretKey.
func NewProcessorClient(secretKey string) ProcessorClient {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &stripeProcessor{api: api}
}

func (p *stripeProcessor) CreateCheckoutSession(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return p.api.CheckoutSessions.New(params)
}

func (p *stripeProcessor) GetCheckoutSession(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	return p.api.CheckoutSessions.Get(id, params)
}

func (p *stripeProcessor) CreatePaymentIntent(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return p.api.PaymentIntents.New(params)
}

func (p *stripeProcessor) GetPaymentIntent(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return p.api.PaymentIntents.Get(id, params)
}

func (p *stripeProcessor) UpdatePaymentIntent(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	return p.api.PaymentIntents.Update(id, params)
}
