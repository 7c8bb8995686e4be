package config

import (
	"fmt"

	"github.com/caarlos0/env/v10"

	"edportal/internal/payments"
)

// Stripe holds the raw credential environment for the payment processor.
// Mode-specific values take precedence over the generic ones; resolution
// rules live in the payments package.
type Stripe struct {
	SecretKey     string `env:"SECRET_KEY"`
	SecretKeyTest string `env:"SECRET_KEY_TEST"`
	SecretKeyLive string `env:"SECRET_KEY_LIVE"`

	WebhookSecret     string `env:"WEBHOOK_SECRET"`
	WebhookSecretTest string `env:"WEBHOOK_SECRET_TEST"`
	WebhookSecretLive string `env:"WEBHOOK_SECRET_LIVE"`

	PublishableKey     string `env:"PUBLISHABLE_KEY"`
	PublishableKeyTest string `env:"PUBLISHABLE_KEY_TEST"`
	PublishableKeyLive string `env:"PUBLISHABLE_KEY_LIVE"`

	// Livemode forces live keys when truthy ("true"/"1"/"yes").
	// Anything else, including unset, means test.
	Livemode string `env:"LIVEMODE"`
}

type Config struct {
	Port        string `env:"PORT" envDefault:"3001"`
	Domain      string `env:"DOMAIN"`
	AppBasename string `env:"APP_BASENAME"`
	AllowOrigin string `env:"SERVER_ALLOW_ORIGIN"`

	// SchemaQualifier, when set, overrides live/test detection for the
	// collection name prefix ("prod." routes to production collections).
	SchemaQualifier string `env:"DATABASE_SCHEMA_QUALIFIER"`

	Project             string `env:"GCLOUD_PROJECT"`
	FirebaseCredentials string `env:"FIREBASE_CREDENTIALS_PATH" envDefault:"./firebase-service-account.json"`

	RedisURL string `env:"REDIS_URL"`

	Stripe Stripe `envPrefix:"STRIPE_"`
}

// Load parses the process environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// StripeKeys converts the raw environment into the payments credential set,
// deriving the forced-live flag once so callers never re-parse it.
func (c *Config) StripeKeys() payments.Keys {
	return payments.Keys{
		SecretKey:          c.Stripe.SecretKey,
		SecretKeyTest:      c.Stripe.SecretKeyTest,
		SecretKeyLive:      c.Stripe.SecretKeyLive,
		WebhookSecret:      c.Stripe.WebhookSecret,
		WebhookSecretTest:  c.Stripe.WebhookSecretTest,
		WebhookSecretLive:  c.Stripe.WebhookSecretLive,
		PublishableKey:     c.Stripe.PublishableKey,
		PublishableKeyTest: c.Stripe.PublishableKeyTest,
		PublishableKeyLive: c.Stripe.PublishableKeyLive,
		ForceLive:          payments.ParseForceLive(c.Stripe.Livemode),
	}
}
