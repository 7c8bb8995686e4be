package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	// The suite may run in a shell that exports these; an empty value
	// makes env fall back to the struct defaults.
	t.Setenv("PORT", "")
	t.Setenv("FIREBASE_CREDENTIALS_PATH", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "3001" {
		t.Errorf("Port = %q; want 3001", cfg.Port)
	}
	if cfg.FirebaseCredentials != "./firebase-service-account.json" {
		t.Errorf("FirebaseCredentials = %q; want the bundled default", cfg.FirebaseCredentials)
	}
}

func TestLoadStripeEnvironment(t *testing.T) {
	t.Setenv("STRIPE_SECRET_KEY_TEST", "sk_test_a")
	t.Setenv("STRIPE_WEBHOOK_SECRET_TEST", "whsec_t")
	t.Setenv("STRIPE_PUBLISHABLE_KEY_LIVE", "pk_live_a")
	t.Setenv("STRIPE_LIVEMODE", "true")
	t.Setenv("DATABASE_SCHEMA_QUALIFIER", "prod.")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	keys := cfg.StripeKeys()
	if !keys.ForceLive {
		t.Error("STRIPE_LIVEMODE=true must force live mode")
	}
	if keys.SecretKeyTest != "sk_test_a" || keys.WebhookSecretTest != "whsec_t" || keys.PublishableKeyLive != "pk_live_a" {
		t.Errorf("unexpected keys %+v", keys)
	}
	if cfg.SchemaQualifier != "prod." {
		t.Errorf("SchemaQualifier = %q; want prod.", cfg.SchemaQualifier)
	}
}
