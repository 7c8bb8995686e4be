package payments

import (
	"fmt"
	"strings"
)

// Mode distinguishes real-money processing from sandbox processing.
type Mode string

const (
	ModeTest Mode = "test"
	ModeLive Mode = "live"
)

const (
	liveSecretKeyPrefix      = "sk_live_"
	livePublishableKeyPrefix = "pk_live_"
	testPublishableKeyPrefix = "pk_test_"
)

// ParseForceLive reports whether a configuration flag requests live mode.
// Only "true", "1" and "yes" (case-insensitive) count; anything else,
// including unset, means test.
func ParseForceLive(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// Keys is the full processor credential set as configured. Resolution of
// which key to actually use is a pure function of this struct, so tests can
// exercise every fallback permutation without touching the environment.
type Keys struct {
	SecretKey     string
	SecretKeyTest string
	SecretKeyLive string

	WebhookSecret     string
	WebhookSecretTest string
	WebhookSecretLive string

	PublishableKey     string
	PublishableKeyTest string
	PublishableKeyLive string

	ForceLive bool
}

// Mode returns the intended processing mode. Test unless explicitly forced
// to live.
func (k Keys) Mode() Mode {
	if k.ForceLive {
		return ModeLive
	}
	return ModeTest
}

// ResolveSecretKey picks the secret key for the intended mode: the
// mode-specific key, else the generic key. If neither is set it degrades to
// whichever mode-specific key exists (live first, then test) so a partially
// configured deployment still gets some usable key.
func (k Keys) ResolveSecretKey() string {
	var key string
	if k.ForceLive {
		key = firstNonEmpty(k.SecretKeyLive, k.SecretKey)
	} else {
		key = firstNonEmpty(k.SecretKeyTest, k.SecretKey)
	}
	if key == "" {
		key = firstNonEmpty(k.SecretKeyLive, k.SecretKeyTest)
	}
	return strings.TrimSpace(key)
}

// WebhookSecretCandidates gathers every configured webhook signing secret,
// trimmed and de-duplicated, preserving discovery order (test, live,
// generic). Verification tries each in order and succeeds on the first
// match, so a single endpoint can serve both processor environments.
func (k Keys) WebhookSecretCandidates() []string {
	seen := make(map[string]bool)
	var candidates []string
	for _, v := range []string{k.WebhookSecretTest, k.WebhookSecretLive, k.WebhookSecret} {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		candidates = append(candidates, v)
	}
	return candidates
}

// ResolvePublishableKey selects the publishable key for a session. An
// explicit generic key wins unconditionally; otherwise the choice follows
// the session's actual livemode flag, not the locally intended mode.
func (k Keys) ResolvePublishableKey(livemode bool) string {
	if explicit := strings.TrimSpace(k.PublishableKey); explicit != "" {
		return explicit
	}
	if livemode {
		return strings.TrimSpace(k.PublishableKeyLive)
	}
	return strings.TrimSpace(k.PublishableKeyTest)
}

// ValidatePublishableKey rejects a key whose embedded mode prefix disagrees
// with the session's livemode. Returning a mismatched key to the client
// silently breaks payment confirmation, so callers must treat this as a
// server misconfiguration, not a client error.
func ValidatePublishableKey(key string, livemode bool) error {
	if key == "" {
		return &ConfigError{Reason: "missing Stripe publishable key. Set STRIPE_PUBLISHABLE_KEY_TEST/STRIPE_PUBLISHABLE_KEY_LIVE (or STRIPE_PUBLISHABLE_KEY)"}
	}
	if livemode && !strings.HasPrefix(key, livePublishableKeyPrefix) {
		return &ConfigError{Reason: "expected a live publishable key (pk_live_) for a live checkout session"}
	}
	if !livemode && !strings.HasPrefix(key, testPublishableKeyPrefix) {
		return &ConfigError{Reason: "expected a test publishable key (pk_test_) for a test checkout session"}
	}
	return nil
}

// ConfigError marks an operator-level misconfiguration. Handlers surface it
// as a 500-class response, distinct from client input errors.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("server misconfigured: %s", e.Reason)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
