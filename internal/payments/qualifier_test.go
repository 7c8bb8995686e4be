package payments

import "testing"

func TestResolveQualifier(t *testing.T) {
	live := true
	test := false

	tests := []struct {
		name      string
		override  string
		livemode  *bool
		secretKey string
		expected  string
	}{
		{"override wins over everything", "prod.", &test, "sk_test_a", "prod."},
		{"override trimmed", "  prod.  ", nil, "", "prod."},
		{"livemode true routes to prod", "", &live, "sk_test_a", "prod."},
		{"livemode false routes to test", "", &test, "sk_live_a", ""},
		{"live key prefix as last resort", "", nil, "sk_live_a", "prod."},
		{"test key prefix as last resort", "", nil, "sk_test_a", ""},
		{"nothing known means test", "", nil, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveQualifier(tt.override, tt.livemode, tt.secretKey); got != tt.expected {
				t.Errorf("ResolveQualifier(%q, %v, %q) = %q; want %q", tt.override, tt.livemode, tt.secretKey, got, tt.expected)
			}
		})
	}
}

func TestQualifierForLivemode(t *testing.T) {
	if got := QualifierForLivemode(true); got != ProdQualifier {
		t.Errorf("QualifierForLivemode(true) = %q; want %q", got, ProdQualifier)
	}
	if got := QualifierForLivemode(false); got != "" {
		t.Errorf("QualifierForLivemode(false) = %q; want empty", got)
	}
}
