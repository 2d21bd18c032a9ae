package payment

import (
	"errors"
	"testing"
	"time"

	"github.com/launchkit/launchkit/internal/config"
	"github.com/launchkit/launchkit/internal/model"
)

func fullTestConfig() *config.Config {
	return &config.Config{
		StripeSecretKey:           "sk_test_123",
		StripePublishableKey:      "pk_test_123",
		StripeWebhookSecret:       "whsec_stripe",
		PolarAPIKey:               "polar_key",
		PolarWebhookSecret:        "whsec_polar",
		LemonSqueezyAPIKey:        "lsq_key",
		LemonSqueezyWebhookSecret: "whsec_lsq",
		LemonSqueezyStoreID:       "12345",
		SolidgatePublicKey:        "sg_pub",
		SolidgateSecretKey:        "sg_sec",
		WebhookTimestampWindow:    300 * time.Second,
	}
}

func testDeps() Deps {
	return Deps{Accounts: newFakeAccountStore(), Replay: NewMemoryReplayStore()}
}

func TestNewBuildsEveryKnownProvider(t *testing.T) {
	for _, name := range []string{
		model.ProviderStripe,
		model.ProviderPolar,
		model.ProviderLemonSqueezy,
		model.ProviderSolidgate,
	} {
		t.Run(name, func(t *testing.T) {
			p, err := New(name, fullTestConfig(), testDeps())
			if err != nil {
				t.Fatalf("New(%q): %v", name, err)
			}
			if p.Name() != name {
				t.Errorf("Name() = %q, want %q", p.Name(), name)
			}
		})
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New("braintree", fullTestConfig(), testDeps())

	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("got %v, want ConfigurationError", err)
	}
	if cfgErr.Provider != "braintree" {
		t.Errorf("error names provider %q", cfgErr.Provider)
	}
}

func TestNewRejectsMissingKeys(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		mutate   func(*config.Config)
	}{
		{"stripe without secret key", model.ProviderStripe, func(c *config.Config) { c.StripeSecretKey = "" }},
		{"stripe without webhook secret", model.ProviderStripe, func(c *config.Config) { c.StripeWebhookSecret = "" }},
		{"polar without api key", model.ProviderPolar, func(c *config.Config) { c.PolarAPIKey = "" }},
		{"polar without webhook secret", model.ProviderPolar, func(c *config.Config) { c.PolarWebhookSecret = "" }},
		{"lemonsqueezy without api key", model.ProviderLemonSqueezy, func(c *config.Config) { c.LemonSqueezyAPIKey = "" }},
		{"lemonsqueezy without store id", model.ProviderLemonSqueezy, func(c *config.Config) { c.LemonSqueezyStoreID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fullTestConfig()
			tt.mutate(cfg)

			_, err := New(tt.provider, cfg, testDeps())
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Errorf("got %v, want ConfigurationError", err)
			}
		})
	}
}
