package payment

import (
	"log/slog"

	"github.com/launchkit/launchkit/internal/config"
	"github.com/launchkit/launchkit/internal/model"
)

// Deps are the collaborators every adapter shares.
type Deps struct {
	Accounts AccountStore
	Replay   ReplayStore
}

// New constructs the adapter for a provider name. The set is closed:
// anything outside the four known providers is a ConfigurationError here,
// never a failure mid-flow.
func New(provider string, cfg *config.Config, deps Deps) (Provider, error) {
	slog.Info("initializing payment provider", "provider", provider)

	switch provider {
	case model.ProviderStripe:
		if cfg.StripeSecretKey == "" {
			return nil, &ConfigurationError{Provider: provider, Reason: "STRIPE_SECRET_KEY is required"}
		}
		if cfg.StripeWebhookSecret == "" {
			return nil, &ConfigurationError{Provider: provider, Reason: "STRIPE_WEBHOOK_SECRET is required"}
		}
		return NewStripeProvider(cfg, deps.Accounts, deps.Replay), nil

	case model.ProviderPolar:
		if cfg.PolarAPIKey == "" {
			return nil, &ConfigurationError{Provider: provider, Reason: "POLAR_API_KEY is required"}
		}
		if cfg.PolarWebhookSecret == "" {
			return nil, &ConfigurationError{Provider: provider, Reason: "POLAR_WEBHOOK_SECRET is required"}
		}
		return NewPolarProvider(cfg, deps.Accounts, deps.Replay)

	case model.ProviderLemonSqueezy:
		if cfg.LemonSqueezyAPIKey == "" {
			return nil, &ConfigurationError{Provider: provider, Reason: "LEMONSQUEEZY_API_KEY is required"}
		}
		if cfg.LemonSqueezyWebhookSecret == "" {
			return nil, &ConfigurationError{Provider: provider, Reason: "LEMONSQUEEZY_WEBHOOK_SECRET is required"}
		}
		if cfg.LemonSqueezyStoreID == "" {
			return nil, &ConfigurationError{Provider: provider, Reason: "LEMONSQUEEZY_STORE_ID is required"}
		}
		return NewLemonSqueezyProvider(cfg, deps.Accounts, deps.Replay)

	case model.ProviderSolidgate:
		return NewSolidgateProvider(cfg), nil

	default:
		return nil, &ConfigurationError{
			Provider: provider,
			Reason:   "unknown provider (supported: stripe, polar, lemonsqueezy, solidgate)",
		}
	}
}
