package payment

import (
	"context"
	"fmt"

	"github.com/launchkit/launchkit/internal/config"
	"github.com/launchkit/launchkit/internal/model"
)

// SolidgateProvider is a stub: the interface is fully present so callers
// go through the common contract, and every operation fails loudly instead
// of fabricating data.
type SolidgateProvider struct {
	cfg *config.Config
}

func NewSolidgateProvider(cfg *config.Config) *SolidgateProvider {
	return &SolidgateProvider{cfg: cfg}
}

func (s *SolidgateProvider) Name() string {
	return model.ProviderSolidgate
}

func (s *SolidgateProvider) HasCustomerID(user *model.User) bool {
	return user != nil && user.Metadata[model.CustomerIDKey(model.ProviderSolidgate)] != ""
}

func (s *SolidgateProvider) notImplemented(op string) error {
	return fmt.Errorf("solidgate %s: %w", op, ErrNotImplemented)
}

func (s *SolidgateProvider) CustomerID(ctx context.Context, user *model.User) (string, error) {
	return "", s.notImplemented("customer resolution")
}

func (s *SolidgateProvider) CreateCustomer(ctx context.Context, user *model.User) (string, error) {
	return "", s.notImplemented("customer creation")
}

func (s *SolidgateProvider) CreateSetupIntent(ctx context.Context, customerID string) (*model.PaymentIntent, error) {
	return nil, s.notImplemented("setup intents")
}

func (s *SolidgateProvider) CreatePaymentIntent(ctx context.Context, params CreatePaymentIntentParams) (*model.PaymentIntent, error) {
	return nil, s.notImplemented("payment intents")
}

func (s *SolidgateProvider) ConfirmPayment(ctx context.Context, paymentIntentID string) (*model.PaymentIntent, error) {
	return nil, s.notImplemented("payment confirmation")
}

func (s *SolidgateProvider) VerifyPayment(ctx context.Context, paymentIntentID string) (*model.PaymentIntent, error) {
	return nil, s.notImplemented("payment verification")
}

func (s *SolidgateProvider) CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*model.SubscriptionInfo, error) {
	return nil, s.notImplemented("subscription creation")
}

func (s *SolidgateProvider) CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) (*model.SubscriptionInfo, error) {
	return nil, s.notImplemented("subscription cancellation")
}

func (s *SolidgateProvider) UpdateSubscription(ctx context.Context, subscriptionID string, params UpdateSubscriptionParams) (*model.SubscriptionInfo, error) {
	return nil, s.notImplemented("subscription updates")
}

func (s *SolidgateProvider) RefundPayment(ctx context.Context, paymentIntentID string, amount int64) error {
	return s.notImplemented("refunds")
}

func (s *SolidgateProvider) CustomerPortalURL(ctx context.Context, customerID string) (string, error) {
	return "", s.notImplemented("customer portal")
}

func (s *SolidgateProvider) HandleWebhook(ctx context.Context, req WebhookRequest) (*model.WebhookResult, error) {
	return nil, s.notImplemented("webhooks")
}

func (s *SolidgateProvider) ClientConfig() model.ClientConfig {
	return model.ClientConfig{
		Provider:       model.ProviderSolidgate,
		PublishableKey: s.cfg.SolidgatePublicKey,
	}
}

func (s *SolidgateProvider) UIComponents() []string {
	return []string{"solidgate-payment-form"}
}
