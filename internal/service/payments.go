package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/launchkit/launchkit/internal/model"
	"github.com/launchkit/launchkit/internal/payment"
	"github.com/launchkit/launchkit/internal/repository"
)

// PaymentService is the application-facing payment facade. Vendor calls
// delegate 1:1 to the active adapter; ProcessWebhook additionally applies
// the event's local effects (subscription rows, notification emails).
type PaymentService struct {
	manager       *Manager
	subscriptions *SubscriptionService
	users         repository.UserRepository
	email         *EmailService
}

func NewPaymentService(manager *Manager, subscriptions *SubscriptionService, users repository.UserRepository, email *EmailService) *PaymentService {
	return &PaymentService{
		manager:       manager,
		subscriptions: subscriptions,
		users:         users,
		email:         email,
	}
}

func (s *PaymentService) ActiveProvider() string {
	return s.manager.ActiveName()
}

func (s *PaymentService) SwitchProvider(name string) error {
	return s.manager.SwitchProvider(name)
}

func (s *PaymentService) HasCustomerID(user *model.User) bool {
	return s.manager.Active().HasCustomerID(user)
}

func (s *PaymentService) CustomerID(ctx context.Context, user *model.User) (string, error) {
	return s.manager.Active().CustomerID(ctx, user)
}

func (s *PaymentService) CreateSetupIntent(ctx context.Context, customerID string) (*model.PaymentIntent, error) {
	return s.manager.Active().CreateSetupIntent(ctx, customerID)
}

func (s *PaymentService) CreatePaymentIntent(ctx context.Context, params payment.CreatePaymentIntentParams) (*model.PaymentIntent, error) {
	return s.manager.Active().CreatePaymentIntent(ctx, params)
}

func (s *PaymentService) ConfirmPayment(ctx context.Context, paymentIntentID string) (*model.PaymentIntent, error) {
	return s.manager.Active().ConfirmPayment(ctx, paymentIntentID)
}

func (s *PaymentService) VerifyPayment(ctx context.Context, paymentIntentID string) (*model.PaymentIntent, error) {
	return s.manager.Active().VerifyPayment(ctx, paymentIntentID)
}

func (s *PaymentService) CreateSubscription(ctx context.Context, params payment.CreateSubscriptionParams) (*model.SubscriptionInfo, error) {
	return s.manager.Active().CreateSubscription(ctx, params)
}

func (s *PaymentService) CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) (*model.SubscriptionInfo, error) {
	return s.manager.Active().CancelSubscription(ctx, subscriptionID, atPeriodEnd)
}

func (s *PaymentService) UpdateSubscription(ctx context.Context, subscriptionID string, params payment.UpdateSubscriptionParams) (*model.SubscriptionInfo, error) {
	return s.manager.Active().UpdateSubscription(ctx, subscriptionID, params)
}

func (s *PaymentService) RefundPayment(ctx context.Context, paymentIntentID string, amount int64) error {
	return s.manager.Active().RefundPayment(ctx, paymentIntentID, amount)
}

func (s *PaymentService) CustomerPortalURL(ctx context.Context, customerID string) (string, error) {
	return s.manager.Active().CustomerPortalURL(ctx, customerID)
}

func (s *PaymentService) ClientConfig() model.ClientConfig {
	return s.manager.Active().ClientConfig()
}

func (s *PaymentService) UIComponents() []string {
	return s.manager.Active().UIComponents()
}

// ListCheckouts serves the checkout read model for providers that expose
// one. Others report ErrUnsupportedOperation.
func (s *PaymentService) ListCheckouts(ctx context.Context, params payment.CheckoutListParams) (*model.CheckoutListResult, error) {
	lister, ok := s.manager.Active().(payment.CheckoutLister)
	if !ok {
		return nil, payment.ErrUnsupportedOperation
	}
	return lister.ListCheckouts(ctx, params)
}

// ProcessWebhook verifies and maps one inbound webhook for the named
// provider, then applies local effects. Effect failures are logged, not
// returned: the event was verified and the vendor must not redeliver it.
func (s *PaymentService) ProcessWebhook(ctx context.Context, providerName string, req payment.WebhookRequest) (*model.WebhookResult, error) {
	provider, err := s.manager.Provider(providerName)
	if err != nil {
		return nil, err
	}

	result, err := provider.HandleWebhook(ctx, req)
	if err != nil {
		return nil, err
	}

	s.applyEffects(providerName, result)
	return result, nil
}

func (s *PaymentService) applyEffects(providerName string, result *model.WebhookResult) {
	var sub *model.Subscription

	if result.Subscription != nil && payment.IsSubscriptionEvent(result.Type) {
		applied, err := s.subscriptions.ApplyProviderEvent(providerName, result.Subscription)
		if err != nil {
			// The verified payload goes in the log so the effect can be
			// replayed by hand; the vendor will not redeliver it.
			slog.Warn("webhook subscription effect skipped",
				"provider", providerName, "event", result.Type, "event_id", result.ID,
				"error", err, "payload", string(result.RawData()))
		} else {
			sub = applied
		}
	}

	switch result.Type {
	case model.EventPaymentFailed:
		s.notify(providerName, result, sub, func(user *model.User, _ *model.Subscription) error {
			return s.email.SendPaymentFailed(user.Email, user.Name)
		})
	case model.EventSubscriptionCancelled:
		s.notify(providerName, result, sub, func(user *model.User, sub *model.Subscription) error {
			var periodEnd *time.Time
			if sub != nil {
				periodEnd = sub.CurrentPeriodEnd
			}
			return s.email.SendSubscriptionCanceled(user.Email, user.Name, periodEnd)
		})
	}
}

// notify resolves the affected user and sends one billing email. Without
// a persisted subscription the customer cannot be tied to a user, so the
// notification is skipped quietly.
func (s *PaymentService) notify(providerName string, result *model.WebhookResult, sub *model.Subscription, send func(*model.User, *model.Subscription) error) {
	if sub == nil && result.Subscription != nil {
		found, err := s.subscriptions.ByProviderSubscriptionID(result.Subscription.ID)
		if err == nil {
			sub = found
		}
	}
	if sub == nil {
		slog.Debug("billing notification skipped, no local subscription",
			"provider", providerName, "event", result.Type, "event_id", result.ID)
		return
	}

	user, err := s.users.ByID(sub.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			slog.Warn("billing notification skipped",
				"provider", providerName, "event", result.Type, "error", err)
		}
		return
	}

	if err := send(user, sub); err != nil {
		slog.Warn("billing notification failed",
			"provider", providerName, "event", result.Type, "to", user.Email, "error", err)
	}
}
