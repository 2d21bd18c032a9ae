package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stripe/stripe-go/v81"
	portalsession "github.com/stripe/stripe-go/v81/billingportal/session"
	"github.com/stripe/stripe-go/v81/customer"
	"github.com/stripe/stripe-go/v81/paymentintent"
	"github.com/stripe/stripe-go/v81/refund"
	"github.com/stripe/stripe-go/v81/setupintent"
	sub "github.com/stripe/stripe-go/v81/subscription"
	"github.com/stripe/stripe-go/v81/webhook"

	"github.com/launchkit/launchkit/internal/config"
	"github.com/launchkit/launchkit/internal/model"
)

type StripeProvider struct {
	cfg       *config.Config
	customers *customerResolver
	guard     *webhookGuard
}

func NewStripeProvider(cfg *config.Config, accounts AccountStore, replay ReplayStore) *StripeProvider {
	// Set Stripe API key
	stripe.Key = cfg.StripeSecretKey

	slog.Info("stripe provider initialized", "app_env", cfg.AppEnv)

	return &StripeProvider{
		cfg:       cfg,
		customers: newCustomerResolver(model.ProviderStripe, accounts),
		guard:     newWebhookGuard(model.ProviderStripe, replay, cfg.WebhookTimestampWindow),
	}
}

func (s *StripeProvider) Name() string {
	return model.ProviderStripe
}

func (s *StripeProvider) HasCustomerID(user *model.User) bool {
	return s.customers.hasCustomerID(user)
}

func (s *StripeProvider) CustomerID(ctx context.Context, user *model.User) (string, error) {
	return s.customers.resolve(ctx, user, s.CreateCustomer)
}

func (s *StripeProvider) CreateCustomer(ctx context.Context, user *model.User) (string, error) {
	params := &stripe.CustomerParams{
		Email: stripe.String(user.Email),
		Name:  stripe.String(user.Name),
	}
	params.Context = ctx
	params.AddMetadata("user_id", user.ID)

	cust, err := customer.New(params)
	if err != nil {
		return "", s.wrapErr(err)
	}

	slog.Info("stripe customer created", "user_id", user.ID)
	return cust.ID, nil
}

func (s *StripeProvider) CreateSetupIntent(ctx context.Context, customerID string) (*model.PaymentIntent, error) {
	err := ValidateID(customerID)
	if err != nil {
		return nil, err
	}

	params := &stripe.SetupIntentParams{
		Customer: stripe.String(customerID),
	}
	params.Context = ctx

	intent, err := setupintent.New(params)
	if err != nil {
		return nil, s.wrapErr(err)
	}

	return &model.PaymentIntent{
		ID:           intent.ID,
		Status:       string(intent.Status),
		ClientSecret: intent.ClientSecret,
		CustomerID:   customerID,
	}, nil
}

func (s *StripeProvider) CreatePaymentIntent(ctx context.Context, p CreatePaymentIntentParams) (*model.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(p.Amount),
		Currency: stripe.String(strings.ToLower(p.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if p.CustomerID != "" {
		err := ValidateID(p.CustomerID)
		if err != nil {
			return nil, err
		}
		params.Customer = stripe.String(p.CustomerID)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, s.wrapErr(err)
	}

	slog.Info("stripe payment intent created", "intent_id", intent.ID, "amount", p.Amount, "currency", p.Currency)
	return stripeIntentToModel(intent), nil
}

func (s *StripeProvider) ConfirmPayment(ctx context.Context, paymentIntentID string) (*model.PaymentIntent, error) {
	err := ValidateID(paymentIntentID)
	if err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentConfirmParams{}
	params.Context = ctx

	intent, err := paymentintent.Confirm(paymentIntentID, params)
	if err != nil {
		return nil, s.wrapErr(err)
	}

	return stripeIntentToModel(intent), nil
}

func (s *StripeProvider) VerifyPayment(ctx context.Context, paymentIntentID string) (*model.PaymentIntent, error) {
	err := ValidateID(paymentIntentID)
	if err != nil {
		return nil, err
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := paymentintent.Get(paymentIntentID, params)
	if err != nil {
		return nil, s.wrapErr(err)
	}

	return stripeIntentToModel(intent), nil
}

func (s *StripeProvider) CreateSubscription(ctx context.Context, p CreateSubscriptionParams) (*model.SubscriptionInfo, error) {
	err := ValidateID(p.CustomerID)
	if err != nil {
		return nil, err
	}
	err = ValidateID(p.PriceID)
	if err != nil {
		return nil, err
	}

	params := &stripe.SubscriptionParams{
		Customer: stripe.String(p.CustomerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(p.PriceID)},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
	}
	params.Context = ctx
	params.AddExpand("latest_invoice.payment_intent")
	if p.TrialDays > 0 {
		params.TrialPeriodDays = stripe.Int64(p.TrialDays)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}

	subscription, err := sub.New(params)
	if err != nil {
		return nil, s.wrapErr(err)
	}

	slog.Info("stripe subscription created", "subscription_id", subscription.ID, "customer_id", p.CustomerID)
	return stripeSubscriptionToInfo(subscription), nil
}

func (s *StripeProvider) CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) (*model.SubscriptionInfo, error) {
	err := ValidateID(subscriptionID)
	if err != nil {
		return nil, err
	}

	var subscription *stripe.Subscription
	if atPeriodEnd {
		params := &stripe.SubscriptionParams{
			CancelAtPeriodEnd: stripe.Bool(true),
		}
		params.Context = ctx
		subscription, err = sub.Update(subscriptionID, params)
	} else {
		params := &stripe.SubscriptionCancelParams{}
		params.Context = ctx
		subscription, err = sub.Cancel(subscriptionID, params)
	}
	if err != nil {
		return nil, s.wrapErr(err)
	}

	slog.Info("stripe subscription canceled", "subscription_id", subscriptionID, "at_period_end", atPeriodEnd)
	return stripeSubscriptionToInfo(subscription), nil
}

func (s *StripeProvider) UpdateSubscription(ctx context.Context, subscriptionID string, p UpdateSubscriptionParams) (*model.SubscriptionInfo, error) {
	err := ValidateID(subscriptionID)
	if err != nil {
		return nil, err
	}

	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	if p.CancelAtPeriodEnd != nil {
		params.CancelAtPeriodEnd = stripe.Bool(*p.CancelAtPeriodEnd)
	}
	if p.PriceID != nil {
		err = ValidateID(*p.PriceID)
		if err != nil {
			return nil, err
		}
		params.Items = []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(*p.PriceID)},
		}
	}

	subscription, err := sub.Update(subscriptionID, params)
	if err != nil {
		return nil, s.wrapErr(err)
	}

	return stripeSubscriptionToInfo(subscription), nil
}

func (s *StripeProvider) RefundPayment(ctx context.Context, paymentIntentID string, amount int64) error {
	err := ValidateID(paymentIntentID)
	if err != nil {
		return err
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(paymentIntentID),
	}
	params.Context = ctx
	if amount > 0 {
		params.Amount = stripe.Int64(amount)
	}

	_, err = refund.New(params)
	if err != nil {
		return s.wrapErr(err)
	}

	slog.Info("stripe refund created", "payment_intent_id", paymentIntentID, "amount", amount)
	return nil
}

func (s *StripeProvider) CustomerPortalURL(ctx context.Context, customerID string) (string, error) {
	err := ValidateID(customerID)
	if err != nil {
		return "", err
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(s.cfg.AppURL + "/billing"),
	}
	params.Context = ctx

	session, err := portalsession.New(params)
	if err != nil {
		return "", s.wrapErr(err)
	}

	return session.URL, nil
}

// HandleWebhook verifies the Stripe signature over the raw body, then runs
// the shared timestamp and replay checks. Stripe embeds the timestamp in
// the Stripe-Signature header and has no separate id header, so the event
// id from the signed payload serves as the webhook id.
func (s *StripeProvider) HandleWebhook(ctx context.Context, req WebhookRequest) (*model.WebhookResult, error) {
	// Ignore API version mismatch: Stripe's versions are backwards
	// compatible for the event fields read here.
	event, err := webhook.ConstructEventWithOptions(
		req.RawBody,
		req.Signature,
		s.cfg.StripeWebhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		return nil, &SecurityError{
			Provider: model.ProviderStripe,
			Stage:    "signature",
			Reason:   err.Error(),
		}
	}

	timestamp := req.Timestamp
	if timestamp == "" {
		timestamp = stripeSignatureTimestamp(req.Signature)
	}
	webhookID := req.WebhookID
	if webhookID == "" {
		webhookID = event.ID
	}

	err = s.guard.validate(ctx, timestamp, webhookID)
	if err != nil {
		return nil, err
	}

	eventType := MapEventType(model.ProviderStripe, string(event.Type))
	slog.Info("stripe webhook accepted", "event_type", event.Type, "mapped_type", eventType, "event_id", event.ID)

	result := &model.WebhookResult{
		Received: true,
		Type:     eventType,
		ID:       event.ID,
		Data:     event.Data.Object,
	}
	if IsSubscriptionEvent(eventType) {
		result.Subscription = MapSubscription(model.ProviderStripe, event.Data.Object, event.Data.PreviousAttributes)
	}

	return result, nil
}

func (s *StripeProvider) ClientConfig() model.ClientConfig {
	return model.ClientConfig{
		Provider:       model.ProviderStripe,
		PublishableKey: s.cfg.StripePublishableKey,
	}
}

func (s *StripeProvider) UIComponents() []string {
	return []string{"stripe-payment-element", "stripe-setup-form", "stripe-billing-portal"}
}

// stripeSignatureTimestamp extracts the t= element from a Stripe-Signature
// header ("t=1614556800,v1=...").
func stripeSignatureTimestamp(header string) string {
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if value, ok := strings.CutPrefix(part, "t="); ok {
			return value
		}
	}
	return ""
}

// wrapErr classifies a stripe-go error into the taxonomy.
func (s *StripeProvider) wrapErr(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode >= 500 || stripeErr.HTTPStatusCode == 0 {
			return &TransientError{Provider: model.ProviderStripe, Err: err}
		}
		return &ProviderAPIError{
			Provider:   model.ProviderStripe,
			StatusCode: stripeErr.HTTPStatusCode,
			Code:       string(stripeErr.Code),
			Message:    stripeErr.Msg,
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransientError{Provider: model.ProviderStripe, Timeout: true, Err: err}
	}
	return &TransientError{Provider: model.ProviderStripe, Err: fmt.Errorf("stripe request failed: %w", err)}
}

func stripeIntentToModel(intent *stripe.PaymentIntent) *model.PaymentIntent {
	out := &model.PaymentIntent{
		ID:           intent.ID,
		Amount:       intent.Amount,
		Currency:     string(intent.Currency),
		Status:       string(intent.Status),
		ClientSecret: intent.ClientSecret,
	}
	if intent.Customer != nil {
		out.CustomerID = intent.Customer.ID
	}
	return out
}

// stripeSubscriptionToInfo routes the SDK object through the shared mapper
// so SDK and webhook paths produce identical canonical records.
func stripeSubscriptionToInfo(subscription *stripe.Subscription) *model.SubscriptionInfo {
	obj := map[string]any{
		"id":                   subscription.ID,
		"status":               string(subscription.Status),
		"current_period_end":   subscription.CurrentPeriodEnd,
		"cancel_at_period_end": subscription.CancelAtPeriodEnd,
	}
	if subscription.Customer != nil {
		obj["customer"] = subscription.Customer.ID
	}
	if subscription.CancelAt > 0 {
		obj["cancel_at"] = subscription.CancelAt
	}
	if subscription.TrialEnd > 0 {
		obj["trial_end"] = subscription.TrialEnd
	}
	if subscription.Items != nil && len(subscription.Items.Data) > 0 && subscription.Items.Data[0].Price != nil {
		obj["price_id"] = subscription.Items.Data[0].Price.ID
	}
	if subscription.LatestInvoice != nil && subscription.LatestInvoice.PaymentIntent != nil {
		obj["payment_intent_id"] = subscription.LatestInvoice.PaymentIntent.ID
	}

	return MapSubscription(model.ProviderStripe, obj, nil)
}
