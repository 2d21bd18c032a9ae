package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	polargo "github.com/polarsource/polar-go"
	"github.com/polarsource/polar-go/models/apierrors"
	"github.com/polarsource/polar-go/models/components"
	"github.com/polarsource/polar-go/models/operations"
	standardwebhooks "github.com/standard-webhooks/standard-webhooks/libraries/go"

	"github.com/launchkit/launchkit/internal/config"
	"github.com/launchkit/launchkit/internal/model"
)

const (
	polarProductionURL = "https://api.polar.sh"
	polarSandboxURL    = "https://sandbox-api.polar.sh"
)

// PolarProvider talks to Polar through the official SDK where the SDK
// carries every field the mapper needs, and falls back to direct REST
// calls where it does not (customers, subscriptions, refunds).
type PolarProvider struct {
	cfg       *config.Config
	client    *polargo.Polar
	rest      *restClient
	customers *customerResolver
	guard     *webhookGuard
}

func NewPolarProvider(cfg *config.Config, accounts AccountStore, replay ReplayStore) (*PolarProvider, error) {
	var serverOption polargo.SDKOption
	baseURL := polarProductionURL
	if cfg.PolarSandboxMode {
		serverOption = polargo.WithServer(polargo.ServerSandbox)
		baseURL = polarSandboxURL
		slog.Info("polar using sandbox mode", "app_env", cfg.AppEnv)
	} else {
		serverOption = polargo.WithServer(polargo.ServerProduction)
		slog.Info("polar using production mode", "app_env", cfg.AppEnv)
	}

	client := polargo.New(
		polargo.WithSecurity(cfg.PolarAPIKey),
		serverOption,
	)

	rest, err := newRESTClient(model.ProviderPolar, baseURL, cfg.PolarAPIKey, cfg.PaymentRESTTimeout)
	if err != nil {
		return nil, err
	}

	return &PolarProvider{
		cfg:       cfg,
		client:    client,
		rest:      rest,
		customers: newCustomerResolver(model.ProviderPolar, accounts),
		guard:     newWebhookGuard(model.ProviderPolar, replay, cfg.WebhookTimestampWindow),
	}, nil
}

func (p *PolarProvider) Name() string {
	return model.ProviderPolar
}

func (p *PolarProvider) HasCustomerID(user *model.User) bool {
	return p.customers.hasCustomerID(user)
}

func (p *PolarProvider) CustomerID(ctx context.Context, user *model.User) (string, error) {
	return p.customers.resolve(ctx, user, p.CreateCustomer)
}

// CreateCustomer goes through REST: the SDK create call does not accept
// the external id field the resolver keys on.
func (p *PolarProvider) CreateCustomer(ctx context.Context, user *model.User) (string, error) {
	body := map[string]any{
		"email":       user.Email,
		"name":        user.Name,
		"external_id": user.ID,
	}
	if p.cfg.PolarOrganizationID != "" {
		body["organization_id"] = p.cfg.PolarOrganizationID
	}

	var created struct {
		ID string `json:"id"`
	}
	err := p.rest.post(ctx, "/v1/customers", body, &created)
	if err != nil {
		return "", err
	}

	slog.Info("polar customer created", "user_id", user.ID)
	return created.ID, nil
}

func (p *PolarProvider) CreateSetupIntent(ctx context.Context, customerID string) (*model.PaymentIntent, error) {
	return nil, fmt.Errorf("polar setup intents: %w", ErrUnsupportedOperation)
}

// CreatePaymentIntent creates a Polar checkout. SDK first; only a
// transient SDK failure falls back to the REST endpoint, which serves the
// same resource. A vendor rejection is returned as is.
func (p *PolarProvider) CreatePaymentIntent(ctx context.Context, params CreatePaymentIntentParams) (*model.PaymentIntent, error) {
	if params.PriceID == "" {
		return nil, &ValidationError{Field: "price_id", Value: "", Reason: "polar checkouts require a product id"}
	}

	metadata := map[string]components.CheckoutCreateMetadata{}
	for k, v := range params.Metadata {
		metadata[k] = components.CreateCheckoutCreateMetadataStr(v)
	}

	successURL := p.cfg.AppURL + "/billing"
	create := components.CheckoutCreate{
		Products:   []string{params.PriceID},
		SuccessURL: polargo.String(successURL),
		Metadata:   metadata,
	}
	if params.CustomerID != "" {
		err := ValidateID(params.CustomerID)
		if err != nil {
			return nil, err
		}
		create.CustomerID = polargo.String(params.CustomerID)
	}

	res, err := p.client.Checkouts.Create(ctx, create)
	if err != nil {
		wrapped := p.wrapErr(err)
		if !IsTransient(wrapped) {
			// Vendor rejected the checkout; the REST endpoint would
			// reject the same request again.
			return nil, wrapped
		}
		slog.Warn("polar checkout SDK path failed, trying REST", "error", err)
		return p.createCheckoutREST(ctx, params, successURL)
	}
	if res == nil || res.Checkout == nil {
		return p.createCheckoutREST(ctx, params, successURL)
	}

	slog.Info("polar checkout created", "checkout_id", res.Checkout.ID)
	return &model.PaymentIntent{
		ID:           res.Checkout.ID,
		Amount:       params.Amount,
		Currency:     params.Currency,
		Status:       "open",
		ClientSecret: res.Checkout.ClientSecret,
		CustomerID:   params.CustomerID,
	}, nil
}

func (p *PolarProvider) createCheckoutREST(ctx context.Context, params CreatePaymentIntentParams, successURL string) (*model.PaymentIntent, error) {
	body := map[string]any{
		"products":    []string{params.PriceID},
		"success_url": successURL,
	}
	if params.CustomerID != "" {
		body["customer_id"] = params.CustomerID
	}
	if len(params.Metadata) > 0 {
		body["metadata"] = params.Metadata
	}

	var checkout polarCheckout
	err := p.rest.post(ctx, "/v1/checkouts", body, &checkout)
	if err != nil {
		return nil, err
	}

	slog.Info("polar checkout created via REST", "checkout_id", checkout.ID)
	return checkout.toIntent(), nil
}

// ConfirmPayment is client-side for Polar checkouts (the frontend holds
// the client secret).
func (p *PolarProvider) ConfirmPayment(ctx context.Context, paymentIntentID string) (*model.PaymentIntent, error) {
	return nil, fmt.Errorf("polar checkout confirmation: %w", ErrUnsupportedOperation)
}

func (p *PolarProvider) VerifyPayment(ctx context.Context, paymentIntentID string) (*model.PaymentIntent, error) {
	err := ValidateID(paymentIntentID)
	if err != nil {
		return nil, err
	}

	var checkout polarCheckout
	err = p.rest.get(ctx, "/v1/checkouts/"+paymentIntentID, &checkout)
	if err != nil {
		return nil, err
	}

	return checkout.toIntent(), nil
}

func (p *PolarProvider) CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*model.SubscriptionInfo, error) {
	err := ValidateID(params.CustomerID)
	if err != nil {
		return nil, err
	}
	err = ValidateID(params.PriceID)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"customer_id": params.CustomerID,
		"product_id":  params.PriceID,
	}
	if len(params.Metadata) > 0 {
		body["metadata"] = params.Metadata
	}

	var subscription map[string]any
	err = p.rest.post(ctx, "/v1/subscriptions", body, &subscription)
	if err != nil {
		return nil, err
	}

	slog.Info("polar subscription created", "customer_id", params.CustomerID)
	return MapSubscription(model.ProviderPolar, subscription, nil), nil
}

func (p *PolarProvider) CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) (*model.SubscriptionInfo, error) {
	err := ValidateID(subscriptionID)
	if err != nil {
		return nil, err
	}

	var subscription map[string]any
	if atPeriodEnd {
		err = p.rest.patch(ctx, "/v1/subscriptions/"+subscriptionID, map[string]any{
			"cancel_at_period_end": true,
		}, &subscription)
	} else {
		err = p.rest.delete(ctx, "/v1/subscriptions/"+subscriptionID, &subscription)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("polar subscription canceled", "subscription_id", subscriptionID, "at_period_end", atPeriodEnd)
	return MapSubscription(model.ProviderPolar, subscription, nil), nil
}

// UpdateSubscription goes through REST because PATCH responses omit
// unchanged fields; the previously fetched object backfills the mapped
// view.
func (p *PolarProvider) UpdateSubscription(ctx context.Context, subscriptionID string, params UpdateSubscriptionParams) (*model.SubscriptionInfo, error) {
	err := ValidateID(subscriptionID)
	if err != nil {
		return nil, err
	}

	var prev map[string]any
	err = p.rest.get(ctx, "/v1/subscriptions/"+subscriptionID, &prev)
	if err != nil && !IsTransient(err) {
		return nil, err
	}

	body := map[string]any{}
	if params.PriceID != nil {
		err = ValidateID(*params.PriceID)
		if err != nil {
			return nil, err
		}
		body["product_id"] = *params.PriceID
	}
	if params.CancelAtPeriodEnd != nil {
		body["cancel_at_period_end"] = *params.CancelAtPeriodEnd
	}

	var fresh map[string]any
	err = p.rest.patch(ctx, "/v1/subscriptions/"+subscriptionID, body, &fresh)
	if err != nil {
		return nil, err
	}

	return MapSubscription(model.ProviderPolar, fresh, prev), nil
}

func (p *PolarProvider) RefundPayment(ctx context.Context, paymentIntentID string, amount int64) error {
	err := ValidateID(paymentIntentID)
	if err != nil {
		return err
	}

	body := map[string]any{
		"order_id": paymentIntentID,
		"reason":   "customer_request",
	}
	if amount > 0 {
		body["amount"] = amount
	}

	err = p.rest.post(ctx, "/v1/refunds", body, nil)
	if err != nil {
		return err
	}

	slog.Info("polar refund created", "order_id", paymentIntentID, "amount", amount)
	return nil
}

func (p *PolarProvider) CustomerPortalURL(ctx context.Context, customerID string) (string, error) {
	err := ValidateID(customerID)
	if err != nil {
		return "", err
	}

	sessionCreate := operations.CreateCustomerSessionsCreateCustomerSessionCreateCustomerSessionCustomerIDCreate(
		components.CustomerSessionCustomerIDCreate{
			CustomerID: customerID,
			ReturnURL:  polargo.String(p.cfg.AppURL + "/billing"),
		},
	)
	res, err := p.client.CustomerSessions.Create(ctx, sessionCreate)
	if err != nil {
		return "", p.wrapErr(err)
	}
	if res == nil || res.CustomerSession == nil {
		return "", &TransientError{Provider: model.ProviderPolar, Err: fmt.Errorf("customer session response is nil")}
	}

	slog.Info("polar customer portal session created")
	return res.CustomerSession.CustomerPortalURL, nil
}

// HandleWebhook verifies the standard-webhooks signature (Polar's native
// scheme) over the raw body, then runs the shared timestamp and replay
// checks on the webhook-timestamp and webhook-id headers.
func (p *PolarProvider) HandleWebhook(ctx context.Context, req WebhookRequest) (*model.WebhookResult, error) {
	if p.cfg.PolarWebhookSecret == "" {
		return nil, &ConfigurationError{Provider: model.ProviderPolar, Reason: "webhook secret is not configured"}
	}

	wh, err := standardwebhooks.NewWebhookRaw([]byte(p.cfg.PolarWebhookSecret))
	if err != nil {
		return nil, &ConfigurationError{Provider: model.ProviderPolar, Reason: "invalid webhook secret"}
	}

	headers := http.Header{}
	headers.Set("webhook-id", req.WebhookID)
	headers.Set("webhook-timestamp", req.Timestamp)
	headers.Set("webhook-signature", req.Signature)

	err = wh.Verify(req.RawBody, headers)
	if err != nil {
		return nil, &SecurityError{
			Provider: model.ProviderPolar,
			Stage:    "signature",
			Reason:   err.Error(),
		}
	}

	err = p.guard.validate(ctx, req.Timestamp, req.WebhookID)
	if err != nil {
		return nil, err
	}

	payload, err := decodeEventPayload(model.ProviderPolar, req.RawBody)
	if err != nil {
		return nil, err
	}

	vendorType, _ := payload["type"].(string)
	data, _ := payload["data"].(map[string]any)
	eventType := MapEventType(model.ProviderPolar, vendorType)

	slog.Info("polar webhook accepted", "event_type", vendorType, "mapped_type", eventType, "webhook_id", req.WebhookID)

	result := &model.WebhookResult{
		Received: true,
		Type:     eventType,
		ID:       req.WebhookID,
		Data:     data,
	}
	if IsSubscriptionEvent(eventType) {
		result.Subscription = MapSubscription(model.ProviderPolar, data, nil)
	}

	return result, nil
}

func (p *PolarProvider) ClientConfig() model.ClientConfig {
	options := map[string]string{}
	if p.cfg.PolarSandboxMode {
		options["environment"] = "sandbox"
	}
	return model.ClientConfig{
		Provider: model.ProviderPolar,
		Options:  options,
	}
}

func (p *PolarProvider) UIComponents() []string {
	return []string{"polar-checkout-embed", "polar-customer-portal"}
}

// wrapErr classifies a polar-go error into the taxonomy. Vendor 4xx is
// fatal for the operation; 5xx, timeouts and transport failures are
// transient and may be routed to the REST fallback.
func (p *PolarProvider) wrapErr(err error) error {
	var valErr *apierrors.HTTPValidationError
	if errors.As(err, &valErr) {
		return &ProviderAPIError{
			Provider:   model.ProviderPolar,
			StatusCode: http.StatusUnprocessableEntity,
			Message:    valErr.Error(),
		}
	}
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode >= 500 || apiErr.StatusCode == 0 {
			return &TransientError{Provider: model.ProviderPolar, Err: err}
		}
		return &ProviderAPIError{
			Provider:   model.ProviderPolar,
			StatusCode: apiErr.StatusCode,
			Message:    apiErr.Message,
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransientError{Provider: model.ProviderPolar, Timeout: true, Err: err}
	}
	return &TransientError{Provider: model.ProviderPolar, Err: fmt.Errorf("polar request failed: %w", err)}
}

// polarCheckout is the subset of the checkout resource the intent mapping
// reads.
type polarCheckout struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	ClientSecret string `json:"client_secret"`
	CustomerID   string `json:"customer_id"`
}

func (c *polarCheckout) toIntent() *model.PaymentIntent {
	return &model.PaymentIntent{
		ID:           c.ID,
		Amount:       c.Amount,
		Currency:     c.Currency,
		Status:       c.Status,
		ClientSecret: c.ClientSecret,
		CustomerID:   c.CustomerID,
	}
}
