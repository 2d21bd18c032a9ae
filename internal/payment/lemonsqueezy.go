package payment

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/launchkit/launchkit/internal/config"
	"github.com/launchkit/launchkit/internal/model"
)

const lemonSqueezyBaseURL = "https://api.lemonsqueezy.com"

// LemonSqueezyProvider is a pure REST adapter: LemonSqueezy has no
// official Go SDK. Payloads follow JSON:API, with relationship arrays and
// an "included" section that is only partially populated depending on the
// endpoint.
type LemonSqueezyProvider struct {
	cfg       *config.Config
	rest      *restClient
	customers *customerResolver
	guard     *webhookGuard
}

func NewLemonSqueezyProvider(cfg *config.Config, accounts AccountStore, replay ReplayStore) (*LemonSqueezyProvider, error) {
	rest, err := newRESTClient(model.ProviderLemonSqueezy, lemonSqueezyBaseURL, cfg.LemonSqueezyAPIKey, cfg.PaymentRESTTimeout)
	if err != nil {
		return nil, err
	}

	slog.Info("lemonsqueezy provider initialized", "store_id", cfg.LemonSqueezyStoreID)

	return &LemonSqueezyProvider{
		cfg:       cfg,
		rest:      rest,
		customers: newCustomerResolver(model.ProviderLemonSqueezy, accounts),
		guard:     newWebhookGuard(model.ProviderLemonSqueezy, replay, cfg.WebhookTimestampWindow),
	}, nil
}

func (l *LemonSqueezyProvider) Name() string {
	return model.ProviderLemonSqueezy
}

func (l *LemonSqueezyProvider) HasCustomerID(user *model.User) bool {
	return l.customers.hasCustomerID(user)
}

func (l *LemonSqueezyProvider) CustomerID(ctx context.Context, user *model.User) (string, error) {
	return l.customers.resolve(ctx, user, l.CreateCustomer)
}

func (l *LemonSqueezyProvider) CreateCustomer(ctx context.Context, user *model.User) (string, error) {
	body := map[string]any{
		"data": map[string]any{
			"type": "customers",
			"attributes": map[string]any{
				"name":  user.Name,
				"email": user.Email,
			},
			"relationships": map[string]any{
				"store": map[string]any{
					"data": map[string]any{
						"type": "stores",
						"id":   l.cfg.LemonSqueezyStoreID,
					},
				},
			},
		},
	}

	var resp jsonAPIDocument
	err := l.rest.post(ctx, "/v1/customers", body, &resp)
	if err != nil {
		return "", err
	}
	if resp.Data == nil {
		return "", &TransientError{Provider: model.ProviderLemonSqueezy, Err: fmt.Errorf("customer response has no data")}
	}

	slog.Info("lemonsqueezy customer created", "user_id", user.ID)
	return resp.Data.ID, nil
}

func (l *LemonSqueezyProvider) CreateSetupIntent(ctx context.Context, customerID string) (*model.PaymentIntent, error) {
	return nil, fmt.Errorf("lemonsqueezy setup intents: %w", ErrUnsupportedOperation)
}

// CreatePaymentIntent creates a hosted checkout. The returned client
// secret is the checkout URL the frontend redirects to.
func (l *LemonSqueezyProvider) CreatePaymentIntent(ctx context.Context, params CreatePaymentIntentParams) (*model.PaymentIntent, error) {
	if params.PriceID == "" {
		return nil, &ValidationError{Field: "price_id", Value: "", Reason: "lemonsqueezy checkouts require a variant id"}
	}
	err := ValidateID(params.PriceID)
	if err != nil {
		return nil, err
	}

	custom := map[string]any{}
	for k, v := range params.Metadata {
		custom[k] = v
	}

	body := map[string]any{
		"data": map[string]any{
			"type": "checkouts",
			"attributes": map[string]any{
				"checkout_data": map[string]any{
					"custom": custom,
				},
			},
			"relationships": map[string]any{
				"store": map[string]any{
					"data": map[string]any{"type": "stores", "id": l.cfg.LemonSqueezyStoreID},
				},
				"variant": map[string]any{
					"data": map[string]any{"type": "variants", "id": params.PriceID},
				},
			},
		},
	}

	var resp jsonAPIDocument
	err = l.rest.post(ctx, "/v1/checkouts", body, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, &TransientError{Provider: model.ProviderLemonSqueezy, Err: fmt.Errorf("checkout response has no data")}
	}

	url, _ := resp.Data.Attributes["url"].(string)
	slog.Info("lemonsqueezy checkout created", "checkout_id", resp.Data.ID)

	return &model.PaymentIntent{
		ID:           resp.Data.ID,
		Amount:       params.Amount,
		Currency:     params.Currency,
		Status:       "open",
		ClientSecret: url,
		CustomerID:   params.CustomerID,
	}, nil
}

func (l *LemonSqueezyProvider) ConfirmPayment(ctx context.Context, paymentIntentID string) (*model.PaymentIntent, error) {
	return nil, fmt.Errorf("lemonsqueezy hosted checkouts confirm on the vendor page: %w", ErrUnsupportedOperation)
}

// VerifyPayment reads the order backing a checkout attempt.
func (l *LemonSqueezyProvider) VerifyPayment(ctx context.Context, paymentIntentID string) (*model.PaymentIntent, error) {
	err := ValidateID(paymentIntentID)
	if err != nil {
		return nil, err
	}

	var resp jsonAPIDocument
	err = l.rest.get(ctx, "/v1/orders/"+paymentIntentID, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, &TransientError{Provider: model.ProviderLemonSqueezy, Err: fmt.Errorf("order response has no data")}
	}

	attrs := resp.Data.Attributes
	total, _ := attrs["total"].(float64)
	currency, _ := attrs["currency"].(string)
	status, _ := attrs["status"].(string)

	return &model.PaymentIntent{
		ID:       resp.Data.ID,
		Amount:   int64(total),
		Currency: currency,
		Status:   status,
	}, nil
}

// CreateSubscription is not a direct API operation: LemonSqueezy
// subscriptions come into existence when a hosted checkout completes.
func (l *LemonSqueezyProvider) CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*model.SubscriptionInfo, error) {
	return nil, fmt.Errorf("lemonsqueezy subscriptions are created by checkout completion: %w", ErrUnsupportedOperation)
}

func (l *LemonSqueezyProvider) CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) (*model.SubscriptionInfo, error) {
	err := ValidateID(subscriptionID)
	if err != nil {
		return nil, err
	}

	// DELETE marks the subscription cancelled; it stays usable until the
	// period ends. Immediate revocation is not offered by the API.
	var resp jsonAPIDocument
	err = l.rest.delete(ctx, "/v1/subscriptions/"+subscriptionID, &resp)
	if err != nil {
		return nil, err
	}

	slog.Info("lemonsqueezy subscription cancelled", "subscription_id", subscriptionID)
	return l.subscriptionFromDocument(&resp, nil), nil
}

func (l *LemonSqueezyProvider) UpdateSubscription(ctx context.Context, subscriptionID string, params UpdateSubscriptionParams) (*model.SubscriptionInfo, error) {
	err := ValidateID(subscriptionID)
	if err != nil {
		return nil, err
	}

	// PATCH responses omit unchanged attributes; fetch the current object
	// first so the mapper can backfill.
	var prevDoc jsonAPIDocument
	err = l.rest.get(ctx, "/v1/subscriptions/"+subscriptionID, &prevDoc)
	if err != nil && !IsTransient(err) {
		return nil, err
	}

	attributes := map[string]any{}
	if params.PriceID != nil {
		err = ValidateID(*params.PriceID)
		if err != nil {
			return nil, err
		}
		variantID, convErr := strconv.Atoi(*params.PriceID)
		if convErr != nil {
			return nil, &ValidationError{Field: "price_id", Value: *params.PriceID, Reason: "lemonsqueezy variant ids are numeric"}
		}
		attributes["variant_id"] = variantID
	}
	if params.CancelAtPeriodEnd != nil {
		attributes["cancelled"] = *params.CancelAtPeriodEnd
	}

	body := map[string]any{
		"data": map[string]any{
			"type":       "subscriptions",
			"id":         subscriptionID,
			"attributes": attributes,
		},
	}

	var resp jsonAPIDocument
	err = l.rest.patch(ctx, "/v1/subscriptions/"+subscriptionID, body, &resp)
	if err != nil {
		return nil, err
	}

	var prev map[string]any
	if prevDoc.Data != nil {
		prev = flattenJSONAPI(prevDoc.Data)
	}
	return l.subscriptionFromDocument(&resp, prev), nil
}

func (l *LemonSqueezyProvider) RefundPayment(ctx context.Context, paymentIntentID string, amount int64) error {
	return fmt.Errorf("lemonsqueezy refunds are issued from the vendor dashboard: %w", ErrUnsupportedOperation)
}

func (l *LemonSqueezyProvider) CustomerPortalURL(ctx context.Context, customerID string) (string, error) {
	err := ValidateID(customerID)
	if err != nil {
		return "", err
	}

	var resp jsonAPIDocument
	err = l.rest.get(ctx, "/v1/customers/"+customerID, &resp)
	if err != nil {
		return "", err
	}
	if resp.Data == nil {
		return "", &TransientError{Provider: model.ProviderLemonSqueezy, Err: fmt.Errorf("customer response has no data")}
	}

	urls, _ := resp.Data.Attributes["urls"].(map[string]any)
	portal, _ := urls["customer_portal"].(string)
	if portal == "" {
		return "", &ProviderAPIError{
			Provider:   model.ProviderLemonSqueezy,
			StatusCode: 404,
			Message:    "customer has no portal URL",
		}
	}

	return portal, nil
}

// HandleWebhook verifies the hex HMAC signature (X-Signature) over the raw
// body, then runs the shared timestamp and replay checks.
func (l *LemonSqueezyProvider) HandleWebhook(ctx context.Context, req WebhookRequest) (*model.WebhookResult, error) {
	err := verifySignature(model.ProviderLemonSqueezy, l.cfg.LemonSqueezyWebhookSecret, req.RawBody, req.Signature)
	if err != nil {
		return nil, err
	}

	err = l.guard.validate(ctx, req.Timestamp, req.WebhookID)
	if err != nil {
		return nil, err
	}

	payload, err := decodeEventPayload(model.ProviderLemonSqueezy, req.RawBody)
	if err != nil {
		return nil, err
	}

	meta, _ := payload["meta"].(map[string]any)
	vendorType, _ := meta["event_name"].(string)
	eventType := MapEventType(model.ProviderLemonSqueezy, vendorType)

	var data map[string]any
	if dataNode, ok := payload["data"].(map[string]any); ok {
		data = flattenDataNode(dataNode)
	}

	slog.Info("lemonsqueezy webhook accepted", "event_type", vendorType, "mapped_type", eventType, "webhook_id", req.WebhookID)

	result := &model.WebhookResult{
		Received: true,
		Type:     eventType,
		ID:       req.WebhookID,
		Data:     data,
	}
	if IsSubscriptionEvent(eventType) {
		result.Subscription = MapSubscription(model.ProviderLemonSqueezy, data, nil)
	}

	return result, nil
}

func (l *LemonSqueezyProvider) ClientConfig() model.ClientConfig {
	return model.ClientConfig{
		Provider: model.ProviderLemonSqueezy,
		Options: map[string]string{
			"store_id": l.cfg.LemonSqueezyStoreID,
		},
	}
}

func (l *LemonSqueezyProvider) UIComponents() []string {
	return []string{"lemonsqueezy-hosted-checkout", "lemonsqueezy-customer-portal"}
}

func (l *LemonSqueezyProvider) subscriptionFromDocument(doc *jsonAPIDocument, prev map[string]any) *model.SubscriptionInfo {
	if doc.Data == nil {
		return MapSubscription(model.ProviderLemonSqueezy, nil, prev)
	}
	return MapSubscription(model.ProviderLemonSqueezy, flattenJSONAPI(doc.Data), prev)
}

// jsonAPIDocument is the JSON:API envelope LemonSqueezy responds with.
type jsonAPIDocument struct {
	Data     *jsonAPIResource  `json:"data"`
	Included []jsonAPIResource `json:"included"`
	Meta     map[string]any    `json:"meta"`
}

type jsonAPIResource struct {
	Type          string                     `json:"type"`
	ID            string                     `json:"id"`
	Attributes    map[string]any             `json:"attributes"`
	Relationships map[string]jsonAPIRelation `json:"relationships"`
}

type jsonAPIRelation struct {
	Data *jsonAPIIdentifier `json:"data"`
}

type jsonAPIIdentifier struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// flattenJSONAPI folds a resource's id into its attribute map so the
// shared field-alias mapper can treat it like any other vendor object.
func flattenJSONAPI(res *jsonAPIResource) map[string]any {
	flat := make(map[string]any, len(res.Attributes)+1)
	for k, v := range res.Attributes {
		flat[k] = v
	}
	flat["id"] = res.ID
	return flat
}

// flattenDataNode does the same for the untyped webhook payload shape.
func flattenDataNode(dataNode map[string]any) map[string]any {
	flat := map[string]any{}
	if attrs, ok := dataNode["attributes"].(map[string]any); ok {
		for k, v := range attrs {
			flat[k] = v
		}
	}
	if id, ok := dataNode["id"].(string); ok {
		flat["id"] = id
	}
	return flat
}
