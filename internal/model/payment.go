package model

import (
	"encoding/json"
	"time"
)

// Provider identifiers. The set is closed; the payment factory rejects
// anything else at construction time.
const (
	ProviderStripe       = "stripe"
	ProviderSolidgate    = "solidgate"
	ProviderLemonSqueezy = "lemonsqueezy"
	ProviderPolar        = "polar"
)

// Canonical subscription statuses. Every vendor status string maps into
// exactly one of these; unrecognized values map to StatusIncomplete.
const (
	StatusIncomplete        = "incomplete"
	StatusIncompleteExpired = "incomplete_expired"
	StatusTrialing          = "trialing"
	StatusActive            = "active"
	StatusPastDue           = "past_due"
	StatusCanceled          = "canceled"
	StatusUnpaid            = "unpaid"
	StatusPaused            = "paused"
)

// CanonicalStatuses is the full status vocabulary, in the order vendors
// typically progress through it.
var CanonicalStatuses = []string{
	StatusIncomplete,
	StatusIncompleteExpired,
	StatusTrialing,
	StatusActive,
	StatusPastDue,
	StatusCanceled,
	StatusUnpaid,
	StatusPaused,
}

// Canonical webhook event types. Vendor event names map into these;
// unknown vendor types pass through unchanged so new vendor events never
// break ingestion.
const (
	EventPaymentSucceeded      = "payment_succeeded"
	EventPaymentFailed         = "payment_failed"
	EventSubscriptionCreated   = "subscription_created"
	EventSubscriptionUpdated   = "subscription_updated"
	EventSubscriptionCancelled = "subscription_cancelled"
	EventSubscriptionResumed   = "subscription_resumed"
	EventCheckoutCompleted     = "checkout_completed"
	EventRefundSucceeded       = "refund_succeeded"
)

// PaymentIntent is one checkout attempt. Terminal once Status reaches
// succeeded or failed.
type PaymentIntent struct {
	ID           string `json:"id"`
	Amount       int64  `json:"amount"` // minor units (cents)
	Currency     string `json:"currency"`
	Status       string `json:"status"`
	ClientSecret string `json:"client_secret,omitempty"`
	CustomerID   string `json:"customer_id,omitempty"`
}

// SubscriptionInfo is the vendor-agnostic view of a subscription. All
// timestamps are unix seconds.
type SubscriptionInfo struct {
	ID                string `json:"id"`
	CustomerID        string `json:"customer_id"`
	Status            string `json:"status"`
	CurrentPeriodEnd  int64  `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	CancelAt          int64  `json:"cancel_at,omitempty"`
	TrialEnd          int64  `json:"trial_end,omitempty"`
	PriceID           string `json:"price_id"`
	PaymentIntentID   string `json:"payment_intent_id,omitempty"`
}

// PaymentAccount links an internal user to a vendor customer id. One row
// per (user, provider) pair, created lazily on first resolution.
type PaymentAccount struct {
	ID         string    `db:"id"`
	UserID     string    `db:"user_id"`
	ProviderID string    `db:"provider_id"`
	CustomerID string    `db:"customer_id"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// WebhookResult is the normalized outcome of one inbound webhook event.
type WebhookResult struct {
	Received bool           `json:"received"`
	Type     string         `json:"type"`
	ID       string         `json:"id"`
	Data     map[string]any `json:"data,omitempty"`

	// Subscription is populated for subscription lifecycle events so
	// callers can persist effects without re-parsing vendor payloads.
	Subscription *SubscriptionInfo `json:"subscription,omitempty"`
}

// RawData returns the event payload re-encoded as JSON, for callers that
// archive events verbatim.
func (r *WebhookResult) RawData() json.RawMessage {
	if r.Data == nil {
		return nil
	}
	b, err := json.Marshal(r.Data)
	if err != nil {
		return nil
	}
	return b
}

// CheckoutData is a normalized LemonSqueezy checkout/subscription record.
// Amounts are in major units; the division from cents happens exactly once,
// at the normalization boundary.
type CheckoutData struct {
	ID            string  `json:"id"`
	Status        string  `json:"status"`
	CustomerID    string  `json:"customer_id"`
	CustomerEmail string  `json:"customer_email"`
	StoreID       string  `json:"store_id"`
	OrderID       string  `json:"order_id"`
	VariantID     string  `json:"variant_id"`
	ProductName   string  `json:"product_name"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	RenewsAt      int64   `json:"renews_at,omitempty"`
	CreatedAt     int64   `json:"created_at,omitempty"`
	PortalURL     string  `json:"portal_url,omitempty"`
}

// CheckoutListResult is a page of normalized checkout records.
type CheckoutListResult struct {
	Items      []CheckoutData `json:"items"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalItems int            `json:"total_items"`
	TotalPages int            `json:"total_pages"`
}

// ClientConfig is the provider configuration safe to hand to a frontend.
type ClientConfig struct {
	Provider       string            `json:"provider"`
	PublishableKey string            `json:"publishable_key,omitempty"`
	Options        map[string]string `json:"options,omitempty"`
}
