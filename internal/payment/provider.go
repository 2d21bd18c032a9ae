package payment

import (
	"context"

	"github.com/launchkit/launchkit/internal/model"
)

// Provider is the contract every payment vendor adapter implements.
// All network operations take a context and respect its deadline.
type Provider interface {
	// Name returns the provider identifier ("stripe", "polar", ...).
	Name() string

	// HasCustomerID reports whether the user already carries a resolved
	// vendor customer id in session metadata. No network or store access.
	HasCustomerID(user *model.User) bool

	// CustomerID resolves the vendor customer id for the user: session
	// metadata, then the payment account store, then create-on-demand.
	// Safe to retry (lookup before create).
	CustomerID(ctx context.Context, user *model.User) (string, error)

	// CreateCustomer creates the customer at the vendor and returns its id.
	// It does not persist the mapping; CustomerID does.
	CreateCustomer(ctx context.Context, user *model.User) (string, error)

	CreateSetupIntent(ctx context.Context, customerID string) (*model.PaymentIntent, error)
	CreatePaymentIntent(ctx context.Context, params CreatePaymentIntentParams) (*model.PaymentIntent, error)
	ConfirmPayment(ctx context.Context, paymentIntentID string) (*model.PaymentIntent, error)
	VerifyPayment(ctx context.Context, paymentIntentID string) (*model.PaymentIntent, error)

	CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*model.SubscriptionInfo, error)
	CancelSubscription(ctx context.Context, subscriptionID string, atPeriodEnd bool) (*model.SubscriptionInfo, error)
	UpdateSubscription(ctx context.Context, subscriptionID string, params UpdateSubscriptionParams) (*model.SubscriptionInfo, error)

	RefundPayment(ctx context.Context, paymentIntentID string, amount int64) error

	// CustomerPortalURL returns a pre-authenticated vendor portal URL
	// where the customer manages payment methods and cancellation.
	CustomerPortalURL(ctx context.Context, customerID string) (string, error)

	// HandleWebhook runs the full ingestion pipeline over the raw request:
	// signature, timestamp window, replay check, event mapping. The raw
	// body must be the unparsed bytes from the wire; re-serializing JSON
	// breaks the HMAC.
	HandleWebhook(ctx context.Context, req WebhookRequest) (*model.WebhookResult, error)

	// ClientConfig returns the provider configuration safe for a frontend.
	ClientConfig() model.ClientConfig

	// UIComponents returns the identifiers of the frontend components this
	// provider renders with.
	UIComponents() []string
}

// WebhookRequest carries one inbound webhook verbatim. Callers must pass
// body bytes and header values unmodified.
type WebhookRequest struct {
	RawBody   []byte
	Signature string
	Timestamp string
	WebhookID string
}

type CreatePaymentIntentParams struct {
	Amount     int64 // minor units
	Currency   string
	CustomerID string
	PriceID    string
	Metadata   map[string]string
}

type CreateSubscriptionParams struct {
	CustomerID string
	PriceID    string
	TrialDays  int64
	Metadata   map[string]string
}

type UpdateSubscriptionParams struct {
	PriceID           *string
	CancelAtPeriodEnd *bool
}

// AccountStore is the external collaborator holding (user, provider) →
// vendor customer id mappings. Implementations return ErrAccountNotFound
// and ErrAccountExists from this package.
type AccountStore interface {
	PaymentAccount(userID, provider string) (*model.PaymentAccount, error)
	SetupPaymentAccount(account *model.PaymentAccount) (*model.PaymentAccount, error)
}
