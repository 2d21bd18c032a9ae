package routes

import (
	"net/http"

	"github.com/launchkit/launchkit/internal/app"
	"github.com/launchkit/launchkit/internal/handler"
	"github.com/launchkit/launchkit/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	webhook := handler.NewWebhookHandler(app.PaymentService)
	billing := handler.NewBillingHandler(app.PaymentService, app.SubscriptionService, app.UserRepository)

	mux := http.NewServeMux()

	// Webhooks: one route per vendor, signature headers vary by vendor.
	mux.HandleFunc("POST /webhooks/{provider}", webhook.Handle)

	// Billing
	mux.HandleFunc("GET /billing/config", billing.Config)
	mux.HandleFunc("POST /billing/checkout", billing.CreateCheckout)
	mux.HandleFunc("GET /billing/checkouts", billing.ListCheckouts)
	mux.HandleFunc("POST /billing/portal", billing.CustomerPortal)
	mux.HandleFunc("GET /billing/subscriptions/{id}", billing.Subscription)
	mux.HandleFunc("POST /billing/provider", billing.SwitchProvider)

	// Global middleware - executed in order (top to bottom)
	return middleware.Chain(
		mux,
		middleware.RequestLogging,
	)
}
