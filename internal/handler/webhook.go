package handler

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/launchkit/launchkit/internal/model"
	"github.com/launchkit/launchkit/internal/payment"
	"github.com/launchkit/launchkit/internal/service"
)

// maxWebhookBody caps inbound payloads. Vendor events are small; anything
// near this size is not a webhook.
const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	payments *service.PaymentService
}

func NewWebhookHandler(payments *service.PaymentService) *WebhookHandler {
	return &WebhookHandler{payments: payments}
}

// Handle ingests POST /webhooks/{provider}. The body is read raw and
// passed unmodified; parsing before verification would break the HMAC.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	providerName := r.PathValue("provider")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		slog.Error("failed to read webhook payload", "error", err, "provider", providerName)
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "failed to read payload"})
		return
	}
	defer r.Body.Close()

	req := webhookRequest(providerName, r, body)
	result, err := h.payments.ProcessWebhook(r.Context(), providerName, req)
	if err != nil {
		slog.Warn("webhook rejected", "provider", providerName, "error", err)
		respondError(w, err)
		return
	}

	slog.Info("webhook processed", "provider", providerName, "event", result.Type, "event_id", result.ID)
	respondJSON(w, http.StatusOK, result)
}

// webhookRequest extracts each vendor's signature headers verbatim.
func webhookRequest(providerName string, r *http.Request, body []byte) payment.WebhookRequest {
	req := payment.WebhookRequest{RawBody: body}

	switch providerName {
	case model.ProviderStripe:
		req.Signature = r.Header.Get("Stripe-Signature")
	case model.ProviderPolar:
		req.Signature = r.Header.Get("webhook-signature")
		req.Timestamp = r.Header.Get("webhook-timestamp")
		req.WebhookID = r.Header.Get("webhook-id")
	case model.ProviderLemonSqueezy:
		req.Signature = r.Header.Get("X-Signature")
		req.Timestamp = r.Header.Get("X-Event-Timestamp")
		req.WebhookID = r.Header.Get("X-Event-Id")
	default:
		req.Signature = r.Header.Get("webhook-signature")
		req.Timestamp = r.Header.Get("webhook-timestamp")
		req.WebhookID = r.Header.Get("webhook-id")
	}

	return req
}
