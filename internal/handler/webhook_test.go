package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/launchkit/launchkit/internal/payment"
	"github.com/stretchr/testify/assert"
)

func TestWebhookRequestHeaderExtraction(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)

	tests := []struct {
		name     string
		provider string
		headers  map[string]string
		wantSig  string
		wantTS   string
		wantID   string
	}{
		{
			name:     "stripe packs everything into one header",
			provider: "stripe",
			headers:  map[string]string{"Stripe-Signature": "t=1736937000,v1=abc"},
			wantSig:  "t=1736937000,v1=abc",
		},
		{
			name:     "polar standard webhooks headers",
			provider: "polar",
			headers: map[string]string{
				"webhook-signature": "v1,deadbeef",
				"webhook-timestamp": "1736937000",
				"webhook-id":        "wh_1",
			},
			wantSig: "v1,deadbeef",
			wantTS:  "1736937000",
			wantID:  "wh_1",
		},
		{
			name:     "lemonsqueezy x headers",
			provider: "lemonsqueezy",
			headers: map[string]string{
				"X-Signature":       "cafebabe",
				"X-Event-Timestamp": "1736937000",
				"X-Event-Id":        "evt_9",
			},
			wantSig: "cafebabe",
			wantTS:  "1736937000",
			wantID:  "evt_9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/webhooks/"+tt.provider, nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			req := webhookRequest(tt.provider, r, body)

			assert.Equal(t, body, req.RawBody)
			assert.Equal(t, tt.wantSig, req.Signature)
			assert.Equal(t, tt.wantTS, req.Timestamp)
			assert.Equal(t, tt.wantID, req.WebhookID)
		})
	}
}

func TestRespondErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"configuration error is 404", &payment.ConfigurationError{Provider: "braintree", Reason: "unknown"}, http.StatusNotFound},
		{"validation error is 400", &payment.ValidationError{Field: "id", Reason: "empty"}, http.StatusBadRequest},
		{"security error is 400", &payment.SecurityError{Provider: "stripe", Stage: "signature", Reason: "mismatch"}, http.StatusBadRequest},
		{"unsupported operation is 501", payment.ErrUnsupportedOperation, http.StatusNotImplemented},
		{"not implemented is 501", payment.ErrNotImplemented, http.StatusNotImplemented},
		{"transient error is 502", &payment.TransientError{Provider: "polar", Err: errors.New("upstream 500")}, http.StatusBadGateway},
		{"timeout is 504", &payment.TransientError{Provider: "polar", Timeout: true, Err: errors.New("deadline exceeded")}, http.StatusGatewayTimeout},
		{"provider api error is 422", &payment.ProviderAPIError{Provider: "stripe", StatusCode: 404}, http.StatusUnprocessableEntity},
		{"unknown error is 500", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			respondError(w, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		})
	}
}

func TestRespondErrorHidesVendorDetail(t *testing.T) {
	w := httptest.NewRecorder()
	respondError(w, &payment.SecurityError{Provider: "stripe", Stage: "signature", Reason: "secret sk_live_123 mismatch"})

	assert.NotContains(t, w.Body.String(), "sk_live_123")
}
