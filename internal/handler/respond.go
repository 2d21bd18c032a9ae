package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/launchkit/launchkit/internal/payment"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

// respondError maps the payment error taxonomy to HTTP statuses. Vendor
// detail stays in the log; the response carries only the category.
func respondError(w http.ResponseWriter, err error) {
	var (
		cfgErr      *payment.ConfigurationError
		valErr      *payment.ValidationError
		secErr      *payment.SecurityError
		providerErr *payment.ProviderAPIError
	)

	switch {
	case errors.As(err, &cfgErr):
		respondJSON(w, http.StatusNotFound, errorResponse{Error: "unknown or unconfigured provider"})
	case errors.As(err, &valErr):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: valErr.Error()})
	case errors.As(err, &secErr):
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "verification failed"})
	case errors.Is(err, payment.ErrUnsupportedOperation), errors.Is(err, payment.ErrNotImplemented):
		respondJSON(w, http.StatusNotImplemented, errorResponse{Error: err.Error()})
	case payment.IsTimeout(err):
		respondJSON(w, http.StatusGatewayTimeout, errorResponse{Error: "provider timed out"})
	case payment.IsTransient(err):
		respondJSON(w, http.StatusBadGateway, errorResponse{Error: "provider temporarily unavailable"})
	case errors.As(err, &providerErr):
		respondJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "provider rejected the request"})
	default:
		respondJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
