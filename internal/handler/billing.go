package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/launchkit/launchkit/internal/model"
	"github.com/launchkit/launchkit/internal/payment"
	"github.com/launchkit/launchkit/internal/repository"
	"github.com/launchkit/launchkit/internal/service"
)

type BillingHandler struct {
	payments      *service.PaymentService
	subscriptions *service.SubscriptionService
	users         repository.UserRepository
}

func NewBillingHandler(payments *service.PaymentService, subscriptions *service.SubscriptionService, users repository.UserRepository) *BillingHandler {
	return &BillingHandler{
		payments:      payments,
		subscriptions: subscriptions,
		users:         users,
	}
}

type createCheckoutRequest struct {
	UserID   string `json:"user_id"`
	PriceID  string `json:"price_id"`
	Amount   int64  `json:"amount"` // minor units
	Currency string `json:"currency"`
}

// CreateCheckout resolves the vendor customer for the user and opens a
// checkout with the active provider.
func (h *BillingHandler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req createCheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.UserID == "" || req.PriceID == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "user_id and price_id are required"})
		return
	}

	user, err := h.users.ByID(req.UserID)
	if err != nil {
		respondJSON(w, http.StatusNotFound, errorResponse{Error: "user not found"})
		return
	}

	customerID, err := h.payments.CustomerID(r.Context(), user)
	if err != nil {
		slog.Error("failed to resolve customer", "error", err, "user_id", user.ID, "provider", h.payments.ActiveProvider())
		respondError(w, err)
		return
	}

	intent, err := h.payments.CreatePaymentIntent(r.Context(), payment.CreatePaymentIntentParams{
		Amount:     req.Amount,
		Currency:   req.Currency,
		CustomerID: customerID,
		PriceID:    req.PriceID,
		Metadata:   map[string]string{"user_id": user.ID},
	})
	if err != nil {
		slog.Error("failed to create checkout", "error", err, "user_id", user.ID, "provider", h.payments.ActiveProvider())
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, intent)
}

type portalRequest struct {
	UserID string `json:"user_id"`
}

// CustomerPortal returns a pre-authenticated vendor portal URL.
func (h *BillingHandler) CustomerPortal(w http.ResponseWriter, r *http.Request) {
	var req portalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "user_id is required"})
		return
	}

	user, err := h.users.ByID(req.UserID)
	if err != nil {
		respondJSON(w, http.StatusNotFound, errorResponse{Error: "user not found"})
		return
	}

	customerID, err := h.payments.CustomerID(r.Context(), user)
	if err != nil {
		respondError(w, err)
		return
	}

	portalURL, err := h.payments.CustomerPortalURL(r.Context(), customerID)
	if err != nil {
		slog.Error("failed to get customer portal", "error", err, "user_id", user.ID, "provider", h.payments.ActiveProvider())
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"url": portalURL})
}

// Config exposes the frontend-safe provider configuration.
func (h *BillingHandler) Config(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"provider":      h.payments.ActiveProvider(),
		"config":        h.payments.ClientConfig(),
		"ui_components": h.payments.UIComponents(),
	})
}

// Subscription returns the persisted subscription for a user.
type subscriptionResponse struct {
	Subscription *model.Subscription `json:"subscription"`
	Active       bool                `json:"active"`
}

func (h *BillingHandler) Subscription(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	sub, err := h.subscriptions.Subscription(userID)
	if err != nil {
		respondJSON(w, http.StatusNotFound, errorResponse{Error: "no subscription"})
		return
	}

	respondJSON(w, http.StatusOK, subscriptionResponse{
		Subscription: sub,
		Active:       sub.IsActive(),
	})
}

// ListCheckouts serves the checkout read model where the active provider
// supports it.
func (h *BillingHandler) ListCheckouts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	result, err := h.payments.ListCheckouts(r.Context(), payment.CheckoutListParams{
		Status:   q.Get("status"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

type switchProviderRequest struct {
	Provider string `json:"provider"`
}

// SwitchProvider changes the active provider for new checkouts. Existing
// vendor subscriptions keep flowing through their own webhook routes.
func (h *BillingHandler) SwitchProvider(w http.ResponseWriter, r *http.Request) {
	var req switchProviderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Provider == "" {
		respondJSON(w, http.StatusBadRequest, errorResponse{Error: "provider is required"})
		return
	}

	if err := h.payments.SwitchProvider(req.Provider); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"provider": h.payments.ActiveProvider()})
}
