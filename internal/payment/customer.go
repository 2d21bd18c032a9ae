package payment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/launchkit/launchkit/internal/model"
)

// customerResolver resolves a vendor customer id for a user through three
// ordered tiers: session metadata, the payment account store, then
// create-on-demand at the vendor. Shared by every adapter.
type customerResolver struct {
	provider string
	accounts AccountStore
}

func newCustomerResolver(provider string, accounts AccountStore) *customerResolver {
	return &customerResolver{provider: provider, accounts: accounts}
}

func (r *customerResolver) hasCustomerID(user *model.User) bool {
	return user != nil && user.Metadata[model.CustomerIDKey(r.provider)] != ""
}

// resolve returns on the first tier that produces an id. create is the
// adapter's vendor call; it runs only when both lookups miss. The whole
// sequence is retry-safe because lookups always run before create.
func (r *customerResolver) resolve(ctx context.Context, user *model.User, create func(context.Context, *model.User) (string, error)) (string, error) {
	if user == nil || user.ID == "" {
		return "", &ValidationError{Field: "user", Value: "", Reason: "missing user id"}
	}

	if id := user.Metadata[model.CustomerIDKey(r.provider)]; id != "" {
		return id, nil
	}

	account, err := r.accounts.PaymentAccount(user.ID, r.provider)
	if err == nil {
		return account.CustomerID, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return "", fmt.Errorf("failed to look up payment account for user %s: %w", user.ID, err)
	}

	customerID, err := create(ctx, user)
	if err != nil {
		return "", fmt.Errorf("failed to create %s customer for user %s: %w", r.provider, user.ID, err)
	}

	canonical, err := r.persist(user.ID, customerID)
	if err != nil {
		return "", err
	}

	slog.Info("payment customer created", "provider", r.provider, "user_id", user.ID)
	return canonical, nil
}

// persist stores the new mapping and returns the canonical customer id.
// Losing a unique-constraint race is not losing correctness: the vendor
// already issued one canonical customer id, so on a duplicate we re-fetch
// the row the winner wrote and return that id. Any other store failure is
// logged and swallowed; the mapping is re-resolvable later.
func (r *customerResolver) persist(userID, customerID string) (string, error) {
	now := time.Now()
	_, err := r.accounts.SetupPaymentAccount(&model.PaymentAccount{
		ID:         uuid.New().String(),
		UserID:     userID,
		ProviderID: r.provider,
		CustomerID: customerID,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err == nil {
		return customerID, nil
	}

	if errors.Is(err, ErrAccountExists) {
		existing, lookupErr := r.accounts.PaymentAccount(userID, r.provider)
		if lookupErr != nil {
			return "", fmt.Errorf("failed to re-fetch payment account for user %s after duplicate: %w", userID, lookupErr)
		}
		if existing.CustomerID != customerID {
			slog.Warn("payment account race resolved to earlier customer id",
				"provider", r.provider, "user_id", userID)
		}
		return existing.CustomerID, nil
	}

	slog.Error("failed to persist payment account, mapping is re-resolvable",
		"provider", r.provider, "user_id", userID, "error", err)
	return customerID, nil
}
