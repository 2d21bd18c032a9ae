package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/launchkit/launchkit/internal/model"
	"github.com/launchkit/launchkit/internal/payment"
	"github.com/launchkit/launchkit/internal/repository"
)

// SubscriptionService persists subscription state. Webhook effects flow
// through ApplyProviderEvent; reads serve the billing endpoints.
type SubscriptionService struct {
	repo     repository.SubscriptionRepository
	accounts repository.PaymentAccountRepository
}

func NewSubscriptionService(repo repository.SubscriptionRepository, accounts repository.PaymentAccountRepository) *SubscriptionService {
	return &SubscriptionService{repo: repo, accounts: accounts}
}

func (s *SubscriptionService) Subscription(userID string) (*model.Subscription, error) {
	sub, err := s.repo.ByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	return sub, nil
}

func (s *SubscriptionService) ByProviderSubscriptionID(providerSubID string) (*model.Subscription, error) {
	sub, err := s.repo.ByProviderSubscriptionID(providerSubID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subscription by provider id: %w", err)
	}

	return sub, nil
}

// ApplyProviderEvent upserts the row a subscription webhook describes.
// The row is keyed by the vendor subscription id; a first-seen id becomes
// a new row for the user the vendor customer id maps to.
func (s *SubscriptionService) ApplyProviderEvent(provider string, info *model.SubscriptionInfo) (*model.Subscription, error) {
	if info == nil || info.ID == "" {
		return nil, fmt.Errorf("subscription event has no subscription id")
	}

	now := time.Now()
	sub, err := s.repo.ByProviderSubscriptionID(info.ID)
	switch {
	case err == nil:
		applyInfo(sub, info)
		sub.UpdatedAt = now
		if err := s.repo.Update(sub); err != nil {
			return nil, fmt.Errorf("failed to update subscription %s: %w", sub.ID, err)
		}
		return sub, nil

	case errors.Is(err, repository.ErrSubscriptionNotFound):
		userID, err := s.userForCustomer(provider, info.CustomerID)
		if err != nil {
			return nil, err
		}

		subID := info.ID
		customerID := info.CustomerID
		sub = &model.Subscription{
			ID:                     uuid.New().String(),
			UserID:                 userID,
			Provider:               provider,
			ProviderCustomerID:     &customerID,
			ProviderSubscriptionID: &subID,
			CreatedAt:              now,
			UpdatedAt:              now,
		}
		applyInfo(sub, info)
		if err := s.repo.Create(sub); err != nil {
			return nil, fmt.Errorf("failed to create subscription for user %s: %w", userID, err)
		}
		return sub, nil

	default:
		return nil, fmt.Errorf("failed to look up subscription %s: %w", info.ID, err)
	}
}

func (s *SubscriptionService) userForCustomer(provider, customerID string) (string, error) {
	if customerID == "" {
		return "", fmt.Errorf("subscription event has no customer id")
	}

	account, err := s.accounts.ByCustomerID(provider, customerID)
	if errors.Is(err, payment.ErrAccountNotFound) {
		return "", fmt.Errorf("no payment account for %s customer %s", provider, customerID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s customer %s: %w", provider, customerID, err)
	}

	return account.UserID, nil
}

func applyInfo(sub *model.Subscription, info *model.SubscriptionInfo) {
	sub.Status = info.Status
	sub.CancelAtPeriodEnd = info.CancelAtPeriodEnd
	if info.PriceID != "" {
		sub.PriceID = info.PriceID
	}
	if info.CurrentPeriodEnd > 0 {
		end := time.Unix(info.CurrentPeriodEnd, 0).UTC()
		sub.CurrentPeriodEnd = &end
	}
}
