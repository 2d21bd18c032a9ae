package service

import (
	"testing"
	"time"

	"github.com/launchkit/launchkit/internal/model"
	"github.com/launchkit/launchkit/internal/payment"
	"github.com/launchkit/launchkit/internal/repository"
)

type fakeSubscriptionRepo struct {
	byProviderID map[string]*model.Subscription
	created      []*model.Subscription
	updated      []*model.Subscription
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{byProviderID: make(map[string]*model.Subscription)}
}

func (r *fakeSubscriptionRepo) Create(sub *model.Subscription) error {
	r.created = append(r.created, sub)
	if sub.ProviderSubscriptionID != nil {
		r.byProviderID[*sub.ProviderSubscriptionID] = sub
	}
	return nil
}

func (r *fakeSubscriptionRepo) ByUserID(userID string) (*model.Subscription, error) {
	for _, sub := range r.byProviderID {
		if sub.UserID == userID {
			return sub, nil
		}
	}
	return nil, repository.ErrSubscriptionNotFound
}

func (r *fakeSubscriptionRepo) ByProviderSubscriptionID(id string) (*model.Subscription, error) {
	sub, ok := r.byProviderID[id]
	if !ok {
		return nil, repository.ErrSubscriptionNotFound
	}
	return sub, nil
}

func (r *fakeSubscriptionRepo) ByProviderCustomerID(id string) (*model.Subscription, error) {
	for _, sub := range r.byProviderID {
		if sub.ProviderCustomerID != nil && *sub.ProviderCustomerID == id {
			return sub, nil
		}
	}
	return nil, repository.ErrSubscriptionNotFound
}

func (r *fakeSubscriptionRepo) Update(sub *model.Subscription) error {
	r.updated = append(r.updated, sub)
	return nil
}

type fakeAccountRepo struct {
	byCustomer map[string]*model.PaymentAccount // provider:customerID → account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{byCustomer: make(map[string]*model.PaymentAccount)}
}

func (r *fakeAccountRepo) PaymentAccount(userID, provider string) (*model.PaymentAccount, error) {
	for _, a := range r.byCustomer {
		if a.UserID == userID && a.ProviderID == provider {
			return a, nil
		}
	}
	return nil, payment.ErrAccountNotFound
}

func (r *fakeAccountRepo) SetupPaymentAccount(account *model.PaymentAccount) (*model.PaymentAccount, error) {
	r.byCustomer[account.ProviderID+":"+account.CustomerID] = account
	return account, nil
}

func (r *fakeAccountRepo) ByCustomerID(provider, customerID string) (*model.PaymentAccount, error) {
	a, ok := r.byCustomer[provider+":"+customerID]
	if !ok {
		return nil, payment.ErrAccountNotFound
	}
	return a, nil
}

func TestApplyProviderEventCreatesRow(t *testing.T) {
	subs := newFakeSubscriptionRepo()
	accounts := newFakeAccountRepo()
	accounts.byCustomer["stripe:cus_1"] = &model.PaymentAccount{UserID: "user_1", ProviderID: "stripe", CustomerID: "cus_1"}
	svc := NewSubscriptionService(subs, accounts)

	sub, err := svc.ApplyProviderEvent("stripe", &model.SubscriptionInfo{
		ID:               "sub_1",
		CustomerID:       "cus_1",
		Status:           model.StatusActive,
		PriceID:          "price_1",
		CurrentPeriodEnd: 1736937000,
	})
	if err != nil {
		t.Fatalf("ApplyProviderEvent: %v", err)
	}

	if sub.UserID != "user_1" {
		t.Errorf("user resolved via account mapping, got %q", sub.UserID)
	}
	if sub.Status != model.StatusActive || sub.PriceID != "price_1" {
		t.Errorf("row = %+v", sub)
	}
	if sub.CurrentPeriodEnd == nil || sub.CurrentPeriodEnd.Unix() != 1736937000 {
		t.Errorf("period end = %v", sub.CurrentPeriodEnd)
	}
	if len(subs.created) != 1 || len(subs.updated) != 0 {
		t.Errorf("created %d, updated %d, want 1 and 0", len(subs.created), len(subs.updated))
	}
}

func TestApplyProviderEventUpdatesExistingRow(t *testing.T) {
	subs := newFakeSubscriptionRepo()
	subID := "sub_1"
	existing := &model.Subscription{
		ID:                     "local_1",
		UserID:                 "user_1",
		Provider:               "stripe",
		ProviderSubscriptionID: &subID,
		Status:                 model.StatusActive,
		PriceID:                "price_1",
		CreatedAt:              time.Now().Add(-time.Hour),
	}
	subs.byProviderID[subID] = existing
	svc := NewSubscriptionService(subs, newFakeAccountRepo())

	sub, err := svc.ApplyProviderEvent("stripe", &model.SubscriptionInfo{
		ID:                subID,
		CustomerID:        "cus_1",
		Status:            model.StatusPastDue,
		CancelAtPeriodEnd: true,
	})
	if err != nil {
		t.Fatalf("ApplyProviderEvent: %v", err)
	}

	if sub.ID != "local_1" {
		t.Errorf("existing row must keep its id, got %q", sub.ID)
	}
	if sub.Status != model.StatusPastDue || !sub.CancelAtPeriodEnd {
		t.Errorf("row = %+v", sub)
	}
	if sub.PriceID != "price_1" {
		t.Errorf("empty event price must not clear the stored one, got %q", sub.PriceID)
	}
	if len(subs.updated) != 1 || len(subs.created) != 0 {
		t.Errorf("created %d, updated %d, want 0 and 1", len(subs.created), len(subs.updated))
	}
}

func TestApplyProviderEventUnknownCustomer(t *testing.T) {
	svc := NewSubscriptionService(newFakeSubscriptionRepo(), newFakeAccountRepo())

	_, err := svc.ApplyProviderEvent("stripe", &model.SubscriptionInfo{
		ID:         "sub_ghost",
		CustomerID: "cus_unknown",
		Status:     model.StatusActive,
	})
	if err == nil {
		t.Fatal("unmapped customer must error, the row has no user to attach to")
	}
}

func TestApplyProviderEventMissingID(t *testing.T) {
	svc := NewSubscriptionService(newFakeSubscriptionRepo(), newFakeAccountRepo())

	if _, err := svc.ApplyProviderEvent("stripe", &model.SubscriptionInfo{}); err == nil {
		t.Error("event without a subscription id must error")
	}
	if _, err := svc.ApplyProviderEvent("stripe", nil); err == nil {
		t.Error("nil info must error")
	}
}
