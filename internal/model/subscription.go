package model

import "time"

// Subscription is the persisted subscription row. It is the durable
// counterpart of SubscriptionInfo: webhook effects land here.
type Subscription struct {
	ID                     string     `db:"id"`
	UserID                 string     `db:"user_id"`
	Provider               string     `db:"provider"`
	ProviderCustomerID     *string    `db:"provider_customer_id"`
	ProviderSubscriptionID *string    `db:"provider_subscription_id"`
	Status                 string     `db:"status"`
	PriceID                string     `db:"price_id"`
	CurrentPeriodEnd       *time.Time `db:"current_period_end"`
	CancelAtPeriodEnd      bool       `db:"cancel_at_period_end"`
	CreatedAt              time.Time  `db:"created_at"`
	UpdatedAt              time.Time  `db:"updated_at"`
}

func (s *Subscription) IsActive() bool {
	return s.Status == StatusActive || s.Status == StatusTrialing
}
