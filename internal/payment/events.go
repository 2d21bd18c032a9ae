package payment

import "github.com/launchkit/launchkit/internal/model"

// Vendor event names → canonical event types. Unrecognized vendor types
// pass through unchanged so new vendor events never break ingestion.
var eventTables = map[string]map[string]string{
	model.ProviderStripe: {
		"checkout.session.completed":    model.EventCheckoutCompleted,
		"checkout.succeeded":            model.EventPaymentSucceeded,
		"payment_intent.succeeded":      model.EventPaymentSucceeded,
		"payment_intent.payment_failed": model.EventPaymentFailed,
		"invoice.payment_succeeded":     model.EventPaymentSucceeded,
		"invoice.payment_failed":        model.EventPaymentFailed,
		"customer.subscription.created": model.EventSubscriptionCreated,
		"customer.subscription.updated": model.EventSubscriptionUpdated,
		"customer.subscription.deleted": model.EventSubscriptionCancelled,
		"customer.subscription.resumed": model.EventSubscriptionResumed,
		"charge.refunded":               model.EventRefundSucceeded,
	},
	model.ProviderPolar: {
		"checkout.created":        model.EventCheckoutCompleted,
		"checkout.succeeded":      model.EventPaymentSucceeded,
		"order.created":           model.EventPaymentSucceeded,
		"order.refunded":          model.EventRefundSucceeded,
		"subscription.created":    model.EventSubscriptionCreated,
		"subscription.updated":    model.EventSubscriptionUpdated,
		"subscription.active":     model.EventSubscriptionUpdated,
		"subscription.canceled":   model.EventSubscriptionCancelled,
		"subscription.uncanceled": model.EventSubscriptionResumed,
		"subscription.revoked":    model.EventSubscriptionCancelled,
		"subscription.past_due":   model.EventSubscriptionUpdated,
	},
	model.ProviderLemonSqueezy: {
		"order_created":                model.EventPaymentSucceeded,
		"order_refunded":               model.EventRefundSucceeded,
		"subscription_created":         model.EventSubscriptionCreated,
		"subscription_updated":         model.EventSubscriptionUpdated,
		"subscription_cancelled":       model.EventSubscriptionCancelled,
		"subscription_resumed":         model.EventSubscriptionResumed,
		"subscription_expired":         model.EventSubscriptionCancelled,
		"subscription_paused":          model.EventSubscriptionUpdated,
		"subscription_unpaused":        model.EventSubscriptionResumed,
		"subscription_payment_success": model.EventPaymentSucceeded,
		"subscription_payment_failed":  model.EventPaymentFailed,
	},
	model.ProviderSolidgate: {
		"order.processed": model.EventPaymentSucceeded,
		"order.declined":  model.EventPaymentFailed,
		"order.refunded":  model.EventRefundSucceeded,
	},
}

// MapEventType converts a vendor event name to the canonical type, passing
// unknown names through unchanged.
func MapEventType(provider, vendorType string) string {
	table := eventTables[provider]
	if table == nil {
		return vendorType
	}
	mapped, ok := table[vendorType]
	if !ok {
		return vendorType
	}
	return mapped
}

// IsSubscriptionEvent reports whether a canonical event type describes a
// subscription lifecycle change.
func IsSubscriptionEvent(eventType string) bool {
	switch eventType {
	case model.EventSubscriptionCreated,
		model.EventSubscriptionUpdated,
		model.EventSubscriptionCancelled,
		model.EventSubscriptionResumed:
		return true
	}
	return false
}
