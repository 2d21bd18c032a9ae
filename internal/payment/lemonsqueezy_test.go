package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/launchkit/launchkit/internal/config"
	"github.com/launchkit/launchkit/internal/model"
)

func lemonSqueezyForTest(t *testing.T) *LemonSqueezyProvider {
	t.Helper()
	cfg := &config.Config{
		LemonSqueezyAPIKey:        "lsq_test_key",
		LemonSqueezyWebhookSecret: "lsq_whsec",
		LemonSqueezyStoreID:       "12345",
		WebhookTimestampWindow:    300 * time.Second,
	}

	p, err := NewLemonSqueezyProvider(cfg, newFakeAccountStore(), NewMemoryReplayStore())
	if err != nil {
		t.Fatalf("NewLemonSqueezyProvider: %v", err)
	}
	return p
}

func lemonSqueezyEvent(eventName string) []byte {
	return []byte(fmt.Sprintf(`{
		"meta": {"event_name": %q},
		"data": {
			"type": "subscriptions",
			"id": "42",
			"attributes": {
				"customer_id": 99,
				"variant_id": 7,
				"status": "active",
				"renews_at": "2025-01-15T10:30:00Z",
				"cancelled": false
			}
		}
	}`, eventName))
}

func TestLemonSqueezyHandleWebhook(t *testing.T) {
	p := lemonSqueezyForTest(t)
	body := lemonSqueezyEvent("subscription_updated")

	result, err := p.HandleWebhook(context.Background(), WebhookRequest{
		RawBody:   body,
		Signature: ComputeSignature("lsq_whsec", body),
		Timestamp: strconv.FormatInt(time.Now().Unix(), 10),
		WebhookID: "wh_1",
	})
	if err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}

	if !result.Received || result.Type != model.EventSubscriptionUpdated {
		t.Errorf("result = %+v, want received subscription_updated", result)
	}
	if result.Subscription == nil {
		t.Fatal("subscription events must carry mapped subscription info")
	}
	if result.Subscription.ID != "42" || result.Subscription.CustomerID != "99" {
		t.Errorf("numeric ids not coerced: %+v", result.Subscription)
	}
	if result.Subscription.Status != model.StatusActive {
		t.Errorf("status = %q, want active", result.Subscription.Status)
	}
	if result.Subscription.CurrentPeriodEnd != 1736937000 {
		t.Errorf("renews_at not normalized: %d", result.Subscription.CurrentPeriodEnd)
	}
}

func TestLemonSqueezyHandleWebhookRejectsBadSignature(t *testing.T) {
	p := lemonSqueezyForTest(t)
	body := lemonSqueezyEvent("subscription_updated")

	_, err := p.HandleWebhook(context.Background(), WebhookRequest{
		RawBody:   body,
		Signature: ComputeSignature("wrong_secret", body),
		Timestamp: strconv.FormatInt(time.Now().Unix(), 10),
		WebhookID: "wh_1",
	})

	var secErr *SecurityError
	if !errors.As(err, &secErr) || secErr.Stage != "signature" {
		t.Errorf("got %v, want signature SecurityError", err)
	}
}

func TestLemonSqueezyHandleWebhookRejectsReplay(t *testing.T) {
	p := lemonSqueezyForTest(t)
	body := lemonSqueezyEvent("order_created")
	req := WebhookRequest{
		RawBody:   body,
		Signature: ComputeSignature("lsq_whsec", body),
		Timestamp: strconv.FormatInt(time.Now().Unix(), 10),
		WebhookID: "wh_dup",
	}

	if _, err := p.HandleWebhook(context.Background(), req); err != nil {
		t.Fatalf("first delivery: %v", err)
	}

	_, err := p.HandleWebhook(context.Background(), req)
	var secErr *SecurityError
	if !errors.As(err, &secErr) || secErr.Stage != "replay" {
		t.Errorf("second delivery: got %v, want replay SecurityError", err)
	}
}

func TestLemonSqueezyHandleWebhookRejectsStaleTimestamp(t *testing.T) {
	p := lemonSqueezyForTest(t)
	body := lemonSqueezyEvent("order_created")

	_, err := p.HandleWebhook(context.Background(), WebhookRequest{
		RawBody:   body,
		Signature: ComputeSignature("lsq_whsec", body),
		Timestamp: strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10),
		WebhookID: "wh_old",
	})

	var secErr *SecurityError
	if !errors.As(err, &secErr) || secErr.Stage != "timestamp" {
		t.Errorf("got %v, want timestamp SecurityError", err)
	}
}

func TestLemonSqueezyHandleWebhookUnknownTypePassesThrough(t *testing.T) {
	p := lemonSqueezyForTest(t)
	body := []byte(`{"meta":{"event_name":"license_key_created"},"data":{"type":"license-keys","id":"5","attributes":{}}}`)

	result, err := p.HandleWebhook(context.Background(), WebhookRequest{
		RawBody:   body,
		Signature: ComputeSignature("lsq_whsec", body),
		Timestamp: strconv.FormatInt(time.Now().Unix(), 10),
		WebhookID: "wh_lk",
	})
	if err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}
	if result.Type != "license_key_created" {
		t.Errorf("unknown type mangled: %q", result.Type)
	}
	if result.Subscription != nil {
		t.Error("non-subscription event must not carry subscription info")
	}
}

func TestLemonSqueezyUnsupportedOperations(t *testing.T) {
	p := lemonSqueezyForTest(t)
	ctx := context.Background()

	if _, err := p.CreateSetupIntent(ctx, "99"); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("CreateSetupIntent: %v", err)
	}
	if _, err := p.ConfirmPayment(ctx, "42"); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("ConfirmPayment: %v", err)
	}
	if _, err := p.CreateSubscription(ctx, CreateSubscriptionParams{}); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("CreateSubscription: %v", err)
	}
	if err := p.RefundPayment(ctx, "42", 100); !errors.Is(err, ErrUnsupportedOperation) {
		t.Errorf("RefundPayment: %v", err)
	}
}
