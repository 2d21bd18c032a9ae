package payment

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"
)

func TestWebhookGuardValidate(t *testing.T) {
	guard := newWebhookGuard("polar", NewMemoryReplayStore(), 300*time.Second)
	now := time.Unix(1736937000, 0)
	guard.now = func() time.Time { return now }
	ctx := context.Background()

	fresh := strconv.FormatInt(now.Unix(), 10)

	if err := guard.validate(ctx, fresh, "wh_1"); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}

	// Stale timestamp fails before the replay check runs, so the id is
	// not recorded.
	stale := strconv.FormatInt(now.Add(-time.Hour).Unix(), 10)
	var secErr *SecurityError
	if err := guard.validate(ctx, stale, "wh_2"); !errors.As(err, &secErr) || secErr.Stage != "timestamp" {
		t.Errorf("stale event: got %v, want timestamp SecurityError", err)
	}
	if err := guard.validate(ctx, fresh, "wh_2"); err != nil {
		t.Errorf("id from a rejected event must still be usable: %v", err)
	}

	if err := guard.validate(ctx, fresh, "wh_1"); !errors.As(err, &secErr) || secErr.Stage != "replay" {
		t.Errorf("duplicate id: got %v, want replay SecurityError", err)
	}
}

func TestWebhookGuardDefaultsWindow(t *testing.T) {
	guard := newWebhookGuard("stripe", NewMemoryReplayStore(), 0)
	if guard.window != DefaultTimestampWindow {
		t.Errorf("window = %v, want default %v", guard.window, DefaultTimestampWindow)
	}
}

func TestDecodeEventPayload(t *testing.T) {
	payload, err := decodeEventPayload("stripe", []byte(`{"type":"x","data":{"id":"1"}}`))
	if err != nil || payload["type"] != "x" {
		t.Errorf("decode = (%v, %v)", payload, err)
	}

	_, err = decodeEventPayload("stripe", []byte(`not json`))
	var valErr *ValidationError
	if !errors.As(err, &valErr) {
		t.Errorf("invalid json must be a ValidationError, got %v", err)
	}
}
