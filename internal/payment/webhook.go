package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// webhookGuard runs the provider-independent stages of the ingestion
// pipeline: timestamp window, then replay check. Signature verification is
// vendor-specific and happens before this in every adapter. All three
// checks are required for every provider; vendors that send no dedicated
// id or timestamp header must have them derived from the signed payload.
type webhookGuard struct {
	provider string
	window   time.Duration
	replay   *replayGuard

	// now is swappable for tests.
	now func() time.Time
}

func newWebhookGuard(provider string, store ReplayStore, window time.Duration) *webhookGuard {
	if window <= 0 {
		window = DefaultTimestampWindow
	}
	return &webhookGuard{
		provider: provider,
		window:   window,
		replay:   newReplayGuard(provider, store, window),
		now:      time.Now,
	}
}

func (g *webhookGuard) validate(ctx context.Context, timestamp, webhookID string) error {
	err := checkTimestamp(g.provider, timestamp, g.now(), g.window)
	if err != nil {
		return err
	}
	return g.replay.Check(ctx, webhookID)
}

// decodeEventPayload parses a raw webhook body into a generic map after
// the signature has been verified over the untouched bytes. A body that
// does not parse is rejected the same way other malformed input is.
func decodeEventPayload(provider string, rawBody []byte) (map[string]any, error) {
	var payload map[string]any
	err := json.Unmarshal(rawBody, &payload)
	if err != nil {
		return nil, &ValidationError{
			Field:  "payload",
			Value:  provider,
			Reason: fmt.Sprintf("webhook body is not valid JSON: %v", err),
		}
	}
	return payload, nil
}
