package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// DefaultTimestampWindow is how far a webhook timestamp may drift from the
// server clock, in either direction, before the event is rejected.
const DefaultTimestampWindow = 300 * time.Second

// ComputeSignature returns the hex HMAC-SHA256 of the raw body under the
// webhook secret. The body must be the unparsed wire bytes: re-serializing
// JSON changes key order and whitespace and breaks the HMAC.
func ComputeSignature(secret string, rawBody []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}

// verifySignature checks a signature header against the raw body. The
// header may be a bare hex digest or a space-separated list of
// "v1,<hex>" entries; any matching entry passes. Comparison is
// constant-time.
func verifySignature(provider, secret string, rawBody []byte, header string) error {
	if secret == "" {
		return &ConfigurationError{Provider: provider, Reason: "webhook secret is not configured"}
	}
	if header == "" {
		return &SecurityError{Provider: provider, Stage: "signature", Reason: "missing signature header"}
	}

	expected := ComputeSignature(secret, rawBody)
	for _, candidate := range strings.Fields(header) {
		candidate = strings.TrimPrefix(candidate, "v1,")
		if hmac.Equal([]byte(candidate), []byte(expected)) {
			return nil
		}
	}

	return &SecurityError{Provider: provider, Stage: "signature", Reason: "signature mismatch"}
}

// checkTimestamp rejects events whose timestamp is outside the window in
// either direction. The timestamp may be unix seconds (possibly millis) or
// an RFC 3339 string.
func checkTimestamp(provider, timestamp string, now time.Time, window time.Duration) error {
	if timestamp == "" {
		return &SecurityError{Provider: provider, Stage: "timestamp", Reason: "missing timestamp"}
	}

	ts, ok := NormalizeTimestamp(timestamp)
	if !ok {
		return &SecurityError{Provider: provider, Stage: "timestamp", Reason: "unparseable timestamp"}
	}

	drift := now.Unix() - ts
	if drift < 0 {
		drift = -drift
	}
	if drift > int64(window/time.Second) {
		return &SecurityError{
			Provider: provider,
			Stage:    "timestamp",
			Reason:   "timestamp outside accepted window (" + strconv.FormatInt(drift, 10) + "s drift)",
		}
	}

	return nil
}
