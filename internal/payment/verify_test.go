package payment

import (
	"errors"
	"strconv"
	"testing"
	"time"
)

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"type":"payment_succeeded","id":"evt_1"}`)
	valid := ComputeSignature(secret, body)

	tests := []struct {
		name    string
		header  string
		wantErr bool
	}{
		{"bare hex digest", valid, false},
		{"v1 prefixed", "v1," + valid, false},
		{"multiple entries one valid", "v1,deadbeef v1," + valid, false},
		{"missing header", "", true},
		{"wrong digest", "v1,deadbeef", true},
		{"single byte mutated", valid[:len(valid)-1] + "0", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verifySignature("stripe", secret, body, tt.header)
			if (err != nil) != tt.wantErr {
				t.Errorf("verifySignature() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && err != nil {
				var secErr *SecurityError
				if !errors.As(err, &secErr) {
					t.Errorf("expected SecurityError, got %T", err)
				}
			}
		})
	}
}

func TestVerifySignatureBodyMutation(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"amount":100}`)
	sig := ComputeSignature(secret, body)

	if err := verifySignature("polar", secret, []byte(`{"amount":999}`), sig); err == nil {
		t.Error("signature over a different body must not verify")
	}
}

func TestVerifySignatureMissingSecret(t *testing.T) {
	err := verifySignature("polar", "", []byte("{}"), "deadbeef")
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigurationError, got %v", err)
	}
}

func TestCheckTimestamp(t *testing.T) {
	now := time.Unix(1736937000, 0)
	window := 300 * time.Second

	tests := []struct {
		name      string
		timestamp string
		wantErr   bool
	}{
		{"current", strconv.FormatInt(now.Unix(), 10), false},
		{"edge of window", strconv.FormatInt(now.Unix()-300, 10), false},
		{"too old", strconv.FormatInt(now.Unix()-301, 10), true},
		{"future beyond window", strconv.FormatInt(now.Unix()+301, 10), true},
		{"slightly future", strconv.FormatInt(now.Unix()+60, 10), false},
		{"rfc3339", now.UTC().Format(time.RFC3339), false},
		{"millis", strconv.FormatInt(now.UnixMilli(), 10), false},
		{"missing", "", true},
		{"garbage", "yesterday", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkTimestamp("polar", tt.timestamp, now, window)
			if (err != nil) != tt.wantErr {
				t.Errorf("checkTimestamp(%q) error = %v, wantErr %v", tt.timestamp, err, tt.wantErr)
			}
		})
	}
}
