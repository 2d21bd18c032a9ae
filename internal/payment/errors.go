package payment

import (
	"errors"
	"fmt"
)

// ErrNotImplemented is returned by providers whose integration is stubbed
// out. The interface is fully present so callers never special-case the
// provider; they just get this error.
var ErrNotImplemented = errors.New("not implemented yet")

// ErrUnsupportedOperation is returned when a vendor has no equivalent of
// the requested operation (e.g. setup intents on checkout-only vendors).
var ErrUnsupportedOperation = errors.New("operation not supported by provider")

// Account store sentinels. The store itself lives in the repository layer;
// the contract (including these errors) is defined here so adapters depend
// only on the interface.
var (
	ErrAccountNotFound = errors.New("payment account not found")
	ErrAccountExists   = errors.New("payment account already exists")
)

// ConfigurationError means the provider cannot be constructed: missing
// keys or an unknown provider name. Fatal at construction, never mid-flow.
type ConfigurationError struct {
	Provider string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("payment configuration error (%s): %s", e.Provider, e.Reason)
}

// ValidationError means caller-supplied input was rejected before any
// network call was made.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// ProviderAPIError is a vendor 4xx: fatal for the operation, no fallback.
// Message carries the decoded vendor error body when available.
type ProviderAPIError struct {
	Provider   string
	StatusCode int
	Code       string
	Message    string
}

func (e *ProviderAPIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s API error (%d %s): %s", e.Provider, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%s API error (%d): %s", e.Provider, e.StatusCode, e.Message)
}

// TransientError is a 5xx, timeout, or network failure. Recoverable: the
// caller may retry or fall back to an alternate path. Timeout is tracked
// separately so callers can distinguish a deadline from a refused
// connection.
type TransientError struct {
	Provider string
	Timeout  bool
	Err      error
}

func (e *TransientError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("%s request timed out: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s transient error: %v", e.Provider, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// SecurityError is a failed webhook defense: signature mismatch, replayed
// id, or timestamp outside the accepted window. Always fatal. The reason
// never contains secrets.
type SecurityError struct {
	Provider string
	Stage    string // "signature", "timestamp", "replay"
	Reason   string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("%s webhook rejected at %s check: %s", e.Provider, e.Stage, e.Reason)
}

// IsTransient reports whether err may be retried or routed to a fallback
// path.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsTimeout reports whether err was caused by a request deadline.
func IsTimeout(err error) bool {
	var te *TransientError
	return errors.As(err, &te) && te.Timeout
}
