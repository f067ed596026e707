// Package ingesterr defines the typed error kinds from spec.md §7, so
// callers can branch on failure class with errors.As instead of string
// matching. Each kind carries enough context (shop, order, step) to make a
// structured log line self-sufficient.
package ingesterr

import "fmt"

// TransportError wraps a network-level failure (timeout, reset, DNS).
// Retried in-step with exponential backoff; the caller decides when the
// retry budget is exhausted.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// ApiError surfaces a non-empty `error` field from the marketplace envelope.
// Retriable unless Fatal is set (authentication-class errors).
type ApiError struct {
	Code    string
	Message string
	Fatal   bool
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("shopee api error %q: %s", e.Code, e.Message)
}

// TokenError means refresh failed or no refresh token was available. Fatal
// for the current shop cycle.
type TokenError struct {
	ShopID int64
	Err    error
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("token error for shop %d: %v", e.ShopID, e.Err)
}
func (e *TokenError) Unwrap() error { return e.Err }

// DataError means a required field was missing from a response. The
// orchestrator warns and skips the specific order, continuing the batch.
type DataError struct {
	Field string
	Ctx   string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("missing required field %q (%s)", e.Field, e.Ctx)
}

// StorageError wraps a transactional write failure. The order's transaction
// is rolled back and stats.failed is incremented.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// ConfigError means a required configuration value (company id, partner
// key, ...) is missing. Fails fast at the start of a shop cycle.
type ConfigError struct {
	Field string
}

func (e *ConfigError) Error() string { return fmt.Sprintf("missing required configuration: %s", e.Field) }
