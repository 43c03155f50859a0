package pos

import (
    "errors"
    "fmt"
)

// AuthError means the credentials or session were rejected. Never retried.
type AuthError struct {
    Provider string
    Msg      string
}

func (e *AuthError) Error() string { return fmt.Sprintf("%s auth: %s", e.Provider, e.Msg) }

// APIError is any non-auth HTTP or transport failure.
type APIError struct {
    Provider   string
    Msg        string
    StatusCode int
    Body       string
    Err        error
}

func (e *APIError) Error() string {
    if e.StatusCode > 0 {
        return fmt.Sprintf("%s api: %s (status %d)", e.Provider, e.Msg, e.StatusCode)
    }
    return fmt.Sprintf("%s api: %s", e.Provider, e.Msg)
}

func (e *APIError) Unwrap() error { return e.Err }

// RateLimitError is an APIError for HTTP 429 carrying the provider's
// Retry-After in seconds (60 when the header is absent).
type RateLimitError struct {
    APIError
    RetryAfter int
}

func (e *RateLimitError) Error() string {
    return fmt.Sprintf("%s rate limited, retry after %ds", e.Provider, e.RetryAfter)
}

// WebhookError means a bad signature or an unparsable payload.
type WebhookError struct {
    Provider string
    Msg      string
    Err      error
}

func (e *WebhookError) Error() string { return fmt.Sprintf("%s webhook: %s", e.Provider, e.Msg) }
func (e *WebhookError) Unwrap() error { return e.Err }

// OrderError means the POS rejected the order itself (e.g. 86'd item).
type OrderError struct {
    Provider string
    Msg      string
}

func (e *OrderError) Error() string { return fmt.Sprintf("%s order: %s", e.Provider, e.Msg) }

// IsAuth reports whether err is (or wraps) an AuthError.
func IsAuth(err error) bool {
    var ae *AuthError
    return errors.As(err, &ae)
}

// IsRateLimit unwraps a RateLimitError when present.
func IsRateLimit(err error) (*RateLimitError, bool) {
    var re *RateLimitError
    if errors.As(err, &re) {
        return re, true
    }
    return nil, false
}
