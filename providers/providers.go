package providers

import (
	"fmt"
	"net/http"

	"github.com/deepnoodle-ai/wonton/retry"
)

// ProviderError is a failed provider API call with its HTTP status.
type ProviderError struct {
	statusCode int
	body       string
	err        error
}

func (e *ProviderError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("provider api error (status %d): %v", e.statusCode, e.err)
	}
	return fmt.Sprintf("provider api error (status %d): %s", e.statusCode, e.body)
}

func (e *ProviderError) Unwrap() error {
	return e.err
}

func (e *ProviderError) StatusCode() int {
	return e.statusCode
}

// NewError creates a new ProviderError. Non-retryable status codes are wrapped
// with retry.MarkPermanent.
func NewError(statusCode int, body string) error {
	return classify(&ProviderError{statusCode: statusCode, body: body})
}

// WrapError is NewError for an error already returned by a provider SDK.
func WrapError(statusCode int, err error) error {
	return classify(&ProviderError{statusCode: statusCode, err: err})
}

// Retryable reports whether the call may succeed if repeated.
func (e *ProviderError) Retryable() bool {
	return ShouldRetry(e.statusCode)
}

func classify(err *ProviderError) error {
	if err.Retryable() {
		return err
	}
	return retry.MarkPermanent(err)
}

// ShouldRetry reports whether a response status is transient: rate limits,
// timeouts and server-side failures, including Cloudflare's 520.
func ShouldRetry(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusRequestTimeout,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		520:
		return true
	}
	return false
}
