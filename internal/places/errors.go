package places

import (
	"errors"
	"fmt"
)

// ErrNotFound is a well-formed "no results" answer from a provider. It is not a failure.
var ErrNotFound = errors.New("no matching place")

// ProviderError reports an upstream failure: transport error, non-2xx status,
// an error status in the payload, a malformed body, or an open circuit breaker.
type ProviderError struct {
	Provider   Provider
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

func providerErr(p Provider, status int, format string, args ...any) *ProviderError {
	return &ProviderError{Provider: p, StatusCode: status, Err: fmt.Errorf(format, args...)}
}
