package provider

import "errors"

// Sentinel errors for provider operations.
var (
	// ErrRateLimit indicates the provider returned a rate limit response.
	ErrRateLimit = errors.New("provider rate limited")

	// ErrContextLength indicates the request exceeded the model's context window.
	ErrContextLength = errors.New("context length exceeded")

	// ErrProviderDown indicates the provider is temporarily unavailable.
	ErrProviderDown = errors.New("provider unavailable")

	// ErrAuthentication indicates the provider rejected the API credentials.
	ErrAuthentication = errors.New("provider authentication failed")
)

// IsProviderError reports whether the error belongs to the provider failure
// taxonomy (network, quota, or auth). The exchange engine substitutes the
// fallback turn content for any of these rather than surfacing a crash.
func IsProviderError(err error) bool {
	return errors.Is(err, ErrRateLimit) ||
		errors.Is(err, ErrContextLength) ||
		errors.Is(err, ErrProviderDown) ||
		errors.Is(err, ErrAuthentication)
}
