package llm

import "errors"

// Sentinel errors returned by providers. Callers branch on these with
// errors.Is; the client retries only the transient ones.
var (
	// ErrRateLimited maps HTTP 429. Transient: back off and retry.
	ErrRateLimited = errors.New("llm: rate limited")

	// ErrProviderUnavailable maps HTTP 5xx and transport failures.
	// Transient: back off and retry.
	ErrProviderUnavailable = errors.New("llm: provider unavailable")

	// ErrInvalidRequest maps HTTP 400/422. Permanent: retrying the same
	// payload cannot succeed.
	ErrInvalidRequest = errors.New("llm: invalid request")

	// ErrMissingCredentials maps HTTP 401/403. Permanent: a config problem,
	// not a transient fault.
	ErrMissingCredentials = errors.New("llm: missing or rejected credentials")

	// ErrMalformedResponse means the provider returned 2xx but the body
	// could not be decoded. Permanent for this attempt; callers may fall
	// back to a degraded path.
	ErrMalformedResponse = errors.New("llm: malformed provider response")
)

// IsTransient reports whether err is worth retrying with backoff.
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrProviderUnavailable)
}
