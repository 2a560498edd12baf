package gateway

import (
	"fmt"
	"time"
)

// rateLimitError carries the advisory retry delay for the 429 response.
type rateLimitError struct{ retryAfter time.Duration }

func (e rateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry in %s", e.retryAfter)
}

// IsRateLimited reports whether err is a quota rejection.
func IsRateLimited(err error) bool {
	_, ok := err.(rateLimitError)
	return ok
}

// RetryAfter extracts the advisory delay from a rate-limit error, rounded
// up to whole seconds for the Retry-After header.
func RetryAfter(err error) time.Duration {
	e, ok := err.(rateLimitError)
	if !ok {
		return 0
	}
	if e.retryAfter <= 0 {
		return time.Second
	}
	// Ceiling, so clients never retry a moment too early.
	d := e.retryAfter.Truncate(time.Second)
	if d < e.retryAfter {
		d += time.Second
	}
	return d
}
