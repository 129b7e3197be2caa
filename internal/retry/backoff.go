package retry

import "time"

// MaxDelay caps every backoff delay so redelivered turn events are not parked
// for long.
const MaxDelay = time.Minute

// ExponentialBackoff returns base * 2^attempt, capped at MaxDelay.
// Negative attempts count as the first one.
func ExponentialBackoff(attempt int, base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}
	if attempt >= 32 || base > MaxDelay>>uint(attempt) {
		return MaxDelay
	}
	return base << uint(attempt)
}
