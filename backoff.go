package rdapclient

import (
	"errors"
	"time"

	retry "github.com/avast/retry-go/v5"
)

// Backoff returns a sleep duration for attempt (1-based).
type Backoff func(attempt int) time.Duration

func ExponentialBackoff(start time.Duration, factor float64, max time.Duration) Backoff {
	if start <= 0 {
		start = 100 * time.Millisecond
	}
	if factor < 1.1 {
		factor = 1.5
	}
	if max <= 0 {
		max = 2 * time.Second
	}
	return func(attempt int) time.Duration {
		d := float64(start)
		for i := 1; i < attempt; i++ {
			d *= factor
		}
		if d > float64(max) {
			d = float64(max)
		}
		return time.Duration(d)
	}
}

// delayType adapts b to retry-go. A short Retry-After sent with a 429 or
// 5xx takes precedence over the computed backoff.
func delayType(b Backoff) retry.DelayTypeFunc {
	return func(n uint, err error, _ retry.DelayContext) time.Duration {
		fallback := b(int(n))
		var te *TransportError
		if errors.As(err, &te) && te.header != nil {
			return retryAfter(te.header, fallback)
		}
		return fallback
	}
}
