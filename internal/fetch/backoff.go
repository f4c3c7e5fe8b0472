package fetch

import (
	"context"
	"math"
	"math/rand"
	"time"
)

const backoffFactor = 2.0

// Delay multipliers and jitter ceilings per failure class, in seconds.
const (
	delayRateLimited = 5
	delayGateway     = 3
	delayServer      = 2
	delayTimeout     = 3
	delayNetwork     = 2

	jitterRateLimited = 2.0
	jitterTimeout     = 1.5
	jitterNetwork     = 1.0
)

// retryDelay computes the wait before retry number attempt (0-based):
// backoff^attempt * multiplier, plus up to jitterMax seconds of jitter.
func retryDelay(attempt, multiplier int, jitterMax float64) time.Duration {
	seconds := math.Pow(backoffFactor, float64(attempt))*float64(multiplier) + rand.Float64()*jitterMax

	return time.Duration(seconds * float64(time.Second))
}

// sleep waits for d or until ctx is cancelled, reporting which.
func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
