package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/quotaview/crm-ingress/pkg/hubspot"
)

// rateLimitBackoff returns the escalating wait schedule used after 429
// responses: 20s, 40s, then capped at 60s. Jitter is disabled so waits are
// predictable against the API's fixed rate window.
func rateLimitBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Second
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = 60 * time.Second
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// transientBackoff returns the shorter schedule used for connection-level
// failures: 1s doubling per attempt.
func transientBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 1 * time.Second
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// withRetry runs op up to maxAttempts times. Rate-limit errors wait on the
// escalating schedule, transient errors wait on the supplied policy, and
// permission errors abort immediately since retrying an authorization
// failure cannot succeed. The last error is returned when attempts are
// exhausted.
func withRetry(ctx context.Context, logger *zap.Logger, maxAttempts int, transient backoff.BackOff, what string, op func() error) error {
	rateDelay := rateLimitBackoff()
	transient.Reset()

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = op()
		if err == nil {
			return nil
		}

		if hubspot.IsPermission(err) {
			logger.Error("permission error, check API token scopes",
				zap.String("operation", what),
				zap.Error(err))
			return err
		}

		if attempt == maxAttempts {
			break
		}

		var wait time.Duration
		if hubspot.IsRateLimit(err) {
			wait = rateDelay.NextBackOff()
			logger.Warn("rate limited, backing off",
				zap.String("operation", what),
				zap.Duration("wait", wait),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", maxAttempts))
		} else {
			wait = transient.NextBackOff()
			logger.Warn("transient error, retrying",
				zap.String("operation", what),
				zap.Duration("wait", wait),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", maxAttempts),
				zap.Error(err))
		}

		if sleepErr := sleepCtx(ctx, wait); sleepErr != nil {
			return sleepErr
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", what, maxAttempts, err)
}

// sleepCtx waits for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
