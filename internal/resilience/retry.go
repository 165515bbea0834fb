package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// RetryConfig controls Do. The zero value disables retries entirely.
type RetryConfig struct {
	// Attempts is the total number of tries, including the first.
	Attempts int
	// BaseDelay is the wait before the first retry; it doubles per attempt.
	BaseDelay time.Duration
	// MaxDelay caps the doubling.
	MaxDelay time.Duration
	// Jitter widens each delay by a random fraction of itself (0.25 = up to
	// +25%) so concurrent callers do not retry in lockstep.
	Jitter float64
	// ShouldRetry decides whether a failure is worth retrying. Nil means
	// IsTransient.
	ShouldRetry func(error) bool
}

// DefaultRetryConfig suits interactive model API calls: short waits, few
// attempts.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:  3,
		BaseDelay: 500 * time.Millisecond,
		MaxDelay:  8 * time.Second,
		Jitter:    0.25,
	}
}

// Do runs fn, retrying per cfg. The last error is returned when every
// attempt fails. Context cancellation stops retries immediately.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	shouldRetry := cfg.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsTransient
	}
	if cfg.Attempts < 1 {
		cfg.Attempts = 1
	}

	delay := cfg.BaseDelay
	var err error
	for attempt := 1; ; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || attempt >= cfg.Attempts || !shouldRetry(err) {
			return err
		}

		wait := delay
		if cfg.Jitter > 0 {
			wait += time.Duration(rand.Float64() * cfg.Jitter * float64(delay))
		}
		zap.L().Debug("resilience: retrying after transient failure",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err),
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}

		delay *= 2
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}
}
