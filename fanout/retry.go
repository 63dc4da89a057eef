package fanout

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/fwojciec/sweep"
)

// RetryPolicy configures the retry combinator wrapped around adapter calls.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration

	// AntiBotMultiplier stretches the backoff when the error looks like a
	// bot wall rather than ordinary congestion.
	AntiBotMultiplier float64
}

// DefaultRetryPolicy returns the standard policy: three retries with
// exponential backoff from one second, tripled on anti-bot signatures.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        3,
		BaseDelay:         time.Second,
		MaxDelay:          30 * time.Second,
		AntiBotMultiplier: 3,
	}
}

// Retry runs fn until it succeeds, returns a non-retryable error, exhausts
// the retry budget, or the context is canceled. Backoff doubles per attempt
// with ±50% jitter; rate-limit and anti-bot errors multiply the wait.
func Retry(ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return sweep.WrapError(sweep.ECANCELED, ctx.Err(), "canceled during retry")
		}
		if !sweep.Retryable(lastErr) {
			return lastErr
		}
		if attempt == policy.MaxRetries {
			break
		}

		delay := policy.BaseDelay << uint(attempt)
		if AntiBot(lastErr) || sweep.ErrorCode(lastErr) == sweep.ERATELIMITED {
			m := policy.AntiBotMultiplier
			if m <= 0 {
				m = 3
			}
			delay = time.Duration(float64(delay) * m)
		}
		delay = jitter(delay)
		if policy.MaxDelay > 0 && delay > policy.MaxDelay {
			delay = policy.MaxDelay
		}

		select {
		case <-ctx.Done():
			return sweep.WrapError(sweep.ECANCELED, ctx.Err(), "canceled during backoff")
		case <-time.After(delay):
		}
	}
	return lastErr
}

// AntiBot reports whether an error carries a bot-detection signature.
func AntiBot(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "captcha") || strings.Contains(msg, "blocked")
}

// jitter returns d scaled by a random factor in [0.5, 1.5).
func jitter(d time.Duration) time.Duration {
	return time.Duration(float64(d) * (0.5 + rand.Float64()))
}
