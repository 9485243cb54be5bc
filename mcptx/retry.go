package mcptx

import (
	"math"
	"math/rand"
	"strings"
	"time"
)

// shouldRetry decides whether a failed attempt is eligible for another
// attempt. Errors from this package's own taxonomy (*Error) honor
// their Retryable bit; any other error falls back to a string-token
// scan of its uppercased message against the policy's configured
// retryable-error tokens.
func shouldRetry(err error, policy RetryPolicy) bool {
	if mErr, ok := err.(*Error); ok {
		return mErr.Retryable
	}
	upper := strings.ToUpper(err.Error())
	for _, token := range policy.RetryableErrors {
		if strings.Contains(upper, token) {
			return true
		}
	}
	return false
}

// computeDelay returns the backoff duration before retrying, given a
// zero-indexed attempt number (0 = the delay before the second
// attempt). The computed value is:
//
//	raw = min(base * multiplier^attempt, maxDelay)
//	delay = raw ± 20% (uniform), if jitter is enabled
//
// and is always clamped to be at least base and never negative,
// mirroring the source implementation's floor.
func computeDelay(attempt int, policy RetryPolicy, rng *rand.Rand) time.Duration {
	base := float64(policy.BaseDelayMs)
	maxDelay := float64(policy.MaxDelayMs)

	raw := base * math.Pow(policy.BackoffMultiplier, float64(attempt))
	if raw > maxDelay {
		raw = maxDelay
	}

	delay := raw
	if policy.Jitter {
		r := rng
		if r == nil {
			r = rand.New(rand.NewSource(time.Now().UnixNano())) // #nosec G404 -- jitter timing, not security-sensitive
		}
		noise := (r.Float64()*2 - 1) * 0.2 * raw
		delay += noise
	}

	if delay < base {
		delay = base
	}
	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay) * time.Millisecond
}
