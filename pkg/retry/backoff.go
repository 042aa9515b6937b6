package retry

import (
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// newBackOff builds the exponential schedule of policy. A zero MaxElapsedTime leaves the
// schedule bounded by MaxAttempts alone.
func newBackOff(policy Policy) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = policy.InitialInterval
	exp.MaxInterval = policy.MaxInterval
	exp.Multiplier = policy.Multiplier
	exp.MaxElapsedTime = policy.MaxElapsedTime
	return exp
}

// nominalDelay is the un-jittered wait before the attempt following attempt.
func nominalDelay(policy Policy, attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(policy.InitialInterval) * math.Pow(policy.Multiplier, float64(attempt-1))
	if d > float64(policy.MaxInterval) {
		return policy.MaxInterval
	}
	return time.Duration(d)
}
