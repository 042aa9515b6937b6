package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"bikeman/internal/config"
)

// FatalError stops Do without further attempts when IsFatal reports true.
// *errors.Error from pkg/errors satisfies it.
type FatalError interface {
	error
	IsFatal() bool
}

type fatal struct{ err error }

func (f fatal) Error() string { return f.err.Error() }
func (f fatal) Unwrap() error { return f.err }
func (fatal) IsFatal() bool   { return true }

func NewFatalError(err error) error {
	if err == nil {
		return nil
	}
	return fatal{err: err}
}

func isFatal(err error) bool {
	var f FatalError
	return errors.As(err, &f) && f.IsFatal()
}

type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	MaxElapsedTime  time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
	}
}

// PolicyFromConfig maps broker retry settings onto a Policy, keeping defaults for unset values.
func PolicyFromConfig(cfg config.RetryConfig) Policy {
	p := DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		p.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialInterval > 0 {
		p.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		p.MaxInterval = cfg.MaxInterval
	}
	if cfg.Multiplier > 0 {
		p.Multiplier = cfg.Multiplier
	}
	if cfg.MaxElapsedTime > 0 {
		p.MaxElapsedTime = cfg.MaxElapsedTime
	}
	return p
}

// Notify is told about every failed attempt that will be retried.
type Notify func(attempt int, err error, next time.Duration)

// Do calls fn until it succeeds, returns a fatal error, the policy is exhausted or ctx
// is done. The last error is returned.
func Do(ctx context.Context, policy Policy, fn func() error, notify Notify) error {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}

	schedule := backoff.WithMaxRetries(
		backoff.WithContext(newBackOff(policy), ctx),
		uint64(policy.MaxAttempts-1),
	)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		err := fn()
		switch {
		case err == nil:
			return nil
		case isFatal(err):
			return backoff.Permanent(err)
		}
		if notify != nil && attempt < policy.MaxAttempts {
			notify(attempt, err, nominalDelay(policy, attempt))
		}
		return err
	}, schedule)
}
