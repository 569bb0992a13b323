package dispatcher

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultMaxAttempts is the default number of attempts per tool call
	DefaultMaxAttempts = 2
	// DefaultRetryDelay is the default delay between attempts
	DefaultRetryDelay = time.Second
)

// RetryPolicy controls how a failed tool call is retried.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty"`
	// Delay is the wait before the second attempt.
	Delay time.Duration `json:"retry_delay,omitempty" yaml:"retry_delay,omitempty"`
	// Multiplier grows the delay for each next attempt,
	// values <= 1 mean a fixed delay.
	Multiplier float64 `json:"retry_multiplier,omitempty" yaml:"retry_multiplier,omitempty"`
}

// DefaultRetryPolicy returns 2 attempts with a fixed 1s delay.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		Delay:       DefaultRetryDelay,
	}
}

func (p RetryPolicy) attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// backOff returns the schedule of waits between attempts,
// bound to the context.
func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	var b backoff.BackOff
	if p.Multiplier > 1 && p.Delay > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = p.Delay
		eb.Multiplier = p.Multiplier
		eb.RandomizationFactor = 0
		eb.MaxInterval = time.Hour
		eb.MaxElapsedTime = 0
		b = eb
	} else {
		b = backoff.NewConstantBackOff(p.Delay)
	}
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.attempts()-1)), ctx)
}
