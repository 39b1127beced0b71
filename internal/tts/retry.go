package tts

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/charmbracelet/log"
)

// RetryPolicy bounds how transient synthesis failures are retried.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:     4,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     10 * time.Second,
	}
}

// Retrying wraps a Synthesizer with exponential backoff. Only errors for
// which IsRetryable is true are retried; after the last attempt the last
// error is returned unchanged.
type Retrying struct {
	next   Synthesizer
	policy RetryPolicy
	logger *log.Logger
}

// NewRetrying wraps next with the given policy.
func NewRetrying(next Synthesizer, policy RetryPolicy, logger *log.Logger) *Retrying {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Retrying{next: next, policy: policy, logger: logger}
}

// Name returns the wrapped engine's name.
func (r *Retrying) Name() string { return r.next.Name() }

// Synthesize calls the wrapped engine until it succeeds, fails permanently
// or runs out of attempts.
func (r *Retrying) Synthesize(ctx context.Context, text, language, voice string) ([]byte, error) {
	attempt := 0
	op := func() ([]byte, error) {
		attempt++
		pcm, err := r.next.Synthesize(ctx, text, language, voice)
		if err == nil {
			return pcm, nil
		}
		if !IsRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	notify := func(err error, wait time.Duration) {
		r.logger.Warn("synthesis failed, retrying",
			"engine", r.next.Name(),
			"attempt", attempt,
			"wait", wait,
			"err", err)
	}

	return backoff.RetryNotifyWithData(op, r.backOff(ctx), notify)
}

func (r *Retrying) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	if r.policy.InitialInterval > 0 {
		b.InitialInterval = r.policy.InitialInterval
	}
	if r.policy.MaxInterval > 0 {
		b.MaxInterval = r.policy.MaxInterval
	}
	b.MaxElapsedTime = 0
	b.Reset()

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.policy.MaxAttempts-1)), ctx)
}
