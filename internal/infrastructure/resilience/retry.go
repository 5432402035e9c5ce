package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig configures Retry.
type RetryConfig struct {
	// MaxRetries after the first attempt; zero means no limit besides MaxElapsedTime.
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration

	// OnRetry is called before each wait.
	OnRetry func(err error, wait time.Duration)
}

// DefaultRetryConfig returns three retries starting at 200ms, capped at 5s
// per wait and 15s overall.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		MaxElapsedTime:  15 * time.Second,
	}
}

// Retry runs op until it succeeds, returns a Permanent error or
// ErrCircuitOpen, the budget is spent, or ctx is done.
// The returned error is the last one op returned, unwrapped from Permanent.
func Retry(ctx context.Context, cfg RetryConfig, op func() error) error {
	eb := backoff.NewExponentialBackOff()
	if cfg.InitialInterval > 0 {
		eb.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		eb.MaxInterval = cfg.MaxInterval
	}
	eb.MaxElapsedTime = cfg.MaxElapsedTime

	var b backoff.BackOff = eb
	if cfg.MaxRetries > 0 {
		b = backoff.WithMaxRetries(b, cfg.MaxRetries)
	}
	b = backoff.WithContext(b, ctx)

	wrapped := func() error {
		err := op()
		if errors.Is(err, ErrCircuitOpen) {
			return backoff.Permanent(err)
		}
		return err
	}
	var notify backoff.Notify
	if cfg.OnRetry != nil {
		notify = backoff.Notify(cfg.OnRetry)
	}
	return backoff.RetryNotify(wrapped, b, notify)
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

func isPermanent(err error) bool {
	var p *backoff.PermanentError
	return errors.As(err, &p)
}
