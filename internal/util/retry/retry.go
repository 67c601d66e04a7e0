package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Config holds retry configuration.
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	// Retryable decides whether an error is worth another attempt.
	// When nil every non-fatal error is retried.
	Retryable func(error) bool

	// OnRetry is called before sleeping between attempts.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Option is a functional option for retry configuration.
type Option func(*Config)

func defaults() *Config {
	return &Config{
		MaxRetries:   5,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2,
	}
}

// next returns the delay following d.
func (c *Config) next(d time.Duration) time.Duration {
	d = time.Duration(float64(d) * c.Multiplier)
	if c.MaxDelay > 0 && d > c.MaxDelay {
		return c.MaxDelay
	}
	return d
}

// stop reports whether err ends the loop without another attempt.
func (c *Config) stop(err error) bool {
	if IsFatal(err) {
		return true
	}
	return c.Retryable != nil && !c.Retryable(err)
}

// WithExponentialBackoff runs operation until it succeeds, at most
// MaxRetries+1 times, growing the pause between attempts by Multiplier up
// to MaxDelay.
//
// Errors marked with Fatal or rejected by the Retryable predicate end the
// loop at once. Fatal errors are returned wrapped, rejected ones as is.
func WithExponentialBackoff(ctx context.Context, operation func() error, opts ...Option) error {
	cfg := defaults()
	for _, opt := range opts {
		opt(cfg)
	}

	delay := cfg.InitialDelay
	var err error
	for attempt := 1; ; attempt++ {
		if err = operation(); err == nil {
			return nil
		}
		if cfg.stop(err) {
			if IsFatal(err) {
				return fmt.Errorf("fatal error (not retrying): %w", err)
			}
			return err
		}
		if attempt > cfg.MaxRetries {
			return fmt.Errorf("operation failed after %d attempts: %w", attempt, err)
		}

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, delay, err)
		}
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("context cancelled after %d attempts: %w", attempt, ctx.Err())
		case <-t.C:
		}
		delay = cfg.next(delay)
	}
}

// WithMaxRetries sets how many times a failed operation is retried.
func WithMaxRetries(n int) Option {
	return func(c *Config) { c.MaxRetries = n }
}

// WithInitialDelay sets the pause before the first retry.
func WithInitialDelay(d time.Duration) Option {
	return func(c *Config) { c.InitialDelay = d }
}

// WithMaxDelay caps the pause between retries.
func WithMaxDelay(d time.Duration) Option {
	return func(c *Config) { c.MaxDelay = d }
}

// WithMultiplier sets the backoff growth factor. 1 gives a fixed interval.
func WithMultiplier(m float64) Option {
	return func(c *Config) { c.Multiplier = m }
}

// WithRetryable restricts retries to errors accepted by fn.
func WithRetryable(fn func(error) bool) Option {
	return func(c *Config) { c.Retryable = fn }
}

// WithOnRetry registers a callback invoked before each backoff sleep.
func WithOnRetry(fn func(attempt int, delay time.Duration, err error)) Option {
	return func(c *Config) { c.OnRetry = fn }
}

// FatalError marks an error that retrying cannot fix.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return e.Err.Error() }

func (e *FatalError) Unwrap() error { return e.Err }

// Fatal marks err as non-retryable. Fatal(nil) is nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsFatal reports whether err or anything it wraps was marked with Fatal.
func IsFatal(err error) bool {
	var f *FatalError
	return errors.As(err, &f)
}
