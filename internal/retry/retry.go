// Package retry runs an operation with exponential backoff. It is used for
// exchange calls and notification delivery.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// Config holds configuration for retry mechanisms
type Config struct {
	MaxRetries    int           `json:"max_retries"`
	InitialDelay  time.Duration `json:"initial_delay"`
	MaxDelay      time.Duration `json:"max_delay"`
	BackoffFactor float64       `json:"backoff_factor"`
	JitterEnabled bool          `json:"jitter_enabled"`
}

// DefaultConfig returns the defaults used for exchange requests
func DefaultConfig() Config {
	return Config{
		MaxRetries:    3,
		InitialDelay:  time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2.0,
		JitterEnabled: true,
	}
}

// Func is an operation that can be retried
type Func func(ctx context.Context) error

// Classifier decides whether an error is worth another attempt
type Classifier func(err error) bool

// Always retries every error
func Always(error) bool { return true }

// Do runs fn until it succeeds, the attempts run out, retryable reports
// false, or ctx is done. It returns the last error from fn, or ctx.Err().
func Do(ctx context.Context, cfg Config, retryable Classifier, fn Func) error {
	if retryable == nil {
		retryable = Always
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == cfg.MaxRetries || !retryable(err) {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(Delay(attempt, cfg)):
		}
	}
	return lastErr
}

// Delay is the wait after the given zero-based attempt, capped at MaxDelay
func Delay(attempt int, cfg Config) time.Duration {
	delay := cfg.InitialDelay
	if attempt > 0 && cfg.BackoffFactor > 0 {
		delay = time.Duration(float64(cfg.InitialDelay) * math.Pow(cfg.BackoffFactor, float64(attempt)))
	}
	if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}

	if cfg.JitterEnabled {
		jitter := time.Duration(float64(delay) * 0.1 * (2*rand.Float64() - 1))
		delay += jitter
	}
	return delay
}
