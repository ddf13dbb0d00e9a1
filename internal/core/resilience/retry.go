// Package resilience holds the retry executor and circuit breaker that
// guard calls against the external draw source.
package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

// RetryConfig defines retry behavior for one call site.
type RetryConfig struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	BaseDelay         time.Duration `yaml:"base_delay"`
	MaxDelay          time.Duration `yaml:"max_delay"`
	BackoffMultiple   float64       `yaml:"backoff_multiple"`
	RetryablePatterns []string      `yaml:"retryable_patterns"`
}

// DefaultScrapeRetry is tuned for page fetches: the source is slow and
// flaky, so it gets more attempts and longer backoff than local work.
var DefaultScrapeRetry = RetryConfig{
	MaxAttempts:     4,
	BaseDelay:       2 * time.Second,
	MaxDelay:        30 * time.Second,
	BackoffMultiple: 2.0,
	RetryablePatterns: []string{
		"timeout",
		"deadline exceeded",
		"connection reset",
		"connection refused",
		"navigation",
		"temporarily unavailable",
		"502",
		"503",
		"504",
	},
}

// Retryable reports whether err matches one of the configured patterns
// (case-insensitive substring match against the error message).
func (c RetryConfig) Retryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range c.RetryablePatterns {
		if strings.Contains(msg, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// Retry executes op up to cfg.MaxAttempts times with exponential backoff.
// Non-retryable errors propagate after a single invocation; the error
// surfaced after exhausted attempts is the one from the last attempt.
// The inter-attempt sleep honors ctx so concurrent operations never stall
// each other.
func Retry[T any](ctx context.Context, cfg RetryConfig, name string, op func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			if attempt > 1 {
				slog.Info("Operation succeeded after retry", "op", name, "attempt", attempt)
			}
			return result, nil
		}

		lastErr = err
		if attempt == cfg.MaxAttempts {
			break
		}
		if !cfg.Retryable(err) {
			return zero, err
		}

		delay := backoff(attempt, cfg)
		slog.Warn("Operation failed, backing off", "op", name, "attempt", attempt, "delay", delay, "error", err)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	return zero, fmt.Errorf("%s failed after %d attempts: %w", name, cfg.MaxAttempts, lastErr)
}

func backoff(attempt int, cfg RetryConfig) time.Duration {
	delay := float64(cfg.BaseDelay) * math.Pow(cfg.BackoffMultiple, float64(attempt-1))
	if delay > float64(cfg.MaxDelay) {
		delay = float64(cfg.MaxDelay)
	}
	return time.Duration(delay)
}
