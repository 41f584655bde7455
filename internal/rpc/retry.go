package rpc

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/goran-ethernal/DDOIndexor/pkg/config"
)

// ErrEndpointUnavailable marks an error after which the endpoint should be considered down
// for the current call: a transient failure that survived every retry attempt.
var ErrEndpointUnavailable = errors.New("rpc endpoint unavailable")

// retryableError checks if an error should trigger a retry.
func retryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := strings.ToLower(err.Error())

	return containsAny(errStr,
		// timeouts
		"timeout", "deadline exceeded",
		// rate limiting
		"429", "too many requests", "rate limit",
		// temporary server errors
		"502", "503", "504", "bad gateway", "service unavailable",
		// connection pool exhausted
		"connection pool", "no available connection",
		"connection refused", "eof",
	)
}

// classifyError maps an error to a low cardinality metric label.
func classifyError(err error) string {
	if ok, _ := IsTooManyResultsError(err); ok {
		return "too_many_results"
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case containsAny(errStr, "timeout", "deadline exceeded"):
		return "timeout"
	case containsAny(errStr, "429", "too many requests", "rate limit"):
		return "rate_limit"
	case errors.Is(err, ErrEndpointUnavailable):
		return "unavailable"
	default:
		return "other"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// calculateBackoff computes the backoff duration for a given attempt with jitter.
func calculateBackoff(attempt int, cfg *config.RetryConfig) time.Duration {
	if attempt <= 1 {
		return 0
	}

	backoff := float64(cfg.InitialBackoff.Duration) * math.Pow(cfg.BackoffMultiplier, float64(attempt-2))
	if backoff > float64(cfg.MaxBackoff.Duration) {
		backoff = float64(cfg.MaxBackoff.Duration)
	}

	// jitter of +/-25%
	jitterRange := backoff * 0.25
	backoff += (rand.Float64() * 2 * jitterRange) - jitterRange //nolint:gosec

	return time.Duration(max(backoff, 0))
}

// Backoff returns the capped exponential delay before the given attempt (1-based).
// Exported for callers that run their own retry loops around non-RPC work.
func Backoff(attempt int, cfg *config.RetryConfig) time.Duration {
	return calculateBackoff(attempt+1, cfg)
}

// retryWithBackoff executes a function with exponential backoff retry logic.
// It respects context cancellation and deadlines.
// Exhausted transient failures are wrapped in ErrEndpointUnavailable.
func retryWithBackoff(ctx context.Context, cfg *config.RetryConfig, operation string, fn func() error) error {
	if cfg == nil {
		err := fn()
		if retryableError(err) {
			return fmt.Errorf("%w: %w", ErrEndpointUnavailable, err)
		}
		return err
	}

	var lastErr error
	startTime := time.Now()

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled before attempt %d: %w", attempt, err)
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !retryableError(err) {
			return fmt.Errorf("non-retryable error on attempt %d/%d: %w", attempt, cfg.MaxAttempts, err)
		}

		if attempt >= cfg.MaxAttempts {
			break
		}

		// attempt+1 is the attempt we are about to wait for
		if backoffDuration := calculateBackoff(attempt+1, cfg); backoffDuration > 0 {
			timer := time.NewTimer(backoffDuration)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return fmt.Errorf("context cancelled during backoff (attempt %d/%d): %w",
					attempt, cfg.MaxAttempts, ctx.Err())
			}
		}

		retriesTotal.WithLabelValues(operation).Inc()
	}

	return fmt.Errorf("%w: all %d attempts failed after %v (last error: %w)",
		ErrEndpointUnavailable, cfg.MaxAttempts, time.Since(startTime), lastErr)
}
