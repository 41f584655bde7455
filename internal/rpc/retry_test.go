package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"
	"time"

	"github.com/goran-ethernal/DDOIndexor/internal/common"
	"github.com/goran-ethernal/DDOIndexor/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// timeoutError implements net.Error for testing
type timeoutError struct{ msg string }

func (e *timeoutError) Error() string   { return e.msg }
func (e *timeoutError) Timeout() bool   { return true }
func (e *timeoutError) Temporary() bool { return true }

func fastRetry(attempts int) *config.RetryConfig {
	return &config.RetryConfig{
		MaxAttempts:       attempts,
		InitialBackoff:    common.NewDuration(time.Millisecond),
		MaxBackoff:        common.NewDuration(5 * time.Millisecond),
		BackoffMultiplier: 2.0,
	}
}

func TestRetryableError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{name: "nil", err: nil, retryable: false},
		{name: "net error", err: &timeoutError{msg: "i/o timeout"}, retryable: true},
		{name: "connection refused", err: syscall.ECONNREFUSED, retryable: true},
		{name: "wrapped connection reset", err: fmt.Errorf("read: %w", syscall.ECONNRESET), retryable: true},
		{name: "op error", err: &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, retryable: true},
		{name: "per attempt deadline", err: context.DeadlineExceeded, retryable: true},
		{name: "rate limited", err: errors.New("429 Too Many Requests"), retryable: true},
		{name: "bad gateway", err: errors.New("502 Bad Gateway"), retryable: true},
		{name: "unexpected eof", err: errors.New("unexpected EOF"), retryable: true},
		{name: "cancelled", err: context.Canceled, retryable: false},
		{name: "execution reverted", err: errors.New("execution reverted"), retryable: false},
		{name: "not found", err: errors.New("not found"), retryable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, retryableError(tt.err))
		})
	}
}

func TestCalculateBackoff(t *testing.T) {
	cfg := &config.RetryConfig{
		InitialBackoff:    common.NewDuration(time.Second),
		MaxBackoff:        common.NewDuration(5 * time.Second),
		BackoffMultiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		min, max time.Duration
	}{
		{attempt: 1, min: 0, max: 0},
		{attempt: 2, min: 750 * time.Millisecond, max: 1250 * time.Millisecond},
		{attempt: 3, min: 1500 * time.Millisecond, max: 2500 * time.Millisecond},
		{attempt: 4, min: 3 * time.Second, max: 5 * time.Second},
		{attempt: 10, min: 3750 * time.Millisecond, max: 6250 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt %d", tt.attempt), func(t *testing.T) {
			for range 10 {
				backoff := calculateBackoff(tt.attempt, cfg)
				assert.GreaterOrEqual(t, backoff, tt.min)
				assert.LessOrEqual(t, backoff, tt.max)
			}
		})
	}

	require.InDelta(t, float64(time.Second), float64(Backoff(1, cfg)), float64(250*time.Millisecond))
}

func TestRetryWithBackoff(t *testing.T) {
	t.Run("success after transient failures", func(t *testing.T) {
		calls := 0
		err := retryWithBackoff(context.Background(), fastRetry(5), "eth_getLogs", func() error {
			calls++
			if calls < 3 {
				return &timeoutError{msg: "timeout"}
			}
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 3, calls)
	})

	t.Run("non retryable fails immediately", func(t *testing.T) {
		calls := 0
		expected := errors.New("invalid params")
		err := retryWithBackoff(context.Background(), fastRetry(5), "eth_getLogs", func() error {
			calls++
			return expected
		})
		require.ErrorIs(t, err, expected)
		require.NotErrorIs(t, err, ErrEndpointUnavailable)
		require.Equal(t, 1, calls)
	})

	t.Run("exhausted marks endpoint unavailable", func(t *testing.T) {
		calls := 0
		cause := &timeoutError{msg: "timeout"}
		err := retryWithBackoff(context.Background(), fastRetry(3), "eth_blockNumber", func() error {
			calls++
			return cause
		})
		require.ErrorIs(t, err, ErrEndpointUnavailable)
		require.ErrorIs(t, err, cause)
		require.ErrorContains(t, err, "all 3 attempts failed")
		require.Equal(t, 3, calls)
	})

	t.Run("context cancelled stops retrying", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		err := retryWithBackoff(ctx, fastRetry(10), "eth_getLogs", func() error {
			calls++
			if calls == 2 {
				cancel()
			}
			return syscall.ECONNREFUSED
		})
		require.ErrorContains(t, err, "context cancelled")
		require.Equal(t, 2, calls)
	})

	t.Run("nil config runs once", func(t *testing.T) {
		calls := 0
		err := retryWithBackoff(context.Background(), nil, "eth_call", func() error {
			calls++
			return syscall.ECONNREFUSED
		})
		require.ErrorIs(t, err, ErrEndpointUnavailable)
		require.Equal(t, 1, calls)
	})
}

func TestClassifyError(t *testing.T) {
	require.Equal(t, "timeout", classifyError(errors.New("i/o timeout")))
	require.Equal(t, "rate_limit", classifyError(errors.New("rate limit exceeded")))
	require.Equal(t, "unavailable", classifyError(fmt.Errorf("%w: boom", ErrEndpointUnavailable)))
	require.Equal(t, "too_many_results", classifyError(errors.New("query returned more than 10000 results")))
	require.Equal(t, "other", classifyError(errors.New("execution reverted")))
}
