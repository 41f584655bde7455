package supervisor

import (
	"errors"
	"testing"
	"time"

	internalcommon "github.com/goran-ethernal/DDOIndexor/internal/common"
	"github.com/goran-ethernal/DDOIndexor/pkg/config"
	"github.com/stretchr/testify/require"
)

func TestBackoffRestart_Next(t *testing.T) {
	backoff := &config.RetryConfig{
		InitialBackoff:    internalcommon.NewDuration(100 * time.Millisecond),
		MaxBackoff:        internalcommon.NewDuration(time.Second),
		BackoffMultiplier: 2,
	}
	crashed := errors.New("crashed")

	tests := []struct {
		name     string
		policy   BackoffRestart
		restarts int
		restart  bool
		maxDelay time.Duration
	}{
		{name: "first restart", policy: BackoffRestart{MaxRestarts: 3, Backoff: backoff}, restarts: 1, restart: true, maxDelay: 125 * time.Millisecond},
		{name: "at limit", policy: BackoffRestart{MaxRestarts: 3, Backoff: backoff}, restarts: 3, restart: true, maxDelay: 500 * time.Millisecond},
		{name: "past limit", policy: BackoffRestart{MaxRestarts: 3, Backoff: backoff}, restarts: 4},
		{name: "unlimited is capped", policy: BackoffRestart{Backoff: backoff}, restarts: 50, restart: true, maxDelay: 1250 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			delay, restart := tt.policy.Next(137, tt.restarts, crashed)
			require.Equal(t, tt.restart, restart)
			require.LessOrEqual(t, delay, tt.maxDelay)
		})
	}
}

func TestNoRestart_Next(t *testing.T) {
	_, restart := NoRestart{}.Next(137, 1, errors.New("crashed"))
	require.False(t, restart)
}

func TestPolicyFromConfig(t *testing.T) {
	require.IsType(t, NoRestart{}, PolicyFromConfig(nil))
	require.IsType(t, NoRestart{}, PolicyFromConfig(&config.SupervisorConfig{RestartPolicy: config.RestartPolicyNone}))

	p := PolicyFromConfig(&config.SupervisorConfig{RestartPolicy: config.RestartPolicyBackoff, MaxRestarts: 5})
	b, ok := p.(BackoffRestart)
	require.True(t, ok)
	require.Equal(t, 5, b.MaxRestarts)
	require.NotNil(t, b.Backoff)
	require.Equal(t, time.Second, b.Backoff.InitialBackoff.Duration)
}
