package supervisor

import (
	"time"

	"github.com/goran-ethernal/DDOIndexor/internal/rpc"
	"github.com/goran-ethernal/DDOIndexor/pkg/config"
)

// RestartPolicy decides what happens to a worker that exited with an error.
type RestartPolicy interface {
	// Next reports whether the worker of chainID is started again after its restarts-th
	// unexpected exit, and how long to wait before doing so.
	Next(chainID uint64, restarts int, err error) (delay time.Duration, restart bool)
}

// NoRestart leaves exited workers down.
type NoRestart struct{}

func (NoRestart) Next(uint64, int, error) (time.Duration, bool) {
	return 0, false
}

// BackoffRestart restarts workers after a capped exponential delay.
type BackoffRestart struct {
	// MaxRestarts bounds restarts per network; 0 means unlimited.
	MaxRestarts int
	Backoff     *config.RetryConfig
}

func (b BackoffRestart) Next(_ uint64, restarts int, _ error) (time.Duration, bool) {
	if b.MaxRestarts > 0 && restarts > b.MaxRestarts {
		return 0, false
	}
	return rpc.Backoff(restarts, b.Backoff), true
}

// PolicyFromConfig builds the policy selected by cfg. A nil cfg means NoRestart.
func PolicyFromConfig(cfg *config.SupervisorConfig) RestartPolicy {
	if cfg == nil || cfg.RestartPolicy != config.RestartPolicyBackoff {
		return NoRestart{}
	}

	backoff := cfg.Backoff
	if backoff == nil {
		backoff = &config.RetryConfig{}
		backoff.ApplyDefaults()
	}
	return BackoffRestart{MaxRestarts: cfg.MaxRestarts, Backoff: backoff}
}
