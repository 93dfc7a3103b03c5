// Package mission drives one deploy/monitor/retrieve cycle: poll the remote
// status file, hand each snapshot to the dashboard, keep the web UI tunnel
// alive, and when the runtime window closes (or the operator cancels) run
// the shutdown and retrieval sequence exactly once.
package mission

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/primehuntdev/primehunt/internal/status"
	"github.com/primehuntdev/primehunt/internal/tunnel"
)

// DefaultInterval is the dashboard polling cadence.
const DefaultInterval = 5 * time.Second

// Config wires a Loop. Fetch and Render are required; everything else is
// optional.
type Config struct {
	// Runtime is the fixed mission window measured from Run's start.
	Runtime time.Duration
	// Interval between ticks. Zero means DefaultInterval.
	Interval time.Duration

	// Fetch produces the latest status snapshot. Must never fail; an
	// unreachable host is represented by the sentinel snapshot.
	Fetch func(ctx context.Context) status.RemoteStatus
	// Render draws one dashboard frame from the remaining window and the
	// most recent snapshot.
	Render func(remaining time.Duration, s status.RemoteStatus)

	// Tunnel, when set, has its liveness checked once per tick.
	Tunnel *tunnel.Supervisor
	// Finalize is the post-loop shutdown/retrieval sequence. It runs
	// exactly once per Run, on deadline and on cancellation alike.
	Finalize func(ctx context.Context) error

	Logger  *log.Logger
	Metrics *Metrics
}

// Loop is the mission orchestrator. One Loop serves one invocation.
type Loop struct {
	cfg      Config
	finalize sync.Once
}

// New validates nothing and wires defaults; a Loop with a nil Fetch or
// Render will panic in Run, which is a programming error, not a runtime
// condition.
func New(cfg Config) *Loop {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	return &Loop{cfg: cfg}
}

// Run executes the mission loop until the deadline, then finalizes.
// Cancelling ctx between ticks exits the loop early and still finalizes —
// the sequence an operator previously only got by leaving the window open.
// Finalize runs with a fresh context so a cancelled mission can still stop
// the remote solver and pull artifacts.
func (l *Loop) Run(ctx context.Context) error {
	start := time.Now()
	deadline := start.Add(l.cfg.Runtime)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}

		snap := l.cfg.Fetch(ctx)
		if l.cfg.Metrics != nil {
			l.cfg.Metrics.Ticks.Inc()
			if snap.IsSentinel() {
				l.cfg.Metrics.FetchFailures.Inc()
			}
		}

		l.cfg.Render(remaining, snap)

		if l.cfg.Tunnel != nil {
			respawned, err := l.cfg.Tunnel.Ensure()
			if err != nil {
				l.cfg.Logger.Warn("tunnel respawn failed", "err", err)
			} else if respawned {
				l.cfg.Logger.Info("tunnel respawned", "addr", l.cfg.Tunnel.LocalAddr())
				if l.cfg.Metrics != nil {
					l.cfg.Metrics.TunnelRespawns.Inc()
				}
			}
		}

		sleep := l.cfg.Interval
		if remaining < sleep {
			sleep = remaining
		}
		select {
		case <-ctx.Done():
			l.cfg.Logger.Info("mission cancelled, running shutdown sequence")
			return l.runFinalize()
		case <-time.After(sleep):
		}
	}

	l.cfg.Logger.Info("mission window elapsed", "runtime", l.cfg.Runtime)
	return l.runFinalize()
}

func (l *Loop) runFinalize() error {
	var err error
	l.finalize.Do(func() {
		if l.cfg.Tunnel != nil {
			defer l.cfg.Tunnel.Stop()
		}
		if l.cfg.Finalize != nil {
			err = l.cfg.Finalize(context.Background())
		}
	})
	return err
}
