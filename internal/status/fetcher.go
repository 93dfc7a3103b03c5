package status

import (
	"context"
	"fmt"
	"time"
)

// Default retry policy for a single fetch.
const (
	DefaultAttempts = 3
	DefaultDelay    = time.Second
	// DefaultTimeout bounds one remote round trip. Together with the retry
	// policy it caps a whole Fetch at Attempts × (Timeout + Delay).
	DefaultTimeout = 10 * time.Second
)

// Runner executes a command on the mission host. Satisfied by
// remote.Session.
type Runner interface {
	Run(ctx context.Context, cmd string) (string, error)
}

// Fetcher reads the solver's status file over a Runner.
type Fetcher struct {
	Runner Runner
	// Path is the absolute remote path of the status file.
	Path string
	// Attempts, Delay and Timeout bound the retry loop and each round
	// trip within it. Zero values take the package defaults.
	Attempts int
	Delay    time.Duration
	Timeout  time.Duration
}

// Fetch reads and parses the remote status file, trying up to Attempts
// times with Delay between tries and Timeout per try. It never fails: on
// give-up, timeout, or cancellation the sentinel status is returned.
func (f *Fetcher) Fetch(ctx context.Context) RemoteStatus {
	attempts := f.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	delay := f.Delay
	if delay <= 0 {
		delay = DefaultDelay
	}
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return Sentinel()
			case <-time.After(delay):
			}
		}
		out, err := f.runOnce(ctx, timeout)
		if err != nil {
			if ctx.Err() != nil {
				return Sentinel()
			}
			continue
		}
		if s, ok := Parse([]byte(out)); ok {
			return s
		}
	}
	return Sentinel()
}

// runOnce performs one bounded round trip.
func (f *Fetcher) runOnce(ctx context.Context, timeout time.Duration) (string, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return f.Runner.Run(attemptCtx, fmt.Sprintf("cat %q", f.Path))
}
