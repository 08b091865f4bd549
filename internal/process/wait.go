package process

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/giantswarm/serverproc/internal/probe"
	"github.com/giantswarm/serverproc/internal/sentinel"
	"k8s.io/utils/clock"
)

// Sentinel errors returned by WaitReady. Callers match them with errors.Is.
const (
	// ErrIntervalNotPositive indicates a non-positive poll interval.
	ErrIntervalNotPositive = sentinel.Error("interval must be positive")

	// ErrTimeoutNotPositive indicates a non-positive timeout.
	ErrTimeoutNotPositive = sentinel.Error("timeout must be positive")

	// ErrProcessExited indicates the process exited before becoming ready.
	ErrProcessExited = sentinel.Error("process exited before becoming ready")

	// ErrNotReady indicates the timeout elapsed while the process was still
	// running but not yet accepting connections.
	ErrNotReady = sentinel.Error("readiness deadline exceeded")
)

// WaitReadyConfig configures WaitReady.
type WaitReadyConfig struct {
	Interval      time.Duration   // sleep between attempts
	Timeout       time.Duration   // overall deadline, measured on Clock
	Name          string          // for errors and logs
	Port          int             // for errors and logs
	Logger        *slog.Logger    // optional, defaults to slog.Default()
	ProcessExited <-chan struct{} // if non-nil, abort as soon as it is closed
	Clock         clock.Clock     // optional, defaults to the real clock
}

// WaitReady runs check until it reports probe.Connected, the process exits,
// ctx is done, or Timeout elapses. Each round first checks ProcessExited so a
// dead process is never polled, then probes, then sleeps Interval.
func WaitReady(ctx context.Context, cfg WaitReadyConfig, check probe.Func) error {
	if cfg.Name == "" {
		return errors.New("wait ready: name must not be empty")
	}
	if cfg.Interval <= 0 {
		return fmt.Errorf("wait for %s: %w", cfg.Name, ErrIntervalNotPositive)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("wait for %s: %w", cfg.Name, ErrTimeoutNotPositive)
	}

	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.RealClock{}
	}

	start := clk.Now()
	for attempt := 1; ; attempt++ {
		if isClosed(cfg.ProcessExited) {
			return fmt.Errorf("process %s: %w", cfg.Name, ErrProcessExited)
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("wait for %s readiness on port %d: %w", cfg.Name, cfg.Port, err)
		}

		outcome, err := check(ctx)
		switch outcome {
		case probe.Connected:
			log.Debug("wait succeeded", "name", cfg.Name, "port", cfg.Port,
				"attempt", attempt, "elapsed", clk.Since(start))
			return nil
		case probe.Exited:
			return fmt.Errorf("process %s: %w", cfg.Name, ErrProcessExited)
		}
		if log.Enabled(ctx, slog.LevelDebug) {
			msg := "readiness attempt failed"
			if probe.IsRefused(err) {
				msg = "readiness attempt refused"
			}
			log.Debug(msg, "name", cfg.Name, "port", cfg.Port, "attempt", attempt, "error", err)
		}

		if clk.Since(start) >= cfg.Timeout {
			return fmt.Errorf("wait for %s readiness on port %d after %d attempts: %w",
				cfg.Name, cfg.Port, attempt, ErrNotReady)
		}
		clk.Sleep(cfg.Interval)
	}
}
