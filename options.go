package serverproc

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"k8s.io/utils/clock"
)

// requirePositive panics if v <= 0 with a descriptive message.
func requirePositive(name string, v time.Duration) {
	if v <= 0 {
		panic(fmt.Sprintf("serverproc: %s must be greater than 0, got %v", name, v))
	}
}

// requireNonEmpty panics if s is empty with a descriptive message.
func requireNonEmpty(name, s string) {
	if s == "" {
		panic(fmt.Sprintf("serverproc: %s must not be empty", name))
	}
}

// Option configures a single Start call.
//
// Several With* functions panic on invalid input (empty paths, non-positive
// durations). Option values are almost always literals in test code, so an
// invalid one is a programmer error and fails at the call site.
type Option func(*config)

// WithProgram sets the server program. A bare name is looked up in PATH.
// The program is invoked as "<program> <port> [args...]".
//
// Default: DefaultProgram.
//
// Panics if path is empty.
func WithProgram(path string) Option {
	requireNonEmpty("program", path)
	return func(c *config) {
		c.Program = path
	}
}

// WithArgs appends extra arguments passed after the port, verbatim and in
// order. Repeated calls accumulate.
func WithArgs(args ...string) Option {
	args = append([]string(nil), args...)
	return func(c *config) {
		c.Args = append(c.Args, args...)
	}
}

// WithEnv adds KEY=VALUE entries to the server's environment, on top of the
// current process environment.
//
// Panics if an entry has no '=' or an empty key.
func WithEnv(kv ...string) Option {
	for _, e := range kv {
		if k, _, ok := strings.Cut(e, "="); !ok || k == "" {
			panic(fmt.Sprintf("serverproc: env entry must have the form KEY=VALUE, got %q", e))
		}
	}
	kv = append([]string(nil), kv...)
	return func(c *config) {
		c.Env = append(c.Env, kv...)
	}
}

// WithReadyTimeout bounds how long Start waits for the server's port to
// accept a connection.
//
// Default: 10 seconds.
//
// Panics if d <= 0.
func WithReadyTimeout(d time.Duration) Option {
	requirePositive("ready timeout", d)
	return func(c *config) {
		c.ReadyTimeout = d
	}
}

// WithPollInterval sets the pause between readiness attempts.
//
// Default: 50 milliseconds.
//
// Panics if d <= 0.
func WithPollInterval(d time.Duration) Option {
	requirePositive("poll interval", d)
	return func(c *config) {
		c.PollInterval = d
	}
}

// WithDialTimeout bounds each readiness connect attempt.
//
// Default: 1 second.
//
// Panics if d <= 0.
func WithDialTimeout(d time.Duration) Option {
	requirePositive("dial timeout", d)
	return func(c *config) {
		c.DialTimeout = d
	}
}

// WithStopGracePeriod sets how long Clean waits after SIGTERM before sending
// SIGKILL.
//
// Default: 5 seconds.
//
// Panics if d <= 0.
func WithStopGracePeriod(d time.Duration) Option {
	requirePositive("stop grace period", d)
	return func(c *config) {
		c.StopGracePeriod = d
	}
}

// WithStopTimeout bounds how long Clean waits for the server to exit.
//
// Default: 10 seconds.
//
// Panics if d <= 0.
func WithStopTimeout(d time.Duration) Option {
	requirePositive("stop timeout", d)
	return func(c *config) {
		c.StopTimeout = d
	}
}

// WithLogDir also copies the server's raw stdout and stderr into
// <dir>/<program>-<id>-stdout.log and -stderr.log. The directory is created
// if needed.
//
// Panics if dir is empty.
func WithLogDir(dir string) Option {
	requireNonEmpty("log directory", dir)
	return func(c *config) {
		c.LogDir = dir
	}
}

// WithOutputLevel sets the level at which the server's output lines are
// logged.
//
// Default: slog.LevelInfo.
func WithOutputLevel(level slog.Level) Option {
	return func(c *config) {
		c.OutputLevel = level
	}
}

// WithClock replaces the clock used to measure the readiness deadline and
// to pace attempts. Intended for tests.
//
// Panics if clk is nil.
func WithClock(clk clock.Clock) Option {
	if clk == nil {
		panic("serverproc: clock must not be nil")
	}
	return func(c *config) {
		c.Clock = clk
	}
}
