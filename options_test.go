package serverproc_test

import (
	"fmt"
	"log/slog"
	"slices"
	"testing"
	"time"

	testingclock "k8s.io/utils/clock/testing"

	"github.com/giantswarm/serverproc"
)

// panicTestCase defines a test case for option validation panic tests.
type panicTestCase struct {
	name     string
	panics   bool
	panicMsg string
	fn       func()
}

// requirePanics calls fn and verifies it panics (or not) with the expected message.
func requirePanics(t *testing.T, shouldPanic bool, wantMsg string, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if shouldPanic && r == nil {
			t.Fatal("expected panic but didn't get one")
		}
		if !shouldPanic && r != nil {
			t.Fatalf("unexpected panic: %v", r)
		}
		if shouldPanic && r != nil {
			msg := fmt.Sprint(r)
			if msg != wantMsg {
				t.Fatalf("expected panic message %q, got %q", wantMsg, msg)
			}
		}
	}()
	fn()
}

func runPanicTests(t *testing.T, tests []panicTestCase) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			requirePanics(t, tt.panics, tt.panicMsg, tt.fn)
		})
	}
}

func TestDurationOptionsPanicOnInvalid(t *testing.T) {
	t.Parallel()

	options := map[string]func(time.Duration) serverproc.Option{
		"ready timeout":     serverproc.WithReadyTimeout,
		"poll interval":     serverproc.WithPollInterval,
		"dial timeout":      serverproc.WithDialTimeout,
		"stop grace period": serverproc.WithStopGracePeriod,
		"stop timeout":      serverproc.WithStopTimeout,
	}
	for name, with := range options {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			runPanicTests(t, []panicTestCase{
				{
					name:     "zero",
					panics:   true,
					panicMsg: "serverproc: " + name + " must be greater than 0, got 0s",
					fn:       func() { with(0) },
				},
				{
					name:     "negative",
					panics:   true,
					panicMsg: "serverproc: " + name + " must be greater than 0, got -1s",
					fn:       func() { with(-time.Second) },
				},
				{
					name: "positive",
					fn:   func() { with(time.Millisecond) },
				},
			})
		})
	}
}

func TestStringOptionsPanicOnEmpty(t *testing.T) {
	t.Parallel()
	runPanicTests(t, []panicTestCase{
		{
			name:     "empty program",
			panics:   true,
			panicMsg: "serverproc: program must not be empty",
			fn:       func() { serverproc.WithProgram("") },
		},
		{
			name:     "empty log dir",
			panics:   true,
			panicMsg: "serverproc: log directory must not be empty",
			fn:       func() { serverproc.WithLogDir("") },
		},
		{
			name:     "nil clock",
			panics:   true,
			panicMsg: "serverproc: clock must not be nil",
			fn:       func() { serverproc.WithClock(nil) },
		},
		{
			name: "valid program",
			fn:   func() { serverproc.WithProgram("./server") },
		},
	})
}

func TestWithEnvPanicsOnMalformedEntry(t *testing.T) {
	t.Parallel()
	runPanicTests(t, []panicTestCase{
		{
			name:     "no equals sign",
			panics:   true,
			panicMsg: `serverproc: env entry must have the form KEY=VALUE, got "FOO"`,
			fn:       func() { serverproc.WithEnv("A=1", "FOO") },
		},
		{
			name:     "empty key",
			panics:   true,
			panicMsg: `serverproc: env entry must have the form KEY=VALUE, got "=bar"`,
			fn:       func() { serverproc.WithEnv("=bar") },
		},
		{
			name: "empty value",
			fn:   func() { serverproc.WithEnv("FOO=") },
		},
	})
}

func TestDefaults(t *testing.T) {
	t.Parallel()

	cfg := serverproc.ApplyOptionsForTesting()
	if cfg.Program != serverproc.DefaultProgram {
		t.Errorf("Program = %q, want %q", cfg.Program, serverproc.DefaultProgram)
	}
	durations := map[string]struct {
		got, want time.Duration
	}{
		"ReadyTimeout":    {cfg.ReadyTimeout, serverproc.DefaultReadyTimeout},
		"PollInterval":    {cfg.PollInterval, serverproc.DefaultPollInterval},
		"DialTimeout":     {cfg.DialTimeout, serverproc.DefaultDialTimeout},
		"StopGracePeriod": {cfg.StopGracePeriod, serverproc.DefaultStopGracePeriod},
		"StopTimeout":     {cfg.StopTimeout, serverproc.DefaultStopTimeout},
	}
	for name, d := range durations {
		if d.got != d.want {
			t.Errorf("%s = %v, want %v", name, d.got, d.want)
		}
	}
	if cfg.OutputLevel != slog.LevelInfo {
		t.Errorf("OutputLevel = %v, want INFO", cfg.OutputLevel)
	}
	if cfg.Clock == nil {
		t.Error("Clock is nil")
	}
	if cfg.LogDir != "" || cfg.Args != nil || cfg.Env != nil {
		t.Errorf("unexpected non-zero optional fields: %+v", cfg)
	}
}

func TestOptionsApply(t *testing.T) {
	t.Parallel()

	clk := testingclock.NewFakeClock(time.Now())
	cfg := serverproc.ApplyOptionsForTesting(
		serverproc.WithProgram("/bin/server"),
		serverproc.WithArgs("cert.pem"),
		serverproc.WithArgs("--verbose", "x"),
		serverproc.WithEnv("A=1"),
		serverproc.WithEnv("B=2"),
		serverproc.WithReadyTimeout(3*time.Second),
		serverproc.WithPollInterval(7*time.Millisecond),
		serverproc.WithDialTimeout(200*time.Millisecond),
		serverproc.WithStopGracePeriod(time.Second),
		serverproc.WithStopTimeout(4*time.Second),
		serverproc.WithLogDir("/tmp/logs"),
		serverproc.WithOutputLevel(slog.LevelDebug),
		serverproc.WithClock(clk),
	)

	if cfg.Program != "/bin/server" {
		t.Errorf("Program = %q", cfg.Program)
	}
	if want := []string{"cert.pem", "--verbose", "x"}; !slices.Equal(cfg.Args, want) {
		t.Errorf("Args = %v, want %v", cfg.Args, want)
	}
	if want := []string{"A=1", "B=2"}; !slices.Equal(cfg.Env, want) {
		t.Errorf("Env = %v, want %v", cfg.Env, want)
	}
	if cfg.ReadyTimeout != 3*time.Second {
		t.Errorf("ReadyTimeout = %v", cfg.ReadyTimeout)
	}
	if cfg.PollInterval != 7*time.Millisecond {
		t.Errorf("PollInterval = %v", cfg.PollInterval)
	}
	if cfg.DialTimeout != 200*time.Millisecond {
		t.Errorf("DialTimeout = %v", cfg.DialTimeout)
	}
	if cfg.StopGracePeriod != time.Second {
		t.Errorf("StopGracePeriod = %v", cfg.StopGracePeriod)
	}
	if cfg.StopTimeout != 4*time.Second {
		t.Errorf("StopTimeout = %v", cfg.StopTimeout)
	}
	if cfg.LogDir != "/tmp/logs" {
		t.Errorf("LogDir = %q", cfg.LogDir)
	}
	if cfg.OutputLevel != slog.LevelDebug {
		t.Errorf("OutputLevel = %v", cfg.OutputLevel)
	}
	if cfg.Clock != clk {
		t.Error("Clock was not replaced")
	}
}

func TestWithArgsCopiesInput(t *testing.T) {
	t.Parallel()

	args := []string{"a", "b"}
	opt := serverproc.WithArgs(args...)
	args[0] = "mutated"

	cfg := serverproc.ApplyOptionsForTesting(opt)
	if cfg.Args[0] != "a" {
		t.Errorf("Args[0] = %q, want %q", cfg.Args[0], "a")
	}
}
