// Command serverproc starts one server program the way the serverproc
// library does in tests, prints the port it listens on, and cleans it up on
// SIGINT or SIGTERM.
//
// Usage:
//
//	serverproc [--config file.yaml] [--ready-timeout 30s] [--env K=V]... -- <program> [args...]
//
// The program is invoked as "<program> <port> [args...]". Once it accepts
// connections, "port=<n>" is printed on stdout.
//
// Exit codes: 0 after a signal, 1 if the server failed to start, 2 for
// invalid flags or configuration, 3 if the server exited on its own.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	flags "github.com/jessevdk/go-flags"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/giantswarm/serverproc"
)

const (
	exitOK          = 0
	exitStartFailed = 1
	exitUsage       = 2
	exitServerDied  = 3
)

// exitPollInterval paces the check for a server that exited on its own.
const exitPollInterval = 100 * time.Millisecond

type cliOptions struct {
	Config          string        `short:"c" long:"config" description:"YAML file providing defaults for every flag"`
	ReadyTimeout    time.Duration `long:"ready-timeout" description:"how long to wait for the port to accept connections"`
	PollInterval    time.Duration `long:"poll-interval" description:"pause between readiness attempts"`
	StopGracePeriod time.Duration `long:"stop-grace-period" description:"SIGTERM to SIGKILL delay on shutdown"`
	LogDir          string        `long:"log-dir" description:"also write the server's stdout and stderr to files here"`
	LogLevel        string        `long:"log-level" description:"DEBUG, INFO, WARN or ERROR (default INFO)"`
	Env             []string      `short:"e" long:"env" description:"KEY=VALUE added to the server environment; repeatable"`
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// loadConfig parses argv and the optional config file into a validated
// configuration.
func loadConfig(argv []string) (fileConfig, error) {
	var opts cliOptions
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.Usage = "[OPTIONS] -- <program> [args...]"
	command, err := parser.ParseArgs(argv)
	if err != nil {
		return fileConfig{}, err
	}

	var cfg fileConfig
	if opts.Config != "" {
		if cfg, err = loadFileConfig(opts.Config); err != nil {
			return fileConfig{}, err
		}
	}
	cfg = cfg.merge(opts, command)
	if err := cfg.validate(); err != nil {
		return fileConfig{}, err
	}
	return cfg, nil
}

// run is main without the process exit, reading signals from ctx.
func run(ctx context.Context, argv []string, stdout, stderr io.Writer) int {
	cfg, err := loadConfig(argv)
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(stdout, err)
			return exitOK
		}
		fmt.Fprintf(stderr, "serverproc: %v\n", err)
		return exitUsage
	}

	level := slog.LevelInfo
	if cfg.LogLevel != "" {
		level, _ = parseLevel(cfg.LogLevel)
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})).
		With("component", "serverproc")

	srv, err := serverproc.Start(ctx, logger, cfg.options()...)
	if err != nil {
		logger.Error("server failed to start", "error", err)
		return exitStartFailed
	}
	defer srv.Clean()

	fmt.Fprintf(stdout, "port=%d\n", srv.Port())

	err = wait.PollUntilContextCancel(ctx, exitPollInterval, true, func(context.Context) (bool, error) {
		return !srv.IsProcessRunning(), nil
	})
	if err != nil {
		logger.Info("shutting down", "reason", context.Cause(ctx))
		return exitOK
	}
	code, _ := srv.ExitCode()
	logger.Error("server exited unexpectedly", "exit_code", code)
	return exitServerDied
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}
