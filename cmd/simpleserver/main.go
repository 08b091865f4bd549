// Command simpleserver is the default program started by serverproc. It
// serves HTTP on 127.0.0.1:<port>, or HTTPS when a certificate file is given
// and loads, until it receives SIGINT or SIGTERM.
//
// Usage:
//
//	simpleserver [--delay 1s] [--root dir] [--log-level DEBUG] <port> [certfile]
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	flags "github.com/jessevdk/go-flags"

	"github.com/giantswarm/serverproc/internal/testserver"
)

type options struct {
	Delay    time.Duration `long:"delay" description:"wait this long before binding the port"`
	Root     string        `long:"root" description:"serve files from this directory instead of a static ok"`
	LogLevel string        `long:"log-level" default:"INFO" description:"DEBUG, INFO, WARN or ERROR"`

	Args struct {
		Port     int    `positional-arg-name:"port" required:"yes"`
		CertFile string `positional-arg-name:"certfile"`
	} `positional-args:"yes"`
}

func parseOptions(argv []string) (options, error) {
	var opts options
	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	rest, err := parser.ParseArgs(argv)
	if err != nil {
		return options{}, err
	}
	if len(rest) > 0 {
		return options{}, fmt.Errorf("unexpected arguments: %q", rest)
	}
	if opts.Args.Port <= 0 || opts.Args.Port > 65535 {
		return options{}, fmt.Errorf("port must be between 1 and 65535, got %d", opts.Args.Port)
	}
	return opts, nil
}

func newLogger(levelStr string) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", levelStr, err)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

func run(argv []string) int {
	opts, err := parseOptions(argv)
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			return 0
		}
		fmt.Fprintf(os.Stderr, "simpleserver: %v\n", err)
		return 2
	}
	logger, err := newLogger(opts.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "simpleserver: %v\n", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = testserver.Run(ctx, testserver.Config{
		Port:       opts.Args.Port,
		CertFile:   opts.Args.CertFile,
		Root:       opts.Root,
		StartDelay: opts.Delay,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("server failed", "error", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(run(os.Args[1:]))
}
