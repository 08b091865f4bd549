// Package serverproctest wires serverproc into Go tests: servers log through
// the test's log and are cleaned up when the test ends.
package serverproctest

import (
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/giantswarm/serverproc"
)

// LogLevelEnv selects the level of Logger, e.g. SERVERPROC_LOG_LEVEL=DEBUG
// to see every readiness attempt. Defaults to INFO.
const LogLevelEnv = "SERVERPROC_LOG_LEVEL"

// Start starts a server and registers its Clean with tb.Cleanup. It fails
// the test immediately if the server does not become ready.
func Start(tb testing.TB, opts ...serverproc.Option) *serverproc.Server {
	tb.Helper()

	srv, err := serverproc.Start(tb.Context(), Logger(tb), opts...)
	if err != nil {
		tb.Fatalf("start server: %v", err)
	}
	tb.Cleanup(srv.Clean)
	return srv
}

// Logger returns a logger whose records are written with tb.Logf, so they
// are attributed to the test and only shown on failure or with -v.
func Logger(tb testing.TB) *slog.Logger {
	return slog.New(slog.NewTextHandler(tbWriter{tb}, &slog.HandlerOptions{Level: levelFromEnv()}))
}

func levelFromEnv() slog.Level {
	levelStr := os.Getenv(LogLevelEnv)
	if levelStr == "" {
		return slog.LevelInfo
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// tbWriter adapts testing.TB to io.Writer. slog handlers emit each record
// with a single Write, so every call is one line.
type tbWriter struct {
	tb testing.TB
}

func (w tbWriter) Write(p []byte) (int, error) {
	w.tb.Logf("%s", strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}
