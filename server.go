package serverproc

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/giantswarm/serverproc/internal/probe"
	"github.com/giantswarm/serverproc/internal/process"
)

// Server is a running server process listening on a loopback port.
//
// A Server returned by Start has accepted at least one TCP connection on
// its port. The Server exclusively owns the process; call Clean when done.
// All methods are safe for concurrent use.
type Server struct {
	id      string
	port    int
	program string
	args    []string
	log     *slog.Logger
	cfg     config

	// exited is captured at spawn and closed when the process has been
	// reaped. It outlives proc so IsProcessRunning never blocks.
	exited <-chan struct{}
	state  atomic.Int32

	mu       sync.Mutex // serializes Clean
	proc     *process.BaseProcess
	exitCode int
	hasExit  bool
}

// Start launches "<program> <port> [args...]" on a freshly allocated loopback
// port and waits until the port accepts a TCP connection.
//
// On failure Start returns a *StartupError (or an ErrInvalidConfig error for
// bad options) and leaves no process running and no port reserved. ctx
// bounds only the readiness wait; the process outlives ctx until Clean.
//
// A nil logger falls back to slog.Default.
func Start(ctx context.Context, logger *slog.Logger, opts ...Option) (*Server, error) {
	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = defaultLogger()
	}

	port, err := cfg.Ports.Allocate()
	if err != nil {
		return nil, &StartupError{Reason: ReasonSpawnFailed, Program: cfg.Program, Err: err}
	}

	id := uuid.NewString()
	s := &Server{
		id:      id,
		port:    port,
		program: cfg.Program,
		args:    slices.Clone(cfg.Args),
		log:     logger.With("server_id", id, "program", filepath.Base(cfg.Program), "port", port),
		cfg:     cfg,
	}
	s.state.Store(int32(StateStarting))

	if err := s.start(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) start(ctx context.Context) error {
	name := filepath.Base(s.program)
	cmd := exec.Command(s.program, append([]string{strconv.Itoa(s.port)}, s.args...)...)
	if len(s.cfg.Env) > 0 {
		cmd.Env = append(os.Environ(), s.cfg.Env...)
	}

	proc := process.NewBaseProcess(name, s.log, s.cfg.StopGracePeriod, s.cfg.StopTimeout)
	err := proc.Start(cmd, process.Output{
		Logger: s.log,
		Level:  s.cfg.OutputLevel,
		LogDir: s.cfg.LogDir,
		Prefix: name + "-" + s.id,
	})
	if err != nil {
		s.fail()
		s.log.Warn("server failed to spawn", "error", err)
		return &StartupError{Reason: ReasonSpawnFailed, Program: s.program, Port: s.port, Err: err}
	}
	s.proc = proc
	s.exited = proc.Exited()
	s.log.Info("server process started", "pid", proc.PID())

	began := s.cfg.Clock.Now()
	err = process.WaitReady(ctx, process.WaitReadyConfig{
		Interval:      s.cfg.PollInterval,
		Timeout:       s.cfg.ReadyTimeout,
		Name:          name,
		Port:          s.port,
		Logger:        s.log,
		ProcessExited: s.exited,
		Clock:         s.cfg.Clock,
	}, probe.TCP(s.Addr(), s.cfg.DialTimeout))
	if err != nil {
		serr := &StartupError{Reason: ReasonTimeout, Program: s.program, Port: s.port, Err: err}
		if errors.Is(err, process.ErrProcessExited) {
			serr.Reason = ReasonExitedEarly
			serr.Err = nil
			if code, ok := proc.ExitCode(); ok {
				serr.Exit = &code
			}
		}
		s.fail()
		s.log.Warn("server failed to become ready", "reason", serr.Reason, "error", err)
		return serr
	}

	s.state.Store(int32(StateRunning))
	s.log.Info("server ready", "pid", proc.PID(), "elapsed", s.cfg.Clock.Since(began))
	return nil
}

// fail tears down a server that never became ready.
func (s *Server) fail() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.teardown(StateFailed)
}

// teardown stops the process, closes its output and releases the port.
// Callers hold s.mu.
func (s *Server) teardown(final State) {
	if proc := s.proc; proc != nil {
		if err := process.StopCloseAndNil(&s.proc, s.cfg.StopTimeout); err != nil {
			level := slog.LevelWarn
			if final == StateFailed {
				// An early exit surfaces here as a non-signal exit status.
				level = slog.LevelDebug
			}
			s.log.Log(context.Background(), level, "stop server process", "error", err)
		}
		s.exitCode, s.hasExit = proc.ExitCode()
	}
	s.cfg.Ports.Release(s.port)
	s.state.Store(int32(final))
}

// Clean stops the server process and releases its port. It sends SIGTERM,
// escalates to SIGKILL after the stop grace period, and waits for the
// process to exit. Errors are logged, never returned. Clean is idempotent
// and safe to call from deferred or cleanup functions.
func (s *Server) Clean() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if State(s.state.Load()) != StateRunning {
		return
	}
	s.log.Info("stopping server", "pid", s.pidLocked())
	s.teardown(StateStopped)
	s.log.Info("server stopped")
}

// IsProcessRunning reports whether the server process has not yet exited.
// It never blocks and does not change the server's state.
func (s *Server) IsProcessRunning() bool {
	select {
	case <-s.exited:
		return false
	default:
		return s.exited != nil
	}
}

// Exited returns a channel closed once the server process has exited.
func (s *Server) Exited() <-chan struct{} {
	return s.exited
}

// ExitCode returns the exit code once the process has exited. A process
// terminated by a signal, including by Clean, reports -1.
func (s *Server) ExitCode() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc != nil {
		return s.proc.ExitCode()
	}
	return s.exitCode, s.hasExit
}

// Port returns the loopback port the server listens on.
func (s *Server) Port() int { return s.port }

// Addr returns "127.0.0.1:<port>".
func (s *Server) Addr() string {
	return net.JoinHostPort("127.0.0.1", strconv.Itoa(s.port))
}

// ID returns the random identifier attached to this server's log records
// and output file names.
func (s *Server) ID() string { return s.id }

// Program returns the program the server was started with.
func (s *Server) Program() string { return s.program }

// Args returns a copy of the extra arguments passed after the port.
func (s *Server) Args() []string { return slices.Clone(s.args) }

// Logger returns the logger carrying this server's attributes.
func (s *Server) Logger() *slog.Logger { return s.log }

// State returns the current lifecycle state.
func (s *Server) State() State { return State(s.state.Load()) }

// PID returns the OS process id, or 0 after Clean.
func (s *Server) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pidLocked()
}

func (s *Server) pidLocked() int {
	if s.proc == nil {
		return 0
	}
	return s.proc.PID()
}
