package process

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/giantswarm/serverproc/internal/logsink"
	"github.com/giantswarm/serverproc/internal/sentinel"
)

// ErrAlreadyStarted is returned by Start on a process that is still owned.
const ErrAlreadyStarted = sentinel.Error("process already started")

// ErrNilCmd is returned when Start is called with a nil *exec.Cmd.
const ErrNilCmd = sentinel.Error("cmd must not be nil")

// ErrEmptyCmdPath is returned when Start is called with an empty cmd.Path.
const ErrEmptyCmdPath = sentinel.Error("cmd.Path must not be empty")

// outputWaitDelay bounds how long cmd.Wait keeps waiting for stdout/stderr
// after the process exits. A grandchild that inherited the pipes would
// otherwise hold Wait open indefinitely.
const outputWaitDelay = 2 * time.Second

// Output configures where a process's stdout and stderr go.
type Output struct {
	Logger *slog.Logger // required; receives one record per output line
	Level  slog.Level   // level of the output records
	LogDir string       // optional; also copy raw output to files here
	Prefix string       // file name prefix when LogDir is set
}

// waitResult is filled in by the single cmd.Wait goroutine before done is
// closed. Readers must observe done closed before touching err or state.
type waitResult struct {
	done  chan struct{}
	err   error
	state *os.ProcessState
}

// BaseProcess owns one running command.
//
// BaseProcess is not safe for concurrent use; the owning server serializes
// calls.
type BaseProcess struct {
	cmd      *exec.Cmd
	wait     *waitResult
	stdout   *logsink.LineWriter
	stderr   *logsink.LineWriter
	logFiles LogFiles
	name     string
	log      *slog.Logger

	gracePeriod time.Duration // SIGTERM to SIGKILL delay
	stopTimeout time.Duration // used by Close when Stop was skipped
}

// NewBaseProcess creates a BaseProcess. Zero durations fall back to
// DefaultGracePeriod and DefaultStopTimeout. Panics if name is empty.
func NewBaseProcess(name string, logger *slog.Logger, gracePeriod, stopTimeout time.Duration) *BaseProcess {
	if name == "" {
		panic("serverproc: process name must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if gracePeriod <= 0 {
		gracePeriod = DefaultGracePeriod
	}
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}
	return &BaseProcess{
		name:        name,
		log:         logger,
		gracePeriod: gracePeriod,
		stopTimeout: stopTimeout,
	}
}

// Start wires the command's output and starts it. The cmd must already have
// Path and Args set. A single goroutine calls cmd.Wait; its completion is
// observable through Exited.
func (b *BaseProcess) Start(cmd *exec.Cmd, out Output) error {
	if cmd == nil {
		return ErrNilCmd
	}
	if cmd.Path == "" {
		return ErrEmptyCmdPath
	}
	if b.cmd != nil {
		return ErrAlreadyStarted
	}

	logger := out.Logger
	if logger == nil {
		logger = b.log
	}
	stdout := logsink.NewLineWriter(logger, out.Level, "stream", "stdout")
	stderr := logsink.NewLineWriter(logger, out.Level, "stream", "stderr")

	var logFiles LogFiles
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	if out.LogDir != "" {
		prefix := out.Prefix
		if prefix == "" {
			prefix = b.name
		}
		var err error
		logFiles, err = NewLogFiles(out.LogDir, prefix)
		if err != nil {
			return fmt.Errorf("create %s logs: %w", b.name, err)
		}
		cmd.Stdout = io.MultiWriter(stdout, logFiles.stdoutFile)
		cmd.Stderr = io.MultiWriter(stderr, logFiles.stderrFile)
	}

	configureSysProcAttr(cmd)
	cmd.WaitDelay = outputWaitDelay

	if err := cmd.Start(); err != nil {
		logFiles.Close()
		return fmt.Errorf("start %s process: %w", b.name, err)
	}

	w := &waitResult{done: make(chan struct{})}
	go func() {
		w.err = cmd.Wait()
		w.state = cmd.ProcessState
		close(w.done)
	}()

	b.cmd = cmd
	b.wait = w
	b.stdout = stdout
	b.stderr = stderr
	b.logFiles = logFiles
	return nil
}

// Stop terminates the process, waits for it to exit, and flushes buffered
// output. The timeout bounds the wait after SIGTERM; SIGKILL is sent after
// the grace period. After Stop returns, IsRunning reports false. Safe to
// call when the process was never started or was already stopped.
func (b *BaseProcess) Stop(timeout time.Duration) error {
	if b.cmd == nil || b.cmd.Process == nil {
		b.cmd = nil
		return nil
	}
	if timeout <= 0 {
		timeout = b.stopTimeout
	}

	pid := b.cmd.Process.Pid
	err := terminate(b.cmd.Process, b.wait.done, b.gracePeriod, timeout, b.name)
	if err == nil {
		err = expectSignalExit(b.wait.err, b.name)
	} else {
		b.log.Warn("process stop failed; process may be orphaned",
			"process", b.name, "pid", pid, "error", err)
		// Wait never returned, so the result must not be read later.
		b.wait = nil
	}
	b.flush()
	b.cmd = nil
	return err
}

// Close releases the output files. If the process is still running, Close
// stops it first and logs a warning; callers are expected to Stop first.
func (b *BaseProcess) Close() {
	if b.cmd != nil {
		b.log.Warn("process.Close called without Stop; stopping automatically",
			"process", b.name)
		if err := b.Stop(b.stopTimeout); err != nil {
			b.log.Warn("auto-stop during Close failed",
				"process", b.name, "error", err)
		}
	}
	b.flush()
	b.logFiles.Close()
}

// flush emits any partial output line still buffered.
func (b *BaseProcess) flush() {
	if b.stdout != nil {
		b.stdout.Flush()
	}
	if b.stderr != nil {
		b.stderr.Flush()
	}
}

// Logger returns the operational logger of this process.
func (b *BaseProcess) Logger() *slog.Logger {
	return b.log
}

// Exited returns a channel closed when the process exits. It is nil before
// Start and after Stop.
func (b *BaseProcess) Exited() <-chan struct{} {
	if b.cmd == nil || b.wait == nil {
		return nil
	}
	return b.wait.done
}

// IsStarted reports whether the process was started and not yet stopped,
// regardless of whether it is still alive.
func (b *BaseProcess) IsStarted() bool {
	return b.cmd != nil
}

// IsRunning reports whether the process is owned and has not exited. It
// never blocks.
func (b *BaseProcess) IsRunning() bool {
	return b.cmd != nil && b.wait != nil && !isClosed(b.wait.done)
}

// PID returns the OS process id, or 0 if no process is owned.
func (b *BaseProcess) PID() int {
	if b.cmd == nil || b.cmd.Process == nil {
		return 0
	}
	return b.cmd.Process.Pid
}

// ExitCode returns the exit code once the process has exited. A process
// terminated by a signal reports -1. The result stays available after Stop.
func (b *BaseProcess) ExitCode() (int, bool) {
	if b.wait == nil || !isClosed(b.wait.done) || b.wait.state == nil {
		return 0, false
	}
	return b.wait.state.ExitCode(), true
}

// WaitError returns the cmd.Wait error once the process has exited.
func (b *BaseProcess) WaitError() error {
	if b.wait == nil || !isClosed(b.wait.done) {
		return nil
	}
	return b.wait.err
}
