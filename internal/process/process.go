package process

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/giantswarm/serverproc/internal/fileutil"
)

// LogFiles holds the optional on-disk copy of a server's stdout and stderr.
type LogFiles struct {
	stdoutFile *os.File
	stderrFile *os.File
	dir        string
	stdoutName string // e.g. "simpleserver-<id>-stdout.log"
	stderrName string
}

// NewLogFiles creates <dir>/<prefix>-stdout.log and <dir>/<prefix>-stderr.log,
// creating dir if needed.
func NewLogFiles(dir, prefix string) (LogFiles, error) {
	if err := fileutil.EnsureDir(dir); err != nil {
		return LogFiles{}, fmt.Errorf("create log dir: %w", err)
	}
	l := LogFiles{
		dir:        dir,
		stdoutName: prefix + "-stdout.log",
		stderrName: prefix + "-stderr.log",
	}
	stdoutFile, err := fileutil.CreateFile(l.StdoutPath())
	if err != nil {
		return LogFiles{}, fmt.Errorf("create stdout log: %w", err)
	}
	stderrFile, err := fileutil.CreateFile(l.StderrPath())
	if err != nil {
		_ = stdoutFile.Close()
		return LogFiles{}, fmt.Errorf("create stderr log: %w", err)
	}
	l.stdoutFile = stdoutFile
	l.stderrFile = stderrFile
	return l, nil
}

// Close closes both files. Safe to call more than once.
func (l *LogFiles) Close() {
	if l.stdoutFile != nil {
		_ = l.stdoutFile.Close()
		l.stdoutFile = nil
	}
	if l.stderrFile != nil {
		_ = l.stderrFile.Close()
		l.stderrFile = nil
	}
}

// StdoutPath returns the path of the stdout log file.
func (l *LogFiles) StdoutPath() string {
	return filepath.Join(l.dir, l.stdoutName)
}

// StderrPath returns the path of the stderr log file.
func (l *LogFiles) StderrPath() string {
	return filepath.Join(l.dir, l.stderrName)
}

// DefaultStopTimeout bounds a stop when the caller configured none.
const DefaultStopTimeout = 10 * time.Second

// DefaultGracePeriod is how long a server gets to exit after SIGTERM before
// it is killed, when the caller configured none.
const DefaultGracePeriod = 5 * time.Second

// killDrainTimeout bounds the wait for cmd.Wait to return after SIGKILL.
// SIGKILL cannot be caught, so this only fires if Wait is stuck on I/O.
const killDrainTimeout = 10 * time.Second

// waitClosed waits up to timeout for ch to be closed and reports whether it was.
func waitClosed(ch <-chan struct{}, timeout time.Duration) bool {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-ch:
		return true
	case <-t.C:
		return false
	}
}

// isClosed reports whether ch is closed without blocking. A nil channel is
// never closed.
func isClosed(ch <-chan struct{}) bool {
	if ch == nil {
		return false
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// terminate stops proc and waits until exited is closed.
//
//  1. If the process already exited, return immediately.
//  2. Send SIGTERM. If signalling fails (process gone, or the platform has no
//     SIGTERM), kill outright.
//  3. Send SIGKILL once grace elapses (grace is clamped to timeout).
//  4. Wait for exit up to timeout, then up to killDrainTimeout more.
//
// Worst-case blocking is timeout + killDrainTimeout.
func terminate(proc *os.Process, exited <-chan struct{}, grace, timeout time.Duration, name string) error {
	if isClosed(exited) {
		return nil
	}

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		_ = proc.Kill() // no-op if the process already finished
		if !waitClosed(exited, killDrainTimeout) {
			return fmt.Errorf("%s: timed out draining process after signal failure: %w", name, err)
		}
		return nil
	}

	killTimer := time.AfterFunc(min(grace, timeout), func() {
		_ = proc.Kill() // "process already finished" is expected here
	})
	defer killTimer.Stop()

	if waitClosed(exited, timeout) {
		return nil
	}
	_ = proc.Kill()
	if !waitClosed(exited, killDrainTimeout) {
		return fmt.Errorf("%s: timed out waiting for process to exit after SIGKILL", name)
	}
	return nil
}

// expectSignalExit interprets the cmd.Wait result after a stop. Exits caused
// by SIGTERM or SIGKILL are the expected outcome of stopping and are not
// errors; a clean zero exit is not an error either.
func expectSignalExit(err error, name string) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok {
			sig := status.Signal()
			if sig == syscall.SIGTERM || sig == syscall.SIGKILL {
				return nil
			}
		}
	}
	return fmt.Errorf("%s: %w", name, err)
}
