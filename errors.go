package serverproc

import (
	"fmt"
	"strings"

	"github.com/giantswarm/serverproc/internal/sentinel"
)

// Sentinel errors for error inspection with errors.Is.
const (
	// ErrStartup matches every error returned by Start for a server that
	// could not be brought up. The concrete error is a *StartupError.
	ErrStartup = sentinel.Error("server startup failed")

	// ErrSpawnFailed is matched when the program could not be executed,
	// e.g. it does not exist or is not executable.
	ErrSpawnFailed = sentinel.Error("server process could not be spawned")

	// ErrExitedEarly is matched when the program exited before its port
	// accepted a connection.
	ErrExitedEarly = sentinel.Error("server process exited before becoming ready")

	// ErrReadinessTimeout is matched when the port did not accept a
	// connection before the readiness deadline, or the context passed to
	// Start was done first.
	ErrReadinessTimeout = sentinel.Error("server did not become ready in time")

	// ErrInvalidConfig is returned by Start when options or SERVERPROC_*
	// environment variables are invalid. No process is started.
	ErrInvalidConfig = sentinel.Error("invalid server configuration")
)

// Reason classifies why a server failed to start.
type Reason int

const (
	// ReasonSpawnFailed means the program could not be executed.
	ReasonSpawnFailed Reason = iota
	// ReasonExitedEarly means the program exited before becoming ready.
	ReasonExitedEarly
	// ReasonTimeout means readiness was not reached in time.
	ReasonTimeout
)

// String returns the name of the reason.
func (r Reason) String() string {
	switch r {
	case ReasonSpawnFailed:
		return "SpawnFailed"
	case ReasonExitedEarly:
		return "ExitedEarly"
	case ReasonTimeout:
		return "Timeout"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

func (r Reason) sentinel() error {
	switch r {
	case ReasonSpawnFailed:
		return ErrSpawnFailed
	case ReasonExitedEarly:
		return ErrExitedEarly
	default:
		return ErrReadinessTimeout
	}
}

// StartupError describes a failed Start. It matches ErrStartup and the
// sentinel of its Reason with errors.Is.
type StartupError struct {
	Reason  Reason
	Program string
	Port    int   // 0 if no port was allocated
	Exit    *int  // exit code for ReasonExitedEarly; -1 if killed by a signal
	Err     error // underlying cause, may be nil
}

func (e *StartupError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "start %s", e.Program)
	if e.Port != 0 {
		fmt.Fprintf(&b, " on port %d", e.Port)
	}
	b.WriteString(": ")
	b.WriteString(e.Reason.sentinel().Error())
	if e.Exit != nil {
		fmt.Fprintf(&b, " (exit code %d)", *e.Exit)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes ErrStartup, the reason sentinel and the cause.
func (e *StartupError) Unwrap() []error {
	errs := []error{ErrStartup, e.Reason.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// ExitCode returns the exit code of a server that exited early.
func (e *StartupError) ExitCode() (int, bool) {
	if e.Exit == nil {
		return 0, false
	}
	return *e.Exit, true
}
