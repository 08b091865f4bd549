package probe

import (
	"context"
	"net"
	"time"

	utilnet "k8s.io/apimachinery/pkg/util/net"
)

// Outcome is the result of one readiness attempt.
type Outcome int

const (
	// Refused means the connect attempt failed: the port is not accepting
	// connections yet (refused, unreachable, or dial timeout). Retryable.
	Refused Outcome = iota

	// Connected means the port accepted a TCP connection.
	Connected

	// Exited means the server process terminated. It is produced by the
	// wait loop's exit check rather than by a dial.
	Exited
)

// String returns the outcome name.
func (o Outcome) String() string {
	switch o {
	case Refused:
		return "refused"
	case Connected:
		return "connected"
	case Exited:
		return "exited"
	default:
		return "unknown"
	}
}

// Func performs one readiness attempt. The returned error describes why the
// attempt did not connect and is informational only.
type Func func(ctx context.Context) (Outcome, error)

// TCP returns a Func that dials addr with the given per-attempt timeout.
func TCP(addr string, timeout time.Duration) Func {
	dialer := &net.Dialer{Timeout: timeout}
	return func(ctx context.Context) (Outcome, error) {
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return Refused, err
		}
		_ = conn.Close() // best-effort close of the probe connection
		return Connected, nil
	}
}

// IsRefused reports whether err is an explicit connection refusal, as opposed
// to a timeout or routing failure. Callers use it to pick a log message.
func IsRefused(err error) bool {
	return err != nil && utilnet.IsConnectionRefused(err)
}
