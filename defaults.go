package serverproc

import "time"

// Default configuration values for Start. Each can be overridden with an
// option or a SERVERPROC_* environment variable.
const (
	// DefaultProgram is the program started when WithProgram is not used.
	// It is looked up in PATH; cmd/simpleserver builds it.
	DefaultProgram = "simpleserver"

	// DefaultReadyTimeout bounds how long Start waits for the port to
	// accept a connection.
	DefaultReadyTimeout = 10 * time.Second

	// DefaultPollInterval is the pause between readiness attempts.
	DefaultPollInterval = 50 * time.Millisecond

	// DefaultDialTimeout bounds each readiness connect attempt. Attempts
	// against a port nobody listens on fail immediately with a refusal, so
	// this only matters when SYNs go unanswered.
	DefaultDialTimeout = time.Second

	// DefaultStopGracePeriod is how long a server gets to exit after
	// SIGTERM before it is killed.
	DefaultStopGracePeriod = 5 * time.Second

	// DefaultStopTimeout bounds the wait for a server to exit during Clean.
	DefaultStopTimeout = 10 * time.Second
)
