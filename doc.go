// Package serverproc launches short-lived server processes for tests and
// tears them down deterministically.
//
// Start allocates a free loopback port, runs "<program> <port> [args...]",
// and returns only once a TCP connection to that port succeeds. If the
// program cannot be spawned, exits early, or does not become connectable
// before the readiness deadline, Start fails with a *StartupError and leaves
// nothing running.
//
// # Basic Usage
//
//	srv, err := serverproc.Start(ctx, logger,
//	    serverproc.WithProgram("./testdata/simple-server"),
//	    serverproc.WithArgs("ssl_cert.pem"),
//	)
//	if err != nil {
//	    t.Fatal(err)
//	}
//	defer srv.Clean()
//
//	resp, err := http.Get("http://" + srv.Addr() + "/")
//
// Clean is idempotent and never fails, so it can be deferred or registered
// with t.Cleanup unconditionally. The serverproctest package does the
// registration for you.
//
// # Server Programs
//
// A supervised program must accept its listening port as the first
// positional argument and bind 127.0.0.1:<port>. Readiness is purely a TCP
// connect; no protocol handshake is attempted. Output written to stdout and
// stderr is forwarded to the logger passed to Start, one record per line.
//
// # Configuration
//
// Policy values (readiness timeout, poll interval, stop grace period) have
// defaults in this package, may be overridden with SERVERPROC_* environment
// variables, and finally with options passed to Start.
package serverproc
