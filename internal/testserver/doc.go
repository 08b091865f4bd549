// Package testserver is the body of the canonical server program launched by
// serverproc: a small HTTP server bound to 127.0.0.1:<port>, optionally
// speaking TLS, optionally delaying its bind to mimic a slow starter.
package testserver
