// Package probe implements the readiness check used while a supervised server
// starts: a single TCP connect attempt whose result is classified as an
// Outcome. Success means something accepted the connection; no protocol
// handshake is attempted.
package probe
