// Package process manages the lifecycle of one supervised subprocess.
//
// BaseProcess starts a command with its output routed to a logger (and
// optionally to files), tracks its exit through a single cmd.Wait goroutine,
// and stops it with SIGTERM followed by SIGKILL after a grace period.
// WaitReady is the bounded readiness-poll loop; it runs on an injectable
// clock so tests can drive timeouts without sleeping. StopCloseAndNil gives
// callers a single idempotent teardown step.
package process
