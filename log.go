package serverproc

import "log/slog"

// defaultLogger is used when Start receives a nil logger.
func defaultLogger() *slog.Logger {
	return slog.Default().With("component", "serverproc")
}
