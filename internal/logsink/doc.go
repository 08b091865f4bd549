// Package logsink forwards a subprocess's output streams to a *slog.Logger.
//
// LineWriter turns an arbitrary byte stream into one log record per line, so
// several servers can share a single logger without their output interleaving
// inside a line.
package logsink
