package logsink

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
)

// maxLineLength caps how much unterminated output is buffered. A longer line
// is emitted in chunks of this size.
const maxLineLength = 64 * 1024

// LineWriter is an io.Writer that emits each complete line written to it as
// a separate log record. It is safe for concurrent use.
type LineWriter struct {
	mu    sync.Mutex
	log   *slog.Logger
	level slog.Level
	buf   []byte
}

// NewLineWriter returns a LineWriter logging at level. attrs are attached to
// every record (e.g. "stream", "stdout"). If logger is nil, slog.Default() is
// used.
func NewLineWriter(logger *slog.Logger, level slog.Level, attrs ...any) *LineWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LineWriter{
		log:   logger.With(attrs...),
		level: level,
	}
}

// Write buffers p and emits every complete line. It never fails.
func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		w.emit(w.buf[:i])
		w.buf = w.buf[i+1:]
	}
	for len(w.buf) >= maxLineLength {
		w.emit(w.buf[:maxLineLength])
		w.buf = w.buf[maxLineLength:]
	}
	if len(w.buf) == 0 {
		w.buf = nil
	}
	return len(p), nil
}

// Flush emits any buffered partial line.
func (w *LineWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.buf) > 0 {
		w.emit(w.buf)
	}
	w.buf = nil
}

// emit logs one line with trailing carriage returns removed. Caller holds mu.
func (w *LineWriter) emit(line []byte) {
	line = bytes.TrimRight(line, "\r")
	w.log.Log(context.Background(), w.level, string(line))
}
