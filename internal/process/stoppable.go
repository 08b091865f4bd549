package process

import "time"

var _ Stoppable = (*BaseProcess)(nil)

// Stoppable is something that can be stopped and then have its resources
// released.
type Stoppable interface {
	Stop(timeout time.Duration) error
	Close()
}

// StopCloseAndNil stops *p, closes it, and sets *p to nil. A nil p or *p is
// a no-op, which makes repeated teardown calls safe. Close and the nil-out
// run even when Stop fails; the Stop error is returned.
//
// The P/E pair restricts P to pointer types implementing Stoppable so the
// nil check needs no reflection:
//
//	var proc *process.BaseProcess
//	// ... start proc ...
//	err := process.StopCloseAndNil(&proc, 10*time.Second)
func StopCloseAndNil[P interface {
	*E
	Stoppable
}, E any](p *P, timeout time.Duration) error {
	if p == nil || *p == nil {
		return nil
	}
	defer func() {
		(*p).Close()
		*p = nil
	}()
	return (*p).Stop(timeout)
}
