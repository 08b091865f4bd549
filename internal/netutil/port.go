package netutil

import (
	"fmt"
	"log/slog"
	"net"
	"sync"

	"k8s.io/apimachinery/pkg/util/sets"
)

// maxPortRetries bounds how many kernel-assigned ports are tried when the
// kernel keeps returning ports that are still registered.
const maxPortRetries = 20

// loopbackAddr is the address every allocation listens on.
const loopbackAddr = "127.0.0.1:0"

// PortRegistry hands out ephemeral ports and tracks the ones currently owned
// by a live server in this process.
//
// The listener used to discover a port is closed before Allocate returns.
// Another process may bind the port before the subprocess does; that window
// is accepted; the caller sees it as a failed start.
type PortRegistry struct {
	mu    sync.Mutex
	ports sets.Set[int]
	log   *slog.Logger
}

// NewPortRegistry creates an empty registry.
// If logger is nil, slog.Default() is used.
func NewPortRegistry(logger *slog.Logger) *PortRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &PortRegistry{
		ports: sets.New[int](),
		log:   logger,
	}
}

// reserve registers port and reports whether it was free in the registry.
func (r *PortRegistry) reserve(port int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ports.Has(port) {
		return false
	}
	r.ports.Insert(port)
	return true
}

// Release removes port from the registry. Releasing an unknown port is a no-op.
func (r *PortRegistry) Release(port int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ports.Delete(port)
}

// Len returns the number of ports currently registered.
func (r *PortRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ports.Len()
}

// Allocate returns a free loopback port chosen by the kernel. The temporary
// listener is closed on every path. The port stays registered until Release.
func (r *PortRegistry) Allocate() (int, error) {
	for range maxPortRetries {
		l, err := net.Listen("tcp", loopbackAddr)
		if err != nil {
			return 0, fmt.Errorf("listen on %s: %w", loopbackAddr, err)
		}
		tcpAddr, ok := l.Addr().(*net.TCPAddr)
		if !ok {
			_ = l.Close()
			return 0, fmt.Errorf("unexpected address type: %T", l.Addr())
		}
		port := tcpAddr.Port
		if closeErr := l.Close(); closeErr != nil {
			r.log.Warn("close probe listener", "port", port, "error", closeErr)
		}
		if r.reserve(port) {
			return port, nil
		}
		r.log.Debug("port already registered, retrying", "port", port)
	}
	return 0, fmt.Errorf("allocate unique port: exhausted %d attempts", maxPortRetries)
}
