package testserver

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds graceful HTTP shutdown once the context is done.
const shutdownTimeout = 5 * time.Second

// readHeaderTimeout protects the server from clients that never finish
// sending headers.
const readHeaderTimeout = 10 * time.Second

// Config configures Run.
type Config struct {
	Port       int           // required; 1-65535
	CertFile   string        // optional PEM with certificate and key; TLS is used when it loads
	Root       string        // optional directory to serve; "ok" responses otherwise
	StartDelay time.Duration // optional delay before binding
	Logger     *slog.Logger  // optional, defaults to slog.Default()
}

func (c Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.StartDelay < 0 {
		return fmt.Errorf("start delay must not be negative, got %s", c.StartDelay)
	}
	return nil
}

// Run serves until ctx is done, then shuts down gracefully. A CertFile that
// is missing or unreadable is logged and plain HTTP is served instead, so
// the port still becomes connectable.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.validate(); err != nil {
		return fmt.Errorf("invalid testserver config: %w", err)
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	if cfg.StartDelay > 0 {
		log.Info("delaying start", "delay", cfg.StartDelay)
		t := time.NewTimer(cfg.StartDelay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}

	tlsConfig := loadTLSConfig(log, cfg.CertFile)

	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	scheme := "http"
	if tlsConfig != nil {
		ln = tls.NewListener(ln, tlsConfig)
		scheme = "https"
	}

	srv := &http.Server{
		Handler:           Handler(cfg.Root),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	log.Info("serving", "addr", addr, "scheme", scheme)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	err = g.Wait()
	log.Info("stopped", "addr", addr)
	return err
}

// Handler returns the HTTP handler. /healthz always answers "ok"; other
// paths serve files from root when set, or "ok".
func Handler(root string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	if root != "" {
		mux.Handle("/", http.FileServer(http.Dir(root)))
	} else {
		mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("ok"))
		})
	}
	return mux
}

// loadTLSConfig returns a TLS config from certFile, or nil when certFile is
// empty or cannot be loaded.
func loadTLSConfig(log *slog.Logger, certFile string) *tls.Config {
	if certFile == "" {
		return nil
	}
	cert, err := tls.LoadX509KeyPair(certFile, certFile)
	if err != nil {
		log.Warn("certificate not usable, serving plain HTTP", "cert_file", certFile, "error", err)
		return nil
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
}
