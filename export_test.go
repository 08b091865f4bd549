package serverproc

import (
	"log/slog"
	"time"

	"k8s.io/utils/clock"

	"github.com/giantswarm/serverproc/internal/netutil"
)

// WithPortRegistryForTesting makes Start allocate from r instead of the
// process-wide registry.
func WithPortRegistryForTesting(r *netutil.PortRegistry) Option {
	return func(c *config) {
		c.Ports = r
	}
}

// ConfigSnapshot holds a copy of config fields for test assertions.
type ConfigSnapshot struct {
	Program         string
	Args            []string
	Env             []string
	ReadyTimeout    time.Duration
	PollInterval    time.Duration
	DialTimeout     time.Duration
	StopGracePeriod time.Duration
	StopTimeout     time.Duration
	LogDir          string
	OutputLevel     slog.Level
	Clock           clock.Clock
}

func snapshot(cfg config) ConfigSnapshot {
	return ConfigSnapshot{
		Program:         cfg.Program,
		Args:            cfg.Args,
		Env:             cfg.Env,
		ReadyTimeout:    cfg.ReadyTimeout,
		PollInterval:    cfg.PollInterval,
		DialTimeout:     cfg.DialTimeout,
		StopGracePeriod: cfg.StopGracePeriod,
		StopTimeout:     cfg.StopTimeout,
		LogDir:          cfg.LogDir,
		OutputLevel:     cfg.OutputLevel,
		Clock:           cfg.Clock,
	}
}

// ApplyOptionsForTesting applies opts to the defaults, ignoring the
// environment.
func ApplyOptionsForTesting(opts ...Option) ConfigSnapshot {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return snapshot(cfg)
}

// ResolveConfigForTesting resolves configuration exactly like Start does.
func ResolveConfigForTesting(opts ...Option) (ConfigSnapshot, error) {
	cfg, err := resolveConfig(opts)
	return snapshot(cfg), err
}
