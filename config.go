package serverproc

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"
	"k8s.io/utils/clock"

	"github.com/giantswarm/serverproc/internal/netutil"
)

// EnvPrefix is the prefix of the environment variables read by Start, e.g.
// SERVERPROC_READY_TIMEOUT=30s.
const EnvPrefix = "SERVERPROC"

// ports is shared by every Start call in the process so concurrent servers
// never receive the same port while both are live.
var ports = netutil.NewPortRegistry(nil)

// config holds the resolved settings of one Start call.
type config struct {
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
	Ports           *netutil.PortRegistry
}

func defaultConfig() config {
	return config{
		Program:         DefaultProgram,
		ReadyTimeout:    DefaultReadyTimeout,
		PollInterval:    DefaultPollInterval,
		DialTimeout:     DefaultDialTimeout,
		StopGracePeriod: DefaultStopGracePeriod,
		StopTimeout:     DefaultStopTimeout,
		OutputLevel:     slog.LevelInfo,
		Clock:           clock.RealClock{},
		Ports:           ports,
	}
}

// envOverrides mirrors the environment variables that may override the
// defaults. Nil fields were not set.
type envOverrides struct {
	Program         *string        `envconfig:"PROGRAM"`
	ReadyTimeout    *time.Duration `envconfig:"READY_TIMEOUT"`
	PollInterval    *time.Duration `envconfig:"POLL_INTERVAL"`
	DialTimeout     *time.Duration `envconfig:"DIAL_TIMEOUT"`
	StopGracePeriod *time.Duration `envconfig:"STOP_GRACE_PERIOD"`
	StopTimeout     *time.Duration `envconfig:"STOP_TIMEOUT"`
	LogDir          *string        `envconfig:"LOG_DIR"`
}

// applyEnv overlays SERVERPROC_* environment variables onto c.
func (c *config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return fmt.Errorf("read %s_* environment: %w", EnvPrefix, err)
	}
	setIfPresent(&c.Program, env.Program)
	setIfPresent(&c.ReadyTimeout, env.ReadyTimeout)
	setIfPresent(&c.PollInterval, env.PollInterval)
	setIfPresent(&c.DialTimeout, env.DialTimeout)
	setIfPresent(&c.StopGracePeriod, env.StopGracePeriod)
	setIfPresent(&c.StopTimeout, env.StopTimeout)
	setIfPresent(&c.LogDir, env.LogDir)
	return nil
}

func setIfPresent[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// Validate reports every invalid field at once.
func (c config) Validate() error {
	var errs []error

	if c.Program == "" {
		errs = append(errs, errors.New("program must not be empty"))
	}
	if c.ReadyTimeout <= 0 {
		errs = append(errs, fmt.Errorf("ready timeout must be greater than 0, got %s", c.ReadyTimeout))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("poll interval must be greater than 0, got %s", c.PollInterval))
	}
	if c.DialTimeout <= 0 {
		errs = append(errs, fmt.Errorf("dial timeout must be greater than 0, got %s", c.DialTimeout))
	}
	if c.StopGracePeriod <= 0 {
		errs = append(errs, fmt.Errorf("stop grace period must be greater than 0, got %s", c.StopGracePeriod))
	}
	if c.StopTimeout <= 0 {
		errs = append(errs, fmt.Errorf("stop timeout must be greater than 0, got %s", c.StopTimeout))
	}
	if c.Clock == nil {
		errs = append(errs, errors.New("clock must not be nil"))
	}
	if c.Ports == nil {
		errs = append(errs, errors.New("port registry must not be nil"))
	}

	return errors.Join(errs...)
}

// resolveConfig builds the configuration of one Start call: defaults, then
// environment overrides, then options.
func resolveConfig(opts []Option) (config, error) {
	cfg := defaultConfig()
	if err := cfg.applyEnv(); err != nil {
		return config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg, nil
}
