package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/giantswarm/serverproc"
)

// fileConfig is the YAML configuration accepted by --config. Every field
// may also be given as a flag; flags win.
//
//	program: ./bin/simpleserver
//	args: [server.pem]
//	env: [GODEBUG=http2server=0]
//	ready_timeout: 30s
//	poll_interval: 100ms
//	stop_grace_period: 2s
//	log_dir: /tmp/serverproc
//	log_level: DEBUG
type fileConfig struct {
	Program         string        `yaml:"program"`
	Args            []string      `yaml:"args,omitempty"`
	Env             []string      `yaml:"env,omitempty"`
	ReadyTimeout    time.Duration `yaml:"ready_timeout,omitempty"`
	PollInterval    time.Duration `yaml:"poll_interval,omitempty"`
	StopGracePeriod time.Duration `yaml:"stop_grace_period,omitempty"`
	LogDir          string        `yaml:"log_dir,omitempty"`
	LogLevel        string        `yaml:"log_level,omitempty"`
}

// loadFileConfig reads path. Unknown keys are rejected.
func loadFileConfig(path string) (fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("read config file: %w", err)
	}

	var cfg fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return fileConfig{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// merge overlays the non-zero flag values and the command line program onto
// the file configuration.
func (c fileConfig) merge(opts cliOptions, command []string) fileConfig {
	if opts.ReadyTimeout != 0 {
		c.ReadyTimeout = opts.ReadyTimeout
	}
	if opts.PollInterval != 0 {
		c.PollInterval = opts.PollInterval
	}
	if opts.StopGracePeriod != 0 {
		c.StopGracePeriod = opts.StopGracePeriod
	}
	if opts.LogDir != "" {
		c.LogDir = opts.LogDir
	}
	if opts.LogLevel != "" {
		c.LogLevel = opts.LogLevel
	}
	c.Env = append(c.Env, opts.Env...)
	if len(command) > 0 {
		c.Program = command[0]
		c.Args = command[1:]
	}
	return c
}

func (c fileConfig) validate() error {
	var errs []error

	if c.Program == "" {
		errs = append(errs, errors.New("no program given; pass it after -- or set program in the config file"))
	}
	if c.ReadyTimeout < 0 {
		errs = append(errs, fmt.Errorf("ready timeout must not be negative, got %s", c.ReadyTimeout))
	}
	if c.PollInterval < 0 {
		errs = append(errs, fmt.Errorf("poll interval must not be negative, got %s", c.PollInterval))
	}
	if c.StopGracePeriod < 0 {
		errs = append(errs, fmt.Errorf("stop grace period must not be negative, got %s", c.StopGracePeriod))
	}
	for _, e := range c.Env {
		if k, _, ok := strings.Cut(e, "="); !ok || k == "" {
			errs = append(errs, fmt.Errorf("env entry must have the form KEY=VALUE, got %q", e))
		}
	}
	if c.LogLevel != "" {
		if _, err := parseLevel(c.LogLevel); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// options converts a validated configuration into Start options. Zero
// values keep the library defaults.
func (c fileConfig) options() []serverproc.Option {
	opts := []serverproc.Option{
		serverproc.WithProgram(c.Program),
		serverproc.WithArgs(c.Args...),
	}
	if len(c.Env) > 0 {
		opts = append(opts, serverproc.WithEnv(c.Env...))
	}
	if c.ReadyTimeout > 0 {
		opts = append(opts, serverproc.WithReadyTimeout(c.ReadyTimeout))
	}
	if c.PollInterval > 0 {
		opts = append(opts, serverproc.WithPollInterval(c.PollInterval))
	}
	if c.StopGracePeriod > 0 {
		opts = append(opts, serverproc.WithStopGracePeriod(c.StopGracePeriod))
	}
	if c.LogDir != "" {
		opts = append(opts, serverproc.WithLogDir(c.LogDir))
	}
	return opts
}
