// Package config loads server settings from embedded defaults, an optional
// YAML overlay, a .env file and FROGPOND_* environment variables, in that
// order.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hardchor/frog-pond/internal/net/session"
	"github.com/hardchor/frog-pond/internal/observability"
	"github.com/hardchor/frog-pond/internal/sim"
	"github.com/hardchor/frog-pond/internal/telemetry"
	"github.com/hardchor/frog-pond/internal/world"
	"github.com/hardchor/frog-pond/logging"
)

//go:embed defaults.yaml
var defaultsYAML []byte

const (
	EnvConfigPath        = "FROGPOND_CONFIG"
	EnvAddr              = "FROGPOND_ADDR"
	EnvTickPeriod        = "FROGPOND_TICK_PERIOD"
	EnvSeed              = "FROGPOND_SEED"
	EnvInitialPopulation = "FROGPOND_INITIAL_POPULATION"
	EnvLogJSON           = "FROGPOND_LOG_JSON"
	EnvTelemetryCSV      = "FROGPOND_TELEMETRY_CSV"
	EnvPprofTrace        = "ENABLE_PPROF_TRACE"
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Simulation    SimulationConfig    `yaml:"simulation"`
	Pool          world.PoolConfig    `yaml:"pool"`
	Session       SessionConfig       `yaml:"session"`
	Logging       LoggingConfig       `yaml:"logging"`
	Telemetry     TelemetryConfig     `yaml:"telemetry"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type ServerConfig struct {
	Addr      string `yaml:"addr"`
	ClientDir string `yaml:"client_dir"`
}

type SimulationConfig struct {
	TickPeriod        time.Duration `yaml:"tick_period"`
	InitialPopulation int           `yaml:"initial_population"`
	MaxAge            int           `yaml:"max_age"`
	DeathCredit       int           `yaml:"death_credit"`
	FeedPerTick       int           `yaml:"feed_per_tick"`
	MatingCooldown    time.Duration `yaml:"mating_cooldown"`
	Seed              string        `yaml:"seed"`
	CommandCapacity   int           `yaml:"command_capacity"`
	PerActorLimit     int           `yaml:"per_actor_limit"`
	CatchupMaxTicks   int           `yaml:"catchup_max_ticks"`
	BudgetWarnRatio   float64       `yaml:"budget_warn_ratio"`
}

type SessionConfig struct {
	OutboundBuffer int   `yaml:"outbound_buffer"`
	InboundRate    int64 `yaml:"inbound_rate"`
	InboundBurst   int64 `yaml:"inbound_burst"`
}

type LoggingConfig struct {
	JSON            bool   `yaml:"json"`
	JSONPath        string `yaml:"json_path"`
	MinimumSeverity string `yaml:"minimum_severity"`
	QueueSize       int    `yaml:"queue_size"`
}

type TelemetryConfig struct {
	CSVPath       string `yaml:"csv_path"`
	MetricsPrefix string `yaml:"metrics_prefix"`
}

type ObservabilityConfig struct {
	EnablePprofTrace bool `yaml:"enable_pprof_trace"`
}

// Defaults returns the embedded configuration.
func Defaults() (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	return cfg, nil
}

// Load layers the YAML file at path (if any) and the environment over the
// embedded defaults. Invalid environment values are reported to logger and
// ignored.
func Load(path string, logger telemetry.Logger) (*Config, error) {
	if logger == nil {
		logger = telemetry.DiscardLogger()
	}
	cfg, err := Defaults()
	if err != nil {
		return nil, err
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	cfg.applyEnv(logger)
	return cfg, nil
}

// ResolvePath prefers an explicit flag value over FROGPOND_CONFIG.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv(EnvConfigPath)
}

// LoadEnvFile reads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not an
// error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(logger telemetry.Logger) {
	if raw := os.Getenv(EnvAddr); raw != "" {
		c.Server.Addr = raw
	}
	if raw := os.Getenv(EnvTickPeriod); raw != "" {
		if value, err := time.ParseDuration(raw); err == nil && value > 0 {
			c.Simulation.TickPeriod = value
		} else {
			logger.Printf("invalid %s=%q: %v", EnvTickPeriod, raw, invalidReason(err))
		}
	}
	if raw := os.Getenv(EnvSeed); raw != "" {
		c.Simulation.Seed = raw
	}
	if raw := os.Getenv(EnvInitialPopulation); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value >= 0 {
			c.Simulation.InitialPopulation = value
		} else {
			logger.Printf("invalid %s=%q: %v", EnvInitialPopulation, raw, invalidReason(err))
		}
	}
	if raw := os.Getenv(EnvLogJSON); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			c.Logging.JSON = value
		} else {
			logger.Printf("invalid %s=%q: %v", EnvLogJSON, raw, err)
		}
	}
	if raw := os.Getenv(EnvTelemetryCSV); raw != "" {
		c.Telemetry.CSVPath = raw
	}
	if raw := os.Getenv(EnvPprofTrace); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			c.Observability.EnablePprofTrace = value
		} else {
			logger.Printf("invalid %s=%q: %v", EnvPprofTrace, raw, err)
		}
	}
}

func invalidReason(err error) error {
	if err != nil {
		return err
	}
	return errors.New("out of range")
}

func (c *Config) Sim() sim.Config {
	s := c.Simulation
	return sim.Config{
		TickPeriod:        s.TickPeriod,
		InitialPopulation: s.InitialPopulation,
		MaxAge:            s.MaxAge,
		DeathCredit:       s.DeathCredit,
		FeedPerTick:       s.FeedPerTick,
		MatingCooldown:    s.MatingCooldown,
		Pool:              c.Pool,
		Seed:              s.Seed,
		CommandCapacity:   s.CommandCapacity,
		PerActorLimit:     s.PerActorLimit,
		CatchupMaxTicks:   s.CatchupMaxTicks,
		BudgetWarnRatio:   s.BudgetWarnRatio,
	}
}

func (c *Config) SessionConfig() session.Config {
	return session.Config{
		TickPeriod:     c.Simulation.TickPeriod,
		OutboundBuffer: c.Session.OutboundBuffer,
		InboundRate:    c.Session.InboundRate,
		InboundBurst:   c.Session.InboundBurst,
	}
}

// LoggingConfig maps onto the router config. The console sink is always on.
func (c *Config) LoggingConfig() logging.Config {
	out := logging.DefaultConfig()
	if c.Logging.QueueSize > 0 {
		out.QueueSize = c.Logging.QueueSize
	}
	out.MinimumSeverity = logging.ParseSeverity(c.Logging.MinimumSeverity)
	if c.Logging.JSON {
		out.Sinks = append(out.Sinks, logging.SinkJSON)
		out.JSONPath = c.Logging.JSONPath
	}
	return out
}

func (c *Config) ObservabilityConfig() observability.Config {
	return observability.Config{EnablePprofTrace: c.Observability.EnablePprofTrace}
}
