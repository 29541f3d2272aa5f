// Package config resolves the runtime settings of jarlab.
//
// Values come from, in increasing priority: built-in defaults, jarlab.yaml
// in the config directory, a .env file next to it, the process environment,
// and finally command-line flags (applied by the cli package).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jarlab/jarlab/internal/dosing"
	"github.com/jarlab/jarlab/internal/session"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	FileName    = "jarlab.yaml"
	DotEnvFile  = ".env"
	DefaultDB   = "./jarlab.db"
	DefaultPort = 8080
)

// Environment variables.
const (
	EnvDB        = "JARLAB_DB"
	EnvConfigDir = "JARLAB_CONFIG_DIR"
	EnvPort      = "JARLAB_PORT"
	EnvTrials    = "JARLAB_TRIALS"
	EnvToken     = "JARLAB_TOKEN"
)

type Config struct {
	DBPath      string            `yaml:"db"`
	Port        int               `yaml:"port"`
	Token       string            `yaml:"token"`
	Trials      int               `yaml:"trials"`
	DoseSteps   session.DoseSteps `yaml:"dose_steps"`
	Treatment   dosing.Treatment  `yaml:"treatment"`
	SessionIdle time.Duration     `yaml:"session_idle"`
}

func Default() *Config {
	return &Config{
		DBPath:      DefaultDB,
		Port:        DefaultPort,
		Trials:      session.DefaultTrials,
		DoseSteps:   session.DefaultDoseSteps(),
		Treatment:   dosing.DefaultTreatment(),
		SessionIdle: 12 * time.Hour,
	}
}

// Load reads dir/jarlab.yaml over the defaults and applies environment
// overrides. A missing file is not an error.
func Load(dir string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads dir/.env into the process environment without
// overriding variables that are already set.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, DotEnvFile)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv(EnvDB); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv(EnvToken); v != "" {
		c.Token = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvPort, v, err)
		}
		c.Port = p
	}
	if v := os.Getenv(EnvTrials); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvTrials, v, err)
		}
		c.Trials = n
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.Trials < session.MinTrials || c.Trials > session.MaxTrials {
		return fmt.Errorf("trials must be between %d and %d, got %d", session.MinTrials, session.MaxTrials, c.Trials)
	}
	if c.DoseSteps.CoagulantStepPPM < 0 || c.DoseSteps.FlocculantDosePPM < 0 {
		return fmt.Errorf("dose steps must not be negative")
	}
	if c.Treatment.FlowM3h < 0 || c.Treatment.HoursPerDay < 0 || c.Treatment.HoursPerDay > 24 ||
		c.Treatment.DaysPerYear < 0 || c.Treatment.DaysPerYear > 366 {
		return fmt.Errorf("invalid treatment defaults %+v", c.Treatment)
	}
	return nil
}

// SessionDefaults is what new form sessions start from.
func (c *Config) SessionDefaults() session.Defaults {
	return session.Defaults{Trials: c.Trials, Steps: c.DoseSteps, Treatment: c.Treatment}
}

// Save writes the config as YAML.
func (c *Config) Save(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, FileName), data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
