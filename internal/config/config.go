package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure.
// It is read-only after Load() returns and thread-safe for concurrent reads.
type Config struct {
	Server   ServerConfig          `yaml:"server"`
	Database DatabaseConfig        `yaml:"database"`
	Auth     AuthConfig            `yaml:"auth"`
	Planner  PlannerConfig         `yaml:"planner"`
	Modes    map[string]ModeConfig `yaml:"modes"`
	Worker   WorkerConfig          `yaml:"worker"`
	Log      LogConfig             `yaml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int      `yaml:"port"`
	ReadTimeout     Duration `yaml:"read_timeout"`
	WriteTimeout    Duration `yaml:"write_timeout"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig contains authentication settings.
type AuthConfig struct {
	APIKey string `yaml:"-"` // env-only, never in YAML
}

// PlannerConfig contains plan-building defaults.
type PlannerConfig struct {
	// SeenKeyLimit bounds how many recent seen-content keys are loaded
	// into a planning snapshot.
	SeenKeyLimit int `yaml:"seen_key_limit"`
	// DefaultReadingLevel applies when a run request does not name one.
	DefaultReadingLevel string `yaml:"default_reading_level"`
}

// ModeConfig describes one selectable run length.
type ModeConfig struct {
	Segments            int `yaml:"segments"`
	QuestionsPerSegment int `yaml:"questions_per_segment"`
	TargetMinutes       int `yaml:"target_minutes"`
	BossIntervalMinutes int `yaml:"boss_interval_minutes"`
}

// WorkerConfig contains background worker settings.
type WorkerConfig struct {
	CheckpointSweepInterval Duration `yaml:"checkpoint_sweep_interval"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Duration is a wrapper around time.Duration that supports YAML string parsing.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler for Duration.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Load loads configuration with precedence: defaults → YAML file → env vars.
// Returns an immutable Config suitable for concurrent read access.
func Load() (*Config, error) {
	cfg := newDefaults()

	configPath := getEnv("QUESTRUN_CONFIG_PATH", "config/questrun.yaml")

	// Load YAML file if it exists (missing file is not an error)
	if err := loadYAMLFile(cfg, configPath); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromFile loads configuration from a specific path.
// Used for testing and explicit path specification.
func LoadFromFile(path string) (*Config, error) {
	cfg := newDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// newDefaults returns a Config with all default values.
func newDefaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     Duration(30 * time.Second),
			WriteTimeout:    Duration(30 * time.Second),
			ShutdownTimeout: Duration(15 * time.Second),
		},
		Database: DatabaseConfig{
			Path: "data/questrun.db",
		},
		Planner: PlannerConfig{
			SeenKeyLimit:        400,
			DefaultReadingLevel: "beginner",
		},
		Modes: map[string]ModeConfig{
			"sixty":        {Segments: 1, QuestionsPerSegment: 5, TargetMinutes: 60, BossIntervalMinutes: 25},
			"seventy_five": {Segments: 2, QuestionsPerSegment: 5, TargetMinutes: 75, BossIntervalMinutes: 25},
			"ninety":       {Segments: 3, QuestionsPerSegment: 5, TargetMinutes: 90, BossIntervalMinutes: 25},
		},
		Worker: WorkerConfig{
			CheckpointSweepInterval: Duration(1 * time.Hour),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// loadYAMLFile loads configuration from a YAML file if it exists.
// Missing file is not an error; we just use defaults.
func loadYAMLFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// Only non-empty env vars override config values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("QUESTRUN_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("QUESTRUN_READ_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ReadTimeout = Duration(d)
		}
	}
	if v := os.Getenv("QUESTRUN_WRITE_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.WriteTimeout = Duration(d)
		}
	}
	if v := os.Getenv("QUESTRUN_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Server.ShutdownTimeout = Duration(d)
		}
	}

	if v := os.Getenv("QUESTRUN_DB_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("QUESTRUN_API_KEY"); v != "" {
		cfg.Auth.APIKey = v
	}

	if v := os.Getenv("QUESTRUN_SEEN_KEY_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Planner.SeenKeyLimit = n
		}
	}
	if v := os.Getenv("QUESTRUN_READING_LEVEL"); v != "" {
		cfg.Planner.DefaultReadingLevel = v
	}

	if v := os.Getenv("QUESTRUN_CHECKPOINT_SWEEP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Worker.CheckpointSweepInterval = Duration(d)
		}
	}

	if v := os.Getenv("QUESTRUN_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("QUESTRUN_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// validate checks the configuration for invalid values.
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return errors.New("database path is required")
	}
	if c.Planner.SeenKeyLimit < 0 {
		return fmt.Errorf("invalid seen key limit: %d", c.Planner.SeenKeyLimit)
	}
	if len(c.Modes) == 0 {
		return errors.New("at least one run mode is required")
	}
	for name, mode := range c.Modes {
		if mode.Segments < 1 {
			return fmt.Errorf("mode %q: segments must be >= 1", name)
		}
		if mode.QuestionsPerSegment < 1 {
			return fmt.Errorf("mode %q: questions_per_segment must be >= 1", name)
		}
		if mode.TargetMinutes < 1 {
			return fmt.Errorf("mode %q: target_minutes must be >= 1", name)
		}
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %q", c.Log.Format)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
