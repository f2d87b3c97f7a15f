package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines configuration for the rdgen CLI.
type Config struct {
	Server          string        `yaml:"server"`
	File            string        `yaml:"file"`
	Output          string        `yaml:"output"`
	Workers         int           `yaml:"workers"`
	Verbose         bool          `yaml:"verbose"`
	PreserveLog     bool          `yaml:"preserve_log"`
	DisableDownload bool          `yaml:"disable_download"`
	Poll            PollConfig    `yaml:"poll"`
	Retry           RetryConfig   `yaml:"retry"`
	Timeout         time.Duration `yaml:"timeout"`
}

// PollConfig defines how the build status is polled.
type PollConfig struct {
	Interval time.Duration `yaml:"interval"`
	MaxWait  time.Duration `yaml:"max_wait"`
}

// RetryConfig defines retry behavior.
type RetryConfig struct {
	Attempts   int           `yaml:"attempts"`
	Backoff    time.Duration `yaml:"backoff"`
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

// Default returns a Config with the defaults of the rdgen web UI workflow.
func Default() Config {
	return Config{
		Output:  "downloads",
		Workers: 1,
		Poll: PollConfig{
			Interval: 15 * time.Second,
			MaxWait:  7200 * time.Second,
		},
		Retry: RetryConfig{
			Attempts:   5,
			MaxBackoff: 30 * time.Second,
		},
	}
}

// yamlConfig is used for YAML unmarshaling with string durations.
type yamlConfig struct {
	Server          string          `yaml:"server"`
	File            string          `yaml:"file"`
	Output          string          `yaml:"output"`
	Workers         int             `yaml:"workers"`
	Verbose         bool            `yaml:"verbose"`
	PreserveLog     bool            `yaml:"preserve_log"`
	DisableDownload bool            `yaml:"disable_download"`
	Poll            yamlPollConfig  `yaml:"poll"`
	Retry           yamlRetryConfig `yaml:"retry"`
	Timeout         string          `yaml:"timeout"`
}

type yamlPollConfig struct {
	Interval string `yaml:"interval"`
	MaxWait  string `yaml:"max_wait"`
}

type yamlRetryConfig struct {
	Attempts   int    `yaml:"attempts"`
	Backoff    string `yaml:"backoff"`
	MaxBackoff string `yaml:"max_backoff"`
}

// LoadFromFile loads configuration from a YAML file on top of Default.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.Server != "" {
		cfg.Server = yc.Server
	}
	if yc.File != "" {
		cfg.File = yc.File
	}
	if yc.Output != "" {
		cfg.Output = yc.Output
	}
	if yc.Workers != 0 {
		cfg.Workers = yc.Workers
	}
	cfg.Verbose = yc.Verbose
	cfg.PreserveLog = yc.PreserveLog
	cfg.DisableDownload = yc.DisableDownload
	if yc.Retry.Attempts != 0 {
		cfg.Retry.Attempts = yc.Retry.Attempts
	}

	durations := []struct {
		key   string
		value string
		dst   *time.Duration
	}{
		{"poll.interval", yc.Poll.Interval, &cfg.Poll.Interval},
		{"poll.max_wait", yc.Poll.MaxWait, &cfg.Poll.MaxWait},
		{"retry.backoff", yc.Retry.Backoff, &cfg.Retry.Backoff},
		{"retry.max_backoff", yc.Retry.MaxBackoff, &cfg.Retry.MaxBackoff},
		{"timeout", yc.Timeout, &cfg.Timeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", d.key, err)
		}
		*d.dst = v
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the RDGEN_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("RDGEN_SERVER"); v != "" {
		c.Server = v
	}
	if v := os.Getenv("RDGEN_FILE"); v != "" {
		c.File = v
	}
	if v := os.Getenv("RDGEN_OUTPUT"); v != "" {
		c.Output = v
	}
	if v := os.Getenv("RDGEN_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse RDGEN_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := os.Getenv("RDGEN_VERBOSE"); v != "" {
		c.Verbose = v == "true" || v == "1"
	}
	if v := os.Getenv("RDGEN_PRESERVE_LOG"); v != "" {
		c.PreserveLog = v == "true" || v == "1"
	}
	if v := os.Getenv("RDGEN_DISABLE_DOWNLOAD"); v != "" {
		c.DisableDownload = v == "true" || v == "1"
	}
	if v := os.Getenv("RDGEN_RETRY_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse RDGEN_RETRY_ATTEMPTS: %w", err)
		}
		c.Retry.Attempts = n
	}

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"RDGEN_POLL_INTERVAL", &c.Poll.Interval},
		{"RDGEN_POLL_MAX_WAIT", &c.Poll.MaxWait},
		{"RDGEN_RETRY_BACKOFF", &c.Retry.Backoff},
		{"RDGEN_RETRY_MAX_BACKOFF", &c.Retry.MaxBackoff},
		{"RDGEN_TIMEOUT", &c.Timeout},
	}
	for _, d := range durations {
		v := os.Getenv(d.name)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse %s: %w", d.name, err)
		}
		*d.dst = parsed
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.File == "" {
		return errors.New("config: build config file is required")
	}
	if c.Server == "" {
		return errors.New("config: server address is required")
	}
	if c.Output == "" && !c.DisableDownload {
		return errors.New("config: output is required")
	}
	if c.Workers <= 0 {
		return errors.New("config: workers must be positive")
	}
	if c.Poll.Interval <= 0 {
		return errors.New("config: poll.interval must be positive")
	}
	if c.Poll.MaxWait <= 0 {
		return errors.New("config: poll.max_wait must be positive")
	}
	if c.Retry.Attempts <= 0 {
		return errors.New("config: retry.attempts must be positive")
	}
	if c.Retry.Backoff < 0 || c.Retry.MaxBackoff < 0 || c.Timeout < 0 {
		return errors.New("config: durations must not be negative")
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.Server != "" {
		c.Server = override.Server
	}
	if override.File != "" {
		c.File = override.File
	}
	if override.Output != "" {
		c.Output = override.Output
	}
	if override.Workers != 0 {
		c.Workers = override.Workers
	}
	if override.Verbose {
		c.Verbose = true
	}
	if override.PreserveLog {
		c.PreserveLog = true
	}
	if override.DisableDownload {
		c.DisableDownload = true
	}
	if override.Poll.Interval != 0 {
		c.Poll.Interval = override.Poll.Interval
	}
	if override.Poll.MaxWait != 0 {
		c.Poll.MaxWait = override.Poll.MaxWait
	}
	if override.Retry.Attempts != 0 {
		c.Retry.Attempts = override.Retry.Attempts
	}
	if override.Retry.Backoff != 0 {
		c.Retry.Backoff = override.Retry.Backoff
	}
	if override.Retry.MaxBackoff != 0 {
		c.Retry.MaxBackoff = override.Retry.MaxBackoff
	}
	if override.Timeout != 0 {
		c.Timeout = override.Timeout
	}
	return c
}
