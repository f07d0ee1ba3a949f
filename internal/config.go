package internal

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MaxConnections is the upper bound on concurrent range requests
	MaxConnections = 8
	// DefaultPartsDir holds segment files and ledgers, relative to the output directory
	DefaultPartsDir = "parts"
)

// Config holds application configuration
type Config struct {
	DefaultConnections int           `yaml:"connections"`
	Timeout            time.Duration `yaml:"timeout"`
	ProbeRetries       int           `yaml:"probe_retries"`
	ProxyURL           string        `yaml:"proxy"`
	UserAgent          string        `yaml:"user_agent"`
	PartsDir           string        `yaml:"parts_dir"`

	// Logging configuration
	LogLevel    string `yaml:"log_level"`
	EnableDebug bool   `yaml:"debug"`
	QuietMode   bool   `yaml:"quiet"`
	LogFile     string `yaml:"log_file"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		DefaultConnections: 0, // 0 means ask interactively
		Timeout:            0, // no whole-request timeout; segments may be large
		ProbeRetries:       3,
		UserAgent:          "splitget/1.0",
		PartsDir:           DefaultPartsDir,

		LogLevel:    "info",
		EnableDebug: false,
		QuietMode:   false,
		LogFile:     "",
	}
}

// LoadFromFile merges a YAML configuration file into c. Missing keys keep their current values.
func (c *Config) LoadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return NewValidationErrorWithValue("config_file", "invalid YAML", path).
			WithContext("error", err.Error())
	}
	return nil
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() {
	if conns := os.Getenv("SPLITGET_CONNECTIONS"); conns != "" {
		if n, err := strconv.Atoi(conns); err == nil && n > 0 {
			c.DefaultConnections = n
		}
	}

	if timeout := os.Getenv("SPLITGET_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil && d >= 0 {
			c.Timeout = d
		}
	}

	if proxy := os.Getenv("SPLITGET_PROXY"); proxy != "" {
		c.ProxyURL = proxy
	}

	if ua := os.Getenv("SPLITGET_USER_AGENT"); ua != "" {
		c.UserAgent = ua
	}

	if dir := os.Getenv("SPLITGET_PARTS_DIR"); dir != "" {
		c.PartsDir = dir
	}

	if logLevel := os.Getenv("SPLITGET_LOG_LEVEL"); logLevel != "" {
		c.LogLevel = logLevel
	}

	if debug := os.Getenv("SPLITGET_DEBUG"); debug != "" {
		c.EnableDebug = debug == "true" || debug == "1"
	}

	if quiet := os.Getenv("SPLITGET_QUIET"); quiet != "" {
		c.QuietMode = quiet == "true" || quiet == "1"
	}

	if logFile := os.Getenv("SPLITGET_LOG_FILE"); logFile != "" {
		c.LogFile = logFile
	}
}

// ValidateConfig validates the configuration values
func (c *Config) ValidateConfig() error {
	if c.DefaultConnections < 0 {
		return fmt.Errorf("invalid default connections: %d (must be >= 0)", c.DefaultConnections)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("invalid timeout: %s (must be >= 0)", c.Timeout)
	}

	if c.ProbeRetries < 1 {
		return fmt.Errorf("invalid probe retries: %d (must be >= 1)", c.ProbeRetries)
	}

	if c.PartsDir == "" {
		return fmt.Errorf("parts directory cannot be empty")
	}

	switch c.LogLevel {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level: %s (use debug, info, warn or error)", c.LogLevel)
	}

	return nil
}

// ClampConnections bounds a requested connection count to [1, MaxConnections]
func ClampConnections(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxConnections {
		return MaxConnections
	}
	return n
}
