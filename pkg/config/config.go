// Package config loads dlpctl settings from defaults, a YAML config
// file, .env files, environment variables, and command-line flags, in
// that order of precedence (later wins). Validation is fail-fast and
// aggregates every problem found.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for dlpctl.
type Config struct {
	// API gateway connection and principal credentials
	API APIConfig `yaml:"api" json:"api"`

	// Rate limiting for page requests
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Result output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// APIConfig holds gateway connection settings and the API client
// credentials used for token auth.
type APIConfig struct {
	ClientID     string        `yaml:"client_id" json:"client_id"`
	ClientSecret string        `yaml:"client_secret" json:"client_secret"`
	URL          string        `yaml:"url" json:"url"`
	PageSize     int           `yaml:"page_size" json:"page_size"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
	MaxRetries   int           `yaml:"max_retries" json:"max_retries"`
}

// RateLimitConfig throttles requests against the gateway.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// OutputConfig holds default rendering and forwarding settings.
type OutputConfig struct {
	Format               string `yaml:"format" json:"format"`
	Server               string `yaml:"server" json:"server"`
	Protocol             string `yaml:"protocol" json:"protocol"`
	CertPath             string `yaml:"cert_path" json:"cert_path"`
	IgnoreCertValidation bool   `yaml:"ignore_cert_validation" json:"ignore_cert_validation"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			PageSize:   100,
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 120,
			BurstSize:         10,
		},
		Output: OutputConfig{
			Format:   "table",
			Protocol: "tcp",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv overrides settings from DLPCTL_* environment variables.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("DLPCTL_API_CLIENT_ID"); v != "" {
		c.API.ClientID = v
	}
	if v := os.Getenv("DLPCTL_API_CLIENT_SECRET"); v != "" {
		c.API.ClientSecret = v
	}
	if v := os.Getenv("DLPCTL_URL"); v != "" {
		c.API.URL = v
	}
	if v := os.Getenv("DLPCTL_PAGE_SIZE"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DLPCTL_PAGE_SIZE: %w", err)
		}
		c.API.PageSize = size
	}
	if v := os.Getenv("DLPCTL_REQUESTS_PER_MINUTE"); v != "" {
		rpm, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid DLPCTL_REQUESTS_PER_MINUTE: %w", err)
		}
		c.RateLimit.RequestsPerMinute = rpm
	}
	if v := os.Getenv("DLPCTL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("DLPCTL_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file. An empty path
// falls back to the standard locations; a missing file is not an
// error.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func (c *Config) findConfigFile() string {
	locations := []string{
		".dlpctl.yaml",
		".dlpctl.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "dlpctl", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "dlpctl", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}
	return ""
}

// Validate checks the configuration, aggregating every problem.
// Credentials are not required here; they may be supplied later by a
// stored profile.
func (c *Config) Validate() error {
	var errs []error

	if c.API.PageSize <= 0 {
		errs = append(errs, errors.New("page size must be positive"))
	}
	if c.API.PageSize > 10000 {
		errs = append(errs, errors.New("page size must not exceed 10000"))
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.API.MaxRetries < 0 {
		errs = append(errs, errors.New("max retries cannot be negative"))
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}
	if c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	validProtocols := map[string]bool{"tcp": true, "udp": true, "tls": true, "tls-tcp": true}
	if c.Output.Protocol != "" && !validProtocols[strings.ToLower(c.Output.Protocol)] {
		errs = append(errs, errors.New("invalid forwarding protocol"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// MergeCommandLineFlags merges flag values into the configuration.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if url, ok := flags["url"].(string); ok && url != "" {
		c.API.URL = url
	}
	if pageSize, ok := flags["page-size"].(int); ok && pageSize > 0 {
		c.API.PageSize = pageSize
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile, ok := flags["log-file"].(string); ok && logFile != "" {
		c.Logging.File = logFile
	}
}

// Load builds the effective configuration from all sources.
// Precedence: flags > environment > .env files > config file > defaults.
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".config", "dlpctl", ".env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
