package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.API.PageSize != 100 {
		t.Errorf("Expected default page size 100, got %d", config.API.PageSize)
	}
	if config.API.Timeout != 30*time.Second {
		t.Errorf("Expected default timeout 30s, got %v", config.API.Timeout)
	}
	if config.RateLimit.RequestsPerMinute != 120 {
		t.Errorf("Expected default requests per minute 120, got %d", config.RateLimit.RequestsPerMinute)
	}
	if config.Logging.Level != "info" {
		t.Errorf("Expected default log level info, got %s", config.Logging.Level)
	}

	if err := config.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DLPCTL_API_CLIENT_ID", "key-123")
	t.Setenv("DLPCTL_API_CLIENT_SECRET", "secret-456")
	t.Setenv("DLPCTL_URL", "https://api.example.com")
	t.Setenv("DLPCTL_PAGE_SIZE", "500")
	t.Setenv("DLPCTL_REQUESTS_PER_MINUTE", "30")
	t.Setenv("DLPCTL_LOG_LEVEL", "debug")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err != nil {
		t.Fatalf("Failed to load from environment: %v", err)
	}

	if config.API.ClientID != "key-123" {
		t.Errorf("Expected client id key-123, got %s", config.API.ClientID)
	}
	if config.API.ClientSecret != "secret-456" {
		t.Errorf("Expected client secret secret-456, got %s", config.API.ClientSecret)
	}
	if config.API.URL != "https://api.example.com" {
		t.Errorf("Expected url https://api.example.com, got %s", config.API.URL)
	}
	if config.API.PageSize != 500 {
		t.Errorf("Expected page size 500, got %d", config.API.PageSize)
	}
	if config.RateLimit.RequestsPerMinute != 30 {
		t.Errorf("Expected requests per minute 30, got %d", config.RateLimit.RequestsPerMinute)
	}
	if config.Logging.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", config.Logging.Level)
	}
}

func TestLoadFromEnvRejectsBadNumbers(t *testing.T) {
	t.Setenv("DLPCTL_PAGE_SIZE", "lots")

	config := DefaultConfig()
	if err := config.LoadFromEnv(); err == nil {
		t.Error("Expected error for non-numeric page size")
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
api:
  url: https://gateway.example.com
  page_size: 250
logging:
  level: warn
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	config := DefaultConfig()
	if err := config.LoadFromFile(path); err != nil {
		t.Fatalf("Failed to load config file: %v", err)
	}

	if config.API.URL != "https://gateway.example.com" {
		t.Errorf("Expected url from file, got %s", config.API.URL)
	}
	if config.API.PageSize != 250 {
		t.Errorf("Expected page size 250, got %d", config.API.PageSize)
	}
	if config.Logging.Level != "warn" {
		t.Errorf("Expected log level warn, got %s", config.Logging.Level)
	}
	// Untouched sections keep their defaults.
	if config.RateLimit.RequestsPerMinute != 120 {
		t.Errorf("Expected default requests per minute, got %d", config.RateLimit.RequestsPerMinute)
	}
}

func TestLoadFromFileMissingIsNotAnError(t *testing.T) {
	config := DefaultConfig()
	if err := config.LoadFromFile(""); err != nil {
		t.Errorf("Missing config file should not error: %v", err)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"ZeroPageSize", func(c *Config) { c.API.PageSize = 0 }},
		{"HugePageSize", func(c *Config) { c.API.PageSize = 20000 }},
		{"ZeroTimeout", func(c *Config) { c.API.Timeout = 0 }},
		{"NegativeRetries", func(c *Config) { c.API.MaxRetries = -1 }},
		{"ZeroRPM", func(c *Config) { c.RateLimit.RequestsPerMinute = 0 }},
		{"BadLogLevel", func(c *Config) { c.Logging.Level = "loud" }},
		{"BadProtocol", func(c *Config) { c.Output.Protocol = "smtp" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			config := DefaultConfig()
			tc.mutate(config)
			if err := config.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestMergeCommandLineFlags(t *testing.T) {
	config := DefaultConfig()
	config.MergeCommandLineFlags(map[string]interface{}{
		"url":       "https://flags.example.com",
		"page-size": 42,
		"log-level": "error",
	})

	if config.API.URL != "https://flags.example.com" {
		t.Errorf("Expected flag url, got %s", config.API.URL)
	}
	if config.API.PageSize != 42 {
		t.Errorf("Expected page size 42, got %d", config.API.PageSize)
	}
	if config.Logging.Level != "error" {
		t.Errorf("Expected log level error, got %s", config.Logging.Level)
	}
}
