// pkg/config/config.go
package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Config represents the application configuration
type Config struct {
	// Upstream CRM
	HubSpot *HubSpotConfig

	// Destination warehouse
	Warehouse *WarehouseConfig

	// Which pipeline to track. Deals outside this pipeline are filtered
	// out client-side; an unresolvable label means fetch-everything.
	TargetPipeline string

	// Fetch settings
	PageSize       int
	MaxRetries     int
	RetryDelay     time.Duration
	MaxContacts    int
	ContactRetries int

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		// Default values
		TargetPipeline: getEnv("TARGET_PIPELINE_NAME", "3PL New Business"),
		PageSize:       getEnvAsInt("PAGE_SIZE", 100),
		MaxRetries:     getEnvAsInt("MAX_RETRIES", 5),
		RetryDelay:     time.Duration(getEnvAsInt("RETRY_DELAY_MS", 5000)) * time.Millisecond,
		MaxContacts:    getEnvAsInt("MAX_CONTACTS_PER_DEAL", 10),
		ContactRetries: getEnvAsInt("CONTACT_RETRIES", 3),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
	}

	hsConfig, err := LoadHubSpotConfig()
	if err != nil {
		return nil, errors.New("failed to load HubSpot configuration: " + err.Error())
	}
	cfg.HubSpot = hsConfig

	whConfig, err := LoadWarehouseConfig()
	if err != nil {
		return nil, errors.New("failed to load warehouse configuration: " + err.Error())
	}
	cfg.Warehouse = whConfig

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	if c.HubSpot == nil {
		return errors.New("hubSpot configuration is required")
	}

	if c.Warehouse == nil {
		return errors.New("warehouse configuration is required")
	}

	if c.TargetPipeline == "" {
		return errors.New("target pipeline name is required")
	}

	if c.PageSize <= 0 || c.PageSize > 100 {
		return errors.New("page size must be between 1 and 100")
	}

	if c.MaxRetries < 0 {
		return errors.New("max retries cannot be negative")
	}

	return nil
}

// HubSpotConfig holds the upstream API connection parameters
type HubSpotConfig struct {
	AccessToken string
	BaseURL     string

	RequestTimeout time.Duration

	// Client-side pacing. The API enforces its own limits; this keeps us
	// comfortably under them during per-record association fetching.
	RequestsPerSecond float64
	Burst             int
}

// LoadHubSpotConfig loads upstream API configuration from environment variables
func LoadHubSpotConfig() (*HubSpotConfig, error) {
	token := os.Getenv("HUBSPOT_ACCESS_TOKEN")
	if token == "" {
		return nil, errors.New("HUBSPOT_ACCESS_TOKEN environment variable is required")
	}

	return &HubSpotConfig{
		AccessToken:       token,
		BaseURL:           getEnv("HUBSPOT_BASE_URL", "https://api.hubapi.com"),
		RequestTimeout:    time.Duration(getEnvAsInt("HUBSPOT_REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,
		RequestsPerSecond: getEnvAsFloat("HUBSPOT_REQUESTS_PER_SECOND", 8),
		Burst:             getEnvAsInt("HUBSPOT_BURST", 4),
	}, nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}
