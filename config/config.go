package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"lending/database"
	"lending/domain/interfaces"

	"github.com/shopspring/decimal"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// NATS configuration
	NATSEnabled bool
	NATSServers string // NATS server addresses (comma-separated)

	// Daily yield configuration
	DailyYieldEnabled bool
	DailyYieldHour    int // Hour in UTC when the daily yield run starts (0-23)

	// Ledger policy
	WithdrawalShortfallPolicy interfaces.ShortfallPolicy
	DefaultAnnualYieldRate    decimal.Decimal // Rate for imported yield deposits without their own
	RebuildAfterImport        bool

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelServiceName          string
	OTelExporterType         string // "otlp", "console" or "none"
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int

	// Logging
	LogLevel  string
	LogFormat string // "text" or "json"

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Database
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		// NATS
		NATSEnabled: getBoolWithDefault("NATS_ENABLED", true),
		NATSServers: getEnvWithDefault("NATS_SERVERS", "nats://nats:4222"),

		// Daily yield
		DailyYieldEnabled: getBoolWithDefault("DAILY_YIELD_ENABLED", true),
		DailyYieldHour:    1, // 1am UTC, after the previous day has closed

		// Ledger policy
		DefaultAnnualYieldRate: decimal.Zero,
		RebuildAfterImport:     getBoolWithDefault("REBUILD_AFTER_IMPORT", true),

		// OpenTelemetry
		OTelEnabled:              getBoolWithDefault("OTEL_ENABLED", false),
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "lending"),
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "otlp"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "otel-collector:4317"),
		OTelExportIntervalMillis: 60000,

		// Logging
		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvWithDefault("LOG_FORMAT", "text"),

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	if hour := os.Getenv("DAILY_YIELD_HOUR"); hour != "" {
		parsed, err := strconv.Atoi(hour)
		if err != nil || parsed < 0 || parsed > 23 {
			return nil, fmt.Errorf("DAILY_YIELD_HOUR must be an hour between 0 and 23, got %q", hour)
		}
		config.DailyYieldHour = parsed
	}

	policy, err := interfaces.ParseShortfallPolicy(strings.ToLower(strings.TrimSpace(os.Getenv("WITHDRAWAL_SHORTFALL_POLICY"))))
	if err != nil {
		return nil, err
	}
	config.WithdrawalShortfallPolicy = policy

	if rate := os.Getenv("DEFAULT_ANNUAL_YIELD_RATE"); rate != "" {
		parsed, err := decimal.NewFromString(strings.TrimSpace(rate))
		if err != nil || parsed.IsNegative() || parsed.GreaterThan(decimal.NewFromInt(1)) {
			return nil, fmt.Errorf("DEFAULT_ANNUAL_YIELD_RATE must be a fraction between 0 and 1, got %q", rate)
		}
		config.DefaultAnnualYieldRate = parsed
	}

	if interval := os.Getenv("OTEL_EXPORT_INTERVAL_MILLIS"); interval != "" {
		if parsed, err := strconv.Atoi(interval); err == nil && parsed > 0 {
			config.OTelExportIntervalMillis = parsed
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		// If DatabaseName is provided, ensure it's not empty
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
	}

	return config, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolWithDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:               "test",
		DailyYieldHour:            1,
		WithdrawalShortfallPolicy: interfaces.ShortfallPolicyReject,
		DefaultAnnualYieldRate:    decimal.Zero,
		OTelServiceName:           "lending",
		OTelExporterType:          "none",
		LogLevel:                  "info",
		LogFormat:                 "text",
	}
}
