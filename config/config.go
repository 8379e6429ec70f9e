package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	"drawpool/database"

	"github.com/caarlos0/env/v11"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string `env:"DATABASE_URL"`
	DatabaseName string `env:"DATABASE_NAME"`

	// HTTP transport
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// NATS configuration
	NATSServers string `env:"NATS_SERVERS" envDefault:"nats://nats:4222"`
	NATSEnabled bool   `env:"NATS_ENABLED" envDefault:"true"`

	// Draw configuration
	DrawServerKey        string        `env:"DRAW_SERVER_KEY"` // hex encoded
	DrawAlgorithmVersion string        `env:"DRAW_ALGORITHM_VERSION" envDefault:"3.1-hmac-sha256"`
	DrawSchemaVersion    int           `env:"DRAW_SCHEMA_VERSION" envDefault:"1"`
	DrawMinDelay         time.Duration `env:"DRAW_MIN_DELAY" envDefault:"5s"`
	DrawMaxDelay         time.Duration `env:"DRAW_MAX_DELAY" envDefault:"30m"`
	DrawSweepInterval    time.Duration `env:"DRAW_SWEEP_INTERVAL" envDefault:"30s"`
	AutoRollover         bool          `env:"AUTO_ROLLOVER" envDefault:"false"`

	// Numbering
	NumberBase int64 `env:"NUMBER_BASE" envDefault:"10000000"`

	// Free allowance
	FreeClaimsPerPeriod   int    `env:"FREE_CLAIMS_PER_PERIOD" envDefault:"3"`
	FreeMaxSharesPerClaim int    `env:"FREE_MAX_SHARES_PER_CLAIM" envDefault:"3"`
	AllowanceTimezone     string `env:"ALLOWANCE_TIMEZONE" envDefault:"Asia/Dushanbe"`

	// Authorization gate: operators allowed to force draws, void rounds and apply corrections
	OperatorIDs []string `env:"OPERATOR_IDS" envSeparator:","`

	// Consistency monitor
	ConsistencySchedule string        `env:"CONSISTENCY_SCHEDULE" envDefault:"@every 10m"`
	OverdueLow          time.Duration `env:"OVERDUE_LOW" envDefault:"1m"`
	OverdueMedium       time.Duration `env:"OVERDUE_MEDIUM" envDefault:"5m"`
	OverdueHigh         time.Duration `env:"OVERDUE_HIGH" envDefault:"10m"`
	OverdueCritical     time.Duration `env:"OVERDUE_CRITICAL" envDefault:"30m"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	// OpenTelemetry
	OTelEnabled              bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTelServiceName          string `env:"OTEL_SERVICE_NAME" envDefault:"drawpool"`
	OTelExporterType         string `env:"OTEL_EXPORTER_TYPE" envDefault:"none"`
	OTelOTLPEndpoint         string `env:"OTEL_OTLP_ENDPOINT" envDefault:"otel-collector:4317"`
	OTelExportIntervalMillis int    `env:"OTEL_EXPORT_INTERVAL_MILLIS" envDefault:"15000"`

	// Environment
	Environment string `env:"ENVIRONMENT" envDefault:"development"` // "development", "production" or "test"
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
		instance, err = Load()
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

// ServerKey decodes the keyed-hash secret used for participation commitments
func (c *Config) ServerKey() ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(c.DrawServerKey))
	if err != nil {
		return nil, fmt.Errorf("DRAW_SERVER_KEY must be hex encoded: %w", err)
	}
	return key, nil
}

// AllowanceLocation returns the timezone in which free-claim periods roll over
func (c *Config) AllowanceLocation() *time.Location {
	loc, err := time.LoadLocation(c.AllowanceTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsOperator reports whether the given id passes the authorization gate
func (c *Config) IsOperator(id string) bool {
	if id == "" {
		return false
	}
	for _, op := range c.OperatorIDs {
		if strings.TrimSpace(op) == id {
			return true
		}
	}
	return false
}

// Load parses configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants that env tags cannot express
func (c *Config) Validate() error {
	if c.NumberBase < 0 {
		return fmt.Errorf("NUMBER_BASE cannot be negative")
	}
	if c.DrawMinDelay < 0 {
		return fmt.Errorf("DRAW_MIN_DELAY cannot be negative")
	}
	if c.DrawMaxDelay <= c.DrawMinDelay {
		return fmt.Errorf("DRAW_MAX_DELAY must be greater than DRAW_MIN_DELAY")
	}
	if c.FreeClaimsPerPeriod < 0 || c.FreeMaxSharesPerClaim < 1 {
		return fmt.Errorf("free allowance limits are invalid")
	}
	if _, err := time.LoadLocation(c.AllowanceTimezone); err != nil {
		return fmt.Errorf("ALLOWANCE_TIMEZONE is invalid: %w", err)
	}
	if !(c.OverdueLow < c.OverdueMedium && c.OverdueMedium < c.OverdueHigh && c.OverdueHigh < c.OverdueCritical) {
		return fmt.Errorf("overdue thresholds must be strictly increasing")
	}

	if c.Environment != "test" {
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
		if c.DatabaseName != "" && strings.TrimSpace(c.DatabaseName) == "" {
			return fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
		key, err := c.ServerKey()
		if err != nil {
			return err
		}
		if len(key) < 32 {
			return fmt.Errorf("DRAW_SERVER_KEY must be at least 32 bytes")
		}
	}
	return nil
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
		Environment:           "test",
		DrawServerKey:         "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f",
		DrawAlgorithmVersion:  "3.1-hmac-sha256",
		DrawSchemaVersion:     1,
		DrawMinDelay:          5 * time.Second,
		DrawMaxDelay:          30 * time.Minute,
		DrawSweepInterval:     30 * time.Second,
		NumberBase:            10000000,
		FreeClaimsPerPeriod:   3,
		FreeMaxSharesPerClaim: 3,
		AllowanceTimezone:     "UTC",
		OperatorIDs:           []string{"operator-1", "operator-2"}, // Default test operators
		ConsistencySchedule:   "@every 10m",
		OverdueLow:            time.Minute,
		OverdueMedium:         5 * time.Minute,
		OverdueHigh:           10 * time.Minute,
		OverdueCritical:       30 * time.Minute,
		LogLevel:              "info",
		LogFormat:             "text",
		OTelServiceName:       "drawpool",
		OTelExporterType:      "none",
	}
}
