// Package config handles configuration management with validation
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config represents the complete configuration structure
type Config struct {
	App         AppConfig         `yaml:"app"`
	Custody     CustodyConfig     `yaml:"custody"`
	Store       StoreConfig       `yaml:"store"`
	Operator    OperatorConfig    `yaml:"operator"`
	Telemetry   TelemetryConfig   `yaml:"telemetry"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
}

// AppConfig contains process-wide settings.
type AppConfig struct {
	LogLevel string `yaml:"log_level" validate:"required,oneof=DEBUG INFO WARN ERROR FATAL"`
}

// TokenConfig lists one fungible token the custody contract will accept.
type TokenConfig struct {
	Symbol   string `yaml:"symbol" validate:"required"`
	Decimals uint32 `yaml:"decimals"`
}

// PairConfig lists one trading pair the order book will accept.
// FeeRate is a display-only default shown in startup logs; the fee
// actually applied to a trade always comes from the operator-signed
// TradeUploadUnit the custody AssetManager settles, never from config.
type PairConfig struct {
	Symbol  string          `yaml:"symbol" validate:"required"`
	Token1  string          `yaml:"token1" validate:"required"`
	Token2  string          `yaml:"token2" validate:"required"`
	FeeRate decimal.Decimal `yaml:"fee_rate"`
}

// CustodyConfig configures the AssetManager's privileged addresses and
// pre-listed tokens/pairs. AdminAPIKey is only carried and redacted by
// Config.String(); no component reads it.
type CustodyConfig struct {
	Owner           string        `yaml:"owner" validate:"required"`
	OperatorManager string        `yaml:"operator_manager" validate:"required"`
	FeeCollector    string        `yaml:"fee_collector" validate:"required"`
	AdminAPIKey     Secret        `yaml:"admin_api_key"`
	Tokens          []TokenConfig `yaml:"tokens" validate:"required,min=1"`
	Pairs           []PairConfig  `yaml:"pairs"`
}

// StoreConfig selects and tunes the order-book persistence backend.
type StoreConfig struct {
	Backend                 string `yaml:"backend" validate:"required,oneof=memory sqlite"`
	SQLitePath              string `yaml:"sqlite_path" validate:"required_if=Backend sqlite"`
	TTLBumpSeconds          int    `yaml:"ttl_bump_seconds" validate:"min=1"`
	TTLThresholdSeconds     int    `yaml:"ttl_threshold_seconds" validate:"min=1"`
	TTLSweepIntervalSeconds int    `yaml:"ttl_sweep_interval_seconds" validate:"min=1"`
}

// OperatorConfig holds the operator dispatcher's settings. Only
// BatchesPerSecond is passed to operator.New; the CircuitBreaker* fields are
// validated but not read, since the breaker uses fixed values (5 of 10, 30s).
type OperatorConfig struct {
	BatchesPerSecond               float64 `yaml:"batches_per_second" validate:"required,min=0"`
	CircuitBreakerFailureThreshold int     `yaml:"circuit_breaker_failure_threshold" validate:"min=1"`
	CircuitBreakerSampleSize       int     `yaml:"circuit_breaker_sample_size" validate:"min=1"`
	CircuitBreakerDelaySeconds     int     `yaml:"circuit_breaker_delay_seconds" validate:"min=1"`
}

// TelemetryConfig contains telemetry settings
type TelemetryConfig struct {
	MetricsPort   int  `yaml:"metrics_port"`
	EnableMetrics bool `yaml:"enable_metrics"`
}

// ConcurrencyConfig contains worker pool settings
type ConcurrencyConfig struct {
	TTLSweepPoolSize   int `yaml:"ttl_sweep_pool_size" validate:"min=1,max=100"`
	TTLSweepPoolBuffer int `yaml:"ttl_sweep_pool_buffer" validate:"min=1,max=10000"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s' (value: %v): %s", e.Field, e.Value, e.Message)
}

// LoadConfig loads configuration from a YAML file with environment variable expansion
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expandedData), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	var errs []string

	if err := c.validateAppConfig(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.validateCustodyConfig(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.validateStoreConfig(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := c.validateOperatorConfig(); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n%s", strings.Join(errs, "\n"))
	}
	return nil
}

func (c *Config) validateAppConfig() error {
	validLevels := []string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}
	if !contains(validLevels, strings.ToUpper(c.App.LogLevel)) {
		return ValidationError{
			Field:   "app.log_level",
			Value:   c.App.LogLevel,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(validLevels, ", ")),
		}
	}
	return nil
}

func (c *Config) validateCustodyConfig() error {
	if c.Custody.Owner == "" {
		return ValidationError{Field: "custody.owner", Message: "owner address is required"}
	}
	if c.Custody.OperatorManager == "" {
		return ValidationError{Field: "custody.operator_manager", Message: "operator manager address is required"}
	}
	if c.Custody.FeeCollector == "" {
		return ValidationError{Field: "custody.fee_collector", Message: "fee collector address is required"}
	}
	if len(c.Custody.Tokens) == 0 {
		return ValidationError{Field: "custody.tokens", Message: "at least one token must be configured"}
	}

	listed := make(map[string]bool, len(c.Custody.Tokens))
	for _, tok := range c.Custody.Tokens {
		listed[tok.Symbol] = true
	}
	for _, pair := range c.Custody.Pairs {
		if pair.Token1 == pair.Token2 {
			return ValidationError{Field: "custody.pairs", Value: pair.Symbol, Message: "pair tokens must be distinct"}
		}
		if !listed[pair.Token1] || !listed[pair.Token2] {
			return ValidationError{Field: "custody.pairs", Value: pair.Symbol, Message: "pair tokens must appear in custody.tokens"}
		}
	}

	return nil
}

func (c *Config) validateStoreConfig() error {
	if c.Store.Backend == "sqlite" && c.Store.SQLitePath == "" {
		return ValidationError{Field: "store.sqlite_path", Message: "required when store.backend is sqlite"}
	}
	return nil
}

func (c *Config) validateOperatorConfig() error {
	if c.Operator.BatchesPerSecond < 0 {
		return ValidationError{Field: "operator.batches_per_second", Value: c.Operator.BatchesPerSecond, Message: "must be non-negative"}
	}
	return nil
}

// String returns a string representation of the configuration (with
// sensitive data masked).
func (c *Config) String() string {
	data, _ := yaml.Marshal(c)
	return string(data)
}

// Helper functions

func expandEnvVars(s string) string {
	return os.Expand(s, func(key string) string {
		value := os.Getenv(key)
		if value == "" && isCriticalEnvVar(key) {
			return ""
		}
		return value
	})
}

// isCriticalEnvVar checks if an environment variable is critical for operation
func isCriticalEnvVar(key string) bool {
	criticalVars := []string{
		"CUSTODY_ADMIN_API_KEY", "CUSTODY_OWNER", "CUSTODY_OPERATOR_MANAGER",
	}
	return contains(criticalVars, key)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// DefaultConfig returns a default configuration for testing
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{LogLevel: "INFO"},
		Custody: CustodyConfig{
			Owner:           "owner",
			OperatorManager: "operator-manager",
			FeeCollector:    "fee-collector",
			Tokens: []TokenConfig{
				{Symbol: "BTC", Decimals: 8},
				{Symbol: "USD", Decimals: 2},
			},
			Pairs: []PairConfig{
				{Symbol: "BTC-USD", Token1: "BTC", Token2: "USD", FeeRate: decimal.NewFromFloat(0.001)},
			},
		},
		Store: StoreConfig{
			Backend:                 "memory",
			TTLBumpSeconds:          30 * 24 * 3600,
			TTLThresholdSeconds:     24 * 3600,
			TTLSweepIntervalSeconds: 3600,
		},
		Operator: OperatorConfig{
			BatchesPerSecond:               10,
			CircuitBreakerFailureThreshold: 5,
			CircuitBreakerSampleSize:       10,
			CircuitBreakerDelaySeconds:     30,
		},
		Telemetry: TelemetryConfig{
			MetricsPort:   9090,
			EnableMetrics: true,
		},
		Concurrency: ConcurrencyConfig{
			TTLSweepPoolSize:   4,
			TTLSweepPoolBuffer: 100,
		},
	}
}
