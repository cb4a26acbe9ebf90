package config

import (
	"os"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandEnvVars(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		envVars  map[string]string
		expected string
	}{
		{
			name:  "expand single env var",
			input: "owner: ${TEST_OWNER}",
			envVars: map[string]string{
				"TEST_OWNER": "owner_value",
			},
			expected: "owner: owner_value",
		},
		{
			name:  "expand multiple env vars",
			input: "owner: ${OWNER}\noperator_manager: ${OPERATOR}",
			envVars: map[string]string{
				"OWNER":    "owner_value",
				"OPERATOR": "operator_value",
			},
			expected: "owner: owner_value\noperator_manager: operator_value",
		},
		{
			name:     "missing env var returns empty string",
			input:    "owner: ${MISSING_VAR}",
			envVars:  map[string]string{},
			expected: "owner: ",
		},
		{
			name:  "mixed static and env vars",
			input: "static_value: 123\nowner: ${TEST_KEY}",
			envVars: map[string]string{
				"TEST_KEY": "dynamic_value",
			},
			expected: "static_value: 123\nowner: dynamic_value",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				os.Setenv(k, v)
				defer os.Unsetenv(k)
			}

			result := expandEnvVars(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestLoadConfigWithEnvVars(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "config-test-*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	configContent := `app:
  log_level: "INFO"

custody:
  owner: "${TEST_OWNER}"
  operator_manager: "operator-manager"
  fee_collector: "fee-collector"
  admin_api_key: "${TEST_ADMIN_KEY}"
  tokens:
    - symbol: "BTC"
      decimals: 8
    - symbol: "USD"
      decimals: 2
  pairs:
    - symbol: "BTC-USD"
      token1: "BTC"
      token2: "USD"

store:
  backend: "memory"
  ttl_bump_seconds: 2592000
  ttl_threshold_seconds: 86400
  ttl_sweep_interval_seconds: 3600

operator:
  batches_per_second: 10
  circuit_breaker_failure_threshold: 5
  circuit_breaker_sample_size: 10
  circuit_breaker_delay_seconds: 30
`

	_, err = tmpFile.Write([]byte(configContent))
	require.NoError(t, err)
	tmpFile.Close()

	os.Setenv("TEST_OWNER", "owner_from_env")
	os.Setenv("TEST_ADMIN_KEY", "super_secret_from_env")
	defer os.Unsetenv("TEST_OWNER")
	defer os.Unsetenv("TEST_ADMIN_KEY")

	cfg, err := LoadConfig(tmpFile.Name())
	require.NoError(t, err, "LoadConfig() error")

	assert.Equal(t, "owner_from_env", cfg.Custody.Owner)
	assert.Equal(t, Secret("super_secret_from_env"), cfg.Custody.AdminAPIKey)
}

func TestIsCriticalEnvVar(t *testing.T) {
	tests := []struct {
		name     string
		envVar   string
		expected bool
	}{
		{"admin api key is critical", "CUSTODY_ADMIN_API_KEY", true},
		{"owner is critical", "CUSTODY_OWNER", true},
		{"random var is not critical", "RANDOM_VAR", false},
		{"empty var is not critical", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isCriticalEnvVar(tt.envVar)
			assert.Equal(t, tt.expected, result, "isCriticalEnvVar(%q)", tt.envVar)
		})
	}
}

func TestConfig_StringRedactsAdminAPIKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Custody.AdminAPIKey = Secret("my_super_secret_admin_key")

	output := cfg.String()

	assert.Contains(t, output, "REDACTED")
	assert.NotContains(t, output, "my_super_secret_admin_key")
}

func TestConfig_ValidateRejectsMissingOwner(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Custody.Owner = ""
	err := cfg.Validate()
	require.Error(t, err)
}

func TestConfig_ValidateRejectsPairWithUnlistedToken(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Custody.Pairs = append(cfg.Custody.Pairs, PairConfig{Symbol: "ETH-USD", Token1: "ETH", Token2: "USD"})
	err := cfg.Validate()
	require.Error(t, err)
}

func TestLoadConfig_ParsesPairFeeRateAsDecimal(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "config-test-*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())

	configContent := `app:
  log_level: "INFO"

custody:
  owner: "owner"
  operator_manager: "operator-manager"
  fee_collector: "fee-collector"
  tokens:
    - symbol: "BTC"
      decimals: 8
    - symbol: "USD"
      decimals: 2
  pairs:
    - symbol: "BTC-USD"
      token1: "BTC"
      token2: "USD"
      fee_rate: "0.0025"

store:
  backend: "memory"
  ttl_bump_seconds: 2592000
  ttl_threshold_seconds: 86400
  ttl_sweep_interval_seconds: 3600

operator:
  batches_per_second: 10
  circuit_breaker_failure_threshold: 5
  circuit_breaker_sample_size: 10
  circuit_breaker_delay_seconds: 30
`
	_, err = tmpFile.Write([]byte(configContent))
	require.NoError(t, err)
	tmpFile.Close()

	cfg, err := LoadConfig(tmpFile.Name())
	require.NoError(t, err)
	require.Len(t, cfg.Custody.Pairs, 1)
	assert.True(t, cfg.Custody.Pairs[0].FeeRate.Equal(decimal.RequireFromString("0.0025")))
}

func TestConfig_ValidateRejectsSqliteBackendWithoutPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Backend = "sqlite"
	cfg.Store.SQLitePath = ""
	err := cfg.Validate()
	require.Error(t, err)
}

func TestConfig_ValidateAcceptsDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
}
