package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration for the cross-margin core and
// the ambient services wrapped around it (feed ingestion, metrics, CLI).
type Config struct {
	Environment string

	DefaultAccount DefaultAccountConfig
	Broker         BrokerConfig
	Metrics        MetricsConfig
	Feed           FeedConfig
}

// DefaultAccountConfig seeds demo/CLI accounts when no account data is supplied.
type DefaultAccountConfig struct {
	Balance  float64
	Leverage float64
	Currency string
	StopOut  float64
}

// BrokerConfig carries broker-wide defaults used by the orchestrator bootstrap.
type BrokerConfig struct {
	Name              string
	DefaultLeverage   float64
	DefaultStopOut    float64
	MarginCallLevel   float64
	MaxTicksPerSymbol int
}

// MetricsConfig controls the Prometheus HTTP exposition.
type MetricsConfig struct {
	Enabled bool
	Addr    string
}

// FeedConfig configures the example tick-ingestion layer (feed package).
type FeedConfig struct {
	RedisAddr        string
	RedisChannel     string
	WebsocketURL     string
	ShutdownTimeoutS int
}

// Load loads configuration from environment variables, falling back to
// defaults suitable for local exploration via cmd/coresim.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),

		DefaultAccount: DefaultAccountConfig{
			Balance:  getEnvAsFloat("DEFAULT_ACCOUNT_BALANCE", 10000.0),
			Leverage: getEnvAsFloat("DEFAULT_ACCOUNT_LEVERAGE", 100.0),
			Currency: getEnv("DEFAULT_ACCOUNT_CURRENCY", "USD"),
			StopOut:  getEnvAsFloat("DEFAULT_ACCOUNT_STOP_OUT", 20.0),
		},

		Broker: BrokerConfig{
			Name:              getEnv("BROKER_NAME", "cross-margin-core"),
			DefaultLeverage:   getEnvAsFloat("DEFAULT_LEVERAGE", 100.0),
			DefaultStopOut:    getEnvAsFloat("DEFAULT_STOP_OUT", 20.0),
			MarginCallLevel:   getEnvAsFloat("MARGIN_CALL_LEVEL", 100.0),
			MaxTicksPerSymbol: getEnvAsInt("MAX_TICKS_PER_SYMBOL", 50000),
		},

		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
			Addr:    getEnv("METRICS_ADDR", ":9090"),
		},

		Feed: FeedConfig{
			RedisAddr:        getEnv("FEED_REDIS_ADDR", "localhost:6379"),
			RedisChannel:     getEnv("FEED_REDIS_CHANNEL", "ticks"),
			WebsocketURL:     getEnv("FEED_WEBSOCKET_URL", ""),
			ShutdownTimeoutS: getEnvAsInt("FEED_SHUTDOWN_TIMEOUT_S", 5),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that required configuration is present and consistent.
func (c *Config) Validate() error {
	if c.DefaultAccount.Leverage <= 0 {
		return fmt.Errorf("DEFAULT_ACCOUNT_LEVERAGE must be positive")
	}
	if c.Broker.DefaultStopOut < 0 {
		return fmt.Errorf("DEFAULT_STOP_OUT must not be negative")
	}
	return nil
}

// Helper functions

func getEnv(key string, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultVal
}

func getEnvAsSlice(key string, defaultVal []string, sep string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultVal
	}
	return strings.Split(valueStr, sep)
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultVal
	}
	return value
}
