package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Ledger gateway settings
	LedgerURL   string
	PoolAddress string
	// BlockTime is the chain's average block time, used to size the
	// trailing 24h event window in blocks.
	BlockTime time.Duration

	// Token pair
	TokenASymbol   string
	TokenBSymbol   string
	TokenADecimals uint8
	TokenBDecimals uint8
	LPDecimals     uint8

	// Refresh cadences
	MetricsInterval time.Duration
	SummaryInterval time.Duration
	StaleAfter      time.Duration

	// Redis settings
	RedisAddr string

	// ClickHouse settings
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// HTTP client settings
	HTTPTimeout       time.Duration
	MaxRetries        int
	RetryBackoff      time.Duration
	RequestsPerSecond float64

	// API server
	APIAddr string
	APIKey  string
	DevMode bool

	// AI
	OpenRouterAPIKey string
	AIModel          string
}

func Load() *Config {
	return &Config{
		// Ledger
		LedgerURL:   getEnv("LEDGER_URL", "http://localhost:8545"),
		PoolAddress: getEnv("POOL_ADDRESS", ""),
		BlockTime:   getDurationEnv("BLOCK_TIME", 2*time.Second),

		// Tokens
		TokenASymbol:   getEnv("TOKEN_A_SYMBOL", "MTK"),
		TokenBSymbol:   getEnv("TOKEN_B_SYMBOL", "sUSDC"),
		TokenADecimals: uint8(getIntEnv("TOKEN_A_DECIMALS", 18)),
		TokenBDecimals: uint8(getIntEnv("TOKEN_B_DECIMALS", 6)),
		LPDecimals:     uint8(getIntEnv("LP_DECIMALS", 18)),

		// Refresh
		MetricsInterval: getDurationEnv("METRICS_INTERVAL", 30*time.Second),
		SummaryInterval: getDurationEnv("SUMMARY_INTERVAL", 60*time.Second),
		StaleAfter:      getDurationEnv("STALE_AFTER", 2*time.Minute),

		// Redis
		RedisAddr: getEnv("REDIS_ADDR", "localhost:6379"),

		// ClickHouse
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "dex"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		// HTTP
		HTTPTimeout:       getDurationEnv("HTTP_TIMEOUT", 30*time.Second),
		MaxRetries:        getIntEnv("MAX_RETRIES", 5),
		RetryBackoff:      getDurationEnv("RETRY_BACKOFF", 2*time.Second),
		RequestsPerSecond: getFloatEnv("RPC_RPS", 10),

		// API
		APIAddr: getEnv("API_ADDR", ":8090"),
		APIKey:  getEnv("API_KEY", ""),
		DevMode: getBoolEnv("DEV_MODE", false),

		// AI
		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		AIModel:          getEnv("AI_MODEL", ""),
	}
}

// WindowBlocks converts the 24h metrics window into a block count for the
// configured block time.
func (c *Config) WindowBlocks() uint64 {
	if c.BlockTime <= 0 {
		return 0
	}
	return uint64(24 * time.Hour / c.BlockTime)
}

// Validate rejects configurations the services cannot start with.
func (c *Config) Validate() error {
	if c.PoolAddress == "" {
		return fmt.Errorf("POOL_ADDRESS is required")
	}
	if c.BlockTime <= 0 {
		return fmt.Errorf("BLOCK_TIME must be positive")
	}
	if c.MetricsInterval <= 0 || c.SummaryInterval <= 0 {
		return fmt.Errorf("refresh intervals must be positive")
	}
	if c.TokenASymbol == c.TokenBSymbol {
		return fmt.Errorf("token symbols must differ")
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
