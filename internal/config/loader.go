package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies PERPSPOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known PERPSPOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This lets
// operators inject secrets and endpoint overrides at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Hyperliquid ──
	setStr(&cfg.Hyperliquid.WSPrimary, "PERPSPOT_HYPERLIQUID_WS_PRIMARY")
	setStr(&cfg.Hyperliquid.WSSecondary, "PERPSPOT_HYPERLIQUID_WS_SECONDARY")
	setStr(&cfg.Hyperliquid.InfoURL, "PERPSPOT_HYPERLIQUID_INFO_URL")

	// ── Jupiter / CoinGecko ──
	setStr(&cfg.Jupiter.BaseURL, "PERPSPOT_JUPITER_BASE_URL")
	setStr(&cfg.CoinGecko.BaseURL, "PERPSPOT_COINGECKO_BASE_URL")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "PERPSPOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PERPSPOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PERPSPOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PERPSPOT_REDIS_POOL_SIZE")
	setBool(&cfg.Redis.TLSEnabled, "PERPSPOT_REDIS_TLS_ENABLED")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "PERPSPOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "PERPSPOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "PERPSPOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "PERPSPOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "PERPSPOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "PERPSPOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "PERPSPOT_POSTGRES_SSLMODE")
	setBool(&cfg.Postgres.RunMigrations, "PERPSPOT_POSTGRES_RUN_MIGRATIONS")

	// ── Arbitrage ──
	setFloat64(&cfg.Arbitrage.MinSpreadBps, "PERPSPOT_ARBITRAGE_MIN_SPREAD_BPS")
	setFloat64(&cfg.Arbitrage.DefaultTradeSize, "PERPSPOT_ARBITRAGE_DEFAULT_TRADE_SIZE")
	setInt(&cfg.Arbitrage.WindowSize, "PERPSPOT_ARBITRAGE_WINDOW_SIZE")

	// ── Slippage calibration ──
	setFloat64(&cfg.Slippage.KSqrt, "PERPSPOT_SLIPPAGE_K_SQRT")
	setFloat64(&cfg.Slippage.ACoeff, "PERPSPOT_SLIPPAGE_A_COEFF")
	setFloat64(&cfg.Slippage.BPower, "PERPSPOT_SLIPPAGE_B_POWER")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "PERPSPOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "PERPSPOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "PERPSPOT_SERVER_CORS_ORIGINS")

	// ── Top-level ──
	setStringSlice(&cfg.Tokens, "PERPSPOT_TOKENS")
	setDuration(&cfg.PollInterval, "PERPSPOT_POLL_INTERVAL")
	setStr(&cfg.Mode, "PERPSPOT_MODE")
	setStr(&cfg.LogLevel, "PERPSPOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
