// Package config defines the top-level configuration for the perpspot service
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by PERPSPOT_* environment variables.
type Config struct {
	Tokens       []string          `toml:"tokens"`
	Feed         FeedConfig        `toml:"feed"`
	Hyperliquid  HyperliquidConfig `toml:"hyperliquid"`
	Jupiter      JupiterConfig     `toml:"jupiter"`
	CoinGecko    CoinGeckoConfig   `toml:"coingecko"`
	Redis        RedisConfig       `toml:"redis"`
	Cache        CacheConfig       `toml:"cache"`
	Postgres     PostgresConfig    `toml:"postgres"`
	Synthetic    SyntheticConfig   `toml:"synthetic"`
	Arbitrage    ArbitrageConfig   `toml:"arbitrage"`
	Slippage     SlippageConfig    `toml:"slippage"`
	Simulation   SimulationConfig  `toml:"simulation"`
	Templates    []TemplateConfig  `toml:"templates"`
	Server       ServerConfig      `toml:"server"`
	PollInterval duration          `toml:"poll_interval"`
	Mode         string            `toml:"mode"`
	LogLevel     string            `toml:"log_level"`
}

// FeedConfig holds the streaming connector parameters: heartbeat cadence,
// failover thresholds, and reconnection backoff.
type FeedConfig struct {
	HeartbeatInterval  duration `toml:"heartbeat_interval"`
	HeartbeatTimeout   duration `toml:"heartbeat_timeout"`
	FailoverAfter      int      `toml:"failover_after"`
	MaxAttemptsPerNet  int      `toml:"max_attempts_per_network"`
	ReconnectBaseDelay duration `toml:"reconnect_base_delay"`
	ReconnectMaxDelay  duration `toml:"reconnect_max_delay"`
	RetryCycle         duration `toml:"retry_cycle"`
	DialTimeout        duration `toml:"dial_timeout"`
}

// HyperliquidConfig holds the perp feed endpoints. The testnet WebSocket acts
// as the secondary network when the mainnet endpoint keeps failing.
type HyperliquidConfig struct {
	WSPrimary   string   `toml:"ws_primary"`
	WSSecondary string   `toml:"ws_secondary"`
	InfoURL     string   `toml:"info_url"`
	Timeout     duration `toml:"timeout"`
}

// JupiterConfig holds the spot price REST endpoint and the symbol-to-mint
// mapping it requires.
type JupiterConfig struct {
	BaseURL string            `toml:"base_url"`
	Mints   map[string]string `toml:"mints"`
	Timeout duration          `toml:"timeout"`
}

// CoinGeckoConfig holds the secondary spot source endpoint and its own
// token-identifier mapping.
type CoinGeckoConfig struct {
	BaseURL string            `toml:"base_url"`
	IDs     map[string]string `toml:"ids"`
	Timeout duration          `toml:"timeout"`
}

// RedisConfig holds Redis connection parameters for the quote cache backend.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// CacheConfig holds the per-source-class staleness TTLs.
type CacheConfig struct {
	StreamTTL  duration `toml:"stream_ttl"`
	RestTTL    duration `toml:"rest_ttl"`
	FundingTTL duration `toml:"funding_ttl"`
}

// PostgresConfig holds connection parameters for opportunity history
// persistence. Only used by modes that persist.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// SyntheticConfig holds the per-token anchor prices the synthetic generator
// falls back to before any real quote has been observed. Every configured
// token must have a positive anchor, so the synthetic source can always
// produce a quote.
type SyntheticConfig struct {
	Anchors map[string]float64 `toml:"anchors"`
}

// ArbitrageConfig holds detection thresholds and rolling-window parameters.
type ArbitrageConfig struct {
	MinSpreadBps     float64  `toml:"min_spread_bps"`
	WindowSize       int      `toml:"window_size"`
	MaxQuoteAge      duration `toml:"max_quote_age"`
	DefaultTradeSize float64  `toml:"default_trade_size"`
	SpotFeeBps       float64  `toml:"spot_fee_bps"`
	PerpFeeBps       float64  `toml:"perp_fee_bps"`
	// MinNetPnL is an optional hard viability floor; zero disables it and
	// leaves filtering to the consumer.
	MinNetPnL float64 `toml:"min_net_pnl"`
}

// SlippageConfig holds market-impact calibration. Depth is a per-token
// estimate of available liquidity in USD; it is configuration, not live
// order-book data.
type SlippageConfig struct {
	KSqrt             float64            `toml:"k_sqrt"`
	ACoeff            float64            `toml:"a_coeff"`
	BPower            float64            `toml:"b_power"`
	PermanentFraction float64            `toml:"permanent_fraction"`
	MinBps            float64            `toml:"min_bps"`
	MaxBps            float64            `toml:"max_bps"`
	DefaultDepth      float64            `toml:"default_depth"`
	Depth             map[string]float64 `toml:"depth"`
}

// SimulationConfig holds Monte-Carlo execution parameters.
type SimulationConfig struct {
	MinDraws           int     `toml:"min_draws"`
	MaxDraws           int     `toml:"max_draws"`
	LatencyMeanMS      float64 `toml:"latency_mean_ms"`
	LatencySigma       float64 `toml:"latency_sigma"`
	DriftVolBps        float64 `toml:"drift_vol_bps"`
	SpreadDecayRate    float64 `toml:"spread_decay_rate"`
	SlippageJitter     float64 `toml:"slippage_jitter"`
	FundingIntervalHrs float64 `toml:"funding_interval_hours"`
	HoldingPeriodHrs   float64 `toml:"holding_period_hours"`
	DropRateLimit      float64 `toml:"drop_rate_limit"`
	SampleDraws        int     `toml:"sample_draws"`
}

// TemplateConfig is the TOML shape of one execution template.
type TemplateConfig struct {
	Name            string  `toml:"name"`
	Token           string  `toml:"token"`
	SizeMin         float64 `toml:"size_min"`
	SizeMax         float64 `toml:"size_max"`
	TargetSpreadBps float64 `toml:"target_spread_bps"`
	Leverage        float64 `toml:"leverage"`
	MaxLatencyMS    float64 `toml:"max_latency_ms"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s", "800ms").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values. The
// calibration constants (impact coefficients, depth table, TTLs) are business
// inputs; these defaults only make the service runnable out of the box.
func Defaults() Config {
	return Config{
		Tokens: []string{"SOL", "ETH", "BTC", "JUP", "BONK", "ORCA", "HL"},
		Feed: FeedConfig{
			HeartbeatInterval:  duration{20 * time.Second},
			HeartbeatTimeout:   duration{10 * time.Second},
			FailoverAfter:      3,
			MaxAttemptsPerNet:  10,
			ReconnectBaseDelay: duration{time.Second},
			ReconnectMaxDelay:  duration{60 * time.Second},
			RetryCycle:         duration{5 * time.Minute},
			DialTimeout:        duration{15 * time.Second},
		},
		Hyperliquid: HyperliquidConfig{
			WSPrimary:   "wss://api.hyperliquid.xyz/ws",
			WSSecondary: "wss://api.hyperliquid-testnet.xyz/ws",
			InfoURL:     "https://api.hyperliquid.xyz/info",
			Timeout:     duration{5 * time.Second},
		},
		Jupiter: JupiterConfig{
			BaseURL: "https://api.jup.ag/price/v2",
			Mints: map[string]string{
				"SOL":  "So11111111111111111111111111111111111111112",
				"JUP":  "JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN",
				"BONK": "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263",
				"ORCA": "orcaEKTdK7LKz57vaAYr9QeNsVEPfiu6QeMU1kektZE",
				"USDC": "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
			},
			Timeout: duration{4 * time.Second},
		},
		CoinGecko: CoinGeckoConfig{
			BaseURL: "https://api.coingecko.com/api/v3",
			IDs: map[string]string{
				"SOL":  "solana",
				"ETH":  "ethereum",
				"BTC":  "bitcoin",
				"JUP":  "jupiter-exchange-solana",
				"BONK": "bonk",
				"ORCA": "orca",
				"HL":   "hyperliquid",
				"USDC": "usd-coin",
			},
			Timeout: duration{4 * time.Second},
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
		},
		Cache: CacheConfig{
			StreamTTL:  duration{800 * time.Millisecond},
			RestTTL:    duration{7 * time.Second},
			FundingTTL: duration{30 * time.Second},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "perpspot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Synthetic: SyntheticConfig{
			Anchors: map[string]float64{
				"SOL":  150,
				"ETH":  3500,
				"BTC":  100000,
				"JUP":  0.8,
				"BONK": 0.00002,
				"ORCA": 3.5,
				"HL":   25,
				"USDC": 1,
			},
		},
		Arbitrage: ArbitrageConfig{
			MinSpreadBps:     30,
			WindowSize:       20,
			MaxQuoteAge:      duration{10 * time.Second},
			DefaultTradeSize: 1000,
			SpotFeeBps:       5,
			PerpFeeBps:       2,
		},
		Slippage: SlippageConfig{
			KSqrt:             0.7,
			ACoeff:            0.3,
			BPower:            0.6,
			PermanentFraction: 0.25,
			MinBps:            0.5,
			MaxBps:            500,
			DefaultDepth:      10_000_000,
			Depth: map[string]float64{
				"SOL":  100_000_000,
				"ETH":  500_000_000,
				"BTC":  1_000_000_000,
				"USDC": 200_000_000,
			},
		},
		Simulation: SimulationConfig{
			MinDraws:           100,
			MaxDraws:           5000,
			LatencyMeanMS:      250,
			LatencySigma:       0.8,
			DriftVolBps:        12,
			SpreadDecayRate:    0.4,
			SlippageJitter:     0.25,
			FundingIntervalHrs: 8,
			HoldingPeriodHrs:   24,
			DropRateLimit:      0.05,
			SampleDraws:        10,
		},
		Templates: []TemplateConfig{
			{Name: "SOL Scalping", Token: "SOL", SizeMin: 100, SizeMax: 5000, TargetSpreadBps: 30, Leverage: 3, MaxLatencyMS: 2000},
			{Name: "ETH Conservative", Token: "ETH", SizeMin: 500, SizeMax: 10000, TargetSpreadBps: 50, Leverage: 2, MaxLatencyMS: 3000},
			{Name: "BTC Large Size", Token: "BTC", SizeMin: 1000, SizeMax: 50000, TargetSpreadBps: 40, Leverage: 2, MaxLatencyMS: 4000},
		},
		Server: ServerConfig{
			Enabled:     true,
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		PollInterval: duration{5 * time.Second},
		Mode:         "full",
		LogLevel:     "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"monitor": true,
	"server":  true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: monitor, server, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if len(c.Tokens) == 0 {
		errs = append(errs, "tokens: at least one token must be configured")
	}

	// Feed
	if c.Feed.HeartbeatInterval.Duration <= 0 {
		errs = append(errs, "feed: heartbeat_interval must be > 0")
	}
	if c.Feed.HeartbeatTimeout.Duration <= 0 || c.Feed.HeartbeatTimeout.Duration >= c.Feed.HeartbeatInterval.Duration {
		errs = append(errs, "feed: heartbeat_timeout must be > 0 and shorter than heartbeat_interval")
	}
	if c.Feed.FailoverAfter < 1 {
		errs = append(errs, "feed: failover_after must be >= 1")
	}
	if c.Feed.MaxAttemptsPerNet < c.Feed.FailoverAfter {
		errs = append(errs, "feed: max_attempts_per_network must be >= failover_after")
	}

	// Endpoints
	if c.Hyperliquid.WSPrimary == "" {
		errs = append(errs, "hyperliquid: ws_primary must not be empty")
	}
	if c.Hyperliquid.WSSecondary == "" {
		errs = append(errs, "hyperliquid: ws_secondary must not be empty")
	}
	if c.Hyperliquid.InfoURL == "" {
		errs = append(errs, "hyperliquid: info_url must not be empty")
	}
	if c.Jupiter.BaseURL == "" {
		errs = append(errs, "jupiter: base_url must not be empty")
	}
	if c.CoinGecko.BaseURL == "" {
		errs = append(errs, "coingecko: base_url must not be empty")
	}

	// Redis
	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	// Cache TTLs
	if c.Cache.StreamTTL.Duration <= 0 {
		errs = append(errs, "cache: stream_ttl must be > 0")
	}
	if c.Cache.RestTTL.Duration <= 0 {
		errs = append(errs, "cache: rest_ttl must be > 0")
	}

	// Synthetic anchors
	for _, token := range c.Tokens {
		if c.Synthetic.Anchors[token] <= 0 {
			errs = append(errs, fmt.Sprintf("synthetic: anchor for %s must be set and > 0", token))
		}
	}

	// Arbitrage
	if c.Arbitrage.MinSpreadBps <= 0 {
		errs = append(errs, "arbitrage: min_spread_bps must be > 0")
	}
	if c.Arbitrage.WindowSize < 2 {
		errs = append(errs, "arbitrage: window_size must be >= 2")
	}
	if c.Arbitrage.DefaultTradeSize <= 0 {
		errs = append(errs, "arbitrage: default_trade_size must be > 0")
	}

	// Slippage
	if c.Slippage.KSqrt <= 0 {
		errs = append(errs, "slippage: k_sqrt must be > 0")
	}
	if c.Slippage.BPower <= 0 {
		errs = append(errs, "slippage: b_power must be > 0")
	}
	if c.Slippage.DefaultDepth <= 0 {
		errs = append(errs, "slippage: default_depth must be > 0")
	}
	for token, depth := range c.Slippage.Depth {
		if depth <= 0 {
			errs = append(errs, fmt.Sprintf("slippage: depth for %s must be > 0", token))
		}
	}

	// Simulation
	if c.Simulation.MinDraws < 1 {
		errs = append(errs, "simulation: min_draws must be >= 1")
	}
	if c.Simulation.MaxDraws < c.Simulation.MinDraws {
		errs = append(errs, "simulation: max_draws must be >= min_draws")
	}
	if c.Simulation.LatencyMeanMS <= 0 {
		errs = append(errs, "simulation: latency_mean_ms must be > 0")
	}
	if c.Simulation.DropRateLimit <= 0 || c.Simulation.DropRateLimit >= 1 {
		errs = append(errs, "simulation: drop_rate_limit must be in (0, 1)")
	}

	// Templates
	seen := map[string]bool{}
	for _, t := range c.Templates {
		if t.Name == "" {
			errs = append(errs, "templates: name must not be empty")
			continue
		}
		if seen[t.Name] {
			errs = append(errs, fmt.Sprintf("templates: duplicate name %q", t.Name))
		}
		seen[t.Name] = true
		if t.SizeMin < 0 || (t.SizeMax > 0 && t.SizeMax < t.SizeMin) {
			errs = append(errs, fmt.Sprintf("templates: %q has invalid size range", t.Name))
		}
	}

	// Server
	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
