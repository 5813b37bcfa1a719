package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 20*time.Second, cfg.Feed.HeartbeatInterval.Duration)
	assert.Equal(t, 10*time.Second, cfg.Feed.HeartbeatTimeout.Duration)
	assert.Equal(t, 3, cfg.Feed.FailoverAfter)
	assert.Equal(t, 10, cfg.Feed.MaxAttemptsPerNet)
	assert.Equal(t, 30.0, cfg.Arbitrage.MinSpreadBps)
	assert.Equal(t, 100, cfg.Simulation.MinDraws)
	assert.Equal(t, 5000, cfg.Simulation.MaxDraws)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.Tokens = nil
	cfg.Arbitrage.MinSpreadBps = -5

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "tokens")
	assert.Contains(t, err.Error(), "min_spread_bps")
}

func TestValidateRequiresAnchorPerToken(t *testing.T) {
	cfg := Defaults()
	cfg.Tokens = append(cfg.Tokens, "WIF")

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anchor for WIF")
}

func TestValidateHeartbeatOrdering(t *testing.T) {
	cfg := Defaults()
	cfg.Feed.HeartbeatTimeout = duration{30 * time.Second}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "heartbeat_timeout")
}

func TestLoadFromTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
tokens = ["SOL", "ETH"]
mode = "monitor"
log_level = "debug"
poll_interval = "2s"

[feed]
heartbeat_interval = "25s"
heartbeat_timeout = "8s"

[arbitrage]
min_spread_bps = 45.0

[cache]
stream_ttl = "500ms"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"SOL", "ETH"}, cfg.Tokens)
	assert.Equal(t, "monitor", cfg.Mode)
	assert.Equal(t, 2*time.Second, cfg.PollInterval.Duration)
	assert.Equal(t, 25*time.Second, cfg.Feed.HeartbeatInterval.Duration)
	assert.Equal(t, 8*time.Second, cfg.Feed.HeartbeatTimeout.Duration)
	assert.Equal(t, 45.0, cfg.Arbitrage.MinSpreadBps)
	assert.Equal(t, 500*time.Millisecond, cfg.Cache.StreamTTL.Duration)

	// Untouched sections keep their defaults.
	assert.Equal(t, 3, cfg.Feed.FailoverAfter)
	assert.Equal(t, "wss://api.hyperliquid.xyz/ws", cfg.Hyperliquid.WSPrimary)
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`mode = "monitor"`), 0o600))

	t.Setenv("PERPSPOT_MODE", "full")
	t.Setenv("PERPSPOT_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("PERPSPOT_ARBITRAGE_MIN_SPREAD_BPS", "55")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "full", cfg.Mode)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, 55.0, cfg.Arbitrage.MinSpreadBps)
}
