package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/perpspot/internal/aggregator"
	"github.com/alanyoungcy/perpspot/internal/arbitrage"
	"github.com/alanyoungcy/perpspot/internal/cache"
	"github.com/alanyoungcy/perpspot/internal/cache/memory"
	"github.com/alanyoungcy/perpspot/internal/cache/redis"
	"github.com/alanyoungcy/perpspot/internal/config"
	"github.com/alanyoungcy/perpspot/internal/domain"
	"github.com/alanyoungcy/perpspot/internal/feed"
	"github.com/alanyoungcy/perpspot/internal/platform/coingecko"
	"github.com/alanyoungcy/perpspot/internal/platform/hyperliquid"
	"github.com/alanyoungcy/perpspot/internal/platform/jupiter"
	"github.com/alanyoungcy/perpspot/internal/service"
	"github.com/alanyoungcy/perpspot/internal/simulator"
	"github.com/alanyoungcy/perpspot/internal/slippage"
	"github.com/alanyoungcy/perpspot/internal/store/postgres"
	"github.com/alanyoungcy/perpspot/internal/template"
)

// Dependencies bundles everything the application modes need. It is built by
// Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Cache     domain.QuoteCache
	Connector *feed.Connector
	ArbSvc    *service.ArbService
	SimSvc    *service.SimulationService
	Store     domain.OpportunityStore
}

// needsPostgres returns true for modes that persist opportunity history.
func needsPostgres(mode string) bool {
	switch strings.ToLower(mode) {
	case "server", "full":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependencies from the configuration. A Redis
// outage at startup is tolerated: the quote cache degrades to the in-process
// backend. A Postgres outage disables history persistence without failing
// the process.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Quote cache: Redis primary with in-process fallback ---
	var primary domain.QuoteCache
	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		logger.Warn("redis unavailable, using in-process cache only",
			slog.String("addr", cfg.Redis.Addr),
			slog.String("error", err.Error()))
	} else {
		closers = append(closers, func() { _ = redisClient.Close() })
		primary = redis.NewQuoteCache(redisClient)
	}
	deps.Cache = cache.NewFailover(primary, memory.NewQuoteCache(), logger)

	// --- Platform clients ---
	hlClient := hyperliquid.NewClient(cfg.Hyperliquid.InfoURL)
	jupClient := jupiter.NewClient(cfg.Jupiter.BaseURL, cfg.Jupiter.Mints)
	cgClient := coingecko.NewClient(cfg.CoinGecko.BaseURL, cfg.CoinGecko.IDs)

	// --- Feed connector ---
	dial := func(ctx context.Context, wsURL string, tokens []string) (feed.Session, error) {
		return hyperliquid.DialSession(ctx, wsURL, tokens)
	}
	deps.Connector = feed.NewConnector(
		cfg.Feed, cfg.Hyperliquid, cfg.Cache, cfg.Tokens, dial, deps.Cache, logger,
	)

	// --- Aggregation and detection ---
	agg := aggregator.New(
		deps.Cache, hlClient, jupClient, cgClient,
		cfg.Cache, cfg.Synthetic, cfg.Arbitrage.MaxQuoteAge.Duration, logger,
	)
	slipModel := slippage.NewModel(cfg.Slippage)
	engine := arbitrage.NewEngine(cfg.Arbitrage, slipModel, logger)

	// --- Opportunity history (optional) ---
	if needsPostgres(cfg.Mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			logger.Warn("postgres unavailable, opportunity history disabled",
				slog.String("error", err.Error()))
		} else {
			closers = append(closers, pgClient.Close)
			if cfg.Postgres.RunMigrations {
				if err := pgClient.RunMigrations(ctx); err != nil {
					cleanup()
					return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
				}
			}
			deps.Store = postgres.NewOpportunityStore(pgClient.Pool())
		}
	}

	// --- Services ---
	deps.ArbSvc = service.NewArbService(cfg.Tokens, agg, engine, slipModel, deps.Store, logger)

	registry := template.NewRegistry(cfg.Templates)
	sim := simulator.New(cfg.Simulation, cfg.Arbitrage, slipModel, logger)
	deps.SimSvc = service.NewSimulationService(sim, registry, agg, logger)

	return deps, cleanup, nil
}
