// Package aggregator assembles one consistent market view per token from the
// layered price sources: stream cache first, REST fallbacks next, and a
// flagged synthetic quote as the last resort.
package aggregator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/perpspot/internal/config"
	"github.com/alanyoungcy/perpspot/internal/domain"
	"github.com/alanyoungcy/perpspot/internal/platform/coingecko"
	"github.com/alanyoungcy/perpspot/internal/platform/hyperliquid"
	"github.com/alanyoungcy/perpspot/internal/platform/jupiter"
)

// Aggregator resolves spot and perp prices through per-side priority chains
// and combines them with the latest funding rate into an AggregatedQuote.
type Aggregator struct {
	cache       domain.QuoteCache
	hl          *hyperliquid.Client
	spotChain   []domain.QuoteSource
	perpChain   []domain.QuoteSource
	spotSynth   *Synthetic
	perpSynth   *Synthetic
	restTTL     time.Duration
	fundingTTL  time.Duration
	maxQuoteAge time.Duration
	logger      *slog.Logger
}

// New wires the default source chains. Spot resolves through Jupiter, then
// CoinGecko, then synthetic; perp resolves through the stream cache, then the
// Hyperliquid info endpoint, then synthetic.
func New(
	cache domain.QuoteCache,
	hl *hyperliquid.Client,
	jup *jupiter.Client,
	cg *coingecko.Client,
	cacheCfg config.CacheConfig,
	synthCfg config.SyntheticConfig,
	maxQuoteAge time.Duration,
	logger *slog.Logger,
) *Aggregator {
	spotSynth := NewSynthetic(domain.PriceTypeSpot, synthCfg.Anchors)
	perpSynth := NewSynthetic(domain.PriceTypeMark, synthCfg.Anchors)

	return &Aggregator{
		cache: cache,
		hl:    hl,
		spotChain: []domain.QuoteSource{
			NewJupiterSource(jup),
			NewCoinGeckoSource(cg),
			spotSynth,
		},
		perpChain: []domain.QuoteSource{
			streamSource{},
			NewHyperliquidRESTSource(hl),
			perpSynth,
		},
		spotSynth:   spotSynth,
		perpSynth:   perpSynth,
		restTTL:     cacheCfg.RestTTL.Duration,
		fundingTTL:  cacheCfg.FundingTTL.Duration,
		maxQuoteAge: maxQuoteAge,
		logger:      logger.With(slog.String("component", "aggregator")),
	}
}

// Snapshot resolves both sides of the market for a token. It fails only when
// a side has no source left, synthetic included.
func (a *Aggregator) Snapshot(ctx context.Context, token string) (domain.AggregatedQuote, error) {
	spot, err := a.resolve(ctx, token, domain.PriceTypeSpot, a.spotChain, a.spotSynth)
	if err != nil {
		return domain.AggregatedQuote{}, fmt.Errorf("aggregator: spot side for %s: %w", token, err)
	}

	perp, err := a.resolve(ctx, token, domain.PriceTypeMark, a.perpChain, a.perpSynth)
	if err != nil {
		return domain.AggregatedQuote{}, fmt.Errorf("aggregator: perp side for %s: %w", token, err)
	}

	funding := a.fundingRate(ctx, token)

	return domain.AggregatedQuote{
		Token:       token,
		SpotPrice:   spot.Price,
		PerpPrice:   perp.Price,
		FundingRate: funding,
		SpotSource:  spot.Source,
		PerpSource:  perp.Source,
		SourcesUsed: []string{spot.Source, perp.Source},
		AsOf:        time.Now().UTC(),
	}, nil
}

// resolve walks one priority chain. For every source it prefers a fresh
// cached quote; otherwise it fetches, caches the result, and feeds the
// synthetic anchor. A synthetic quote is never cached.
func (a *Aggregator) resolve(
	ctx context.Context,
	token string,
	pt domain.PriceType,
	chain []domain.QuoteSource,
	synth *Synthetic,
) (domain.Quote, error) {
	for _, src := range chain {
		if q, err := a.cache.GetQuote(ctx, token, src.Name(), pt); err == nil {
			if q.Age(time.Now()) <= a.maxQuoteAge {
				synth.Observe(token, q.Price)
				return q, nil
			}
		}

		q, err := src.Fetch(ctx, token)
		if err != nil {
			a.logger.Debug("source unavailable",
				slog.String("token", token),
				slog.String("source", src.Name()),
				slog.String("error", err.Error()))
			continue
		}

		if !q.Synthetic() {
			synth.Observe(token, q.Price)
			if err := a.cache.SetQuote(ctx, q, a.restTTL); err != nil {
				a.logger.Warn("cache write failed",
					slog.String("token", token),
					slog.String("source", src.Name()),
					slog.String("error", err.Error()))
			}
		}
		return q, nil
	}

	return domain.Quote{}, domain.ErrSourceUnavailable
}

// fundingRate returns the cached funding rate, refreshing it from the info
// endpoint on a miss. Funding is advisory; failures degrade to zero.
func (a *Aggregator) fundingRate(ctx context.Context, token string) float64 {
	if rate, _, err := a.cache.GetFunding(ctx, token); err == nil {
		return rate
	}

	ctxs, err := a.hl.AssetContexts(ctx)
	if err != nil {
		a.logger.Debug("funding refresh failed",
			slog.String("token", token),
			slog.String("error", err.Error()))
		return 0
	}

	now := time.Now().UTC()
	for tok, ac := range ctxs {
		if err := a.cache.SetFunding(ctx, tok, ac.FundingRate, now, a.fundingTTL); err != nil {
			a.logger.Warn("funding cache write failed",
				slog.String("token", tok),
				slog.String("error", err.Error()))
		}
	}

	return ctxs[token].FundingRate
}
