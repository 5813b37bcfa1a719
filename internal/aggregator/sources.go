package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/alanyoungcy/perpspot/internal/domain"
	"github.com/alanyoungcy/perpspot/internal/platform/coingecko"
	"github.com/alanyoungcy/perpspot/internal/platform/hyperliquid"
	"github.com/alanyoungcy/perpspot/internal/platform/jupiter"
)

// streamSource represents the live WebSocket feed inside a fallback chain.
// The feed connector writes its quotes to the cache, so the aggregator only
// ever reads them from there; fetching directly is not possible.
type streamSource struct{}

func (streamSource) Name() string { return domain.SourceHyperliquidWS }

func (streamSource) Fetch(context.Context, string) (domain.Quote, error) {
	return domain.Quote{}, domain.ErrSourceUnavailable
}

// hyperliquidRESTSource serves perp mark prices from the info endpoint when
// the stream cache is empty.
type hyperliquidRESTSource struct {
	client *hyperliquid.Client
}

// NewHyperliquidRESTSource wraps the Hyperliquid REST client as a perp quote
// source.
func NewHyperliquidRESTSource(client *hyperliquid.Client) domain.QuoteSource {
	return &hyperliquidRESTSource{client: client}
}

func (s *hyperliquidRESTSource) Name() string { return domain.SourceHyperliquidREST }

func (s *hyperliquidRESTSource) Fetch(ctx context.Context, token string) (domain.Quote, error) {
	ctxs, err := s.client.AssetContexts(ctx)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("aggregator: hyperliquid rest %s: %w", token, domain.ErrSourceUnavailable)
	}
	ac, ok := ctxs[token]
	if !ok || ac.MarkPrice <= 0 {
		return domain.Quote{}, fmt.Errorf("aggregator: hyperliquid rest: no mark price for %s: %w", token, domain.ErrSourceUnavailable)
	}
	return domain.Quote{
		Token:      token,
		Source:     domain.SourceHyperliquidREST,
		PriceType:  domain.PriceTypeMark,
		Price:      ac.MarkPrice,
		Volume24h:  ac.DayNotionalVolume,
		ObservedAt: time.Now().UTC(),
	}, nil
}

// jupiterSource serves spot prices for Solana-ecosystem tokens.
type jupiterSource struct {
	client *jupiter.Client
}

// NewJupiterSource wraps the Jupiter price client as a spot quote source.
func NewJupiterSource(client *jupiter.Client) domain.QuoteSource {
	return &jupiterSource{client: client}
}

func (s *jupiterSource) Name() string { return domain.SourceJupiter }

func (s *jupiterSource) Fetch(ctx context.Context, token string) (domain.Quote, error) {
	if !s.client.Supports(token) {
		return domain.Quote{}, fmt.Errorf("aggregator: jupiter: unsupported token %s: %w", token, domain.ErrSourceUnavailable)
	}
	price, err := s.client.Price(ctx, token)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("aggregator: jupiter %s: %w", token, domain.ErrSourceUnavailable)
	}
	return domain.Quote{
		Token:      token,
		Source:     domain.SourceJupiter,
		PriceType:  domain.PriceTypeSpot,
		Price:      price,
		ObservedAt: time.Now().UTC(),
	}, nil
}

// coingeckoSource serves spot prices as the secondary REST fallback.
type coingeckoSource struct {
	client *coingecko.Client
}

// NewCoinGeckoSource wraps the CoinGecko client as a spot quote source.
func NewCoinGeckoSource(client *coingecko.Client) domain.QuoteSource {
	return &coingeckoSource{client: client}
}

func (s *coingeckoSource) Name() string { return domain.SourceCoinGecko }

func (s *coingeckoSource) Fetch(ctx context.Context, token string) (domain.Quote, error) {
	if !s.client.Supports(token) {
		return domain.Quote{}, fmt.Errorf("aggregator: coingecko: unsupported token %s: %w", token, domain.ErrSourceUnavailable)
	}
	price, err := s.client.Price(ctx, token)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("aggregator: coingecko %s: %w", token, domain.ErrSourceUnavailable)
	}
	return domain.Quote{
		Token:      token,
		Source:     domain.SourceCoinGecko,
		PriceType:  domain.PriceTypeSpot,
		Price:      price,
		ObservedAt: time.Now().UTC(),
	}, nil
}
