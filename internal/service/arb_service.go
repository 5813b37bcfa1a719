// Package service implements the application-facing operations on top of the
// aggregator, engine, simulator and stores.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/alanyoungcy/perpspot/internal/aggregator"
	"github.com/alanyoungcy/perpspot/internal/arbitrage"
	"github.com/alanyoungcy/perpspot/internal/domain"
	"github.com/alanyoungcy/perpspot/internal/slippage"
)

// ArbService scans the configured tokens for arbitrage opportunities and
// exposes slippage estimation. The opportunity store is optional; when
// present every detected opportunity is persisted best-effort.
type ArbService struct {
	tokens []string
	agg    *aggregator.Aggregator
	engine *arbitrage.Engine
	slip   *slippage.Model
	store  domain.OpportunityStore
	logger *slog.Logger
}

// NewArbService creates the service. store may be nil when persistence is
// disabled.
func NewArbService(
	tokens []string,
	agg *aggregator.Aggregator,
	engine *arbitrage.Engine,
	slip *slippage.Model,
	store domain.OpportunityStore,
	logger *slog.Logger,
) *ArbService {
	return &ArbService{
		tokens: tokens,
		agg:    agg,
		engine: engine,
		slip:   slip,
		store:  store,
		logger: logger.With(slog.String("component", "service")),
	}
}

// Scan sweeps every configured token, records each observation in the
// engine's spread history, and persists what it detects. The scan loop is the
// only caller, which keeps it the single writer of the rolling windows.
func (s *ArbService) Scan(ctx context.Context) ([]domain.ArbitrageOpportunity, error) {
	return s.sweep(ctx, 0, true)
}

// GetOpportunities sweeps every configured token and returns the detected
// opportunities without touching the spread history or the store, so request
// traffic cannot double-count observations the scan loop already recorded.
// minSpreadBps above the engine's own threshold narrows the result; zero
// leaves the engine threshold in charge.
func (s *ArbService) GetOpportunities(ctx context.Context, minSpreadBps float64) ([]domain.ArbitrageOpportunity, error) {
	return s.sweep(ctx, minSpreadBps, false)
}

// sweep resolves and evaluates every configured token, sorted by absolute
// spread, widest first. Tokens whose sources fail are skipped, not fatal.
func (s *ArbService) sweep(ctx context.Context, minSpreadBps float64, record bool) ([]domain.ArbitrageOpportunity, error) {
	evaluate := s.engine.Inspect
	if record {
		evaluate = s.engine.Evaluate
	}

	opps := make([]domain.ArbitrageOpportunity, 0, len(s.tokens))

	for _, token := range s.tokens {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		quote, err := s.agg.Snapshot(ctx, token)
		if err != nil {
			s.logger.Warn("snapshot failed",
				slog.String("token", token),
				slog.String("error", err.Error()))
			continue
		}

		opp, found, err := evaluate(quote)
		if err != nil {
			s.logger.Warn("evaluation failed",
				slog.String("token", token),
				slog.String("error", err.Error()))
			continue
		}
		if !found {
			continue
		}
		if minSpreadBps > 0 && opp.AbsSpreadBps() < minSpreadBps {
			continue
		}

		opps = append(opps, opp)

		if record && s.store != nil {
			if err := s.store.Insert(ctx, opp); err != nil {
				s.logger.Warn("opportunity persist failed",
					slog.String("token", token),
					slog.String("error", err.Error()))
			}
		}
	}

	sort.Slice(opps, func(i, j int) bool {
		return opps[i].AbsSpreadBps() > opps[j].AbsSpreadBps()
	})
	return opps, nil
}

// Snapshot returns the aggregated market view for one token.
func (s *ArbService) Snapshot(ctx context.Context, token string) (domain.AggregatedQuote, error) {
	return s.agg.Snapshot(ctx, token)
}

// Snapshots returns the market view for every configured token. Failed
// tokens are omitted.
func (s *ArbService) Snapshots(ctx context.Context) []domain.AggregatedQuote {
	out := make([]domain.AggregatedQuote, 0, len(s.tokens))
	for _, token := range s.tokens {
		q, err := s.agg.Snapshot(ctx, token)
		if err != nil {
			continue
		}
		out = append(out, q)
	}
	return out
}

// SlippageEstimate estimates impact for trading the given notional.
func (s *ArbService) SlippageEstimate(token string, notional float64) (slippage.Estimate, error) {
	est, err := s.slip.EstimateFor(token, notional)
	if err != nil {
		return slippage.Estimate{}, fmt.Errorf("service: slippage estimate: %w", err)
	}
	return est, nil
}

// History returns the most recent persisted opportunities.
func (s *ArbService) History(ctx context.Context, limit int) ([]domain.ArbitrageOpportunity, error) {
	if s.store == nil {
		return nil, fmt.Errorf("service: history: %w", domain.ErrNotFound)
	}
	return s.store.ListRecent(ctx, limit)
}
