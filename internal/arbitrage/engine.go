// Package arbitrage detects spot versus perp price dislocations and scores
// them against the rolling spread history per token.
package arbitrage

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/perpspot/internal/config"
	"github.com/alanyoungcy/perpspot/internal/domain"
	"github.com/alanyoungcy/perpspot/internal/slippage"
)

const spreadEpsilon = 1e-9

// Engine evaluates aggregated quotes. Every recorded quote feeds the token's
// rolling spread window even when no opportunity results, so the z-score
// reflects the full recent history rather than only the dislocations.
type Engine struct {
	cfg    config.ArbitrageConfig
	slip   *slippage.Model
	logger *slog.Logger

	mu      sync.Mutex
	windows map[string]*tokenWindow
}

// tokenWindow pairs one token's rolling window with its own lock, so tokens
// never contend with each other. The engine mutex only guards map access.
type tokenWindow struct {
	mu  sync.Mutex
	win *RollingWindow
}

// NewEngine creates an engine with an empty spread history.
func NewEngine(cfg config.ArbitrageConfig, slip *slippage.Model, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:     cfg,
		slip:    slip,
		logger:  logger.With(slog.String("component", "arbitrage")),
		windows: make(map[string]*tokenWindow),
	}
}

// Evaluate scores one aggregated quote and records it in the token's spread
// history. It returns the detected opportunity and true when the spread
// clears the minimum threshold, or false when the market is within bounds. A
// stale quote is an error and does not touch the spread history.
func (e *Engine) Evaluate(q domain.AggregatedQuote) (domain.ArbitrageOpportunity, bool, error) {
	return e.evaluate(q, true)
}

// Inspect scores one aggregated quote against the existing spread history
// without recording it. The scan loop is the single writer of the windows;
// request traffic inspects.
func (e *Engine) Inspect(q domain.AggregatedQuote) (domain.ArbitrageOpportunity, bool, error) {
	return e.evaluate(q, false)
}

func (e *Engine) evaluate(q domain.AggregatedQuote, record bool) (domain.ArbitrageOpportunity, bool, error) {
	if q.SpotPrice <= 0 || q.PerpPrice <= 0 {
		return domain.ArbitrageOpportunity{}, false, fmt.Errorf("arbitrage: non-positive price for %s: %w", q.Token, domain.ErrInvalidParameter)
	}
	if age := time.Since(q.AsOf); age > e.cfg.MaxQuoteAge.Duration {
		return domain.ArbitrageOpportunity{}, false, fmt.Errorf("arbitrage: quote for %s is %s old: %w", q.Token, age.Round(time.Millisecond), domain.ErrStaleQuote)
	}

	spreadBps := (q.PerpPrice - q.SpotPrice) / q.SpotPrice * 10000

	zScore := e.score(q.Token, spreadBps, record)

	absSpread := spreadBps
	if absSpread < 0 {
		absSpread = -absSpread
	}
	// spreadEpsilon keeps a spread sitting exactly on the threshold from being
	// rejected by float rounding in the bps division.
	if absSpread < e.cfg.MinSpreadBps-spreadEpsilon {
		return domain.ArbitrageOpportunity{}, false, nil
	}

	strategy := domain.StrategyShortSpotLongPerp
	if spreadBps > 0 {
		// Perp trades rich: buy spot, short the perp.
		strategy = domain.StrategyLongSpotShortPerp
	}

	size := e.cfg.DefaultTradeSize
	slipEst, err := e.slip.EstimateFor(q.Token, size)
	if err != nil {
		return domain.ArbitrageOpportunity{}, false, fmt.Errorf("arbitrage: slippage for %s: %w", q.Token, err)
	}

	// Costs: impact on both legs plus venue fees. Funding accrues to the
	// perp short, so the long-spot strategy collects positive funding and
	// the short-spot strategy pays it.
	costBps := 2*slipEst.TotalBps + e.cfg.SpotFeeBps + e.cfg.PerpFeeBps
	fundingPnL := size * q.FundingRate
	if strategy == domain.StrategyShortSpotLongPerp {
		fundingPnL = -fundingPnL
	}
	netPnL := size*(absSpread-costBps)/10000 + fundingPnL

	if e.cfg.MinNetPnL > 0 && netPnL < e.cfg.MinNetPnL {
		return domain.ArbitrageOpportunity{}, false, nil
	}

	opp := domain.ArbitrageOpportunity{
		ID:              uuid.NewString(),
		Token:           q.Token,
		SpotPrice:       q.SpotPrice,
		PerpPrice:       q.PerpPrice,
		SpreadBps:       spreadBps,
		ZScore:          zScore,
		Strategy:        strategy,
		SlippageBps:     slipEst.TotalBps,
		FundingRate:     q.FundingRate,
		EstimatedNetPnL: netPnL,
		SpotSource:      q.SpotSource,
		PerpSource:      q.PerpSource,
		Synthetic:       q.Synthetic(),
		DetectedAt:      time.Now().UTC(),
	}

	e.logger.Info("opportunity detected",
		slog.String("token", q.Token),
		slog.Float64("spread_bps", spreadBps),
		slog.Float64("z_score", zScore),
		slog.String("strategy", string(strategy)),
		slog.Float64("net_pnl", netPnL))

	return opp, true, nil
}

// score returns the z-score of the spread against the history that preceded
// it, pushing the observation into the token's window when record is set.
func (e *Engine) score(token string, spreadBps float64, record bool) float64 {
	tw := e.window(token)
	tw.mu.Lock()
	defer tw.mu.Unlock()

	z := tw.win.ZScore(spreadBps)
	if record {
		tw.win.Push(spreadBps)
	}
	return z
}

func (e *Engine) window(token string) *tokenWindow {
	e.mu.Lock()
	defer e.mu.Unlock()

	tw, ok := e.windows[token]
	if !ok {
		tw = &tokenWindow{win: NewRollingWindow(e.cfg.WindowSize)}
		e.windows[token] = tw
	}
	return tw
}

// WindowCount reports how many spread observations a token has accumulated.
func (e *Engine) WindowCount(token string) int {
	tw := e.window(token)
	tw.mu.Lock()
	defer tw.mu.Unlock()
	return tw.win.Count()
}
