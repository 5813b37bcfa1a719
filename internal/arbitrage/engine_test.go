package arbitrage

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/perpspot/internal/config"
	"github.com/alanyoungcy/perpspot/internal/domain"
	"github.com/alanyoungcy/perpspot/internal/slippage"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()

	arbCfg := config.Defaults().Arbitrage
	slipModel := slippage.NewModel(config.Defaults().Slippage)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEngine(arbCfg, slipModel, logger)
}

func quote(token string, spot, perp float64) domain.AggregatedQuote {
	return domain.AggregatedQuote{
		Token:      token,
		SpotPrice:  spot,
		PerpPrice:  perp,
		SpotSource: domain.SourceJupiter,
		PerpSource: domain.SourceHyperliquidWS,
		AsOf:       time.Now().UTC(),
	}
}

func TestEvaluateDetectsWideSpread(t *testing.T) {
	e := testEngine(t)

	// 150.00 vs 150.45 is 30 bps, exactly the default threshold. Sitting on
	// the threshold must still count as an opportunity.
	opp, found, err := e.Evaluate(quote("SOL", 150.00, 150.45))
	require.NoError(t, err)
	require.True(t, found)

	assert.Equal(t, "SOL", opp.Token)
	assert.InDelta(t, 30.0, opp.SpreadBps, 1e-6)
	assert.Equal(t, domain.StrategyLongSpotShortPerp, opp.Strategy)
	assert.NotEmpty(t, opp.ID)
	assert.Positive(t, opp.SlippageBps)
	assert.False(t, opp.Synthetic)
}

func TestEvaluateIgnoresNarrowSpread(t *testing.T) {
	e := testEngine(t)

	// 10 bps, well under the 30 bps threshold.
	_, found, err := e.Evaluate(quote("SOL", 150.00, 150.15))
	require.NoError(t, err)
	assert.False(t, found)
}

func TestEvaluateNegativeSpreadShortsSpot(t *testing.T) {
	e := testEngine(t)

	// Perp trades 50 bps below spot.
	opp, found, err := e.Evaluate(quote("ETH", 3500.00, 3482.50))
	require.NoError(t, err)
	require.True(t, found)

	assert.Negative(t, opp.SpreadBps)
	assert.Equal(t, domain.StrategyShortSpotLongPerp, opp.Strategy)
	assert.InDelta(t, 50.0, opp.AbsSpreadBps(), 1e-9)
}

func TestEvaluateRejectsStaleQuote(t *testing.T) {
	e := testEngine(t)

	q := quote("SOL", 150.00, 150.45)
	q.AsOf = time.Now().Add(-time.Minute)

	_, _, err := e.Evaluate(q)
	require.ErrorIs(t, err, domain.ErrStaleQuote)

	// A rejected quote must not pollute the spread history.
	assert.Zero(t, e.WindowCount("SOL"))
}

func TestEvaluateRejectsNonPositivePrices(t *testing.T) {
	e := testEngine(t)

	_, _, err := e.Evaluate(quote("SOL", 0, 150.45))
	require.ErrorIs(t, err, domain.ErrInvalidParameter)
}

func TestEvaluateFeedsWindowEvenWithoutOpportunity(t *testing.T) {
	e := testEngine(t)

	for i := 0; i < 5; i++ {
		_, found, err := e.Evaluate(quote("SOL", 150.00, 150.10))
		require.NoError(t, err)
		assert.False(t, found)
	}

	assert.Equal(t, 5, e.WindowCount("SOL"))
}

func TestEvaluateZScoreReflectsHistory(t *testing.T) {
	e := testEngine(t)

	// Build a history of small positive spreads with some variance.
	perps := []float64{150.05, 150.10, 150.07, 150.12, 150.06, 150.09}
	for _, p := range perps {
		_, _, err := e.Evaluate(quote("SOL", 150.00, p))
		require.NoError(t, err)
	}

	// A sudden wide spread should score far above the history.
	opp, found, err := e.Evaluate(quote("SOL", 150.00, 150.60))
	require.NoError(t, err)
	require.True(t, found)
	assert.Greater(t, opp.ZScore, 3.0)
}

func TestInspectDoesNotFeedWindow(t *testing.T) {
	e := testEngine(t)

	opp, found, err := e.Inspect(quote("SOL", 150.00, 150.60))
	require.NoError(t, err)
	require.True(t, found)
	assert.Positive(t, opp.SpreadBps)
	assert.Zero(t, e.WindowCount("SOL"))

	// Recorded history stays exactly what Evaluate wrote, no matter how many
	// inspections happen in between.
	_, _, err = e.Evaluate(quote("SOL", 150.00, 150.10))
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, _, err = e.Inspect(quote("SOL", 150.00, 150.60))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, e.WindowCount("SOL"))
}

func TestEvaluateConcurrentTokensKeepIsolatedWindows(t *testing.T) {
	e := testEngine(t)

	var wg sync.WaitGroup
	for _, tok := range []string{"SOL", "ETH"} {
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func(tok string) {
				defer wg.Done()
				for j := 0; j < 3; j++ {
					spot := 150.00
					if tok == "ETH" {
						spot = 3500.00
					}
					_, _, err := e.Evaluate(quote(tok, spot, spot*1.0001))
					assert.NoError(t, err)
				}
			}(tok)
		}
	}
	wg.Wait()

	assert.Equal(t, 12, e.WindowCount("SOL"))
	assert.Equal(t, 12, e.WindowCount("ETH"))
}

func TestEvaluateMarksSyntheticQuotes(t *testing.T) {
	e := testEngine(t)

	q := quote("SOL", 150.00, 150.60)
	q.PerpSource = domain.SourceSynthetic

	opp, found, err := e.Evaluate(q)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, opp.Synthetic)
}
