package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/perpspot/internal/domain"
)

func solQuote(price float64) domain.Quote {
	return domain.Quote{
		Token:      "SOL",
		Source:     domain.SourceHyperliquidWS,
		PriceType:  domain.PriceTypeMark,
		Price:      price,
		ObservedAt: time.Now().UTC(),
	}
}

func TestSetGetQuote(t *testing.T) {
	ctx := context.Background()
	qc := NewQuoteCache()

	require.NoError(t, qc.SetQuote(ctx, solQuote(150.25), time.Minute))

	got, err := qc.GetQuote(ctx, "SOL", domain.SourceHyperliquidWS, domain.PriceTypeMark)
	require.NoError(t, err)
	assert.Equal(t, 150.25, got.Price)
}

func TestGetQuoteMiss(t *testing.T) {
	ctx := context.Background()
	qc := NewQuoteCache()

	_, err := qc.GetQuote(ctx, "SOL", domain.SourceHyperliquidWS, domain.PriceTypeMark)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestKeysAreScopedBySourceAndType(t *testing.T) {
	ctx := context.Background()
	qc := NewQuoteCache()

	q := solQuote(150.25)
	require.NoError(t, qc.SetQuote(ctx, q, time.Minute))

	// Same token, different source: miss.
	_, err := qc.GetQuote(ctx, "SOL", domain.SourceJupiter, domain.PriceTypeMark)
	require.ErrorIs(t, err, domain.ErrNotFound)

	// Same token and source, different price type: miss.
	_, err = qc.GetQuote(ctx, "SOL", domain.SourceHyperliquidWS, domain.PriceTypeSpot)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestExpiredQuoteIsNotServed(t *testing.T) {
	ctx := context.Background()

	now := time.Now()
	clock := func() time.Time { return now }
	qc := NewQuoteCacheWithClock(func() time.Time { return clock() })

	require.NoError(t, qc.SetQuote(ctx, solQuote(150.25), 800*time.Millisecond))

	// Still fresh.
	_, err := qc.GetQuote(ctx, "SOL", domain.SourceHyperliquidWS, domain.PriceTypeMark)
	require.NoError(t, err)

	// Advance past the TTL.
	later := now.Add(time.Second)
	clock = func() time.Time { return later }

	_, err = qc.GetQuote(ctx, "SOL", domain.SourceHyperliquidWS, domain.PriceTypeMark)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFundingRoundTrip(t *testing.T) {
	ctx := context.Background()
	qc := NewQuoteCache()

	ts := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, qc.SetFunding(ctx, "SOL", 0.0001, ts, time.Minute))

	rate, gotTS, err := qc.GetFunding(ctx, "SOL")
	require.NoError(t, err)
	assert.Equal(t, 0.0001, rate)
	assert.Equal(t, ts, gotTS)

	_, _, err = qc.GetFunding(ctx, "ETH")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStatsCountsHitsAndMisses(t *testing.T) {
	ctx := context.Background()
	qc := NewQuoteCache()

	require.NoError(t, qc.SetQuote(ctx, solQuote(150.25), time.Minute))

	_, _ = qc.GetQuote(ctx, "SOL", domain.SourceHyperliquidWS, domain.PriceTypeMark)
	_, _ = qc.GetQuote(ctx, "SOL", domain.SourceHyperliquidWS, domain.PriceTypeMark)
	_, _ = qc.GetQuote(ctx, "ETH", domain.SourceHyperliquidWS, domain.PriceTypeMark)

	stats, err := qc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 1e-12)
	assert.Equal(t, int64(1), stats.Size)
}

func TestConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	qc := NewQuoteCache()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			token := fmt.Sprintf("TOK%d", i%4)
			for j := 0; j < 200; j++ {
				q := domain.Quote{
					Token:      token,
					Source:     domain.SourceHyperliquidWS,
					PriceType:  domain.PriceTypeMark,
					Price:      float64(j + 1),
					ObservedAt: time.Now(),
				}
				_ = qc.SetQuote(ctx, q, time.Minute)
				_, _ = qc.GetQuote(ctx, token, domain.SourceHyperliquidWS, domain.PriceTypeMark)
			}
		}(i)
	}
	wg.Wait()

	stats, err := qc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), stats.Size)
}
