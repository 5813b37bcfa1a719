package hyperliquid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTime() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func infoServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		switch req["type"] {
		case "allMids":
			_ = json.NewEncoder(w).Encode(map[string]string{
				"SOL": "150.25",
				"ETH": "3500.5",
				"BAD": "not-a-number",
			})
		case "metaAndAssetCtxs":
			meta := map[string]any{
				"universe": []map[string]any{
					{"name": "SOL", "szDecimals": 2},
					{"name": "ETH", "szDecimals": 3},
				},
			}
			ctxs := []map[string]string{
				{"funding": "0.0000125", "markPx": "150.3", "midPx": "150.25", "dayNtlVlm": "25000000", "openInterest": "180000"},
				{"funding": "-0.0000031", "markPx": "3501.2", "midPx": "3500.9", "dayNtlVlm": "90000000", "openInterest": "42000"},
			}
			_ = json.NewEncoder(w).Encode([]any{meta, ctxs})
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
}

func TestAllMids(t *testing.T) {
	srv := infoServer(t)
	defer srv.Close()

	c := NewClient(srv.URL)
	mids, err := c.AllMids(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 150.25, mids["SOL"])
	assert.Equal(t, 3500.5, mids["ETH"])
	// Unparseable prices are dropped, not surfaced as zero.
	_, ok := mids["BAD"]
	assert.False(t, ok)
}

func TestAssetContexts(t *testing.T) {
	srv := infoServer(t)
	defer srv.Close()

	c := NewClient(srv.URL)
	ctxs, err := c.AssetContexts(context.Background())
	require.NoError(t, err)
	require.Len(t, ctxs, 2)

	sol := ctxs["SOL"]
	assert.Equal(t, 150.3, sol.MarkPrice)
	assert.Equal(t, 0.0000125, sol.FundingRate)
	assert.Equal(t, 25000000.0, sol.DayNotionalVolume)

	eth := ctxs["ETH"]
	assert.Equal(t, -0.0000031, eth.FundingRate)
}

func TestAssetContextsRejectsBadShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"unexpected": "shape"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, err := c.AssetContexts(context.Background())
	require.Error(t, err)
}

func TestParseUpdateFrames(t *testing.T) {
	s := &WSSession{tokens: map[string]struct{}{"SOL": {}}}

	t.Run("allMids filters subscribed tokens", func(t *testing.T) {
		data, _ := json.Marshal(allMidsData{Mids: map[string]string{
			"SOL": "150.25",
			"ETH": "3500.5",
		}})
		up := s.parseAllMids(data, testTime())
		require.Len(t, up.Quotes, 1)
		assert.Equal(t, "SOL", up.Quotes[0].Token)
		assert.Equal(t, 150.25, up.Quotes[0].Price)
	})

	t.Run("l1Book mid price", func(t *testing.T) {
		book := l1BookData{
			Coin: "SOL",
			Levels: [][]l1Level{
				{{Px: "150.20", Sz: "10", N: 3}},
				{{Px: "150.30", Sz: "8", N: 2}},
			},
		}
		data, _ := json.Marshal(book)
		up := s.parseL1Book(data, testTime())
		require.Len(t, up.Quotes, 1)
		assert.InDelta(t, 150.25, up.Quotes[0].Price, 1e-9)
	})

	t.Run("assetCtx yields quote and funding", func(t *testing.T) {
		ctx := activeAssetCtxData{
			Coin: "SOL",
			Ctx:  assetCtx{Funding: "0.0001", MarkPx: "150.4", DayNtlVlm: "25000000"},
		}
		data, _ := json.Marshal(ctx)
		up := s.parseAssetCtx(data, testTime())
		require.Len(t, up.Quotes, 1)
		assert.Equal(t, 150.4, up.Quotes[0].Price)
		require.Len(t, up.Funding, 1)
		assert.Equal(t, 0.0001, up.Funding[0].Rate)
	})

	t.Run("trades keeps only the latest print", func(t *testing.T) {
		trades := []tradeData{
			{Coin: "SOL", Side: "B", Px: "150.10", Sz: "2", Time: 1000},
			{Coin: "SOL", Side: "A", Px: "150.35", Sz: "1", Time: 2000},
			{Coin: "ETH", Side: "B", Px: "3500.5", Sz: "1", Time: 2000},
		}
		data, _ := json.Marshal(trades)
		up := s.parseTrades(data, testTime())
		require.Len(t, up.Quotes, 1)
		assert.Equal(t, "SOL", up.Quotes[0].Token)
		assert.Equal(t, 150.35, up.Quotes[0].Price)
		assert.Equal(t, time.UnixMilli(2000).UTC(), up.Quotes[0].ObservedAt)
	})

	t.Run("unsubscribed coin ignored", func(t *testing.T) {
		book := l1BookData{
			Coin: "ETH",
			Levels: [][]l1Level{
				{{Px: "3500", Sz: "1", N: 1}},
				{{Px: "3501", Sz: "1", N: 1}},
			},
		}
		data, _ := json.Marshal(book)
		up := s.parseL1Book(data, testTime())
		assert.Empty(t, up.Quotes)
	})
}
