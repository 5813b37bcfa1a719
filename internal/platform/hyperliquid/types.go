package hyperliquid

import (
	"encoding/json"
	"time"
)

// wsCommand is the envelope for outbound WebSocket requests.
type wsCommand struct {
	Method       string          `json:"method"`
	Subscription *wsSubscription `json:"subscription,omitempty"`
}

// wsSubscription identifies a channel, optionally scoped to one coin.
type wsSubscription struct {
	Type string `json:"type"`
	Coin string `json:"coin,omitempty"`
}

// wsMessage is the envelope for inbound WebSocket messages.
type wsMessage struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

// allMidsData carries mid prices for every listed coin, as decimal strings.
type allMidsData struct {
	Mids map[string]string `json:"mids"`
}

// l1BookData carries the top of book for a single coin. Levels holds two
// slices: bids then asks, best level first.
type l1BookData struct {
	Coin   string      `json:"coin"`
	Levels [][]l1Level `json:"levels"`
	Time   int64       `json:"time"`
}

type l1Level struct {
	Px string `json:"px"`
	Sz string `json:"sz"`
	N  int    `json:"n"`
}

// tradeData is a single fill broadcast on the trades channel.
type tradeData struct {
	Coin string `json:"coin"`
	Side string `json:"side"`
	Px   string `json:"px"`
	Sz   string `json:"sz"`
	Time int64  `json:"time"`
}

// activeAssetCtxData carries the perp asset context pushed on the
// activeAssetCtx channel.
type activeAssetCtxData struct {
	Coin string   `json:"coin"`
	Ctx  assetCtx `json:"ctx"`
}

// metaResponse is the universe half of the metaAndAssetCtxs info response.
type metaResponse struct {
	Universe []universeEntry `json:"universe"`
}

type universeEntry struct {
	Name       string `json:"name"`
	SzDecimals int    `json:"szDecimals"`
}

// assetCtx is the per-asset market context from the info endpoint.
type assetCtx struct {
	Funding      string `json:"funding"`
	MarkPx       string `json:"markPx"`
	MidPx        string `json:"midPx"`
	OraclePx     string `json:"oraclePx"`
	DayNtlVlm    string `json:"dayNtlVlm"`
	OpenInterest string `json:"openInterest"`
}

// AssetContext is the parsed market context for one perp asset.
type AssetContext struct {
	Token             string
	MarkPrice         float64
	MidPrice          float64
	OraclePrice       float64
	FundingRate       float64
	DayNotionalVolume float64
	OpenInterest      float64
}

// FundingUpdate is a funding rate observation delivered over the stream.
type FundingUpdate struct {
	Token string
	Rate  float64
	At    time.Time
}
