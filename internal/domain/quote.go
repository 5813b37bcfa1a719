package domain

import "time"

// PriceType classifies what kind of price a quote carries.
type PriceType string

const (
	PriceTypeSpot  PriceType = "spot"
	PriceTypeMark  PriceType = "mark"
	PriceTypeIndex PriceType = "index"
)

// Well-known quote sources, in rough priority order. SourceSynthetic marks
// generated prices so downstream consumers can discount them.
const (
	SourceHyperliquidWS   = "hyperliquid_ws"
	SourceHyperliquidREST = "hyperliquid"
	SourceJupiter         = "jupiter"
	SourceCoinGecko       = "coingecko"
	SourceSynthetic       = "synthetic"
)

// Quote is a single observed price for a (token, source, price type) triple.
// Quotes are immutable; a newer observation supersedes an older one, it never
// mutates it.
type Quote struct {
	Token      string
	Source     string
	PriceType  PriceType
	Price      float64
	Volume24h  float64
	ObservedAt time.Time
}

// Age returns how old the quote is relative to now.
func (q Quote) Age(now time.Time) time.Duration {
	return now.Sub(q.ObservedAt)
}

// Synthetic reports whether the quote was generated rather than observed.
func (q Quote) Synthetic() bool {
	return q.Source == SourceSynthetic
}

// AggregatedQuote is the merged per-token view across all sources for one
// aggregation cycle. It is recomputed on demand and never kept as history by
// the core.
type AggregatedQuote struct {
	Token       string    `json:"token"`
	SpotPrice   float64   `json:"spot_price"`
	PerpPrice   float64   `json:"perp_price"`
	FundingRate float64   `json:"funding_rate"`
	SpotSource  string    `json:"spot_source"`
	PerpSource  string    `json:"perp_source"`
	SourcesUsed []string  `json:"sources_used"`
	AsOf        time.Time `json:"as_of"`
}

// Synthetic reports whether either side of the aggregate came from the
// synthetic generator.
func (a AggregatedQuote) Synthetic() bool {
	return a.SpotSource == SourceSynthetic || a.PerpSource == SourceSynthetic
}
