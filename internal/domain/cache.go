package domain

import (
	"context"
	"time"
)

// CacheStats reports hit-rate and population of a quote cache.
type CacheStats struct {
	Hits    int64   `json:"hits"`
	Misses  int64   `json:"misses"`
	HitRate float64 `json:"hit_rate"`
	Size    int64   `json:"size"`
}

// QuoteCache stores the latest quote per (token, source, price type) with a
// per-entry TTL. Implementations must be safe for concurrent writers (the
// feed connector) and readers (the aggregator), and must never return an
// entry older than its TTL.
type QuoteCache interface {
	SetQuote(ctx context.Context, q Quote, ttl time.Duration) error
	GetQuote(ctx context.Context, token, source string, pt PriceType) (Quote, error)
	SetFunding(ctx context.Context, token string, rate float64, ts time.Time, ttl time.Duration) error
	GetFunding(ctx context.Context, token string) (float64, time.Time, error)
	Stats(ctx context.Context) (CacheStats, error)
}
