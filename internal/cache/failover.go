// Package cache composes the Redis-backed quote cache with the in-process
// fallback so a Redis outage degrades to local caching instead of failing
// reads and writes.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alanyoungcy/perpspot/internal/domain"
)

// Failover routes cache operations to the primary backend and falls back to
// the local cache when the primary returns an infrastructure error. Misses
// (domain.ErrNotFound) are not failures and do not trigger fallback writes.
type Failover struct {
	primary  domain.QuoteCache
	fallback domain.QuoteCache
	logger   *slog.Logger
}

// NewFailover wires a primary cache with a local fallback. primary may be nil
// when Redis is unavailable at startup, in which case all traffic goes to the
// fallback.
func NewFailover(primary, fallback domain.QuoteCache, logger *slog.Logger) *Failover {
	return &Failover{
		primary:  primary,
		fallback: fallback,
		logger:   logger.With(slog.String("component", "cache")),
	}
}

func (f *Failover) SetQuote(ctx context.Context, q domain.Quote, ttl time.Duration) error {
	if f.primary != nil {
		if err := f.primary.SetQuote(ctx, q, ttl); err == nil {
			return nil
		} else {
			f.logger.Warn("primary cache write failed, using fallback",
				slog.String("token", q.Token),
				slog.String("error", err.Error()))
		}
	}
	return f.fallback.SetQuote(ctx, q, ttl)
}

func (f *Failover) GetQuote(ctx context.Context, token, source string, pt domain.PriceType) (domain.Quote, error) {
	if f.primary != nil {
		q, err := f.primary.GetQuote(ctx, token, source, pt)
		if err == nil {
			return q, nil
		}
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Quote{}, err
		}
		f.logger.Warn("primary cache read failed, using fallback",
			slog.String("token", token),
			slog.String("error", err.Error()))
	}
	return f.fallback.GetQuote(ctx, token, source, pt)
}

func (f *Failover) SetFunding(ctx context.Context, token string, rate float64, ts time.Time, ttl time.Duration) error {
	if f.primary != nil {
		if err := f.primary.SetFunding(ctx, token, rate, ts, ttl); err == nil {
			return nil
		} else {
			f.logger.Warn("primary cache write failed, using fallback",
				slog.String("token", token),
				slog.String("error", err.Error()))
		}
	}
	return f.fallback.SetFunding(ctx, token, rate, ts, ttl)
}

func (f *Failover) GetFunding(ctx context.Context, token string) (float64, time.Time, error) {
	if f.primary != nil {
		rate, ts, err := f.primary.GetFunding(ctx, token)
		if err == nil {
			return rate, ts, nil
		}
		if errors.Is(err, domain.ErrNotFound) {
			return 0, time.Time{}, err
		}
		f.logger.Warn("primary cache read failed, using fallback",
			slog.String("token", token),
			slog.String("error", err.Error()))
	}
	return f.fallback.GetFunding(ctx, token)
}

// Stats reports stats from the primary when reachable, otherwise from the
// fallback.
func (f *Failover) Stats(ctx context.Context) (domain.CacheStats, error) {
	if f.primary != nil {
		if stats, err := f.primary.Stats(ctx); err == nil {
			return stats, nil
		}
	}
	return f.fallback.Stats(ctx)
}

var _ domain.QuoteCache = (*Failover)(nil)
