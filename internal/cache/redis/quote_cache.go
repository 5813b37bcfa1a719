package redis

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/perpspot/internal/domain"
)

// QuoteCache implements domain.QuoteCache using Redis hashes. Each quote is
// stored at key "quote:{token}:{source}:{type}" with fields "price", "vol"
// and "ts" (Unix nanosecond timestamp), expiring after the caller-supplied
// TTL. Redis key expiry enforces the staleness guarantee: an entry past its
// TTL simply no longer exists.
type QuoteCache struct {
	rdb *redis.Client

	hits   atomic.Int64
	misses atomic.Int64
}

// NewQuoteCache creates a QuoteCache backed by the given Client.
func NewQuoteCache(c *Client) *QuoteCache {
	return &QuoteCache{rdb: c.Underlying()}
}

func quoteKey(token, source string, pt domain.PriceType) string {
	return "quote:" + token + ":" + source + ":" + string(pt)
}

func fundingKey(token string) string {
	return "funding:" + token
}

// SetQuote stores the latest quote for its (token, source, price type) triple
// with the given TTL.
func (qc *QuoteCache) SetQuote(ctx context.Context, q domain.Quote, ttl time.Duration) error {
	key := quoteKey(q.Token, q.Source, q.PriceType)
	fields := map[string]interface{}{
		"price": strconv.FormatFloat(q.Price, 'f', -1, 64),
		"vol":   strconv.FormatFloat(q.Volume24h, 'f', -1, 64),
		"ts":    strconv.FormatInt(q.ObservedAt.UnixNano(), 10),
	}

	pipe := qc.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.PExpire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set quote %s: %w", key, err)
	}
	return nil
}

// GetQuote retrieves the freshest quote for the triple. It returns
// domain.ErrNotFound when the key does not exist or has expired.
func (qc *QuoteCache) GetQuote(ctx context.Context, token, source string, pt domain.PriceType) (domain.Quote, error) {
	key := quoteKey(token, source, pt)
	vals, err := qc.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return domain.Quote{}, fmt.Errorf("redis: get quote %s: %w", key, err)
	}
	if len(vals) == 0 {
		qc.misses.Add(1)
		return domain.Quote{}, domain.ErrNotFound
	}

	price, err := strconv.ParseFloat(vals["price"], 64)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("redis: parse price %s: %w", key, err)
	}
	vol, _ := strconv.ParseFloat(vals["vol"], 64)
	tsNano, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("redis: parse ts %s: %w", key, err)
	}

	qc.hits.Add(1)
	return domain.Quote{
		Token:      token,
		Source:     source,
		PriceType:  pt,
		Price:      price,
		Volume24h:  vol,
		ObservedAt: time.Unix(0, tsNano),
	}, nil
}

// SetFunding stores the latest funding rate for a token.
func (qc *QuoteCache) SetFunding(ctx context.Context, token string, rate float64, ts time.Time, ttl time.Duration) error {
	key := fundingKey(token)
	fields := map[string]interface{}{
		"rate": strconv.FormatFloat(rate, 'f', -1, 64),
		"ts":   strconv.FormatInt(ts.UnixNano(), 10),
	}

	pipe := qc.rdb.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.PExpire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set funding %s: %w", token, err)
	}
	return nil
}

// GetFunding retrieves the latest funding rate and its timestamp for a token.
func (qc *QuoteCache) GetFunding(ctx context.Context, token string) (float64, time.Time, error) {
	vals, err := qc.rdb.HGetAll(ctx, fundingKey(token)).Result()
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: get funding %s: %w", token, err)
	}
	if len(vals) == 0 {
		qc.misses.Add(1)
		return 0, time.Time{}, domain.ErrNotFound
	}

	rate, err := strconv.ParseFloat(vals["rate"], 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse funding %s: %w", token, err)
	}
	tsNano, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("redis: parse funding ts %s: %w", token, err)
	}

	qc.hits.Add(1)
	return rate, time.Unix(0, tsNano), nil
}

// Stats reports hit/miss counters tracked by this process plus the backend
// key count.
func (qc *QuoteCache) Stats(ctx context.Context) (domain.CacheStats, error) {
	size, err := qc.rdb.DBSize(ctx).Result()
	if err != nil {
		return domain.CacheStats{}, fmt.Errorf("redis: dbsize: %w", err)
	}

	hits := qc.hits.Load()
	misses := qc.misses.Load()
	stats := domain.CacheStats{Hits: hits, Misses: misses, Size: size}
	if total := hits + misses; total > 0 {
		stats.HitRate = float64(hits) / float64(total)
	}
	return stats, nil
}

// Compile-time interface check.
var _ domain.QuoteCache = (*QuoteCache)(nil)
