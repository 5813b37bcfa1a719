// Package memory implements the quote cache as a sharded in-process map. It
// carries the same TTL semantics as the Redis implementation so callers never
// observe a difference when the external backend is down.
package memory

import (
	"context"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alanyoungcy/perpspot/internal/domain"
)

const shardCount = 16

type entry struct {
	quote     domain.Quote
	expiresAt time.Time
}

type fundingEntry struct {
	rate      float64
	ts        time.Time
	expiresAt time.Time
}

type shard struct {
	mu      sync.RWMutex
	quotes  map[string]entry
	funding map[string]fundingEntry
}

// QuoteCache is a process-local domain.QuoteCache. Shards are keyed by a hash
// of the entry key so one token's update never blocks reads or writes for
// another token.
type QuoteCache struct {
	shards [shardCount]*shard
	now    func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// NewQuoteCache creates an empty in-process quote cache.
func NewQuoteCache() *QuoteCache {
	qc := &QuoteCache{now: time.Now}
	for i := range qc.shards {
		qc.shards[i] = &shard{
			quotes:  make(map[string]entry),
			funding: make(map[string]fundingEntry),
		}
	}
	return qc
}

// NewQuoteCacheWithClock creates a cache with an injectable clock for tests.
func NewQuoteCacheWithClock(now func() time.Time) *QuoteCache {
	qc := NewQuoteCache()
	qc.now = now
	return qc
}

func (qc *QuoteCache) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return qc.shards[h.Sum32()%shardCount]
}

func quoteKey(token, source string, pt domain.PriceType) string {
	return token + "|" + source + "|" + string(pt)
}

// SetQuote stores the quote under its (token, source, price type) key.
func (qc *QuoteCache) SetQuote(_ context.Context, q domain.Quote, ttl time.Duration) error {
	key := quoteKey(q.Token, q.Source, q.PriceType)
	s := qc.shardFor(key)

	s.mu.Lock()
	s.quotes[key] = entry{quote: q, expiresAt: qc.now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

// GetQuote returns the cached quote or domain.ErrNotFound when absent or past
// its TTL. Expired entries are removed on access.
func (qc *QuoteCache) GetQuote(_ context.Context, token, source string, pt domain.PriceType) (domain.Quote, error) {
	key := quoteKey(token, source, pt)
	s := qc.shardFor(key)

	s.mu.RLock()
	e, ok := s.quotes[key]
	s.mu.RUnlock()

	if !ok {
		qc.misses.Add(1)
		return domain.Quote{}, domain.ErrNotFound
	}
	if qc.now().After(e.expiresAt) {
		s.mu.Lock()
		// Re-check under the write lock; a fresher quote may have landed.
		if cur, ok := s.quotes[key]; ok && qc.now().After(cur.expiresAt) {
			delete(s.quotes, key)
		}
		s.mu.Unlock()
		qc.misses.Add(1)
		return domain.Quote{}, domain.ErrNotFound
	}

	qc.hits.Add(1)
	return e.quote, nil
}

// SetFunding stores the funding rate for a token.
func (qc *QuoteCache) SetFunding(_ context.Context, token string, rate float64, ts time.Time, ttl time.Duration) error {
	s := qc.shardFor("funding|" + token)

	s.mu.Lock()
	s.funding[token] = fundingEntry{rate: rate, ts: ts, expiresAt: qc.now().Add(ttl)}
	s.mu.Unlock()
	return nil
}

// GetFunding returns the cached funding rate or domain.ErrNotFound.
func (qc *QuoteCache) GetFunding(_ context.Context, token string) (float64, time.Time, error) {
	s := qc.shardFor("funding|" + token)

	s.mu.RLock()
	e, ok := s.funding[token]
	s.mu.RUnlock()

	if !ok || qc.now().After(e.expiresAt) {
		qc.misses.Add(1)
		return 0, time.Time{}, domain.ErrNotFound
	}

	qc.hits.Add(1)
	return e.rate, e.ts, nil
}

// Stats reports hit/miss counters and the count of live (unexpired) entries.
func (qc *QuoteCache) Stats(_ context.Context) (domain.CacheStats, error) {
	now := qc.now()
	var size int64
	for _, s := range qc.shards {
		s.mu.RLock()
		for _, e := range s.quotes {
			if !now.After(e.expiresAt) {
				size++
			}
		}
		for _, e := range s.funding {
			if !now.After(e.expiresAt) {
				size++
			}
		}
		s.mu.RUnlock()
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
