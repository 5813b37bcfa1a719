package aggregator

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/alanyoungcy/perpspot/internal/domain"
)

// syntheticJitterFrac bounds the deviation applied to the anchor price.
const syntheticJitterFrac = 0.001

// Synthetic is the last source in a fallback chain. It anchors on the most
// recent real price it has observed for a token, falling back to the
// configured anchor before any real quote has arrived, and applies a small
// deterministic jitter so repeated calls within the same minute agree.
// Quotes it produces are always flagged with the synthetic source name.
type Synthetic struct {
	priceType domain.PriceType
	anchors   map[string]float64

	mu       sync.RWMutex
	lastGood map[string]float64
}

// NewSynthetic creates a synthetic generator producing quotes of the given
// price type. anchors seeds the per-token base prices; config validation
// guarantees one per configured token.
func NewSynthetic(pt domain.PriceType, anchors map[string]float64) *Synthetic {
	a := make(map[string]float64, len(anchors))
	for token, price := range anchors {
		a[token] = price
	}
	return &Synthetic{
		priceType: pt,
		anchors:   a,
		lastGood:  make(map[string]float64),
	}
}

// Observe records a real price so later synthetic quotes stay anchored to it.
func (s *Synthetic) Observe(token string, price float64) {
	if price <= 0 {
		return
	}
	s.mu.Lock()
	s.lastGood[token] = price
	s.mu.Unlock()
}

func (s *Synthetic) Name() string { return domain.SourceSynthetic }

// Fetch produces a synthetic quote. It fails with ErrSourceUnavailable only
// for a token that was never configured: no observed price and no anchor.
func (s *Synthetic) Fetch(_ context.Context, token string) (domain.Quote, error) {
	s.mu.RLock()
	base, ok := s.lastGood[token]
	s.mu.RUnlock()
	if !ok {
		base, ok = s.anchors[token]
	}
	if !ok || base <= 0 {
		return domain.Quote{}, fmt.Errorf("aggregator: synthetic: no anchor for %s: %w", token, domain.ErrSourceUnavailable)
	}

	now := time.Now().UTC()

	// The seed folds in the anchor, token and minute bucket so output is
	// stable within a minute but drifts across minutes.
	h := fnv.New64a()
	_, _ = h.Write([]byte(token))
	seed := int64(h.Sum64()) ^ int64(math.Float64bits(base)) ^ now.Unix()/60
	r := rand.New(rand.NewSource(seed))

	jitter := (r.Float64()*2 - 1) * syntheticJitterFrac

	return domain.Quote{
		Token:      token,
		Source:     domain.SourceSynthetic,
		PriceType:  s.priceType,
		Price:      base * (1 + jitter),
		ObservedAt: now,
	}, nil
}

var _ domain.QuoteSource = (*Synthetic)(nil)
