package domain

import "context"

// QuoteSource fetches the current quote for one token from a single provider.
// Implementations return ErrSourceUnavailable (possibly wrapped) on any
// transport or provider failure so the aggregator can advance to the next
// source in priority order.
type QuoteSource interface {
	Name() string
	Fetch(ctx context.Context, token string) (Quote, error)
}
