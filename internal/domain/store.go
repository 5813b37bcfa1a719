package domain

import "context"

// OpportunityStore persists detected opportunities for history queries.
// Persistence is optional; modes without a database run without one.
type OpportunityStore interface {
	Insert(ctx context.Context, opp ArbitrageOpportunity) error
	ListRecent(ctx context.Context, limit int) ([]ArbitrageOpportunity, error)
}
