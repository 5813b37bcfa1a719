package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/perpspot/internal/domain"
)

// OpportunityStore implements domain.OpportunityStore using PostgreSQL.
type OpportunityStore struct {
	pool *pgxpool.Pool
}

// NewOpportunityStore creates a store backed by the given connection pool.
func NewOpportunityStore(pool *pgxpool.Pool) *OpportunityStore {
	return &OpportunityStore{pool: pool}
}

// Insert stores one detected opportunity.
func (s *OpportunityStore) Insert(ctx context.Context, opp domain.ArbitrageOpportunity) error {
	const query = `
		INSERT INTO arbitrage_opportunities (
			id, token, spot_price, perp_price, spread_bps, z_score,
			strategy, slippage_bps, funding_rate, estimated_net_pnl,
			spot_source, perp_source, synthetic, detected_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14
		)`

	_, err := s.pool.Exec(ctx, query,
		opp.ID, opp.Token, opp.SpotPrice, opp.PerpPrice, opp.SpreadBps, opp.ZScore,
		string(opp.Strategy), opp.SlippageBps, opp.FundingRate, opp.EstimatedNetPnL,
		opp.SpotSource, opp.PerpSource, opp.Synthetic, opp.DetectedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert opportunity %s: %w", opp.ID, err)
	}
	return nil
}

// ListRecent returns the most recently detected opportunities, newest first.
func (s *OpportunityStore) ListRecent(ctx context.Context, limit int) ([]domain.ArbitrageOpportunity, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `
		SELECT id, token, spot_price, perp_price, spread_bps, z_score,
		       strategy, slippage_bps, funding_rate, estimated_net_pnl,
		       spot_source, perp_source, synthetic, detected_at
		FROM arbitrage_opportunities
		ORDER BY detected_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list opportunities: %w", err)
	}
	defer rows.Close()

	var opps []domain.ArbitrageOpportunity
	for rows.Next() {
		var opp domain.ArbitrageOpportunity
		var strategy string
		if err := rows.Scan(
			&opp.ID, &opp.Token, &opp.SpotPrice, &opp.PerpPrice, &opp.SpreadBps, &opp.ZScore,
			&strategy, &opp.SlippageBps, &opp.FundingRate, &opp.EstimatedNetPnL,
			&opp.SpotSource, &opp.PerpSource, &opp.Synthetic, &opp.DetectedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan opportunity: %w", err)
		}
		opp.Strategy = domain.ArbStrategy(strategy)
		opps = append(opps, opp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate opportunities: %w", err)
	}
	return opps, nil
}

var _ domain.OpportunityStore = (*OpportunityStore)(nil)
