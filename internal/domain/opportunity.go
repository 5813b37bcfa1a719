package domain

import "time"

// ArbStrategy names the direction of a spot/perp basis trade.
type ArbStrategy string

const (
	// StrategyLongSpotShortPerp applies when the perp trades at a premium.
	StrategyLongSpotShortPerp ArbStrategy = "long_spot_short_perp"
	// StrategyShortSpotLongPerp applies when the perp trades at a discount.
	StrategyShortSpotLongPerp ArbStrategy = "short_spot_long_perp"
)

// ArbitrageOpportunity is a detected spot/perp spread that cleared the
// configured minimum. EstimatedNetPnL may be negative; filtering on viability
// is the consumer's call unless a hard floor is configured.
type ArbitrageOpportunity struct {
	ID              string      `json:"id"`
	Token           string      `json:"token"`
	SpotPrice       float64     `json:"spot_price"`
	PerpPrice       float64     `json:"perp_price"`
	SpreadBps       float64     `json:"spread_bps"`
	ZScore          float64     `json:"z_score"`
	Strategy        ArbStrategy `json:"strategy"`
	SlippageBps     float64     `json:"slippage_bps"`
	FundingRate     float64     `json:"funding_rate"`
	EstimatedNetPnL float64     `json:"estimated_net_pnl"`
	SpotSource      string      `json:"spot_source"`
	PerpSource      string      `json:"perp_source"`
	Synthetic       bool        `json:"synthetic"`
	DetectedAt      time.Time   `json:"detected_at"`
}

// AbsSpreadBps returns the magnitude of the spread, used for ordering
// opportunities most-significant first.
func (o ArbitrageOpportunity) AbsSpreadBps() float64 {
	if o.SpreadBps < 0 {
		return -o.SpreadBps
	}
	return o.SpreadBps
}
