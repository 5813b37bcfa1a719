package domain

import "time"

// SimulationDraw is one Monte-Carlo sample of an execution attempt.
type SimulationDraw struct {
	PnLUSD      float64 `json:"pnl_usd"`
	LatencyMS   float64 `json:"latency_ms"`
	SlippageBps float64 `json:"slippage_bps"`
	Success     bool    `json:"success"`
}

// SimulationResult summarizes a Monte-Carlo execution simulation. Seed is the
// RNG seed actually used, so callers can reproduce the run bit-for-bit even
// when they did not supply one.
type SimulationResult struct {
	Token              string           `json:"token"`
	Size               float64          `json:"size"`
	Template           string           `json:"template,omitempty"`
	Seed               int64            `json:"seed"`
	NDraws             int              `json:"n_draws"`
	DroppedDraws       int              `json:"dropped_draws"`
	MeanPnL            float64          `json:"mean_pnl"`
	MedianPnL          float64          `json:"median_pnl"`
	PnLP5              float64          `json:"pnl_p5"`
	PnLP95             float64          `json:"pnl_p95"`
	MaxLoss            float64          `json:"max_loss"`
	SuccessProbability float64          `json:"success_probability"`
	SharpeRatio        float64          `json:"sharpe_ratio"`
	AvgLatencyMS       float64          `json:"avg_latency_ms"`
	P99LatencyMS       float64          `json:"p99_latency_ms"`
	SampleDraws        []SimulationDraw `json:"sample_draws"`
	SimulatedAt        time.Time        `json:"simulated_at"`
}
