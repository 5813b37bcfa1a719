// Package slippage estimates market impact for a trade of a given notional
// size against a per-token liquidity depth estimate.
package slippage

import (
	"fmt"
	"math"

	"github.com/alanyoungcy/perpspot/internal/config"
	"github.com/alanyoungcy/perpspot/internal/domain"
)

// SqrtImpact returns the square-root market impact in basis points:
// k * sqrt(notional / depth). It is strictly increasing in notional for any
// positive depth and k.
func SqrtImpact(notional, depth, k float64) float64 {
	if notional <= 0 || depth <= 0 {
		return 0
	}
	return k * math.Sqrt(notional/depth)
}

// AlmgrenChriss returns the power-law temporary impact in basis points:
// a * (notional / depth)^b.
func AlmgrenChriss(notional, depth, a, b float64) float64 {
	if notional <= 0 || depth <= 0 {
		return 0
	}
	return a * math.Pow(notional/depth, b)
}

// Estimate is the breakdown of one slippage estimate. TotalBps is the
// clamped figure callers should charge against expected PnL.
type Estimate struct {
	Token        string  `json:"token"`
	Notional     float64 `json:"notional_usd"`
	Depth        float64 `json:"depth_usd"`
	SqrtBps      float64 `json:"sqrt_bps"`
	ACBps        float64 `json:"almgren_chriss_bps"`
	PermanentBps float64 `json:"permanent_bps"`
	TotalBps     float64 `json:"total_bps"`
}

// Model combines the square-root and Almgren-Chriss impact terms under the
// configured calibration.
type Model struct {
	cfg config.SlippageConfig
}

// NewModel creates a slippage model from calibration config.
func NewModel(cfg config.SlippageConfig) *Model {
	return &Model{cfg: cfg}
}

// DepthFor returns the configured liquidity depth for a token, falling back
// to the default depth.
func (m *Model) DepthFor(token string) float64 {
	if d, ok := m.cfg.Depth[token]; ok {
		return d
	}
	return m.cfg.DefaultDepth
}

// EstimateFor computes the slippage estimate for trading the given notional
// in the token. A zero notional costs exactly zero and bypasses the minimum
// clamp; a negative notional is rejected.
func (m *Model) EstimateFor(token string, notional float64) (Estimate, error) {
	if notional < 0 {
		return Estimate{}, fmt.Errorf("slippage: notional %.2f: %w", notional, domain.ErrInvalidParameter)
	}

	depth := m.DepthFor(token)
	if depth <= 0 {
		return Estimate{}, fmt.Errorf("slippage: depth for %s: %w", token, domain.ErrInvalidDepth)
	}

	est := Estimate{
		Token:    token,
		Notional: notional,
		Depth:    depth,
	}
	if notional == 0 {
		return est, nil
	}

	est.SqrtBps = SqrtImpact(notional, depth, m.cfg.KSqrt)
	est.ACBps = AlmgrenChriss(notional, depth, m.cfg.ACoeff, m.cfg.BPower)
	est.PermanentBps = m.cfg.PermanentFraction * est.ACBps

	total := est.SqrtBps + est.ACBps
	if total < m.cfg.MinBps {
		total = m.cfg.MinBps
	}
	if total > m.cfg.MaxBps {
		total = m.cfg.MaxBps
	}
	est.TotalBps = total

	return est, nil
}

// EstimateWithDepth is EstimateFor with an explicit depth override, used when
// a caller has a live liquidity figure instead of the configured estimate.
func (m *Model) EstimateWithDepth(token string, notional, depth float64) (Estimate, error) {
	if depth <= 0 {
		return Estimate{}, fmt.Errorf("slippage: depth %.2f for %s: %w", depth, token, domain.ErrInvalidDepth)
	}
	override := *m
	override.cfg.Depth = map[string]float64{token: depth}
	return override.EstimateFor(token, notional)
}
