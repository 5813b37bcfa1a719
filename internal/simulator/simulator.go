// Package simulator runs seeded Monte-Carlo execution simulations for a
// candidate trade: latency draws, spread decay, slippage jitter, and funding
// carry, aggregated into a distribution of outcomes.
package simulator

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/alanyoungcy/perpspot/internal/config"
	"github.com/alanyoungcy/perpspot/internal/domain"
	"github.com/alanyoungcy/perpspot/internal/slippage"
)

// Request describes one simulation run. Seed zero asks for a
// time-derived seed; the seed actually used is reported in the result so any
// run can be replayed exactly.
type Request struct {
	Token       string
	Strategy    domain.ArbStrategy
	SpreadBps   float64
	FundingRate float64
	Size        float64
	NDraws      int
	Seed        int64
	Template    *domain.ExecutionTemplate
}

// Simulator prices a request against the configured execution model. Runs
// with the same request and seed produce identical results.
type Simulator struct {
	cfg        config.SimulationConfig
	slip       *slippage.Model
	spotFeeBps float64
	perpFeeBps float64
	logger     *slog.Logger
}

// New creates a simulator.
func New(cfg config.SimulationConfig, arbCfg config.ArbitrageConfig, slip *slippage.Model, logger *slog.Logger) *Simulator {
	return &Simulator{
		cfg:        cfg,
		slip:       slip,
		spotFeeBps: arbCfg.SpotFeeBps,
		perpFeeBps: arbCfg.PerpFeeBps,
		logger:     logger.With(slog.String("component", "simulator")),
	}
}

// Run executes the Monte-Carlo simulation. It rejects under-sized runs,
// clamps over-sized ones, and fails with ErrSimulationUnstable when too many
// draws produce non-finite outcomes.
func (s *Simulator) Run(req Request) (domain.SimulationResult, error) {
	if req.NDraws < s.cfg.MinDraws {
		return domain.SimulationResult{}, fmt.Errorf(
			"simulator: %d draws below minimum %d: %w", req.NDraws, s.cfg.MinDraws, domain.ErrInvalidParameter)
	}
	draws := req.NDraws
	if draws > s.cfg.MaxDraws {
		draws = s.cfg.MaxDraws
	}

	size := req.Size
	if req.Template != nil {
		size = req.Template.ClampSize(size)
	}
	if size <= 0 {
		return domain.SimulationResult{}, fmt.Errorf("simulator: size %.2f: %w", req.Size, domain.ErrInvalidParameter)
	}

	slipEst, err := s.slip.EstimateFor(req.Token, size)
	if err != nil {
		return domain.SimulationResult{}, fmt.Errorf("simulator: %w", err)
	}

	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	// Lognormal latency with the configured mean: mu is shifted by
	// sigma^2/2 so E[latency] equals LatencyMeanMS.
	sigma := s.cfg.LatencySigma
	mu := math.Log(s.cfg.LatencyMeanMS) - sigma*sigma/2

	fundingCarryBps := req.FundingRate * (s.cfg.HoldingPeriodHrs / s.cfg.FundingIntervalHrs) * 10000
	if req.Strategy == domain.StrategyShortSpotLongPerp {
		fundingCarryBps = -fundingCarryBps
	}
	feeBps := s.spotFeeBps + s.perpFeeBps

	maxLatency := math.Inf(1)
	if req.Template != nil && req.Template.MaxLatencyMS > 0 {
		maxLatency = req.Template.MaxLatencyMS
	}

	pnls := make([]float64, 0, draws)
	latencies := make([]float64, 0, draws)
	var (
		dropped   int
		successes int
		samples   []domain.SimulationDraw
	)

	for i := 0; i < draws; i++ {
		latencyMS := math.Exp(mu + sigma*rng.NormFloat64())

		// The spread decays while the order is in flight, then moves with
		// market drift.
		decay := math.Exp(-s.cfg.SpreadDecayRate * latencyMS / 1000)
		effSpread := req.SpreadBps*decay + rng.NormFloat64()*s.cfg.DriftVolBps

		drawSlip := slipEst.TotalBps * (1 + s.cfg.SlippageJitter*rng.NormFloat64())
		if drawSlip < 0 {
			drawSlip = 0
		}

		captured := effSpread
		if latencyMS > maxLatency {
			// Fill window missed; the edge is gone but costs remain.
			captured = 0
		}

		pnl := size*(captured-2*drawSlip-feeBps+fundingCarryBps)/10000

		if math.IsNaN(pnl) || math.IsInf(pnl, 0) || math.IsNaN(latencyMS) || math.IsInf(latencyMS, 0) {
			dropped++
			continue
		}

		success := pnl > 0
		if success {
			successes++
		}
		pnls = append(pnls, pnl)
		latencies = append(latencies, latencyMS)

		if len(samples) < s.cfg.SampleDraws {
			samples = append(samples, domain.SimulationDraw{
				PnLUSD:      pnl,
				LatencyMS:   latencyMS,
				SlippageBps: drawSlip,
				Success:     success,
			})
		}
	}

	if dropRate := float64(dropped) / float64(draws); dropRate > s.cfg.DropRateLimit {
		return domain.SimulationResult{}, fmt.Errorf(
			"simulator: dropped %d of %d draws: %w", dropped, draws, domain.ErrSimulationUnstable)
	}
	if len(pnls) == 0 {
		return domain.SimulationResult{}, fmt.Errorf("simulator: no valid draws: %w", domain.ErrSimulationUnstable)
	}

	result := domain.SimulationResult{
		Token:        req.Token,
		Size:         size,
		Seed:         seed,
		NDraws:       len(pnls),
		DroppedDraws: dropped,
		SampleDraws:  samples,
		SimulatedAt:  time.Now().UTC(),
	}
	if req.Template != nil {
		result.Template = req.Template.Name
	}

	mean, std := meanStd(pnls)
	result.MeanPnL = mean
	result.SuccessProbability = float64(successes) / float64(len(pnls))
	if std > 0 {
		result.SharpeRatio = mean / std
	}

	sortedPnls := append([]float64(nil), pnls...)
	sort.Float64s(sortedPnls)
	result.MedianPnL = percentile(sortedPnls, 0.50)
	result.PnLP5 = percentile(sortedPnls, 0.05)
	result.PnLP95 = percentile(sortedPnls, 0.95)
	result.MaxLoss = sortedPnls[0]

	latMean, _ := meanStd(latencies)
	result.AvgLatencyMS = latMean
	sortedLat := append([]float64(nil), latencies...)
	sort.Float64s(sortedLat)
	result.P99LatencyMS = percentile(sortedLat, 0.99)

	s.logger.Debug("simulation complete",
		slog.String("token", req.Token),
		slog.Int64("seed", seed),
		slog.Int("draws", result.NDraws),
		slog.Float64("mean_pnl", result.MeanPnL),
		slog.Float64("success_probability", result.SuccessProbability))

	return result, nil
}

func meanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	if len(xs) < 2 {
		return mean, 0
	}
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(xs)))
}

// percentile interpolates linearly on an ascending-sorted slice.
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
