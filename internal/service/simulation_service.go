package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/perpspot/internal/aggregator"
	"github.com/alanyoungcy/perpspot/internal/domain"
	"github.com/alanyoungcy/perpspot/internal/simulator"
	"github.com/alanyoungcy/perpspot/internal/template"
)

// SimulateParams are the caller-facing simulation inputs. SpreadBps zero
// means "price it off the live market": the service resolves the current
// snapshot and derives spread, strategy and funding from it.
type SimulateParams struct {
	Token        string
	TemplateName string
	Size         float64
	NDraws       int
	Seed         int64
	SpreadBps    float64
	Strategy     domain.ArbStrategy
	FundingRate  float64
}

// SimulationService resolves templates and market context, then delegates to
// the Monte-Carlo simulator.
type SimulationService struct {
	sim      *simulator.Simulator
	registry *template.Registry
	agg      *aggregator.Aggregator
	logger   *slog.Logger
}

// NewSimulationService creates the service.
func NewSimulationService(
	sim *simulator.Simulator,
	registry *template.Registry,
	agg *aggregator.Aggregator,
	logger *slog.Logger,
) *SimulationService {
	return &SimulationService{
		sim:      sim,
		registry: registry,
		agg:      agg,
		logger:   logger.With(slog.String("component", "service")),
	}
}

// Simulate runs one simulation. Template resolution failures and validation
// failures surface as errors; they are the caller's inputs to fix.
func (s *SimulationService) Simulate(ctx context.Context, p SimulateParams) (domain.SimulationResult, error) {
	req := simulator.Request{
		Token:       p.Token,
		Strategy:    p.Strategy,
		SpreadBps:   p.SpreadBps,
		FundingRate: p.FundingRate,
		Size:        p.Size,
		NDraws:      p.NDraws,
		Seed:        p.Seed,
	}

	if p.TemplateName != "" {
		tmpl, err := s.registry.Get(p.TemplateName)
		if err != nil {
			return domain.SimulationResult{}, fmt.Errorf("service: simulate: %w", err)
		}
		req.Template = &tmpl
		if req.Token == "" {
			req.Token = tmpl.Token
		}
		if req.SpreadBps == 0 {
			req.SpreadBps = tmpl.TargetSpreadBps
		}
	}

	if req.Token == "" {
		return domain.SimulationResult{}, fmt.Errorf("service: simulate: token required: %w", domain.ErrInvalidParameter)
	}

	// No spread supplied anywhere: derive it from the live market.
	if req.SpreadBps == 0 {
		quote, err := s.agg.Snapshot(ctx, req.Token)
		if err != nil {
			return domain.SimulationResult{}, fmt.Errorf("service: simulate: %w", err)
		}
		spread := (quote.PerpPrice - quote.SpotPrice) / quote.SpotPrice * 10000
		if spread >= 0 {
			req.SpreadBps = spread
			req.Strategy = domain.StrategyLongSpotShortPerp
		} else {
			req.SpreadBps = -spread
			req.Strategy = domain.StrategyShortSpotLongPerp
		}
		req.FundingRate = quote.FundingRate
	}

	result, err := s.sim.Run(req)
	if err != nil {
		return domain.SimulationResult{}, fmt.Errorf("service: simulate %s: %w", req.Token, err)
	}
	return result, nil
}

// Templates lists the available execution templates.
func (s *SimulationService) Templates() []domain.ExecutionTemplate {
	return s.registry.List()
}

// Template returns one template by name.
func (s *SimulationService) Template(name string) (domain.ExecutionTemplate, error) {
	return s.registry.Get(name)
}
