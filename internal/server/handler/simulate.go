package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/perpspot/internal/domain"
	"github.com/alanyoungcy/perpspot/internal/service"
)

// SimHandler serves Monte-Carlo simulation and template endpoints.
type SimHandler struct {
	svc    *service.SimulationService
	logger *slog.Logger
}

// NewSimHandler creates a SimHandler.
func NewSimHandler(svc *service.SimulationService, logger *slog.Logger) *SimHandler {
	return &SimHandler{svc: svc, logger: logger}
}

// simulateRequest is the JSON body for POST /api/simulate.
type simulateRequest struct {
	Token       string  `json:"token"`
	Template    string  `json:"template"`
	Size        float64 `json:"size_usd"`
	NDraws      int     `json:"n_draws"`
	Seed        int64   `json:"seed"`
	SpreadBps   float64 `json:"spread_bps"`
	Strategy    string  `json:"strategy"`
	FundingRate float64 `json:"funding_rate"`
}

// Simulate runs one simulation and returns the outcome distribution.
// POST /api/simulate
func (h *SimHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.svc.Simulate(r.Context(), service.SimulateParams{
		Token:        req.Token,
		TemplateName: req.Template,
		Size:         req.Size,
		NDraws:       req.NDraws,
		Seed:         req.Seed,
		SpreadBps:    req.SpreadBps,
		Strategy:     domain.ArbStrategy(req.Strategy),
		FundingRate:  req.FundingRate,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTemplateNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, domain.ErrInvalidParameter), errors.Is(err, domain.ErrInvalidDepth):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrSimulationUnstable):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			h.logger.Error("simulation failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "simulation failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ListTemplates returns every execution template.
// GET /api/templates
func (h *SimHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates := h.svc.Templates()
	writeJSON(w, http.StatusOK, map[string]any{
		"count":     len(templates),
		"templates": templates,
	})
}

// GetTemplate returns one execution template by name.
// GET /api/templates/{name}
func (h *SimHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	tmpl, err := h.svc.Template(name)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}
