package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/perpspot/internal/domain"
	"github.com/alanyoungcy/perpspot/internal/service"
)

// ArbHandler serves opportunity scanning, price snapshots and slippage
// estimation.
type ArbHandler struct {
	svc    *service.ArbService
	logger *slog.Logger
}

// NewArbHandler creates an ArbHandler.
func NewArbHandler(svc *service.ArbService, logger *slog.Logger) *ArbHandler {
	return &ArbHandler{svc: svc, logger: logger}
}

// ListOpportunities scans all configured tokens and returns current
// opportunities, widest spread first.
// GET /api/opportunities?min_spread_bps=30
func (h *ArbHandler) ListOpportunities(w http.ResponseWriter, r *http.Request) {
	minSpread := queryFloat(r, "min_spread_bps", 0)
	if minSpread < 0 {
		writeError(w, http.StatusBadRequest, "min_spread_bps must be >= 0")
		return
	}

	opps, err := h.svc.GetOpportunities(r.Context(), minSpread)
	if err != nil {
		h.logger.Error("opportunity scan failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "scan failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":         len(opps),
		"opportunities": opps,
	})
}

// ListHistory returns recently persisted opportunities.
// GET /api/opportunities/history?limit=50
func (h *ArbHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}

	opps, err := h.svc.History(r.Context(), limit)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "history persistence is disabled")
			return
		}
		h.logger.Error("history query failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "history query failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":         len(opps),
		"opportunities": opps,
	})
}

// ListPrices returns the aggregated market view for every configured token.
// GET /api/prices
func (h *ArbHandler) ListPrices(w http.ResponseWriter, r *http.Request) {
	quotes := h.svc.Snapshots(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(quotes),
		"prices": quotes,
	})
}

// GetPrice returns the aggregated market view for one token.
// GET /api/prices/{token}
func (h *ArbHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}

	quote, err := h.svc.Snapshot(r.Context(), token)
	if err != nil {
		if errors.Is(err, domain.ErrSourceUnavailable) {
			writeError(w, http.StatusServiceUnavailable, "no price source available for "+token)
			return
		}
		h.logger.Error("snapshot failed",
			slog.String("token", token),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "snapshot failed")
		return
	}

	writeJSON(w, http.StatusOK, quote)
}

// GetSlippage estimates market impact for a hypothetical trade.
// GET /api/slippage?token=SOL&size=1000
func (h *ArbHandler) GetSlippage(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	size := queryFloat(r, "size", -1)
	if size < 0 {
		writeError(w, http.StatusBadRequest, "size must be >= 0")
		return
	}

	est, err := h.svc.SlippageEstimate(token, size)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidDepth) || errors.Is(err, domain.ErrInvalidParameter) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("slippage estimate failed",
			slog.String("token", token),
			slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "estimate failed")
		return
	}

	writeJSON(w, http.StatusOK, est)
}
