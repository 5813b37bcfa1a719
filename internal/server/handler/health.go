package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/perpspot/internal/domain"
	"github.com/alanyoungcy/perpspot/internal/feed"
)

// HealthHandler serves liveness and feed status endpoints.
type HealthHandler struct {
	connector *feed.Connector
	cache     domain.QuoteCache
	logger    *slog.Logger
}

// NewHealthHandler creates a HealthHandler. connector may be nil in modes
// that run without the stream.
func NewHealthHandler(connector *feed.Connector, cache domain.QuoteCache, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{connector: connector, cache: cache, logger: logger}
}

// HealthCheck responds with a simple JSON status indicating the server is alive.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// GetStatus responds with the feed connector state and cache statistics.
// GET /api/status
func (h *HealthHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if h.connector != nil {
		st := h.connector.Status()
		resp["feed"] = map[string]any{
			"state":            string(st.State),
			"health":           string(st.Health),
			"network":          string(st.Network),
			"last_message_age": st.LastMessageAge.String(),
			"attempts":         st.Attempts,
		}
	} else {
		resp["feed"] = map[string]any{"state": "disabled"}
	}

	if stats, err := h.cache.Stats(r.Context()); err == nil {
		resp["cache"] = map[string]any{
			"hits":     stats.Hits,
			"misses":   stats.Misses,
			"hit_rate": stats.HitRate,
			"size":     stats.Size,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
