package handlers

import (
	"net/http"

	"github.com/marketfold/shopedge/internal/circuitbreaker"
)

// BreakerStater reports the search index breaker state.
type BreakerStater interface {
	BreakerState() circuitbreaker.State
}

// HealthHandler reports liveness plus the state of the degradable parts.
type HealthHandler struct {
	search BreakerStater
}

// NewHealthHandler creates a health handler. search may be nil.
func NewHealthHandler(search BreakerStater) *HealthHandler {
	return &HealthHandler{search: search}
}

// Health responds 200 whenever the process can serve. Degraded collaborators
// show up in the body, not the status code: the service keeps serving
// through index and cache outages.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok"}
	if h.search != nil {
		switch h.search.BreakerState() {
		case circuitbreaker.StateOpen:
			body["search_index"] = "unavailable"
		case circuitbreaker.StateHalfOpen:
			body["search_index"] = "recovering"
		default:
			body["search_index"] = "ok"
		}
	}
	writeJSON(w, http.StatusOK, body)
}
