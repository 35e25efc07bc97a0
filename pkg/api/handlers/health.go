package handlers

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// Pinger is anything that can check its backing connection
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports liveness and, when configured, database reachability
type HealthHandler struct {
	db Pinger
}

// NewHealthHandler creates a health handler. db may be nil.
func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Handle handles health check requests
func (h *HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":  "healthy",
		"service": "car-advisor",
	}

	if h.db == nil {
		response["database"] = "disabled"
		WriteJSON(w, http.StatusOK, response)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		log.WithError(err).Warn("Database ping failed")
		response["status"] = "degraded"
		response["database"] = "unreachable"
		WriteJSON(w, http.StatusServiceUnavailable, response)
		return
	}

	response["database"] = "ok"
	WriteJSON(w, http.StatusOK, response)
}
