package api

import (
	"chat-relay/observability"
	"context"
	"net/http"
	"time"
)

// Check represents the status of a health check.
type Check struct {
	Status  string `json:"status"` // "pass" or "fail"
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status    string                      `json:"status"` // "healthy" or "degraded"
	Checks    map[string]Check            `json:"checks"`
	Process   *observability.ProcessStats `json:"process,omitempty"`
	Timestamp string                      `json:"timestamp"`
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	resp := HealthResponse{
		Status:    "healthy",
		Checks:    make(map[string]Check),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	start := time.Now()
	if err := h.store.Ping(ctx); err != nil {
		resp.Checks["store"] = Check{Status: "fail", Message: err.Error()}
		resp.Status = "degraded"
	} else {
		resp.Checks["store"] = Check{Status: "pass", Latency: time.Since(start).String()}
	}

	if stats, err := observability.SelfStats(); err != nil {
		h.log.Debug("Process stats unavailable", "err", err)
	} else {
		resp.Process = &stats
	}

	status := http.StatusOK
	if resp.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	h.JSON(w, status, resp)
}
