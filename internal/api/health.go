package api

import (
	"net/http"
	"time"
)

type HealthResponse struct {
	Status        string            `json:"status"`
	Version       string            `json:"version"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	Checks        map[string]string `json:"checks"`
}

// HealthHandler reports liveness plus the configured collaborator identities.
type HealthHandler struct {
	version      string
	startTime    time.Time
	asrProvider  string
	asrModel     string
	summaryModel string
}

func NewHealthHandler(version string, startTime time.Time, asrProvider, asrModel, summaryModel string) *HealthHandler {
	return &HealthHandler{
		version:      version,
		startTime:    startTime,
		asrProvider:  asrProvider,
		asrModel:     asrModel,
		summaryModel: summaryModel,
	}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:        "ok",
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Checks: map[string]string{
			"asr_provider":  h.asrProvider,
			"asr_model":     h.asrModel,
			"summary_model": h.summaryModel,
		},
	})
}
