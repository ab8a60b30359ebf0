package handlers

import (
	"net/http"
	"runtime"

	"photo-indexer/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status             string          `json:"status"`
	Ready              bool            `json:"ready"`
	Version            string          `json:"version"`
	Uptime             string          `json:"uptime"`
	Reconciling        bool            `json:"reconciling"`
	Provisioning       bool            `json:"provisioning"`
	Watching           bool            `json:"watching"`
	WatchedDirectories int             `json:"watchedDirectories"`
	StartupError       string          `json:"startupError,omitempty"`
	LastReconcile      *reportResponse `json:"lastReconcile,omitempty"`
	LastProvision      *reportResponse `json:"lastProvision,omitempty"`

	GoVersion    string `json:"goVersion"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service. A service that is
// ready but whose watcher stopped, or whose startup reconcile failed, is
// reported as degraded.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	status := h.indexer.GetHealthStatus()

	response := HealthResponse{
		Ready:              status.Ready,
		Version:            startup.Version,
		Uptime:             status.Uptime,
		Reconciling:        status.Reconciling,
		Provisioning:       status.Provisioning,
		Watching:           status.Watching,
		WatchedDirectories: status.WatchedDirectories,
		StartupError:       status.StartupError,
		LastReconcile:      newReportResponse(status.LastReconcile),
		LastProvision:      newReportResponse(status.LastProvision),
		GoVersion:          runtime.Version(),
		NumGoroutine:       runtime.NumGoroutine(),
	}

	switch {
	case !status.Ready:
		response.Status = statusStarting
	case status.StartupError != "" || (!status.Watching && !status.Provisioning):
		response.Status = statusDegraded
	default:
		response.Status = statusHealthy
	}

	code := http.StatusOK
	if !status.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, code, response)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": "alive"})
	}
}

// ReadinessCheck returns 200 only once the startup reconcile has finished
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if h.indexer.IsReady() {
		writeJSONResponse(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	writeJSONResponse(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
}
