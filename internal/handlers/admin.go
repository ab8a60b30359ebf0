package handlers

import (
	"context"
	"errors"
	"net/http"

	"photo-indexer/internal/indexer"
	"photo-indexer/internal/logging"
)

// reportResponse is the JSON form of an indexer report.
type reportResponse struct {
	*indexer.Report
	Summary string `json:"summary"`
}

func newReportResponse(r *indexer.Report) *reportResponse {
	if r == nil {
		return nil
	}
	return &reportResponse{Report: r, Summary: r.Summary()}
}

// GetStats returns library-wide counters.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.CalculateStats(r.Context())
	if err != nil {
		logging.Error("Failed to calculate stats: %v", err)
		writeJSONError(w, "failed to calculate stats", http.StatusInternalServerError)
		return
	}
	writeJSONResponse(w, http.StatusOK, stats)
}

// TriggerReconcile runs a reconcile of the recent month directories and
// returns its report. A client disconnect does not cut the pass short.
func (h *Handlers) TriggerReconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.indexer.Reconcile(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, indexer.ErrReconcileInProgress):
		writeJSONError(w, "reconcile already in progress", http.StatusConflict)
		return
	case errors.Is(err, indexer.ErrProvisionInProgress):
		writeJSONError(w, "provision in progress", http.StatusConflict)
		return
	case err != nil:
		logging.Error("Manual reconcile failed: %v", err)
		writeJSONError(w, "reconcile failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	logging.Info("Manual reconcile: %s", report.Summary())
	writeJSONResponse(w, http.StatusOK, newReportResponse(report))
}

// TriggerProvision starts a full rebuild in the background.
func (h *Handlers) TriggerProvision(w http.ResponseWriter, _ *http.Request) {
	err := h.indexer.StartProvision()
	switch {
	case errors.Is(err, indexer.ErrProvisionInProgress):
		writeJSONError(w, "provision already in progress", http.StatusConflict)
		return
	case errors.Is(err, indexer.ErrStopped):
		writeJSONError(w, "indexer is shutting down", http.StatusServiceUnavailable)
		return
	case err != nil:
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	logging.Info("Provision started via admin API")
	writeJSONResponse(w, http.StatusAccepted, map[string]string{"status": "provisioning"})
}
