package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter registers the admin routes. adminAuth wraps the routes that
// change state.
func NewRouter(h *Handlers, adminAuth mux.MiddlewareFunc) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stats", h.GetStats).Methods(http.MethodGet)
	api.HandleFunc("/images", h.ListImages).Methods(http.MethodGet)

	guard := func(fn http.HandlerFunc) http.Handler {
		if adminAuth == nil {
			return fn
		}
		return adminAuth(fn)
	}
	api.Handle("/reconcile", guard(h.TriggerReconcile)).Methods(http.MethodPost)
	api.Handle("/provision", guard(h.TriggerProvision)).Methods(http.MethodPost)

	return r
}

// MetricsHandler returns the Prometheus metrics handler
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
