// Package handlers provides the admin HTTP API of the photo indexer.
//
// It includes handlers for:
//   - Health, liveness and readiness probes
//   - Build information
//   - Library statistics and per-directory image listings
//   - Triggering a reconcile or a full provision
//
// Reconcile and provision change state and are registered behind the admin
// auth middleware.
package handlers
