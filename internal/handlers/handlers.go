package handlers

import (
	"context"

	"photo-indexer/internal/database"
	"photo-indexer/internal/indexer"
)

// IndexService is the part of the indexer the admin API drives.
type IndexService interface {
	IsReady() bool
	GetHealthStatus() indexer.HealthStatus
	Reconcile(ctx context.Context) (*indexer.Report, error)
	StartProvision() error
}

// ImageStore answers the read-only queries of the admin API.
type ImageStore interface {
	CalculateStats(ctx context.Context) (database.IndexStats, error)
	ListActiveByDirectory(ctx context.Context, dir database.DirectoryKey) ([]database.Image, error)
}

// Handlers serves the admin HTTP API.
type Handlers struct {
	store   ImageStore
	indexer IndexService
}

// New creates the admin handlers.
func New(store ImageStore, idx IndexService) *Handlers {
	return &Handlers{
		store:   store,
		indexer: idx,
	}
}
