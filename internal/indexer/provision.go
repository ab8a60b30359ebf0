package indexer

import (
	"context"
	"errors"
	"time"

	"photo-indexer/internal/database"
	"photo-indexer/internal/logging"
	"photo-indexer/internal/metrics"
)

// Provision rebuilds the index from scratch: the watcher is stopped, every
// month directory of every year is synced regardless of its fingerprint,
// and the watcher is started again once the indexer has been started. The
// restart happens even when some directories failed. A reconcile that is
// already running is waited for. Only one provision runs at a time; a
// concurrent call returns ErrProvisionInProgress.
func (idx *Indexer) Provision(ctx context.Context) (*Report, error) {
	if !idx.tryStartProvision() {
		return nil, ErrProvisionInProgress
	}

	idx.passMu.Lock()
	defer idx.passMu.Unlock()
	defer idx.finishProvision()

	return idx.provision(ctx)
}

// StartProvision runs Provision in the background. It returns
// ErrProvisionInProgress immediately when a provision is already running.
func (idx *Indexer) StartProvision() error {
	if idx.isStopped() {
		return ErrStopped
	}
	if !idx.tryStartProvision() {
		return ErrProvisionInProgress
	}

	idx.wg.Add(1)
	go func() {
		defer idx.wg.Done()

		idx.passMu.Lock()
		defer idx.passMu.Unlock()
		defer idx.finishProvision()

		if _, err := idx.provision(idx.ctx); err != nil {
			logging.Error("Provision failed: %v", err)
		}
	}()
	return nil
}

// provision performs the rebuild. Callers hold passMu.
func (idx *Indexer) provision(ctx context.Context) (report *Report, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	report = &Report{Started: start}

	if idx.stopWatcher() {
		logging.Info("Provision: watcher stopped")
	}
	defer func() {
		if !idx.watchWanted() {
			return
		}
		werr := idx.startWatcher()
		if errors.Is(werr, ErrStopped) {
			return
		}
		if werr != nil {
			logging.Error("Provision: failed to restart watcher: %v", werr)
			return
		}
		logging.Info("Provision: watcher started")
	}()

	years, err := yearDirs(idx.listDir, idx.layout.Root)
	if err != nil {
		return nil, err
	}
	logging.Info("Provision: rebuilding %d year directories under %s", len(years), idx.layout.Root)

	for _, year := range years {
		months, err := monthDirs(idx.listDir, year)
		if err != nil {
			logging.Error("Provision: %v", err)
			report.fail(year, err)
			continue
		}

		for _, dir := range months {
			if err := ctx.Err(); err != nil {
				return report, err
			}
			report.Examined++

			if _, err := idx.SyncDirectory(ctx, dir); err != nil {
				logging.Error("Provision: failed to sync %s: %v", dir, err)
				report.fail(dir, err)
				continue
			}
			report.Synced++
		}
	}

	duration := time.Since(start)
	report.Duration = duration.Round(time.Millisecond).String()
	metrics.ProvisionLastRunDuration.Set(duration.Seconds())

	status := "success"
	if report.Failed > 0 {
		status = "partial"
	}
	metrics.ProvisionRunsTotal.WithLabelValues(status).Inc()

	idx.stateMu.Lock()
	idx.lastProvision = report
	idx.stateMu.Unlock()
	idx.recordRun(ctx, database.LastProvisionKey, time.Now())
	idx.compact(ctx)

	logging.Info("Provision finished: %s", report.Summary())
	return report, nil
}

// compact vacuums the repository after a rebuild when it supports it.
func (idx *Indexer) compact(ctx context.Context) {
	c, ok := idx.repo.(compactor)
	if !ok {
		return
	}
	start := time.Now()
	if err := c.Vacuum(ctx); err != nil {
		logging.Warn("Provision: failed to compact database: %v", err)
		return
	}
	logging.Debug("Provision: database compacted in %v", time.Since(start))
}

func (idx *Indexer) tryStartProvision() bool {
	idx.stateMu.Lock()
	defer idx.stateMu.Unlock()

	if idx.provisioning {
		return false
	}
	idx.provisioning = true
	metrics.ProvisionIsRunning.Set(1)
	return true
}

func (idx *Indexer) finishProvision() {
	idx.stateMu.Lock()
	defer idx.stateMu.Unlock()

	idx.provisioning = false
	metrics.ProvisionIsRunning.Set(0)
}
