package indexer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"photo-indexer/internal/database"
	"photo-indexer/internal/fingerprint"
	"photo-indexer/internal/library"
	"photo-indexer/internal/logging"
	"photo-indexer/internal/metrics"
)

// DirFailure records why one directory could not be synced.
type DirFailure struct {
	Dir   string `json:"dir"`
	Error string `json:"error"`
}

// Report summarizes a reconcile or provision pass.
type Report struct {
	Started  time.Time    `json:"started"`
	Duration string       `json:"duration"`
	Examined int          `json:"examined"`
	Synced   int          `json:"synced"`
	Skipped  int          `json:"skipped"`
	Failed   int          `json:"failed"`
	Failures []DirFailure `json:"failures,omitempty"`

	errs []error
}

func (r *Report) fail(dir string, err error) {
	r.Failed++
	r.Failures = append(r.Failures, DirFailure{Dir: dir, Error: err.Error()})
	r.errs = append(r.errs, err)
}

// Err joins the per-directory errors of the pass, or returns nil.
func (r *Report) Err() error {
	return errors.Join(r.errs...)
}

// Summary returns a one-line description for logs.
func (r *Report) Summary() string {
	return fmt.Sprintf("%d examined, %d synced, %d skipped, %d failed in %s",
		r.Examined, r.Synced, r.Skipped, r.Failed, r.Duration)
}

// RecentMonthDirs returns up to k month directories, most recent first. They
// are taken from the most recent year directory and, when it holds fewer
// than k, from the one before it. Ordering is by directory name. A library
// without year directories yields an empty list. A year directory that
// cannot be listed is skipped; the directories found elsewhere are returned
// together with the listing error.
func RecentMonthDirs(root string, k int) ([]string, error) {
	var yearErrs []error
	dirs, err := recentMonthDirs(readDir, root, k, func(_ string, err error) {
		yearErrs = append(yearErrs, err)
	})
	if err != nil {
		return nil, err
	}
	return dirs, errors.Join(yearErrs...)
}

// recentMonthDirs selects the lookback candidates. Only a root that cannot
// be listed is an error; year listing failures go to onYearErr.
func recentMonthDirs(list dirLister, root string, k int, onYearErr func(yearDir string, err error)) ([]string, error) {
	if k <= 0 {
		k = DefaultLookback
	}

	years, err := yearDirs(list, root)
	if err != nil {
		return nil, err
	}
	if len(years) == 0 {
		logging.Info("No year directories found under %s", root)
		return nil, nil
	}
	if len(years) > 2 {
		years = years[:2]
	}

	dirs := make([]string, 0, k)
	for _, year := range years {
		months, err := monthDirs(list, year)
		if err != nil {
			onYearErr(year, err)
			continue
		}
		for _, month := range months {
			if len(dirs) == k {
				return dirs, nil
			}
			dirs = append(dirs, month)
		}
	}
	return dirs, nil
}

// yearDirs lists the year directories of root, most recent first.
func yearDirs(list dirLister, root string) ([]string, error) {
	entries, err := list(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list library root %s: %w", root, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() && library.IsYearDir(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(root, name)
	}
	return paths, nil
}

// monthDirs lists the month directories of a year directory, most recent
// first.
func monthDirs(list dirLister, yearDir string) ([]string, error) {
	entries, err := list(yearDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", yearDir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() && library.IsMonthDir(entry.Name()) {
			names = append(names, entry.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	paths := make([]string, len(names))
	for i, name := range names {
		paths[i] = filepath.Join(yearDir, name)
	}
	return paths, nil
}

// Reconcile checks the most recent month directories and syncs those whose
// stored fingerprint is missing or stale. Directories are processed one at
// a time; a failing directory or year listing is recorded in the report and
// the pass continues. The returned error is non-nil only when the pass could
// not run, including when another reconcile or a provision holds the
// library.
func (idx *Indexer) Reconcile(ctx context.Context) (*Report, error) {
	if !idx.passMu.TryLock() {
		if idx.IsProvisioning() {
			return nil, ErrProvisionInProgress
		}
		return nil, ErrReconcileInProgress
	}
	defer idx.passMu.Unlock()

	return idx.runReconcile(ctx, "manual")
}

// runReconcile performs one reconcile pass. Callers hold passMu.
func (idx *Indexer) runReconcile(ctx context.Context, trigger string) (*Report, error) {
	idx.setReconciling(true)
	defer idx.setReconciling(false)

	start := time.Now()
	report := &Report{Started: start}
	metrics.ReconcileRunsTotal.WithLabelValues(trigger).Inc()

	candidates, err := recentMonthDirs(idx.listDir, idx.layout.Root, idx.layout.Lookback,
		func(yearDir string, err error) {
			logging.Error("Reconcile: %v", err)
			metrics.ReconcileDirectoriesTotal.WithLabelValues("failed").Inc()
			report.fail(yearDir, err)
		})
	if err != nil {
		return nil, err
	}

	for _, dir := range candidates {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Examined++
		idx.reconcileDirectory(ctx, dir, report)
	}

	duration := time.Since(start)
	report.Duration = duration.Round(time.Millisecond).String()
	metrics.ReconcileLastRunDuration.Set(duration.Seconds())
	metrics.ReconcileLastRunTimestamp.Set(float64(time.Now().Unix()))

	idx.stateMu.Lock()
	idx.lastReconcile = report
	idx.stateMu.Unlock()
	idx.recordRun(ctx, database.LastReconcileKey, time.Now())

	if report.Failed > 0 {
		logging.Warn("Reconcile finished with failures: %s", report.Summary())
	} else {
		logging.Info("Reconcile finished: %s", report.Summary())
	}
	return report, nil
}

func (idx *Indexer) reconcileDirectory(ctx context.Context, dir string, report *Report) {
	unlock := idx.locks.Lock(dir)
	defer unlock()

	current, err := fingerprint.Compute(dir)
	if err != nil {
		logging.Error("Reconcile: %v", err)
		metrics.ReconcileDirectoriesTotal.WithLabelValues("failed").Inc()
		report.fail(dir, err)
		return
	}

	stored, ok := idx.store.ReadStored(dir)
	if ok && stored == current {
		logging.Debug("Reconcile: %s unchanged", dir)
		metrics.ReconcileDirectoriesTotal.WithLabelValues("skipped").Inc()
		report.Skipped++
		return
	}

	if _, err := idx.syncDirectoryLocked(ctx, dir); err != nil {
		logging.Error("Reconcile: failed to sync %s: %v", dir, err)
		metrics.ReconcileDirectoriesTotal.WithLabelValues("failed").Inc()
		report.fail(dir, err)
		return
	}

	logging.Info("Reconcile: synced %s", dir)
	metrics.ReconcileDirectoriesTotal.WithLabelValues("synced").Inc()
	report.Synced++
}

func (idx *Indexer) setReconciling(running bool) {
	idx.stateMu.Lock()
	defer idx.stateMu.Unlock()

	idx.reconciling = running
	if running {
		metrics.ReconcileIsRunning.Set(1)
	} else {
		metrics.ReconcileIsRunning.Set(0)
	}
}
