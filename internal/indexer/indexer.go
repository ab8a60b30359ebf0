package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"photo-indexer/internal/database"
	"photo-indexer/internal/filesystem"
	"photo-indexer/internal/fingerprint"
	"photo-indexer/internal/logging"
	"photo-indexer/internal/watcher"
)

// DefaultLookback is the number of recent month directories checked by the
// startup reconcile.
const DefaultLookback = 3

// Repository is the image storage used by the indexer.
type Repository interface {
	CreateImage(ctx context.Context, img *database.Image) (*database.Image, error)
	FindActiveByKey(ctx context.Context, key database.ImageKey) (*database.Image, error)
	SoftDelete(ctx context.Context, id int64) error
	SoftDeleteDirectory(ctx context.Context, dir database.DirectoryKey) (int64, error)
	SoftDeleteYear(ctx context.Context, year int) (int64, error)
	ReplaceDirectory(ctx context.Context, dir database.DirectoryKey, images []database.Image) (database.ReplaceResult, error)
}

// runRecorder is implemented by repositories that persist run timestamps.
type runRecorder interface {
	SetLastRun(ctx context.Context, key string, t time.Time) error
}

// compactor is implemented by repositories that can reclaim space after a
// full rebuild.
type compactor interface {
	Vacuum(ctx context.Context) error
}

// dirLister lists a directory sorted by name.
type dirLister func(dir string) ([]fs.DirEntry, error)

func readDir(dir string) ([]fs.DirEntry, error) {
	return filesystem.ReadDirWithRetry(dir, filesystem.DefaultRetryConfig())
}

// Layout describes the library on disk.
type Layout struct {
	// Root is the directory holding the "Year YYYY" directories.
	Root string
	// Lookback is how many recent month directories Reconcile checks.
	Lookback int
}

// Config configures an Indexer.
type Config struct {
	Layout Layout
	// Settle is the watcher's quiet period before an add is handled.
	Settle time.Duration
}

// Indexer synchronizes the library with the repository.
type Indexer struct {
	repo   Repository
	store  *fingerprint.Store
	layout Layout
	settle time.Duration
	locks  *dirLocks
	// listDir lists the root and year directories when selecting work.
	listDir dirLister

	// ctx bounds background work: the watcher and async provisions.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// passMu is held for the whole of a reconcile or provision pass. Start
	// also holds it while starting the watcher, so the watcher never comes
	// up while a pass is still writing.
	passMu sync.Mutex

	watchMu sync.Mutex
	watcher *watcher.Watcher

	stateMu       sync.Mutex
	reconciling   bool
	provisioning  bool
	ready         bool
	wantWatch     bool
	stopped       bool
	startTime     time.Time
	lastReconcile *Report
	lastProvision *Report
	startupError  error

	stopOnce sync.Once
}

// New creates a new Indexer instance.
func New(repo Repository, cfg Config) *Indexer {
	if cfg.Layout.Lookback <= 0 {
		cfg.Layout.Lookback = DefaultLookback
	}
	cfg.Layout.Root = filepath.Clean(cfg.Layout.Root)
	if cfg.Settle < 0 {
		cfg.Settle = 0
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Indexer{
		repo:      repo,
		store:     fingerprint.NewStore(),
		layout:    cfg.Layout,
		settle:    cfg.Settle,
		locks:     newDirLocks(),
		listDir:   readDir,
		ctx:       ctx,
		cancel:    cancel,
		startTime: time.Now(),
	}
}

// Layout returns the library layout the indexer works on.
func (idx *Indexer) Layout() Layout {
	return idx.layout
}

// Start reconciles the recent month directories and then starts the
// filesystem watcher. When a manual reconcile or a provision is running,
// Start waits for it to finish first. Reconcile failures are logged and
// reported through GetHealthStatus; only a watcher that cannot start is
// returned as an error. Once Start has run, every later provision restarts
// the watcher when it is done.
func (idx *Indexer) Start(ctx context.Context) error {
	idx.passMu.Lock()
	defer idx.passMu.Unlock()

	logging.Info("Starting reconcile of the %d most recent month directories under %s",
		idx.layout.Lookback, idx.layout.Root)

	report, err := idx.runReconcile(ctx, "startup")
	if err != nil {
		logging.Error("Startup reconcile failed: %v", err)
		idx.stateMu.Lock()
		idx.startupError = err
		idx.stateMu.Unlock()
	} else {
		logging.Info("Startup reconcile complete: %s", report.Summary())
	}

	idx.stateMu.Lock()
	idx.ready = true
	idx.wantWatch = true
	idx.stateMu.Unlock()

	return idx.startWatcher()
}

// Stop stops the watcher and waits for background work. It is safe to call
// more than once.
func (idx *Indexer) Stop() {
	idx.stopOnce.Do(func() {
		idx.stateMu.Lock()
		idx.stopped = true
		idx.stateMu.Unlock()

		idx.cancel()
		idx.stopWatcher()
		idx.wg.Wait()
		logging.Info("Indexer stopped")
	})
}

// HandleEvent implements watcher.Handler.
func (idx *Indexer) HandleEvent(ctx context.Context, ev watcher.Event) error {
	switch ev.Op {
	case watcher.OpAdd:
		if ev.IsDir {
			return idx.handleDirectoryAdd(ctx, ev.Path)
		}
		return idx.HandleAdd(ctx, ev.Path)
	case watcher.OpRemove:
		if ev.IsDir {
			return idx.handleDirectoryRemove(ctx, ev.Path)
		}
		return idx.HandleRemove(ctx, ev.Path)
	default:
		return nil
	}
}

// startWatcher starts a fresh watcher unless one is running or the indexer
// was stopped. Callers hold passMu.
func (idx *Indexer) startWatcher() error {
	idx.watchMu.Lock()
	defer idx.watchMu.Unlock()

	if idx.isStopped() {
		return ErrStopped
	}
	if idx.watcher != nil {
		return nil
	}

	w, err := watcher.New(idx, watcher.Options{Settle: idx.settle})
	if err != nil {
		return err
	}
	if err := w.Start(idx.ctx, idx.layout.Root); err != nil {
		_ = w.Stop()
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	idx.watcher = w
	return nil
}

// stopWatcher stops the running watcher, if any, and reports whether one was
// running.
func (idx *Indexer) stopWatcher() bool {
	idx.watchMu.Lock()
	defer idx.watchMu.Unlock()

	if idx.watcher == nil {
		return false
	}
	if err := idx.watcher.Stop(); err != nil {
		logging.Warn("Failed to stop watcher cleanly: %v", err)
	}
	idx.watcher = nil
	return true
}

// IsWatching reports whether the filesystem watcher is running.
func (idx *Indexer) IsWatching() bool {
	idx.watchMu.Lock()
	defer idx.watchMu.Unlock()
	return idx.watcher != nil && idx.watcher.IsRunning()
}

func (idx *Indexer) watchedDirectories() int {
	idx.watchMu.Lock()
	defer idx.watchMu.Unlock()
	if idx.watcher == nil {
		return 0
	}
	return idx.watcher.WatchedCount()
}

func (idx *Indexer) isStopped() bool {
	idx.stateMu.Lock()
	defer idx.stateMu.Unlock()
	return idx.stopped
}

// IsReady returns true once the startup reconcile has finished.
func (idx *Indexer) IsReady() bool {
	idx.stateMu.Lock()
	defer idx.stateMu.Unlock()
	return idx.ready
}

func (idx *Indexer) watchWanted() bool {
	idx.stateMu.Lock()
	defer idx.stateMu.Unlock()
	return idx.wantWatch
}

// IsProvisioning reports whether a provision is running.
func (idx *Indexer) IsProvisioning() bool {
	idx.stateMu.Lock()
	defer idx.stateMu.Unlock()
	return idx.provisioning
}

// HealthStatus contains health check information.
type HealthStatus struct {
	Ready              bool      `json:"ready"`
	Reconciling        bool      `json:"reconciling"`
	Provisioning       bool      `json:"provisioning"`
	Watching           bool      `json:"watching"`
	WatchedDirectories int       `json:"watchedDirectories"`
	StartTime          time.Time `json:"startTime"`
	Uptime             string    `json:"uptime"`
	LastReconcile      *Report   `json:"lastReconcile,omitempty"`
	LastProvision      *Report   `json:"lastProvision,omitempty"`
	StartupError       string    `json:"startupError,omitempty"`
}

// GetHealthStatus returns detailed health information.
func (idx *Indexer) GetHealthStatus() HealthStatus {
	watching := idx.IsWatching()
	watched := idx.watchedDirectories()

	idx.stateMu.Lock()
	defer idx.stateMu.Unlock()

	status := HealthStatus{
		Ready:              idx.ready,
		Reconciling:        idx.reconciling,
		Provisioning:       idx.provisioning,
		Watching:           watching,
		WatchedDirectories: watched,
		StartTime:          idx.startTime,
		Uptime:             time.Since(idx.startTime).Round(time.Second).String(),
		LastReconcile:      idx.lastReconcile,
		LastProvision:      idx.lastProvision,
	}
	if idx.startupError != nil {
		status.StartupError = idx.startupError.Error()
	}
	return status
}

// recordRun persists the completion time of a run when the repository
// supports it.
func (idx *Indexer) recordRun(ctx context.Context, key string, at time.Time) {
	recorder, ok := idx.repo.(runRecorder)
	if !ok {
		return
	}
	if err := recorder.SetLastRun(ctx, key, at); err != nil {
		logging.Warn("Failed to record %s: %v", key, err)
	}
}

var _ watcher.Handler = (*Indexer)(nil)
