package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"photo-indexer/internal/logging"
	"photo-indexer/internal/metrics"
)

// DefaultSettle is the default quiet period before an add is delivered.
const DefaultSettle = 2 * time.Second

// ErrAlreadyStarted is returned by Start on a watcher that was started before.
// A stopped watcher cannot be restarted; create a new one instead.
var ErrAlreadyStarted = errors.New("watcher already started")

// Op is the kind of change reported to a Handler.
type Op int

const (
	// OpAdd reports a new file or directory.
	OpAdd Op = iota
	// OpRemove reports a file or directory that was deleted or moved away.
	OpRemove
)

// String returns a human-readable representation of the operation.
func (op Op) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpRemove:
		return "remove"
	default:
		return "unknown"
	}
}

// Event is a settled change to one path.
type Event struct {
	Op    Op
	Path  string
	IsDir bool
}

// Handler consumes watcher events. Errors are logged and counted; they never
// stop the watcher.
type Handler interface {
	HandleEvent(ctx context.Context, ev Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, ev Event) error

// HandleEvent calls f(ctx, ev).
func (f HandlerFunc) HandleEvent(ctx context.Context, ev Event) error {
	return f(ctx, ev)
}

// Options configures a Watcher.
type Options struct {
	// Settle is how long a created path must see no further writes before
	// its add is delivered. Zero delivers adds immediately.
	Settle time.Duration
}

type pendingAdd struct {
	deadline time.Time
	isDir    bool
}

// Watcher watches a directory tree.
type Watcher struct {
	fsw     *fsnotify.Watcher
	handler Handler
	settle  time.Duration
	root    string

	mu      sync.Mutex
	started bool
	running bool
	dirs    map[string]struct{}
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// pending is only touched by the event loop.
	pending map[string]pendingAdd
}

// New creates a watcher delivering events to handler. It must be started
// with Start before it emits anything.
func New(handler Handler, opts Options) (*Watcher, error) {
	if handler == nil {
		return nil, errors.New("watcher handler is nil")
	}
	if opts.Settle < 0 {
		opts.Settle = 0
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		fsw:     fsw,
		handler: handler,
		settle:  opts.Settle,
		dirs:    make(map[string]struct{}),
		pending: make(map[string]pendingAdd),
	}, nil
}

// Start registers root and its subdirectories and begins delivering events.
func (w *Watcher) Start(ctx context.Context, root string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}

	root = filepath.Clean(root)
	if _, err := os.Stat(root); err != nil {
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}

	w.root = root
	w.addTreeLocked(root)

	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.started = true
	w.running = true

	logging.Info("Watching %s (%d directories, settle %v)", root, len(w.dirs), w.settle)

	w.wg.Add(1)
	go w.run(loopCtx)
	return nil
}

// Stop stops delivering events and releases the fsnotify handle. It blocks
// until the event goroutine has exited and is safe to call more than once.
// Adds that had not settled yet are dropped.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		started := w.started
		w.started = true
		w.mu.Unlock()
		if !started {
			return w.fsw.Close()
		}
		return nil
	}
	w.running = false
	cancel := w.cancel
	w.mu.Unlock()

	cancel()
	err := w.fsw.Close()
	w.wg.Wait()

	metrics.WatchedDirectories.Set(0)
	if err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}

// IsRunning reports whether the watcher is delivering events.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// WatchedCount returns the number of registered directories.
func (w *Watcher) WatchedCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.dirs)
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			if n := len(w.pending); n > 0 {
				logging.Debug("Watcher stopping with %d unsettled adds", n)
			}
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleFSEvent(ctx, event)
			w.resetTimer(timer)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.Error("Watcher error: %v", err)
			metrics.WatcherErrors.WithLabelValues("fsnotify").Inc()

		case <-timer.C:
			w.flushDue(ctx, time.Now())
			w.resetTimer(timer)
		}
	}
}

// handleFSEvent processes a single fsnotify event.
func (w *Watcher) handleFSEvent(ctx context.Context, event fsnotify.Event) {
	name := filepath.Clean(event.Name)
	if w.isHidden(name) {
		return
	}

	switch {
	case event.Has(fsnotify.Create):
		w.onCreate(ctx, name)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.onRemove(ctx, name)
	case event.Has(fsnotify.Write):
		if p, ok := w.pending[name]; ok {
			p.deadline = time.Now().Add(w.settle)
			w.pending[name] = p
		}
	}
}

func (w *Watcher) onCreate(ctx context.Context, name string) {
	info, err := os.Lstat(name)
	if err != nil {
		// Gone again before we could look at it.
		return
	}

	isDir := info.IsDir()
	if isDir {
		w.mu.Lock()
		w.addTreeLocked(name)
		w.mu.Unlock()
	}

	if w.settle == 0 {
		w.deliver(ctx, Event{Op: OpAdd, Path: name, IsDir: isDir})
		return
	}
	w.pending[name] = pendingAdd{deadline: time.Now().Add(w.settle), isDir: isDir}
}

func (w *Watcher) onRemove(ctx context.Context, name string) {
	prefix := name + string(filepath.Separator)

	w.mu.Lock()
	_, isDir := w.dirs[name]
	if isDir {
		for dir := range w.dirs {
			if dir == name || strings.HasPrefix(dir, prefix) {
				delete(w.dirs, dir)
			}
		}
		metrics.WatchedDirectories.Set(float64(len(w.dirs)))
	}
	w.mu.Unlock()

	if isDir {
		// inotify drops the watch of a deleted directory on its own; a
		// renamed one has to be removed explicitly.
		_ = w.fsw.Remove(name)
	}

	for path := range w.pending {
		if path == name || strings.HasPrefix(path, prefix) {
			delete(w.pending, path)
		}
	}

	w.deliver(ctx, Event{Op: OpRemove, Path: name, IsDir: isDir})
}

// flushDue delivers every pending add whose settle deadline has passed, in
// deadline order.
func (w *Watcher) flushDue(ctx context.Context, now time.Time) {
	var due []string
	for path, p := range w.pending {
		if !p.deadline.After(now) {
			due = append(due, path)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		di, dj := w.pending[due[i]].deadline, w.pending[due[j]].deadline
		if di.Equal(dj) {
			return due[i] < due[j]
		}
		return di.Before(dj)
	})

	for _, path := range due {
		p := w.pending[path]
		delete(w.pending, path)
		w.deliver(ctx, Event{Op: OpAdd, Path: path, IsDir: p.isDir})
	}
}

func (w *Watcher) resetTimer(timer *time.Timer) {
	if len(w.pending) == 0 {
		timer.Stop()
		return
	}

	var earliest time.Time
	for _, p := range w.pending {
		if earliest.IsZero() || p.deadline.Before(earliest) {
			earliest = p.deadline
		}
	}
	wait := time.Until(earliest)
	if wait < 0 {
		wait = 0
	}
	timer.Reset(wait)
}

func (w *Watcher) deliver(ctx context.Context, ev Event) {
	metrics.WatcherEventsTotal.WithLabelValues(ev.Op.String()).Inc()
	logging.Debug("Watcher %s: %s (dir=%v)", ev.Op, ev.Path, ev.IsDir)

	if err := w.handler.HandleEvent(ctx, ev); err != nil {
		logging.Error("Failed to handle %s event for %s: %v", ev.Op, ev.Path, err)
		metrics.WatcherErrors.WithLabelValues("handler").Inc()
	}
}

// addTreeLocked registers dir and every non-hidden directory below it.
// w.mu must be held.
func (w *Watcher) addTreeLocked(dir string) {
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtrees are skipped; the rest is still watched.
			logging.Warn("failed to walk %s for watcher: %v", path, err)
			metrics.WatcherErrors.WithLabelValues("fsnotify").Inc()
			if d != nil && d.IsDir() && path != dir {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if _, ok := w.dirs[path]; ok {
			return nil
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			logging.Warn("failed to add path to watcher %s: %v", path, addErr)
			metrics.WatcherErrors.WithLabelValues("fsnotify").Inc()
			return nil
		}
		w.dirs[path] = struct{}{}
		return nil
	})
	if err != nil {
		logging.Error("failed to walk %s for watcher: %v", dir, err)
	}
	metrics.WatchedDirectories.Set(float64(len(w.dirs)))
}

// isHidden reports whether any path segment below the root starts with a dot.
func (w *Watcher) isHidden(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
