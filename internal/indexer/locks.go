package indexer

import (
	"path/filepath"
	"sync"
)

// dirLocks hands out one mutex per directory path. Entries are dropped once
// nobody holds or waits for them.
type dirLocks struct {
	mu    sync.Mutex
	locks map[string]*dirLock
}

type dirLock struct {
	mu   sync.Mutex
	refs int
}

func newDirLocks() *dirLocks {
	return &dirLocks{locks: make(map[string]*dirLock)}
}

// Lock blocks until dir is free and returns the matching unlock function.
func (l *dirLocks) Lock(dir string) (unlock func()) {
	dir = filepath.Clean(dir)

	l.mu.Lock()
	entry, ok := l.locks[dir]
	if !ok {
		entry = &dirLock{}
		l.locks[dir] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, dir)
		}
		l.mu.Unlock()
	}
}

func (l *dirLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
