package fingerprint

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"photo-indexer/internal/filesystem"
	"photo-indexer/internal/logging"
)

// ErrWriteFailed is returned when a marker could not be persisted. The
// directory is then treated as dirty on the next reconcile.
var ErrWriteFailed = errors.New("fingerprint write failed")

// Store reads and writes directory markers.
type Store struct {
	retry filesystem.RetryConfig
}

// NewStore returns a Store using the default NFS retry policy.
func NewStore() *Store {
	return &Store{retry: filesystem.DefaultRetryConfig()}
}

// MarkerPath returns the marker location for dir.
func MarkerPath(dir string) string {
	return filepath.Join(dir, MarkerFileName)
}

// ReadStored returns the digest recorded for dir. Any failure, including a
// missing or empty marker, reports ok == false.
func (s *Store) ReadStored(dir string) (digest string, ok bool) {
	data, err := filesystem.ReadFileWithRetry(MarkerPath(dir), s.retry)
	if err != nil {
		logging.Debug("No stored fingerprint for %s: %v", dir, err)
		return "", false
	}

	digest = strings.TrimSpace(string(data))
	if digest == "" {
		return "", false
	}
	return digest, true
}

// WriteStored atomically replaces the marker of dir with digest.
func (s *Store) WriteStored(dir, digest string) error {
	if err := filesystem.WriteFileAtomic(MarkerPath(dir), []byte(digest+"\n"), 0o644, s.retry); err != nil {
		return fmt.Errorf("%w for %s: %w", ErrWriteFailed, dir, err)
	}
	return nil
}
