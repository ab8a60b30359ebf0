package indexer

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"photo-indexer/internal/database"
	"photo-indexer/internal/filesystem"
	"photo-indexer/internal/fingerprint"
	"photo-indexer/internal/library"
	"photo-indexer/internal/logging"
	"photo-indexer/internal/mediatypes"
	"photo-indexer/internal/metrics"
)

// SyncResult describes one directory sync.
type SyncResult struct {
	Dir         string `json:"dir"`
	Images      int    `json:"images"`
	SoftDeleted int    `json:"softDeleted"`
	Digest      string `json:"digest"`
}

// SyncDirectory makes the active records of a month directory match its
// current listing and then stores the directory fingerprint. When the
// database update fails nothing is written and the error wraps
// ErrSyncTransaction; when only the fingerprint write fails the records are
// already correct and the directory is synced again on the next reconcile.
func (idx *Indexer) SyncDirectory(ctx context.Context, dir string) (SyncResult, error) {
	unlock := idx.locks.Lock(dir)
	defer unlock()

	return idx.syncDirectoryLocked(ctx, dir)
}

func (idx *Indexer) syncDirectoryLocked(ctx context.Context, dir string) (result SyncResult, err error) {
	start := time.Now()
	dir = filepath.Clean(dir)
	result.Dir = dir

	defer func() {
		metrics.SyncDirectoryDuration.Observe(time.Since(start).Seconds())
		status := "success"
		if err != nil {
			status = "error"
		}
		metrics.SyncDirectoryTotal.WithLabelValues(status).Inc()
	}()

	month, ok := library.ParseMonthDir(filepath.Base(dir))
	if !ok {
		return result, fmt.Errorf("%w: %s", ErrNotMonthDir, dir)
	}

	entries, err := filesystem.ReadDirWithRetry(dir, filesystem.DefaultRetryConfig())
	if err != nil {
		return result, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	images := idx.buildImages(dir, entries)

	digest, err := fingerprint.FromEntries(entries)
	if err != nil {
		return result, fmt.Errorf("failed to fingerprint %s: %w", dir, err)
	}

	replaced, err := idx.repo.ReplaceDirectory(ctx, directoryKey(month), images)
	if err != nil {
		return result, fmt.Errorf("%w: %s: %w", ErrSyncTransaction, dir, err)
	}
	result.Images = len(images)
	result.SoftDeleted = replaced.SoftDeleted
	metrics.SyncImagesIndexed.Add(float64(replaced.Upserted))

	if err = idx.store.WriteStored(dir, digest); err != nil {
		metrics.FingerprintWriteErrors.Inc()
		return result, err
	}
	result.Digest = digest

	logging.Debug("Synced %s: %d images, %d soft-deleted in %v",
		dir, result.Images, result.SoftDeleted, time.Since(start))
	return result, nil
}

// buildImages returns a record for every regular file in the listing that
// follows the naming convention and has a supported image extension.
func (idx *Indexer) buildImages(dir string, entries []fs.DirEntry) []database.Image {
	images := make([]database.Image, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		parsed := library.Parse(filepath.Join(dir, entry.Name()))
		if !parsed.IsMatch() || !mediatypes.IsSupportedImage(parsed.Image.Extension) {
			continue
		}
		images = append(images, idx.imageRecord(parsed.Image))
	}
	return images
}

func (idx *Indexer) imageRecord(p library.ImagePath) database.Image {
	return database.Image{
		Year:      p.Year,
		Month:     p.Month,
		DirLabel:  p.Label,
		Filename:  p.Filename,
		Extension: p.Extension,
		Path:      idx.relPath(filepath.Join(p.Dir, p.Name())),
		Status:    database.StatusActive,
	}
}

// relPath returns path relative to the library root, slash-separated.
func (idx *Indexer) relPath(path string) string {
	rel, err := filepath.Rel(idx.layout.Root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// refreshFingerprint recomputes and stores the fingerprint of dir after a
// single-file change. Failures leave the directory dirty for the next
// reconcile.
func (idx *Indexer) refreshFingerprint(dir string) {
	digest, err := fingerprint.Compute(dir)
	if err != nil {
		logging.Warn("Failed to refresh fingerprint of %s: %v", dir, err)
		return
	}
	if err := idx.store.WriteStored(dir, digest); err != nil {
		metrics.FingerprintWriteErrors.Inc()
		logging.Warn("%v", err)
	}
}

func directoryKey(m library.MonthDir) database.DirectoryKey {
	return database.DirectoryKey{Year: m.Year, Month: m.Month, DirLabel: m.Label}
}
