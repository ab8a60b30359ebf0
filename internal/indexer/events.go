package indexer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"photo-indexer/internal/database"
	"photo-indexer/internal/library"
	"photo-indexer/internal/logging"
	"photo-indexer/internal/mediatypes"
	"photo-indexer/internal/metrics"
)

// HandleAdd indexes a single new file. Paths outside the naming convention
// and unsupported file types are ignored. Adding a file that is already
// indexed changes nothing.
func (idx *Indexer) HandleAdd(ctx context.Context, path string) error {
	parsed := library.Parse(path)
	if !parsed.IsMatch() {
		logging.Debug("Ignoring add of %s: not a library image path", path)
		return nil
	}
	if !mediatypes.IsSupportedImage(parsed.Image.Extension) {
		logging.Debug("Ignoring add of %s: unsupported extension", path)
		return nil
	}

	dir := parsed.Image.Dir
	unlock := idx.locks.Lock(dir)
	defer unlock()

	img := idx.imageRecord(parsed.Image)
	stored, err := idx.repo.CreateImage(ctx, &img)
	if err != nil {
		return fmt.Errorf("failed to index %s: %w", path, err)
	}
	logging.Info("Indexed %s (id %d)", img.Path, stored.ID)

	idx.refreshFingerprint(dir)
	return nil
}

// HandleRemove soft-deletes the record of a removed file. When no active
// record matches, a warning is logged and the event is dropped.
func (idx *Indexer) HandleRemove(ctx context.Context, path string) error {
	parsed := library.Parse(path)
	if !parsed.IsMatch() || !mediatypes.IsSupportedImage(parsed.Image.Extension) {
		return nil
	}

	dir := parsed.Image.Dir
	unlock := idx.locks.Lock(dir)
	defer unlock()

	key := idx.imageRecord(parsed.Image).Key()
	existing, err := idx.repo.FindActiveByKey(ctx, key)
	if errors.Is(err, database.ErrNotFound) {
		logging.Warn("No active record for removed file %s; event dropped", path)
		metrics.WatcherRemoveNotFound.Inc()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up %s: %w", path, err)
	}

	if err := idx.repo.SoftDelete(ctx, existing.ID); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	logging.Info("Removed %s (id %d)", existing.Path, existing.ID)

	idx.refreshFingerprint(dir)
	return nil
}

// handleDirectoryAdd syncs a new month directory, or every month directory
// of a new year directory.
func (idx *Indexer) handleDirectoryAdd(ctx context.Context, path string) error {
	name := filepath.Base(path)

	if library.IsMonthDir(name) {
		result, err := idx.SyncDirectory(ctx, path)
		if err != nil {
			return err
		}
		logging.Info("Indexed new directory %s: %d images", path, result.Images)
		return nil
	}

	if library.IsYearDir(name) && filepath.Dir(path) == idx.layout.Root {
		months, err := monthDirs(idx.listDir, path)
		if err != nil {
			return err
		}
		var errs []error
		for _, month := range months {
			if _, err := idx.SyncDirectory(ctx, month); err != nil {
				errs = append(errs, err)
			}
		}
		logging.Info("Indexed new year directory %s: %d month directories", path, len(months))
		return errors.Join(errs...)
	}

	return nil
}

// handleDirectoryRemove soft-deletes the records of a removed month or year
// directory.
func (idx *Indexer) handleDirectoryRemove(ctx context.Context, path string) error {
	name := filepath.Base(path)

	if month, ok := library.ParseMonthDir(name); ok {
		unlock := idx.locks.Lock(path)
		defer unlock()

		n, err := idx.repo.SoftDeleteDirectory(ctx, directoryKey(month))
		if err != nil {
			return fmt.Errorf("failed to remove directory %s: %w", path, err)
		}
		logging.Info("Removed directory %s: %d records soft-deleted", path, n)
		return nil
	}

	if year, ok := library.ParseYearDir(name); ok && filepath.Dir(path) == idx.layout.Root {
		n, err := idx.repo.SoftDeleteYear(ctx, year)
		if err != nil {
			return fmt.Errorf("failed to remove year directory %s: %w", path, err)
		}
		logging.Info("Removed year directory %s: %d records soft-deleted", path, n)
	}

	return nil
}
