package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const imageColumns = `id, year, month, dir_label, filename, extension, path, status, deleted_at, created_at, updated_at`

// upsertImageQuery inserts an active record or refreshes the existing one
// with the same natural key. The existing row keeps its id.
const upsertImageQuery = `
	INSERT INTO images (year, month, dir_label, filename, extension, path, status, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, 'active', strftime('%s', 'now'), strftime('%s', 'now'))
	ON CONFLICT(year, month, dir_label, filename, extension) WHERE status = 'active' DO UPDATE SET
		path = excluded.path,
		updated_at = CASE WHEN images.path != excluded.path THEN strftime('%s', 'now') ELSE images.updated_at END
	RETURNING ` + imageColumns

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanImage(row rowScanner) (*Image, error) {
	var (
		img       Image
		status    string
		deletedAt sql.NullInt64
		createdAt int64
		updatedAt int64
	)

	err := row.Scan(&img.ID, &img.Year, &img.Month, &img.DirLabel, &img.Filename,
		&img.Extension, &img.Path, &status, &deletedAt, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	img.Status = ImageStatus(status)
	img.CreatedAt = time.Unix(createdAt, 0)
	img.UpdatedAt = time.Unix(updatedAt, 0)
	if deletedAt.Valid {
		t := time.Unix(deletedAt.Int64, 0)
		img.DeletedAt = &t
	}
	return &img, nil
}

func upsertImage(ctx context.Context, tx *sql.Tx, img *Image) (*Image, error) {
	row := tx.QueryRowContext(ctx, upsertImageQuery,
		img.Year, img.Month, img.DirLabel, img.Filename, img.Extension, img.Path)
	return scanImage(row)
}

// CreateImage stores img as active. If an active record with the same
// natural key exists it is updated in place, so repeated calls are no-ops.
func (d *Database) CreateImage(ctx context.Context, img *Image) (*Image, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("create_image", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var batch *Batch
	batch, err = d.BeginBatch(ctx)
	if err != nil {
		return nil, err
	}

	var stored *Image
	stored, err = upsertImage(ctx, batch.tx, img)
	if err = d.EndBatch(batch, err); err != nil {
		return nil, fmt.Errorf("failed to create image %s: %w", img.Key(), err)
	}
	return stored, nil
}

// SaveImages upserts all images in a single transaction.
func (d *Database) SaveImages(ctx context.Context, images []Image) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("save_images", start, err) }()

	var batch *Batch
	batch, err = d.BeginBatch(ctx)
	if err != nil {
		return err
	}

	for i := range images {
		if _, err = upsertImage(ctx, batch.tx, &images[i]); err != nil {
			err = fmt.Errorf("failed to save image %s: %w", images[i].Key(), err)
			break
		}
	}

	err = d.EndBatch(batch, err)
	return err
}

// FindActiveByKey returns the active record for key or ErrNotFound.
func (d *Database) FindActiveByKey(ctx context.Context, key ImageKey) (*Image, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("find_active_by_key", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := `SELECT ` + imageColumns + ` FROM images
		WHERE year = ? AND month = ? AND dir_label = ? AND filename = ? AND extension = ? AND status = 'active'`

	var img *Image
	img, err = scanImage(d.db.QueryRowContext(ctx, query,
		key.Year, key.Month, key.DirLabel, key.Filename, key.Extension))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	return img, nil
}

// SoftDelete marks the active record id as deleted. It returns ErrNotFound
// when no active record has that id.
func (d *Database) SoftDelete(ctx context.Context, id int64) error {
	start := time.Now()
	var err error
	defer func() { recordQuery("soft_delete", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var result sql.Result
	result, err = d.db.ExecContext(ctx, `
		UPDATE images
		SET status = 'deleted', deleted_at = strftime('%s', 'now'), updated_at = strftime('%s', 'now')
		WHERE id = ? AND status = 'active'
	`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%w: image %d", ErrNotFound, id)
	}
	return nil
}

// SoftDeleteDirectory marks every active record of dir as deleted and
// returns how many were affected.
func (d *Database) SoftDeleteDirectory(ctx context.Context, dir DirectoryKey) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("soft_delete_directory", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var result sql.Result
	result, err = d.db.ExecContext(ctx, `
		UPDATE images
		SET status = 'deleted', deleted_at = strftime('%s', 'now'), updated_at = strftime('%s', 'now')
		WHERE year = ? AND month = ? AND dir_label = ? AND status = 'active'
	`, dir.Year, dir.Month, dir.DirLabel)
	if err != nil {
		return 0, err
	}

	rows, err := result.RowsAffected()
	if err == nil && rows > 0 {
		metricsRowsAffected("soft_delete_directory", rows)
	}
	return rows, err
}

// SoftDeleteYear marks every active record of year as deleted and returns
// how many were affected.
func (d *Database) SoftDeleteYear(ctx context.Context, year int) (int64, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("soft_delete_year", start, err) }()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var result sql.Result
	result, err = d.db.ExecContext(ctx, `
		UPDATE images
		SET status = 'deleted', deleted_at = strftime('%s', 'now'), updated_at = strftime('%s', 'now')
		WHERE year = ? AND status = 'active'
	`, year)
	if err != nil {
		return 0, err
	}

	rows, err := result.RowsAffected()
	if err == nil && rows > 0 {
		metricsRowsAffected("soft_delete_year", rows)
	}
	return rows, err
}

// ReplaceDirectory makes the active records of dir equal to images in one
// transaction. Records missing from images are soft-deleted and listed
// images are upserted, so records that survive keep their ids. On any
// failure the transaction is rolled back and nothing changes.
func (d *Database) ReplaceDirectory(ctx context.Context, dir DirectoryKey, images []Image) (ReplaceResult, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("replace_directory", start, err) }()

	var result ReplaceResult
	for _, img := range images {
		if img.Key().Directory() != dir {
			err = fmt.Errorf("image %s does not belong to directory %s", img.Key(), dir)
			return result, err
		}
	}

	var batch *Batch
	batch, err = d.BeginBatch(ctx)
	if err != nil {
		return result, err
	}

	result, err = replaceDirectoryTx(ctx, batch.tx, dir, images)
	if err = d.EndBatch(batch, err); err != nil {
		return ReplaceResult{}, fmt.Errorf("failed to replace directory %s: %w", dir, err)
	}

	if result.SoftDeleted > 0 {
		metricsRowsAffected("replace_directory_delete", int64(result.SoftDeleted))
	}
	if result.Upserted > 0 {
		metricsRowsAffected("replace_directory_upsert", int64(result.Upserted))
	}
	return result, nil
}

func replaceDirectoryTx(ctx context.Context, tx *sql.Tx, dir DirectoryKey, images []Image) (ReplaceResult, error) {
	var result ReplaceResult

	listed := make(map[ImageKey]struct{}, len(images))
	for _, img := range images {
		listed[img.Key()] = struct{}{}
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, filename, extension FROM images
		WHERE year = ? AND month = ? AND dir_label = ? AND status = 'active'
	`, dir.Year, dir.Month, dir.DirLabel)
	if err != nil {
		return result, fmt.Errorf("failed to list active records: %w", err)
	}

	var stale []int64
	for rows.Next() {
		var (
			id                  int64
			filename, extension string
		)
		if err := rows.Scan(&id, &filename, &extension); err != nil {
			_ = rows.Close()
			return result, err
		}
		key := ImageKey{Year: dir.Year, Month: dir.Month, DirLabel: dir.DirLabel, Filename: filename, Extension: extension}
		if _, ok := listed[key]; !ok {
			stale = append(stale, id)
		}
	}
	if err := rows.Close(); err != nil {
		return result, err
	}
	if err := rows.Err(); err != nil {
		return result, err
	}

	for _, id := range stale {
		if _, err := tx.ExecContext(ctx, `
			UPDATE images
			SET status = 'deleted', deleted_at = strftime('%s', 'now'), updated_at = strftime('%s', 'now')
			WHERE id = ?
		`, id); err != nil {
			return result, fmt.Errorf("failed to soft-delete image %d: %w", id, err)
		}
		result.SoftDeleted++
	}

	for i := range images {
		if _, err := upsertImage(ctx, tx, &images[i]); err != nil {
			return result, fmt.Errorf("failed to upsert %s: %w", images[i].Key(), err)
		}
		result.Upserted++
	}

	return result, nil
}

// ListActiveByDirectory returns the active records of dir ordered by file
// name.
func (d *Database) ListActiveByDirectory(ctx context.Context, dir DirectoryKey) ([]Image, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("list_active_by_directory", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var rows *sql.Rows
	rows, err = d.db.QueryContext(ctx, `SELECT `+imageColumns+` FROM images
		WHERE year = ? AND month = ? AND dir_label = ? AND status = 'active'
		ORDER BY filename, extension`, dir.Year, dir.Month, dir.DirLabel)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []Image
	for rows.Next() {
		var img *Image
		img, err = scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, *img)
	}
	err = rows.Err()
	return images, err
}

// CountActive returns the number of active records.
func (d *Database) CountActive(ctx context.Context) (int, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("count_active", start, err) }()

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var count int
	err = d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM images WHERE status = 'active'`).Scan(&count)
	return count, err
}

// CalculateStats calculates current index statistics
func (d *Database) CalculateStats(ctx context.Context) (IndexStats, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("calculate_stats", start, err) }()

	var stats IndexStats

	d.mu.RLock()
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM images WHERE status = 'active'", &stats.ActiveImages},
		{"SELECT COUNT(*) FROM images WHERE status = 'deleted'", &stats.DeletedImages},
		{"SELECT COUNT(*) FROM (SELECT DISTINCT year, month, dir_label FROM images WHERE status = 'active')", &stats.MonthDirectories},
		{"SELECT COUNT(DISTINCT year) FROM images WHERE status = 'active'", &stats.Years},
	}

	for _, q := range queries {
		if err = d.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			d.mu.RUnlock()
			return stats, err
		}
	}
	d.mu.RUnlock()

	if stats.LastReconcile, err = d.GetLastRun(ctx, LastReconcileKey); err != nil {
		return stats, err
	}
	if stats.LastProvision, err = d.GetLastRun(ctx, LastProvisionKey); err != nil {
		return stats, err
	}

	return stats, nil
}
