package indexer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"photo-indexer/internal/database"
	"photo-indexer/internal/fingerprint"
	"photo-indexer/internal/library"
)

func TestSyncDirectory_IndexesSupportedImages(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	dir := makeMonthDir(t, root, 2024, "2024 (07)")
	writeFile(t, dir, "img1.jpg")
	writeFile(t, dir, "img2.PNG")
	writeFile(t, dir, "notes.txt")
	writeFile(t, dir, ".hidden.jpg")
	writeFile(t, dir, "noext")
	if err := os.MkdirAll(filepath.Join(dir, "edits"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(dir, "edits"), "img1.jpg")

	db := setupTestDB(t)
	idx := newTestIndexer(t, db, root)

	result, err := idx.SyncDirectory(ctx, dir)
	if err != nil {
		t.Fatalf("SyncDirectory() error = %v", err)
	}
	if result.Images != 2 {
		t.Errorf("SyncDirectory() images = %d, want 2", result.Images)
	}

	ids := activeIDs(t, db, database.DirectoryKey{Year: 2024, Month: 7})
	if _, ok := ids["img1.jpg"]; !ok {
		t.Error("img1.jpg not indexed")
	}
	if _, ok := ids["img2.PNG"]; !ok {
		t.Error("img2.PNG not indexed with its original extension case")
	}
	if len(ids) != 2 {
		t.Errorf("active records = %v, want 2", ids)
	}

	want, err := fingerprint.Compute(dir)
	if err != nil {
		t.Fatal(err)
	}
	if result.Digest != want {
		t.Errorf("SyncDirectory() digest = %q, want %q", result.Digest, want)
	}
	if got := readMarker(t, dir); got != want+"\n" {
		t.Errorf("marker = %q, want %q", got, want+"\n")
	}
}

func TestSyncDirectory_Idempotent(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	dir := makeMonthDir(t, root, 2024, "2024 (07)")
	writeFile(t, dir, "img1.jpg")
	writeFile(t, dir, "img2.jpg")

	db := setupTestDB(t)
	idx := newTestIndexer(t, db, root)
	key := database.DirectoryKey{Year: 2024, Month: 7}

	first, err := idx.SyncDirectory(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	firstIDs := activeIDs(t, db, key)

	second, err := idx.SyncDirectory(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	secondIDs := activeIDs(t, db, key)

	if first.Digest != second.Digest {
		t.Errorf("digest changed between syncs: %q vs %q", first.Digest, second.Digest)
	}
	if second.SoftDeleted != 0 {
		t.Errorf("second sync soft-deleted %d records", second.SoftDeleted)
	}
	for name, id := range firstIDs {
		if secondIDs[name] != id {
			t.Errorf("%s id changed from %d to %d", name, id, secondIDs[name])
		}
	}
}

func TestSyncDirectory_SoftDeletesMissingFiles(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	dir := makeMonthDir(t, root, 2024, "2024 (07)")
	writeFile(t, dir, "img1.jpg")
	gone := writeFile(t, dir, "img2.jpg")

	db := setupTestDB(t)
	idx := newTestIndexer(t, db, root)

	if _, err := idx.SyncDirectory(ctx, dir); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(gone); err != nil {
		t.Fatal(err)
	}

	result, err := idx.SyncDirectory(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	if result.SoftDeleted != 1 {
		t.Errorf("SoftDeleted = %d, want 1", result.SoftDeleted)
	}

	stats, err := db.CalculateStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.ActiveImages != 1 || stats.DeletedImages != 1 {
		t.Errorf("stats = %+v, want 1 active and 1 deleted", stats)
	}
}

func TestSyncDirectory_LabeledDirectory(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	dir := makeMonthDir(t, root, 2023, "2023 (01) Family Trip")
	writeFile(t, dir, "beach.jpg")

	db := setupTestDB(t)
	idx := newTestIndexer(t, db, root)

	if _, err := idx.SyncDirectory(ctx, dir); err != nil {
		t.Fatal(err)
	}

	img, err := db.FindActiveByKey(ctx, database.ImageKey{
		Year: 2023, Month: 1, DirLabel: "Family Trip", Filename: "beach", Extension: "jpg",
	})
	if err != nil {
		t.Fatalf("FindActiveByKey() error = %v", err)
	}
	if img.Path != "Year 2023/2023 (01) Family Trip/beach.jpg" {
		t.Errorf("Path = %q, want it relative to the library root", img.Path)
	}
}

func TestSyncDirectory_NotMonthDir(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "Year 2024", "misc")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	idx := newTestIndexer(t, setupTestDB(t), root)
	if _, err := idx.SyncDirectory(context.Background(), dir); !errors.Is(err, ErrNotMonthDir) {
		t.Errorf("SyncDirectory() error = %v, want ErrNotMonthDir", err)
	}
}

func TestSyncDirectory_RollbackLeavesMarker(t *testing.T) {
	root := t.TempDir()
	dir := makeMonthDir(t, root, 2024, "2024 (07)")
	writeFile(t, dir, "img1.jpg")
	markerPath := filepath.Join(dir, library.MarkerFileName)
	if err := os.WriteFile(markerPath, []byte("stale\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	repo := &faultyRepo{
		Database:    setupTestDB(t),
		failReplace: func(database.DirectoryKey) bool { return true },
	}
	idx := newTestIndexer(t, repo, root)

	_, err := idx.SyncDirectory(context.Background(), dir)
	if !errors.Is(err, ErrSyncTransaction) {
		t.Fatalf("SyncDirectory() error = %v, want ErrSyncTransaction", err)
	}
	if !errors.Is(err, errInjected) {
		t.Errorf("SyncDirectory() error = %v, want the repository error wrapped", err)
	}
	if got := readMarker(t, dir); got != "stale\n" {
		t.Errorf("marker = %q, want it untouched", got)
	}
	if n := countActive(t, repo.Database); n != 0 {
		t.Errorf("active images = %d, want 0", n)
	}
}

func TestSyncDirectory_RollbackWithoutMarker(t *testing.T) {
	root := t.TempDir()
	dir := makeMonthDir(t, root, 2024, "2024 (07)")
	writeFile(t, dir, "img1.jpg")

	repo := &faultyRepo{
		Database:    setupTestDB(t),
		failReplace: func(database.DirectoryKey) bool { return true },
	}
	idx := newTestIndexer(t, repo, root)

	if _, err := idx.SyncDirectory(context.Background(), dir); err == nil {
		t.Fatal("SyncDirectory() should fail")
	}
	if _, err := os.Stat(filepath.Join(dir, library.MarkerFileName)); !os.IsNotExist(err) {
		t.Errorf("marker should not exist after a failed sync, stat err = %v", err)
	}
}

func TestSyncDirectory_MarkerWriteFailure(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	dir := makeMonthDir(t, root, 2024, "2024 (05)")
	writeFile(t, dir, "img.jpg")

	// A directory in place of the marker makes the rename fail.
	blocker := filepath.Join(dir, library.MarkerFileName)
	if err := os.Mkdir(blocker, 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, blocker, "keep")

	db := setupTestDB(t)
	idx := newTestIndexer(t, db, root)

	if _, err := idx.SyncDirectory(ctx, dir); !errors.Is(err, fingerprint.ErrWriteFailed) {
		t.Fatalf("SyncDirectory() error = %v, want ErrWriteFailed", err)
	}
	if n := countActive(t, db); n != 1 {
		t.Errorf("active images after failed marker write = %d, want 1", n)
	}

	report, err := idx.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if report.Failed != 1 || !errors.Is(report.Err(), fingerprint.ErrWriteFailed) {
		t.Errorf("reconcile = %s (%v), want 1 failure wrapping ErrWriteFailed", report.Summary(), report.Err())
	}

	if err := os.RemoveAll(blocker); err != nil {
		t.Fatal(err)
	}
	report, err = idx.Reconcile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.Synced != 1 {
		t.Errorf("reconcile after recovery = %s, want 1 synced", report.Summary())
	}

	report, err = idx.Reconcile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if report.Skipped != 1 {
		t.Errorf("reconcile after marker write = %s, want 1 skipped", report.Summary())
	}
}
