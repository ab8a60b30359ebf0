package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// Integration tests for image operations with a real SQLite database

func setupTestDB(t testing.TB) *Database {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func testImage(dir DirectoryKey, filename, ext string) Image {
	return Image{
		Year:      dir.Year,
		Month:     dir.Month,
		DirLabel:  dir.DirLabel,
		Filename:  filename,
		Extension: ext,
		Path:      filepath.Join("Year 2024", dir.String(), filename+"."+ext),
	}
}

func activeIDs(t *testing.T, db *Database, dir DirectoryKey) map[string]int64 {
	t.Helper()

	images, err := db.ListActiveByDirectory(context.Background(), dir)
	if err != nil {
		t.Fatalf("ListActiveByDirectory() error = %v", err)
	}
	ids := make(map[string]int64, len(images))
	for _, img := range images {
		ids[img.Filename+"."+img.Extension] = img.ID
	}
	return ids
}

func TestNewDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "images.db")

	db, err := New(context.Background(), dbPath)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
	if db.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", db.Path(), dbPath)
	}
}

func TestNewDatabase_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "images.db")
	dir := DirectoryKey{Year: 2024, Month: 7}

	db, err := New(ctx, dbPath)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	img := testImage(dir, "img1", "jpg")
	if _, err := db.CreateImage(ctx, &img); err != nil {
		t.Fatalf("CreateImage() error = %v", err)
	}
	_ = db.Close()

	db, err = New(ctx, dbPath)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()

	count, err := db.CountActive(ctx)
	if err != nil || count != 1 {
		t.Errorf("CountActive() after reopen = %d, %v; want 1", count, err)
	}
}

func TestNewDatabase_MigratesMissingDirLabel(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "legacy.db")

	db, err := New(ctx, dbPath)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	// Rebuild the table in its pre-label shape.
	_, err = db.db.ExecContext(ctx, `
		DROP TABLE images;
		CREATE TABLE images (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			year INTEGER NOT NULL,
			month INTEGER NOT NULL,
			filename TEXT NOT NULL,
			extension TEXT NOT NULL,
			path TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			deleted_at INTEGER,
			created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
			updated_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
		);
		INSERT INTO images (year, month, filename, extension, path) VALUES (2020, 5, 'old', 'jpg', 'Year 2020/2020 (05)/old.jpg');
	`)
	if err != nil {
		t.Fatalf("failed to build legacy schema: %v", err)
	}
	_ = db.Close()

	db, err = New(ctx, dbPath)
	if err != nil {
		t.Fatalf("New() on legacy database failed: %v", err)
	}
	defer db.Close()

	img, err := db.FindActiveByKey(ctx, ImageKey{Year: 2020, Month: 5, Filename: "old", Extension: "jpg"})
	if err != nil {
		t.Fatalf("FindActiveByKey() after migration error = %v", err)
	}
	if img.DirLabel != "" {
		t.Errorf("migrated DirLabel = %q, want empty", img.DirLabel)
	}
}

func TestCreateImage(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	dir := DirectoryKey{Year: 2024, Month: 7}

	img := testImage(dir, "img1", "jpg")
	stored, err := db.CreateImage(ctx, &img)
	if err != nil {
		t.Fatalf("CreateImage() error = %v", err)
	}
	if stored.ID == 0 {
		t.Error("CreateImage() returned zero ID")
	}
	if stored.Status != StatusActive {
		t.Errorf("Status = %q, want active", stored.Status)
	}
	if stored.DeletedAt != nil {
		t.Errorf("DeletedAt = %v, want nil", stored.DeletedAt)
	}
	if stored.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestCreateImage_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	dir := DirectoryKey{Year: 2024, Month: 7}

	img := testImage(dir, "img1", "jpg")
	first, err := db.CreateImage(ctx, &img)
	if err != nil {
		t.Fatalf("CreateImage() error = %v", err)
	}
	second, err := db.CreateImage(ctx, &img)
	if err != nil {
		t.Fatalf("second CreateImage() error = %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("CreateImage() created a duplicate: %d != %d", first.ID, second.ID)
	}
	if count, _ := db.CountActive(ctx); count != 1 {
		t.Errorf("CountActive() = %d, want 1", count)
	}
}

func TestCreateImage_ExtensionCaseIsPartOfKey(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	dir := DirectoryKey{Year: 2024, Month: 7}

	lower := testImage(dir, "img1", "jpg")
	upper := testImage(dir, "img1", "JPG")
	if _, err := db.CreateImage(ctx, &lower); err != nil {
		t.Fatal(err)
	}
	if _, err := db.CreateImage(ctx, &upper); err != nil {
		t.Fatal(err)
	}

	if count, _ := db.CountActive(ctx); count != 2 {
		t.Errorf("CountActive() = %d, want 2", count)
	}
}

func TestFindActiveByKey(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	dir := DirectoryKey{Year: 2023, Month: 1, DirLabel: "Family Trip"}

	img := testImage(dir, "beach", "png")
	created, err := db.CreateImage(ctx, &img)
	if err != nil {
		t.Fatal(err)
	}

	found, err := db.FindActiveByKey(ctx, img.Key())
	if err != nil {
		t.Fatalf("FindActiveByKey() error = %v", err)
	}
	if found.ID != created.ID || found.Path != img.Path || found.DirLabel != "Family Trip" {
		t.Errorf("FindActiveByKey() = %+v, want id %d", found, created.ID)
	}

	missing := img.Key()
	missing.DirLabel = ""
	if _, err := db.FindActiveByKey(ctx, missing); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindActiveByKey(wrong label) error = %v, want ErrNotFound", err)
	}
}

func TestSoftDelete(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	dir := DirectoryKey{Year: 2024, Month: 7}

	img := testImage(dir, "img1", "jpg")
	created, err := db.CreateImage(ctx, &img)
	if err != nil {
		t.Fatal(err)
	}

	if err := db.SoftDelete(ctx, created.ID); err != nil {
		t.Fatalf("SoftDelete() error = %v", err)
	}
	if _, err := db.FindActiveByKey(ctx, img.Key()); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindActiveByKey() after delete error = %v, want ErrNotFound", err)
	}
	if err := db.SoftDelete(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second SoftDelete() error = %v, want ErrNotFound", err)
	}

	// The deleted row is kept and a new active record can be created.
	recreated, err := db.CreateImage(ctx, &img)
	if err != nil {
		t.Fatalf("CreateImage() after delete error = %v", err)
	}
	if recreated.ID == created.ID {
		t.Error("re-created image reused the deleted record")
	}

	stats, err := db.CalculateStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.ActiveImages != 1 || stats.DeletedImages != 1 {
		t.Errorf("stats = %+v, want 1 active and 1 deleted", stats)
	}
}

func TestSoftDeleteDirectory(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	july := DirectoryKey{Year: 2024, Month: 7}
	august := DirectoryKey{Year: 2024, Month: 8}

	if err := db.SaveImages(ctx, []Image{
		testImage(july, "a", "jpg"),
		testImage(july, "b", "jpg"),
		testImage(august, "c", "jpg"),
	}); err != nil {
		t.Fatalf("SaveImages() error = %v", err)
	}

	n, err := db.SoftDeleteDirectory(ctx, july)
	if err != nil {
		t.Fatalf("SoftDeleteDirectory() error = %v", err)
	}
	if n != 2 {
		t.Errorf("SoftDeleteDirectory() = %d, want 2", n)
	}
	if ids := activeIDs(t, db, august); len(ids) != 1 {
		t.Errorf("other directory affected: %v", ids)
	}
}

func TestSoftDeleteYear(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	if err := db.SaveImages(ctx, []Image{
		testImage(DirectoryKey{Year: 2023, Month: 1}, "a", "jpg"),
		testImage(DirectoryKey{Year: 2023, Month: 2, DirLabel: "Ski"}, "b", "jpg"),
		testImage(DirectoryKey{Year: 2024, Month: 1}, "c", "jpg"),
	}); err != nil {
		t.Fatal(err)
	}

	n, err := db.SoftDeleteYear(ctx, 2023)
	if err != nil {
		t.Fatalf("SoftDeleteYear() error = %v", err)
	}
	if n != 2 {
		t.Errorf("SoftDeleteYear() = %d, want 2", n)
	}
	if count, _ := db.CountActive(ctx); count != 1 {
		t.Errorf("CountActive() = %d, want 1", count)
	}
}

func TestReplaceDirectory(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	dir := DirectoryKey{Year: 2024, Month: 7}

	result, err := db.ReplaceDirectory(ctx, dir, []Image{
		testImage(dir, "img1", "jpg"),
		testImage(dir, "img2", "jpg"),
	})
	if err != nil {
		t.Fatalf("ReplaceDirectory() error = %v", err)
	}
	if result.Upserted != 2 || result.SoftDeleted != 0 {
		t.Errorf("result = %+v, want 2 upserted", result)
	}
	before := activeIDs(t, db, dir)

	result, err = db.ReplaceDirectory(ctx, dir, []Image{
		testImage(dir, "img2", "jpg"),
		testImage(dir, "img3", "png"),
	})
	if err != nil {
		t.Fatalf("second ReplaceDirectory() error = %v", err)
	}
	if result.SoftDeleted != 1 {
		t.Errorf("SoftDeleted = %d, want 1", result.SoftDeleted)
	}

	after := activeIDs(t, db, dir)
	if len(after) != 2 {
		t.Fatalf("active images = %v, want img2 and img3", after)
	}
	if _, ok := after["img1.jpg"]; ok {
		t.Error("img1.jpg should have been soft-deleted")
	}
	if after["img2.jpg"] != before["img2.jpg"] {
		t.Errorf("surviving record changed id: %d -> %d", before["img2.jpg"], after["img2.jpg"])
	}
}

func TestReplaceDirectory_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	dir := DirectoryKey{Year: 2024, Month: 7, DirLabel: "Summer"}
	images := []Image{testImage(dir, "img1", "jpg"), testImage(dir, "img2", "gif")}

	if _, err := db.ReplaceDirectory(ctx, dir, images); err != nil {
		t.Fatal(err)
	}
	first := activeIDs(t, db, dir)

	if _, err := db.ReplaceDirectory(ctx, dir, images); err != nil {
		t.Fatal(err)
	}
	second := activeIDs(t, db, dir)

	if len(first) != len(second) {
		t.Fatalf("active sets differ: %v vs %v", first, second)
	}
	for name, id := range first {
		if second[name] != id {
			t.Errorf("%s id changed: %d -> %d", name, id, second[name])
		}
	}
}

func TestReplaceDirectory_EmptyListingDeletesAll(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	dir := DirectoryKey{Year: 2024, Month: 7}

	if _, err := db.ReplaceDirectory(ctx, dir, []Image{testImage(dir, "img1", "jpg")}); err != nil {
		t.Fatal(err)
	}
	result, err := db.ReplaceDirectory(ctx, dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.SoftDeleted != 1 {
		t.Errorf("SoftDeleted = %d, want 1", result.SoftDeleted)
	}
	if count, _ := db.CountActive(ctx); count != 0 {
		t.Errorf("CountActive() = %d, want 0", count)
	}
}

func TestReplaceDirectory_RejectsForeignImage(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	dir := DirectoryKey{Year: 2024, Month: 7}
	other := DirectoryKey{Year: 2024, Month: 8}

	if _, err := db.ReplaceDirectory(ctx, dir, []Image{testImage(dir, "keep", "jpg")}); err != nil {
		t.Fatal(err)
	}

	_, err := db.ReplaceDirectory(ctx, dir, []Image{testImage(other, "stray", "jpg")})
	if err == nil {
		t.Fatal("ReplaceDirectory() with foreign image should fail")
	}
	if ids := activeIDs(t, db, dir); len(ids) != 1 {
		t.Errorf("failed replace modified directory: %v", ids)
	}
}

func TestReplaceDirectory_CanceledContextRollsBack(t *testing.T) {
	db := setupTestDB(t)
	dir := DirectoryKey{Year: 2024, Month: 7}

	if _, err := db.ReplaceDirectory(context.Background(), dir, []Image{testImage(dir, "keep", "jpg")}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := db.ReplaceDirectory(ctx, dir, nil); err == nil {
		t.Fatal("ReplaceDirectory() with canceled context should fail")
	}

	if ids := activeIDs(t, db, dir); len(ids) != 1 {
		t.Errorf("canceled replace modified directory: %v", ids)
	}
}

func TestConcurrentWritersWaitForLock(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	synced := DirectoryKey{Year: 2023, Month: 1}
	watched := DirectoryKey{Year: 2023, Month: 2}

	listing := make([]Image, 20)
	for i := range listing {
		listing[i] = testImage(synced, fmt.Sprintf("img%02d", i), "jpg")
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	record := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			if _, err := db.ReplaceDirectory(ctx, synced, listing); err != nil {
				record(err)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			img := testImage(watched, fmt.Sprintf("new%03d", i), "jpg")
			if _, err := db.CreateImage(ctx, &img); err != nil {
				record(err)
			}
		}
	}()
	wg.Wait()

	if len(errs) > 0 {
		t.Fatalf("%d concurrent writes failed, first: %v", len(errs), errs[0])
	}
	if n := len(activeIDs(t, db, synced)); n != 20 {
		t.Errorf("active images in %s = %d, want 20", synced, n)
	}
	if n := len(activeIDs(t, db, watched)); n != 500 {
		t.Errorf("active images in %s = %d, want 500", watched, n)
	}
}

func TestCalculateStats(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	dirs := []DirectoryKey{
		{Year: 2023, Month: 12},
		{Year: 2024, Month: 1},
		{Year: 2024, Month: 1, DirLabel: "Ski"},
	}
	var images []Image
	for _, dir := range dirs {
		images = append(images, testImage(dir, "a", "jpg"), testImage(dir, "b", "jpg"))
	}
	if err := db.SaveImages(ctx, images); err != nil {
		t.Fatal(err)
	}

	now := time.Now().Truncate(time.Second)
	if err := db.SetLastRun(ctx, LastReconcileKey, now); err != nil {
		t.Fatal(err)
	}

	stats, err := db.CalculateStats(ctx)
	if err != nil {
		t.Fatalf("CalculateStats() error = %v", err)
	}
	if stats.ActiveImages != 6 || stats.MonthDirectories != 3 || stats.Years != 2 {
		t.Errorf("stats = %+v, want 6 images in 3 directories over 2 years", stats)
	}
	if !stats.LastReconcile.Equal(now) {
		t.Errorf("LastReconcile = %v, want %v", stats.LastReconcile, now)
	}
	if !stats.LastProvision.IsZero() {
		t.Errorf("LastProvision = %v, want zero", stats.LastProvision)
	}
}

func TestMetadata(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	if _, err := db.GetMetadata(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetMetadata(missing) error = %v, want ErrNotFound", err)
	}

	if err := db.SetMetadata(ctx, "k", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetMetadata(ctx, "k", "v2"); err != nil {
		t.Fatal(err)
	}
	if got, err := db.GetMetadata(ctx, "k"); err != nil || got != "v2" {
		t.Errorf("GetMetadata() = %q, %v; want v2", got, err)
	}

	if err := db.SetLastRun(ctx, LastProvisionKey, time.Time{}); err != nil {
		t.Fatal(err)
	}
	if ts, err := db.GetLastRun(ctx, LastProvisionKey); err != nil || !ts.IsZero() {
		t.Errorf("GetLastRun() after clear = %v, %v; want zero", ts, err)
	}
}

func TestVacuum(t *testing.T) {
	db := setupTestDB(t)
	if err := db.Vacuum(context.Background()); err != nil {
		t.Errorf("Vacuum() error = %v", err)
	}
}
