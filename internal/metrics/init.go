package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	// --- Filesystem operation metrics (per volume × operation) ---
	volumes := []string{"library", "database", "unknown"}
	fsOps := []string{"read", "write", "stat", "readdir"}

	for _, vol := range volumes {
		for _, op := range fsOps {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}

	// --- DB query operations ---
	for _, op := range []string{"create_image", "save_images", "find_active_by_key", "soft_delete",
		"soft_delete_directory", "soft_delete_year", "replace_directory", "list_active_by_directory", "count_active",
		"calculate_stats", "get_metadata", "set_metadata", "vacuum"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}

	for _, outcome := range []string{"commit", "rollback"} {
		DBTransactionDuration.WithLabelValues(outcome)
	}

	for _, file := range []string{"main", "wal", "shm"} {
		DBSizeBytes.WithLabelValues(file)
	}

	// --- Indexer ---
	for _, trigger := range []string{"startup", "manual"} {
		ReconcileRunsTotal.WithLabelValues(trigger)
	}
	for _, result := range []string{"synced", "skipped", "failed"} {
		ReconcileDirectoriesTotal.WithLabelValues(result)
	}
	for _, status := range []string{"success", "error"} {
		SyncDirectoryTotal.WithLabelValues(status)
	}
	for _, status := range []string{"success", "partial"} {
		ProvisionRunsTotal.WithLabelValues(status)
	}

	// --- Watcher ---
	for _, ev := range []string{"add", "remove"} {
		WatcherEventsTotal.WithLabelValues(ev)
	}
	for _, src := range []string{"fsnotify", "handler"} {
		WatcherErrors.WithLabelValues(src)
	}

	for _, status := range []string{"active", "deleted"} {
		ImagesTotal.WithLabelValues(status)
	}

	for _, result := range []string{"success", "failure", "missing"} {
		AuthAttemptsTotal.WithLabelValues(result)
	}
}
