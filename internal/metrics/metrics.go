package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_indexer_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_indexer_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_indexer_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_indexer_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_indexer_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_indexer_db_transaction_duration_seconds",
			Help:    "Database transaction duration in seconds by outcome",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"outcome"}, // "commit", "rollback"
	)

	DBRowsAffected = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_indexer_db_rows_affected",
			Help:    "Rows affected by write statements",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_indexer_db_connections_open",
			Help: "Number of open database connections",
		},
	)

	DBSizeBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "photo_indexer_db_size_bytes",
			Help: "Size of SQLite database files in bytes",
		},
		[]string{"file"}, // "main", "wal", "shm"
	)
)

// Reconcile metrics
var (
	ReconcileRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_indexer_reconcile_runs_total",
			Help: "Total number of reconciliation passes",
		},
		[]string{"trigger"}, // "startup", "manual"
	)

	ReconcileLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_indexer_reconcile_last_run_timestamp",
			Help: "Timestamp of the last reconciliation pass",
		},
	)

	ReconcileLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_indexer_reconcile_last_run_duration_seconds",
			Help: "Duration of the last reconciliation pass in seconds",
		},
	)

	ReconcileDirectoriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_indexer_reconcile_directories_total",
			Help: "Month directories examined by reconciliation, by result",
		},
		[]string{"result"}, // "synced", "skipped", "failed"
	)

	ReconcileIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_indexer_reconcile_running",
			Help: "Whether a reconciliation pass is in progress (1 = running, 0 = idle)",
		},
	)
)

// Directory sync metrics
var (
	SyncDirectoryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_indexer_sync_directory_total",
			Help: "Total number of directory synchronizations by status",
		},
		[]string{"status"}, // "success", "error"
	)

	SyncDirectoryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "photo_indexer_sync_directory_duration_seconds",
			Help:    "Directory synchronization duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	SyncImagesIndexed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_indexer_sync_images_indexed_total",
			Help: "Total number of image records written by directory synchronization",
		},
	)

	FingerprintWriteErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_indexer_fingerprint_write_errors_total",
			Help: "Total number of failed fingerprint marker writes",
		},
	)
)

// Provision metrics
var (
	ProvisionRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_indexer_provision_runs_total",
			Help: "Total number of full provision runs by status",
		},
		[]string{"status"}, // "success", "partial"
	)

	ProvisionIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_indexer_provision_running",
			Help: "Whether a provision run is in progress (1 = running, 0 = idle)",
		},
	)

	ProvisionLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_indexer_provision_last_run_duration_seconds",
			Help: "Duration of the last provision run in seconds",
		},
	)
)

// Watcher metrics
var (
	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_indexer_watcher_events_total",
			Help: "Total number of filesystem watcher events delivered",
		},
		[]string{"event_type"}, // "add", "remove"
	)

	WatcherErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_indexer_watcher_errors_total",
			Help: "Total number of filesystem watcher errors",
		},
		[]string{"source"}, // "fsnotify", "handler"
	)

	WatcherRemoveNotFound = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "photo_indexer_watcher_remove_not_found_total",
			Help: "Remove events dropped because no active record matched",
		},
	)

	WatchedDirectories = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_indexer_watched_directories",
			Help: "Number of directories currently being watched",
		},
	)
)

// Library metrics
var (
	ImagesTotal = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "photo_indexer_images_total",
			Help: "Number of image records by status",
		},
		[]string{"status"}, // "active", "deleted"
	)

	MonthDirectoriesTotal = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "photo_indexer_month_directories_total",
			Help: "Number of month directories with at least one active image",
		},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_indexer_filesystem_operation_duration_seconds",
			Help:    "Filesystem operation duration in seconds by volume and operation",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_indexer_filesystem_operation_errors_total",
			Help: "Filesystem operation errors by volume and operation",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_indexer_filesystem_retry_attempts_total",
			Help: "Retries of filesystem operations after stale file handle errors",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_indexer_filesystem_retry_success_total",
			Help: "Filesystem operations that succeeded after retrying",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_indexer_filesystem_retry_failures_total",
			Help: "Filesystem operations that failed after exhausting retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_indexer_filesystem_stale_errors_total",
			Help: "NFS stale file handle errors observed",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "photo_indexer_filesystem_retry_duration_seconds",
			Help:    "Total time spent in operations that exhausted their retries",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"operation", "volume"},
	)
)

// Admin API metrics
var (
	AuthAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "photo_indexer_auth_attempts_total",
			Help: "Admin authentication attempts by result",
		},
		[]string{"result"}, // "success", "failure", "missing"
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "photo_indexer_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion string) {
	AppInfo.WithLabelValues(version, commit, goVersion).Set(1)
}
