// Package metrics provides Prometheus instrumentation for the photo indexer.
//
// All metrics are prefixed with "photo_indexer_" and registered with the
// default registry through promauto, so they are served by promhttp.Handler.
//
// # Metric Categories
//
// ## HTTP Metrics
//
//   - HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight
//
// ## Database Metrics
//
//   - DBQueryTotal, DBQueryDuration: per repository operation
//   - DBTransactionDuration: by commit or rollback
//   - DBRowsAffected, DBConnectionsOpen, DBSizeBytes
//
// ## Indexer Metrics
//
//   - ReconcileRunsTotal, ReconcileLastRunTimestamp, ReconcileLastRunDuration
//   - ReconcileDirectoriesTotal: synced, skipped or failed month directories
//   - SyncDirectoryTotal, SyncDirectoryDuration, SyncImagesIndexed
//   - FingerprintWriteErrors
//   - ProvisionRunsTotal, ProvisionIsRunning, ProvisionLastRunDuration
//
// ## Watcher Metrics
//
//   - WatcherEventsTotal, WatcherErrors, WatcherRemoveNotFound,
//     WatchedDirectories
//
// ## Filesystem Metrics
//
// Recorded through the filesystem.Observer returned by
// NewFilesystemObserver: operation durations and errors per volume, and
// NFS stale-handle retry counters.
//
// The Collector samples library totals and database file sizes on an
// interval.
package metrics
