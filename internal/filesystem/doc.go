/*
Package filesystem provides resilient filesystem operations with automatic retry logic
for NFS stale file handle errors.

# Purpose

Photo libraries commonly live on NAS shares. This package wraps the handful of
operations the indexer needs (os.Stat, os.ReadDir, os.ReadFile and an atomic
write) with retry logic for ESTALE (stale file handle) errors that occur when
NFS-mounted files are accessed during network issues or server-side changes.

# Usage

	entries, err := filesystem.ReadDirWithRetry(dir, filesystem.DefaultRetryConfig())

	err := filesystem.WriteFileAtomic(markerPath, []byte(digest), 0o644,
	    filesystem.DefaultRetryConfig())

# Retry Behavior

The retry logic implements exponential backoff with the following defaults:
  - MaxRetries: 3 attempts
  - InitialBackoff: 50ms
  - MaxBackoff: 500ms

Only NFS stale file handle errors (ESTALE) trigger retries. All other errors
fail immediately without retry attempts.

# Metrics

Operations report to the package-level Observer (see SetObserver), labelled
with the volume resolved by the VolumeResolver ("library", "database" or
"unknown"). With no observer configured, nothing is recorded.
*/
package filesystem
