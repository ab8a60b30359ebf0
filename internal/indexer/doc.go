// Package indexer keeps the image database consistent with the photo library
// on disk.
//
// The library is organized as "Year YYYY/YYYY (MM)[ label]/files". The
// indexer works one month directory at a time:
//   - SyncDirectory lists a month directory, replaces its records in one
//     transaction and stores the directory fingerprint.
//   - Reconcile runs at startup over the most recent month directories and
//     syncs only those whose stored fingerprint no longer matches.
//   - HandleAdd and HandleRemove apply single-file changes reported by the
//     filesystem watcher.
//   - Provision rebuilds the whole index with the watcher paused.
//
// Only jpg, jpeg, png and gif files are indexed. Hidden files, including the
// ".dirhash" fingerprint marker, are never indexed.
package indexer
