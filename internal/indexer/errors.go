package indexer

import "errors"

var (
	// ErrNotMonthDir is returned when a directory name is not "YYYY (MM)[ label]".
	ErrNotMonthDir = errors.New("not a month directory")

	// ErrSyncTransaction wraps a failed directory replace. The transaction
	// was rolled back and the fingerprint left untouched.
	ErrSyncTransaction = errors.New("directory sync transaction failed")

	// ErrProvisionInProgress is returned when a provision is requested while
	// another one is running.
	ErrProvisionInProgress = errors.New("provision already in progress")

	// ErrReconcileInProgress is returned when a reconcile is requested while
	// another one is running.
	ErrReconcileInProgress = errors.New("reconcile already in progress")

	// ErrStopped is returned by operations on a stopped indexer.
	ErrStopped = errors.New("indexer stopped")
)
