// Package watcher turns fsnotify notifications for a directory tree into
// add and remove events.
//
// The whole tree is watched: every non-hidden directory is registered at
// start and directories created later are registered as they appear. Adds
// are held back until the path has been quiet for the configured settle
// delay, so a file still being copied is reported once it is complete.
// Events are handed to a Handler one at a time on the watcher's goroutine.
package watcher
