// Package fingerprint computes and persists cheap change fingerprints for
// month directories.
//
// A fingerprint is a SHA-256 digest over the directory listing: every
// entry's name, size and modification time, in listing order. It is not a
// content hash; a file rewritten in place with identical size and mtime is
// not detected.
//
// The digest of the last successful sync is kept in a marker file named
// ".dirhash" inside the directory itself. The marker is excluded from the
// digest so writing it never invalidates the directory.
package fingerprint
