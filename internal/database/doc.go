// Package database provides SQLite storage for the photo index.
//
// It holds one table of image records keyed by year, month, directory label,
// filename and extension. A partial unique index guarantees at most one
// active record per key; removed files are soft-deleted so their history is
// kept. A small key/value metadata table records when the library was last
// reconciled and provisioned.
//
// The database uses WAL mode for concurrent reads and initializes its schema
// on open.
package database
