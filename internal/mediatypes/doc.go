// Package mediatypes defines which files the photo index tracks.
//
// It is a dependency-free foundation imported by the parser, the indexer and
// the database layer. Only jpg, jpeg, png and gif are tracked; matching is
// case-insensitive and accepts extensions with or without the leading dot:
//
//	mediatypes.IsSupportedImage(".JPG") // true
//	mediatypes.IsSupportedImage("txt")  // false
package mediatypes
