// Package library knows the on-disk naming convention of the photo library:
//
//	<root>/Year 2023/2023 (01) Family Trip/IMG_0001.jpg
//
// Parse is a pure function with a tagged result. A path outside the
// convention yields NoMatch, which callers treat as "not managed by the
// index" rather than as an error.
package library
