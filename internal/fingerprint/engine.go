package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"strconv"

	"photo-indexer/internal/filesystem"
	"photo-indexer/internal/library"
)

// MarkerFileName is the name of the marker holding a directory's digest.
const MarkerFileName = library.MarkerFileName

// Compute lists dir and returns its fingerprint.
func Compute(dir string) (string, error) {
	entries, err := filesystem.ReadDirWithRetry(dir, filesystem.DefaultRetryConfig())
	if err != nil {
		return "", fmt.Errorf("failed to list %s: %w", dir, err)
	}
	return FromEntries(entries)
}

// FromEntries returns the fingerprint of an already obtained listing, so a
// caller that indexes a listing can hash exactly what it indexed.
func FromEntries(entries []fs.DirEntry) (string, error) {
	h := sha256.New()
	buf := make([]byte, 0, 128)

	for _, entry := range entries {
		if entry.Name() == MarkerFileName {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return "", fmt.Errorf("failed to stat %s: %w", entry.Name(), err)
		}

		buf = buf[:0]
		buf = append(buf, entry.Name()...)
		buf = append(buf, 0)
		buf = strconv.AppendInt(buf, info.Size(), 10)
		buf = append(buf, 0)
		buf = strconv.AppendInt(buf, info.ModTime().UnixNano(), 10)
		buf = append(buf, '\n')
		h.Write(buf)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
