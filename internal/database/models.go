package database

import (
	"fmt"
	"time"
)

// ImageStatus is the lifecycle state of an image record.
type ImageStatus string

const (
	StatusActive  ImageStatus = "active"
	StatusDeleted ImageStatus = "deleted"
)

// Image is one indexed image file. Records are soft-deleted, never removed.
type Image struct {
	ID        int64       `json:"id"`
	Year      int         `json:"year"`
	Month     int         `json:"month"`
	DirLabel  string      `json:"dirLabel,omitempty"`
	Filename  string      `json:"filename"`
	Extension string      `json:"extension"`
	Path      string      `json:"path"`
	Status    ImageStatus `json:"status"`
	DeletedAt *time.Time  `json:"deletedAt,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// Key returns the natural key of the image.
func (i Image) Key() ImageKey {
	return ImageKey{
		Year:      i.Year,
		Month:     i.Month,
		DirLabel:  i.DirLabel,
		Filename:  i.Filename,
		Extension: i.Extension,
	}
}

// ImageKey identifies at most one active image.
type ImageKey struct {
	Year      int
	Month     int
	DirLabel  string
	Filename  string
	Extension string
}

// Directory returns the key of the month directory holding the image.
func (k ImageKey) Directory() DirectoryKey {
	return DirectoryKey{Year: k.Year, Month: k.Month, DirLabel: k.DirLabel}
}

func (k ImageKey) String() string {
	return fmt.Sprintf("%s/%s.%s", k.Directory(), k.Filename, k.Extension)
}

// DirectoryKey identifies a month directory.
type DirectoryKey struct {
	Year     int
	Month    int
	DirLabel string
}

func (k DirectoryKey) String() string {
	if k.DirLabel == "" {
		return fmt.Sprintf("%04d (%02d)", k.Year, k.Month)
	}
	return fmt.Sprintf("%04d (%02d) %s", k.Year, k.Month, k.DirLabel)
}

// ReplaceResult summarizes a ReplaceDirectory call.
type ReplaceResult struct {
	Upserted    int `json:"upserted"`
	SoftDeleted int `json:"softDeleted"`
}

// IndexStats holds library-wide counters.
type IndexStats struct {
	ActiveImages     int       `json:"activeImages"`
	DeletedImages    int       `json:"deletedImages"`
	MonthDirectories int       `json:"monthDirectories"`
	Years            int       `json:"years"`
	LastReconcile    time.Time `json:"lastReconcile,omitzero"`
	LastProvision    time.Time `json:"lastProvision,omitzero"`
}
