package library

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// MarkerFileName is the fingerprint marker kept inside every month directory.
const MarkerFileName = ".dirhash"

var (
	yearDirPattern  = regexp.MustCompile(`^Year (\d{4})$`)
	monthDirPattern = regexp.MustCompile(`^(\d{4}) \((\d{2})\)(?: (.+))?$`)
)

// MatchStatus tags the outcome of a parse.
type MatchStatus int

const (
	// NoMatch means the path is outside the library naming convention.
	NoMatch MatchStatus = iota
	// Matched means the path follows the convention and the fields are set.
	Matched
)

// String returns a human-readable representation of the status.
func (s MatchStatus) String() string {
	switch s {
	case Matched:
		return "matched"
	case NoMatch:
		return "no-match"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// MonthDir identifies a month directory: "2023 (01) Family Trip" is
// {Year: 2023, Month: 1, Label: "Family Trip"}.
type MonthDir struct {
	Year  int
	Month int
	Label string
}

// Name returns the directory name for m.
func (m MonthDir) Name() string {
	return MonthDirName(m.Year, m.Month, m.Label)
}

// String implements fmt.Stringer.
func (m MonthDir) String() string {
	return m.Name()
}

// ImagePath holds the fields extracted from a file path inside a month
// directory.
type ImagePath struct {
	MonthDir
	// Filename is the base name without the extension.
	Filename string
	// Extension is the extension without the leading dot, case preserved.
	Extension string
	// Dir is the directory part of the parsed path, as given.
	Dir string
}

// Name returns the file name, filename plus extension.
func (p ImagePath) Name() string {
	return p.Filename + "." + p.Extension
}

// RelPath rebuilds the canonical library-relative path of the file.
func (p ImagePath) RelPath() string {
	return filepath.Join(YearDirName(p.Year), p.MonthDir.Name(), p.Name())
}

// Result is the tagged outcome of Parse. Image is only meaningful when
// Status is Matched.
type Result struct {
	Status MatchStatus
	Image  ImagePath
}

// IsMatch reports whether the path follows the naming convention.
func (r Result) IsMatch() bool {
	return r.Status == Matched
}

// Parse extracts the library fields from a file path. The immediate parent
// directory must be a month directory and the file must have a base name and
// an extension. Hidden files, including the marker file, never match.
func Parse(path string) Result {
	path = filepath.Clean(path)
	name := filepath.Base(path)
	if name == "." || name == string(filepath.Separator) || strings.HasPrefix(name, ".") {
		return Result{Status: NoMatch}
	}

	ext := filepath.Ext(name)
	filename := strings.TrimSuffix(name, ext)
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" || filename == "" {
		return Result{Status: NoMatch}
	}

	dir := filepath.Dir(path)
	month, ok := ParseMonthDir(filepath.Base(dir))
	if !ok {
		return Result{Status: NoMatch}
	}

	return Result{
		Status: Matched,
		Image: ImagePath{
			MonthDir:  month,
			Filename:  filename,
			Extension: ext,
			Dir:       dir,
		},
	}
}

// ParseYearDir parses a "Year NNNN" directory name.
func ParseYearDir(name string) (int, bool) {
	m := yearDirPattern.FindStringSubmatch(name)
	if m == nil {
		return 0, false
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return year, true
}

// ParseMonthDir parses a "NNNN (MM)[ label]" directory name. The month must
// be 01 to 12. The label is everything after the single separating space,
// kept verbatim, so MonthDirName reproduces the original name.
func ParseMonthDir(name string) (MonthDir, bool) {
	m := monthDirPattern.FindStringSubmatch(name)
	if m == nil {
		return MonthDir{}, false
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return MonthDir{}, false
	}
	month, err := strconv.Atoi(m[2])
	if err != nil || month < 1 || month > 12 {
		return MonthDir{}, false
	}
	return MonthDir{Year: year, Month: month, Label: m[3]}, true
}

// IsYearDir reports whether name is a year directory name.
func IsYearDir(name string) bool {
	_, ok := ParseYearDir(name)
	return ok
}

// IsMonthDir reports whether name is a month directory name.
func IsMonthDir(name string) bool {
	_, ok := ParseMonthDir(name)
	return ok
}

// YearDirName returns "Year NNNN".
func YearDirName(year int) string {
	return fmt.Sprintf("Year %04d", year)
}

// MonthDirName returns "NNNN (MM)" or "NNNN (MM) label".
func MonthDirName(year, month int, label string) string {
	name := fmt.Sprintf("%04d (%02d)", year, month)
	if label != "" {
		name += " " + label
	}
	return name
}
