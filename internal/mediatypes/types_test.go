package mediatypes

import (
	"testing"
)

func TestIsSupportedImage(t *testing.T) {
	tests := []struct {
		ext  string
		want bool
	}{
		{ext: "jpg", want: true},
		{ext: ".jpg", want: true},
		{ext: "JPG", want: true},
		{ext: ".JpEg", want: true},
		{ext: "png", want: true},
		{ext: "gif", want: true},
		{ext: "txt", want: false},
		{ext: ".webp", want: false},
		{ext: "heic", want: false},
		{ext: "", want: false},
		{ext: ".", want: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.ext, func(t *testing.T) {
			if got := IsSupportedImage(tt.ext); got != tt.want {
				t.Errorf("IsSupportedImage(%q) = %v, want %v", tt.ext, got, tt.want)
			}
		})
	}
}

func TestGetMimeType(t *testing.T) {
	tests := []struct {
		ext  string
		want string
	}{
		{ext: ".jpg", want: "image/jpeg"},
		{ext: "JPEG", want: "image/jpeg"},
		{ext: "png", want: "image/png"},
		{ext: ".gif", want: "image/gif"},
		{ext: ".txt", want: "application/octet-stream"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.ext, func(t *testing.T) {
			if got := GetMimeType(tt.ext); got != tt.want {
				t.Errorf("GetMimeType(%q) = %q, want %q", tt.ext, got, tt.want)
			}
		})
	}
}

func TestNormalizeExtension(t *testing.T) {
	if got := NormalizeExtension(".JPG"); got != "jpg" {
		t.Errorf("NormalizeExtension(.JPG) = %q, want jpg", got)
	}
}
