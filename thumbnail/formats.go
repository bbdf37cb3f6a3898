package thumbnail

import (
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"slices"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// formats lists the decoders registered with the image package.
// Names match those returned by image.DecodeConfig.
var formats = []string{"bmp", "gif", "jpeg", "png", "tiff", "webp"}

// SupportedFormats returns the source formats the pipeline can decode.
func SupportedFormats() []string {
	return slices.Clone(formats)
}

// IsSupported reports whether format names a decodable source format.
// Matching is case-insensitive and accepts common aliases such as "jpg".
func IsSupported(format string) bool {
	return slices.Contains(formats, NormalizeFormat(format))
}

// NormalizeFormat maps a format name or file extension to its canonical name.
func NormalizeFormat(format string) string {
	f := strings.ToLower(strings.TrimPrefix(format, "."))
	switch f {
	case "jpg", "jpe", "jfif":
		return "jpeg"
	case "tif":
		return "tiff"
	}
	return f
}
