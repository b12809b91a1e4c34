package constants

import "strings"

// AllowedExtensions holds the default file extensions picked up by directory ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"tif":  {},
	"tiff": {},
	"bmp":  {},
	"heic": {},
}

// imageExtensions can be enhanced before legacy OCR.
var imageExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"tif":  {},
	"tiff": {},
	"bmp":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsImageExt reports whether ext (with or without dot) names a raster image format.
func IsImageExt(ext string) bool {
	_, ok := imageExtensions[NormalizeExt(ext)]
	return ok
}
