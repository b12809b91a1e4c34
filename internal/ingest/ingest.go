package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/docextract/constants"
)

// DirStats summarizes a directory collection.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Failed  uint32
}

// FileError records a path that matched but could not be read.
type FileError struct {
	Path string
	Err  error
}

// Options controls which files are collected.
type Options struct {
	// Exts are lowercased extensions without the dot; nil uses constants.AllowedExtensions.
	Exts       map[string]struct{}
	SkipHidden bool
	// MaxFileSize rejects larger files as failures; 0 disables the check.
	MaxFileSize int64
}

func (o Options) allowed(path string) bool {
	exts := o.Exts
	if exts == nil {
		exts = constants.AllowedExtensions
	}
	_, ok := exts[constants.NormalizeExt(filepath.Ext(path))]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

// HintFromPath derives a document type hint from the parent directory name,
// so files under an "invoices/" or "領収書/" folder keep their type even when
// their names carry no token. Unrecognised folders give "".
func HintFromPath(path string) constants.DocumentType {
	dir := strings.ToLower(filepath.Base(filepath.Dir(path)))
	dir = strings.TrimSuffix(dir, "s")
	if dt, ok := constants.CanonicalizeDocumentType(dir); ok && dt != constants.DocumentTypeUnknown {
		return dt
	}
	return ""
}
