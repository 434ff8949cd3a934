// Package processor turns watcher events into incremental ingestion.
package processor

import (
	"path/filepath"
	"strings"

	"github.com/listenupapp/doujinshelf/internal/archive"
	"github.com/listenupapp/doujinshelf/internal/sidecar"
)

// FileType represents the type of file detected by the classifier.
type FileType int

const (
	// FileTypeArchive is a zip/cbz/rar/cbr file; it is a gallery on its own.
	FileTypeArchive FileType = iota
	// FileTypePage is an image inside a gallery folder.
	FileTypePage
	// FileTypeSidecar is a gallery's info.json.
	FileTypeSidecar
	// FileTypeFolder is a directory created or moved into the tree.
	FileTypeFolder
	// FileTypeIgnored is everything else.
	FileTypeIgnored
)

// String returns the string representation of a FileType.
func (ft FileType) String() string {
	switch ft {
	case FileTypeArchive:
		return "archive"
	case FileTypePage:
		return "page"
	case FileTypeSidecar:
		return "sidecar"
	case FileTypeFolder:
		return "folder"
	case FileTypeIgnored:
		return "ignored"
	default:
		return "unknown"
	}
}

// classifyFile determines the type of a path by name alone. Removed paths
// can no longer be stat'ed, so isDir is only known for created folders.
func classifyFile(path string, isDir bool) FileType {
	if path == "" {
		return FileTypeIgnored
	}
	base := filepath.Base(path)
	if archive.IsHidden(base) {
		return FileTypeIgnored
	}

	switch {
	case isDir:
		return FileTypeFolder
	case archive.IsArchive(base):
		return FileTypeArchive
	case archive.IsImage(base):
		return FileTypePage
	case strings.EqualFold(base, sidecar.FileName):
		return FileTypeSidecar
	default:
		return FileTypeIgnored
	}
}
