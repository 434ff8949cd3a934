package processor

import (
	"path/filepath"
	"strings"
)

// galleryPath returns the ingestion candidate a changed path belongs to.
//
// Archives and folders stand for themselves. Pages and sidecars belong to
// their folder. A chapter folder (ch01, Chapter 2, Vol.3, ...) groups under
// its parent so a multi-chapter gallery is rescanned whole:
//
//	/lib/[a] Title/ch01/01.jpg -> /lib/[a] Title
//	/lib/[a] Title/ch02        -> /lib/[a] Title
func galleryPath(path string, ft FileType) string {
	path = filepath.Clean(path)
	if ft == FileTypeArchive {
		return path
	}
	dir := path
	if ft != FileTypeFolder {
		dir = filepath.Dir(path)
	}

	if isChapterDir(filepath.Base(dir)) {
		return filepath.Dir(dir)
	}
	return dir
}

// isChapterDir checks if a directory name indicates a chapter of a larger
// gallery. Matching is case insensitive; the prefix must be followed by a
// number, optionally after a space, dot or underscore.
func isChapterDir(name string) bool {
	name = strings.ToLower(name)

	// Longest prefixes first so "chapter" is not read as "ch" + "apter".
	for _, prefix := range []string{"chapter", "volume", "vol", "ch", "part"} {
		rest, ok := strings.CutPrefix(name, prefix)
		if !ok {
			continue
		}
		rest = strings.TrimLeft(rest, " ._-")
		return rest != "" && rest[0] >= '0' && rest[0] <= '9'
	}

	// Bare numbers: 01, 2, 003
	return name != "" && strings.Trim(name, "0123456789") == ""
}
