package domain

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// TitleKey normalizes a title for duplicate detection: unicode-compatible
// form, case folded, whitespace collapsed.
func TitleKey(title string) string {
	s := norm.NFKC.String(title)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// PathKey normalizes a filesystem path for duplicate detection. Paths are
// compared case-insensitively with forward slashes.
func PathKey(path string) string {
	if path == "" {
		return ""
	}
	p := filepath.ToSlash(filepath.Clean(path))
	return cases.Fold().String(norm.NFC.String(p))
}
