// Package pages lists the images of a chapter in reading order, whether
// the chapter is a directory on disk or a directory inside an archive.
package pages

import (
	"os"
	"path/filepath"

	"github.com/listenupapp/doujinshelf/internal/archive"
	"github.com/listenupapp/doujinshelf/internal/domain"
	"github.com/listenupapp/doujinshelf/internal/errors"
)

// List returns the page names of chapter c. Directory chapters yield file
// paths; archive chapters yield entry names inside g.Path. Names are in
// lexicographic order and hidden files are skipped.
func List(g *domain.Gallery, c domain.Chapter) ([]string, error) {
	if c.InArchive {
		r, err := archive.Open(g.Path)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return FromArchive(r, c.ArchiveDir(g.Path)), nil
	}
	return FromDir(c.Path)
}

// FromArchive lists the images directly inside dir of an open archive.
func FromArchive(r *archive.Reader, dir string) []string {
	images := r.Images(dir)
	names := make([]string, len(images))
	for i, e := range images {
		names[i] = e.Name
	}
	return names
}

// FromDir lists the image files directly inside dir.
func FromDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeIO, "read chapter %s", dir)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || archive.IsHidden(e.Name()) || !archive.IsImage(e.Name()) {
			continue
		}
		names = append(names, filepath.Join(dir, e.Name()))
	}
	return names, nil
}

// Count returns the number of pages chapter c has on disk.
func Count(g *domain.Gallery, c domain.Chapter) (int, error) {
	names, err := List(g, c)
	return len(names), err
}
