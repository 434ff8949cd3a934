package classify

import (
	"io/fs"
	"os"
	"path/filepath"

	"github.com/listenupapp/doujinshelf/internal/archive"
	"github.com/listenupapp/doujinshelf/internal/errors"
)

// Discover turns an ingestion root into candidates. An archive root is one
// candidate. A directory root is one candidate when it is itself a gallery;
// otherwise each non-hidden child directory and archive is a candidate, or
// in recursive mode every gallery directory and archive below it.
func Discover(root string, policy Policy) ([]Candidate, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeIO, "stat %s", root)
	}
	if !info.IsDir() {
		if archive.IsArchive(root) {
			return []Candidate{{Path: root, Archive: true}}, nil
		}
		return nil, errors.Formatf("%s is not a directory or archive", root)
	}

	l, err := readDir(root, policy)
	if err != nil {
		return nil, err
	}
	if l.isGallery() {
		return []Candidate{{Path: root}}, nil
	}
	if policy.Recursive {
		return walk(root, policy)
	}

	var out []Candidate
	for _, d := range l.dirs {
		out = append(out, Candidate{Path: d})
	}
	for _, f := range l.files {
		if archive.IsArchive(f) {
			out = append(out, Candidate{Path: f, Archive: true})
		}
	}
	sortCandidates(out)
	return out, nil
}

// walk finds every gallery directory and archive below root, depth-first
// in lexicographic order. Gallery directories are not descended into.
// A directory below root that cannot be read is returned as a candidate
// and not descended into, so ingestion reports it as skipped.
func walk(root string, policy Policy) ([]Candidate, error) {
	var out []Candidate
	unreadable := func(p string, d fs.DirEntry) error {
		out = append(out, Candidate{Path: p, Archive: archive.IsArchive(p)})
		if d != nil && d.IsDir() {
			return filepath.SkipDir
		}
		return nil
	}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return errors.Wrapf(err, errors.CodeIO, "walk %s", p)
			}
			return unreadable(p, d)
		}
		if p == root {
			return nil
		}
		if archive.IsHidden(d.Name()) || policy.skip(p, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() {
			if archive.IsArchive(p) {
				out = append(out, Candidate{Path: p, Archive: true})
			}
			return nil
		}
		l, err := readDir(p, policy)
		if err != nil {
			return unreadable(p, d)
		}
		if l.isGallery() {
			out = append(out, Candidate{Path: p})
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
