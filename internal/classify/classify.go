// Package classify decides what a filesystem path holds: one gallery, a
// gallery split into chapters, several galleries, or nothing usable.
//
// A set of entries is a gallery when at least 80% of its non-hidden
// entries are images.
package classify

import (
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/listenupapp/doujinshelf/internal/archive"
	"github.com/listenupapp/doujinshelf/internal/errors"
)

// Kind is the classification outcome.
type Kind int

const (
	NotAGallery Kind = iota
	SingleGallery
	MultiChapterGallery
	ContainerOfGalleries
)

func (k Kind) String() string {
	switch k {
	case SingleGallery:
		return "single"
	case MultiChapterGallery:
		return "multi-chapter"
	case ContainerOfGalleries:
		return "container"
	default:
		return "not-a-gallery"
	}
}

// Policy controls how ambiguous layouts are read.
type Policy struct {
	// Recursive descends directories; every image-leaf directory and every
	// archive found becomes its own gallery.
	Recursive bool
	// SubfolderAsGallery turns subfolders that would be chapters into
	// separate galleries.
	SubfolderAsGallery bool
	// Skip, when set, hides paths from classification.
	Skip func(path string, isDir bool) bool
	// ReadDir lists a directory. Defaults to os.ReadDir.
	ReadDir func(dir string) ([]fs.DirEntry, error)
}

func (p Policy) skip(path string, isDir bool) bool {
	return p.Skip != nil && p.Skip(path, isDir)
}

func (p Policy) readDir(dir string) ([]fs.DirEntry, error) {
	if p.ReadDir != nil {
		return p.ReadDir(dir)
	}
	return os.ReadDir(dir)
}

// Candidate is a path that may hold a gallery. PathInArchive names a
// directory inside an archive when a single archive holds several galleries.
type Candidate struct {
	Path          string
	Archive       bool
	PathInArchive string
}

// ChapterSource is where one chapter's pages live.
type ChapterSource struct {
	// Path is a directory, the archive path for the archive root, or a
	// slash-terminated directory inside the archive.
	Path      string
	InArchive bool
	Pages     int
}

// Result is the outcome of classifying one candidate.
type Result struct {
	Kind       Kind
	Candidate  Candidate
	Chapters   []ChapterSource
	Candidates []Candidate
	Reason     string
}

// IsGallerySet applies the 80% image rule to a list of entry names.
// Hidden entries are not counted.
func IsGallerySet(names []string) bool {
	images, total := countImages(names)
	return images > 0 && images*5 >= total*4
}

func countImages(names []string) (images, total int) {
	for _, n := range names {
		if archive.IsHidden(n) {
			continue
		}
		total++
		if archive.IsImage(n) {
			images++
		}
	}
	return images, total
}

// Classify inspects one candidate.
func Classify(c Candidate, policy Policy) (Result, error) {
	if c.Archive || archive.IsArchive(c.Path) {
		c.Archive = true
		return classifyArchive(c, policy)
	}

	info, err := os.Stat(c.Path)
	if err != nil {
		return Result{}, errors.Wrapf(err, errors.CodeIO, "stat %s", c.Path)
	}
	if !info.IsDir() {
		return notAGallery(c, "not a directory or archive"), nil
	}
	return classifyDir(c, policy)
}

func notAGallery(c Candidate, reason string) Result {
	return Result{Kind: NotAGallery, Candidate: c, Reason: reason}
}

type dirListing struct {
	names   []string
	dirs    []string
	files   []string
	images  int
	entries int
}

// readDir lists the non-hidden, non-skipped children of dir in order.
func readDir(dir string, policy Policy) (dirListing, error) {
	entries, err := policy.readDir(dir)
	if err != nil {
		return dirListing{}, errors.Wrapf(err, errors.CodeIO, "read %s", dir)
	}
	var l dirListing
	for _, e := range entries {
		full := filepath.Join(dir, e.Name())
		if archive.IsHidden(e.Name()) || policy.skip(full, e.IsDir()) {
			continue
		}
		l.names = append(l.names, e.Name())
		if e.IsDir() {
			l.dirs = append(l.dirs, full)
		} else {
			l.files = append(l.files, full)
		}
	}
	l.images, l.entries = countImages(l.names)
	return l, nil
}

func (l dirListing) isGallery() bool {
	return l.images > 0 && l.images*5 >= l.entries*4
}

func classifyDir(c Candidate, policy Policy) (Result, error) {
	l, err := readDir(c.Path, policy)
	if err != nil {
		return Result{}, err
	}

	if l.isGallery() {
		return Result{
			Kind:      SingleGallery,
			Candidate: c,
			Chapters:  []ChapterSource{{Path: c.Path, Pages: l.images}},
		}, nil
	}

	if policy.Recursive {
		found, err := walk(c.Path, policy)
		if err != nil {
			return Result{}, err
		}
		if len(found) == 0 {
			return notAGallery(c, "no images"), nil
		}
		return Result{Kind: ContainerOfGalleries, Candidate: c, Candidates: found}, nil
	}

	var chapters []ChapterSource
	for _, dir := range l.dirs {
		sub, err := readDir(dir, policy)
		if err != nil {
			return Result{}, err
		}
		if sub.isGallery() {
			chapters = append(chapters, ChapterSource{Path: dir, Pages: sub.images})
		}
	}
	var archives []string
	for _, f := range l.files {
		if archive.IsArchive(f) {
			archives = append(archives, f)
		}
	}

	switch {
	case len(chapters) == 0 && len(archives) == 0:
		return notAGallery(c, "no images"), nil
	case len(archives) == 0 && !policy.SubfolderAsGallery:
		return Result{Kind: MultiChapterGallery, Candidate: c, Chapters: chapters}, nil
	}

	var found []Candidate
	for _, ch := range chapters {
		found = append(found, Candidate{Path: ch.Path})
	}
	for _, a := range archives {
		found = append(found, Candidate{Path: a, Archive: true})
	}
	sortCandidates(found)
	return Result{Kind: ContainerOfGalleries, Candidate: c, Candidates: found}, nil
}

func classifyArchive(c Candidate, policy Policy) (Result, error) {
	r, err := archive.Open(c.Path)
	if err != nil {
		return Result{}, err
	}
	defer r.Close()

	if c.PathInArchive != "" {
		images := r.Images(c.PathInArchive)
		if !IsGallerySet(entryNames(r.Contents(c.PathInArchive))) {
			return notAGallery(c, "no images"), nil
		}
		return Result{
			Kind:      SingleGallery,
			Candidate: c,
			Chapters:  []ChapterSource{{Path: dirName(c.PathInArchive), InArchive: true, Pages: len(images)}},
		}, nil
	}

	if IsGallerySet(entryNames(r.Contents(""))) {
		return Result{
			Kind:      SingleGallery,
			Candidate: c,
			Chapters:  []ChapterSource{{Path: c.Path, InArchive: true, Pages: len(r.Images(""))}},
		}, nil
	}

	var chapters []ChapterSource
	for _, d := range r.ListDirs() {
		if archive.IsHidden(d.Name) {
			continue
		}
		if IsGallerySet(entryNames(r.Contents(d.Name))) {
			chapters = append(chapters, ChapterSource{Path: d.Name, InArchive: true, Pages: len(r.Images(d.Name))})
		}
	}

	switch {
	case len(chapters) == 0:
		return notAGallery(c, "no images in archive"), nil
	case policy.SubfolderAsGallery:
		found := make([]Candidate, len(chapters))
		for i, ch := range chapters {
			found[i] = Candidate{Path: c.Path, Archive: true, PathInArchive: ch.Path}
		}
		return Result{Kind: ContainerOfGalleries, Candidate: c, Candidates: found}, nil
	default:
		return Result{Kind: MultiChapterGallery, Candidate: c, Chapters: chapters}, nil
	}
}

func entryNames(entries []archive.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func dirName(p string) string {
	p = filepath.ToSlash(p)
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}

func sortCandidates(cs []Candidate) {
	slices.SortStableFunc(cs, func(a, b Candidate) int {
		if c := strings.Compare(a.Path, b.Path); c != 0 {
			return c
		}
		return strings.Compare(a.PathInArchive, b.PathInArchive)
	})
}
