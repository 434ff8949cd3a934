// Package archive gives a read-only view over ZIP/CBZ and RAR/CBR files.
//
// Entry names always use forward slashes. Directories carry a trailing
// slash and are synthesized for archives that only store file entries.
// Listings are sorted lexicographically.
package archive

import (
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/listenupapp/doujinshelf/internal/errors"
)

// Format identifies an archive backend.
type Format string

const (
	FormatZip Format = "zip"
	FormatRar Format = "rar"
)

var formats = map[string]Format{
	".zip": FormatZip,
	".cbz": FormatZip,
	".rar": FormatRar,
	".cbr": FormatRar,
}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
}

// Extensions returns the supported archive extensions.
func Extensions() []string {
	exts := make([]string, 0, len(formats))
	for ext := range formats {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// FormatOf returns the backend for a file name, judged by extension.
func FormatOf(name string) (Format, bool) {
	f, ok := formats[strings.ToLower(filepath.Ext(name))]
	return f, ok
}

// IsArchive reports whether name has a supported archive extension.
func IsArchive(name string) bool {
	_, ok := FormatOf(name)
	return ok
}

// IsImage reports whether name has a supported image extension.
func IsImage(name string) bool {
	return imageExtensions[strings.ToLower(path.Ext(filepath.ToSlash(name)))]
}

// IsHidden reports whether an entry or file name should be ignored when
// counting gallery contents: dotfiles and macOS resource forks.
func IsHidden(name string) bool {
	base := path.Base(strings.TrimSuffix(filepath.ToSlash(name), "/"))
	return strings.HasPrefix(base, ".") || base == "__MACOSX" || strings.HasPrefix(name, "__MACOSX/")
}

// Entry is one file or directory inside an archive.
type Entry struct {
	Name  string
	IsDir bool
	Size  int64
}

// Base returns the last path element without the trailing slash.
func (e Entry) Base() string {
	return path.Base(strings.TrimSuffix(e.Name, "/"))
}

type backend interface {
	entries() []Entry
	open(name string) (io.ReadCloser, error)
	close() error
}

// Reader is an open archive. It is not safe for concurrent use.
type Reader struct {
	path    string
	format  Format
	backend backend
	entries []Entry
	index   map[string]Entry
}

// Open opens the archive at p with the backend chosen by its extension.
func Open(p string) (*Reader, error) {
	format, ok := FormatOf(p)
	if !ok {
		return nil, errors.ErrUnsupportedArchive.WithCause(errors.New(p))
	}

	var (
		b   backend
		err error
	)
	switch format {
	case FormatZip:
		b, err = openZip(p)
	case FormatRar:
		b, err = openRar(p)
	}
	if err != nil {
		if os.IsNotExist(err) || os.IsPermission(err) {
			return nil, errors.Wrapf(err, errors.CodeIO, "open archive %s", p)
		}
		return nil, errors.Wrapf(err, errors.CodeArchiveCreate, "open archive %s", p)
	}

	r := &Reader{path: p, format: format, backend: b}
	r.buildIndex(b.entries())
	return r, nil
}

// buildIndex normalizes names, adds implicit parent directories and sorts.
func (r *Reader) buildIndex(raw []Entry) {
	r.index = make(map[string]Entry, len(raw))
	for _, e := range raw {
		name := normalizeName(e.Name)
		if name == "" {
			continue
		}
		if e.IsDir && !strings.HasSuffix(name, "/") {
			name += "/"
		}
		e.Name = name
		r.index[name] = e

		for dir := path.Dir(strings.TrimSuffix(name, "/")); dir != "." && dir != "/"; dir = path.Dir(dir) {
			key := dir + "/"
			if _, ok := r.index[key]; ok {
				break
			}
			r.index[key] = Entry{Name: key, IsDir: true}
		}
	}

	r.entries = make([]Entry, 0, len(r.index))
	for _, e := range r.index {
		r.entries = append(r.entries, e)
	}
	slices.SortFunc(r.entries, func(a, b Entry) int { return strings.Compare(a.Name, b.Name) })
}

func normalizeName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = strings.TrimLeft(name, "/")
	trailing := strings.HasSuffix(name, "/")
	name = path.Clean(name)
	if name == "." {
		return ""
	}
	if trailing {
		name += "/"
	}
	return name
}

// Path returns the archive's filesystem path.
func (r *Reader) Path() string { return r.path }

// Format returns the backend in use.
func (r *Reader) Format() Format { return r.format }

// List returns every entry.
func (r *Reader) List() []Entry {
	return slices.Clone(r.entries)
}

// ListDirs returns the immediate subdirectories of the archive root.
func (r *Reader) ListDirs() []Entry {
	var dirs []Entry
	for _, e := range r.Contents("") {
		if e.IsDir {
			dirs = append(dirs, e)
		}
	}
	return dirs
}

// Contents returns the immediate children of dir. Use "" for the root.
func (r *Reader) Contents(dir string) []Entry {
	dir = normalizeName(dir)
	if dir != "" && !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	var out []Entry
	for _, e := range r.entries {
		rest, ok := strings.CutPrefix(e.Name, dir)
		if !ok || rest == "" {
			continue
		}
		rest = strings.TrimSuffix(rest, "/")
		if !strings.Contains(rest, "/") {
			out = append(out, e)
		}
	}
	return out
}

// Images returns the image files directly inside dir, in order, skipping
// hidden entries.
func (r *Reader) Images(dir string) []Entry {
	var out []Entry
	for _, e := range r.Contents(dir) {
		if !e.IsDir && !IsHidden(e.Name) && IsImage(e.Name) {
			out = append(out, e)
		}
	}
	return out
}

// Has reports whether the archive contains name.
func (r *Reader) Has(name string) bool {
	_, ok := r.index[normalizeName(name)]
	return ok
}

// Open returns a stream over one file entry.
func (r *Reader) Open(name string) (io.ReadCloser, error) {
	name = normalizeName(name)
	e, ok := r.index[name]
	if !ok || e.IsDir {
		return nil, errors.IOf("%s: no file %q in archive", r.path, name)
	}
	rc, err := r.backend.open(name)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeIO, "%s: read %q", r.path, name)
	}
	return rc, nil
}

// Extract writes one entry below dest, keeping its relative path, and
// returns the written file path.
func (r *Reader) Extract(name, dest string) (string, error) {
	name = normalizeName(name)
	target, err := safeJoin(dest, name)
	if err != nil {
		return "", err
	}

	e, ok := r.index[name]
	if !ok {
		return "", errors.IOf("%s: no entry %q in archive", r.path, name)
	}
	if e.IsDir {
		if err := os.MkdirAll(target, 0o755); err != nil {
			return "", errors.Wrapf(err, errors.CodeIO, "create %s", target)
		}
		return target, nil
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", errors.Wrapf(err, errors.CodeIO, "create %s", filepath.Dir(target))
	}

	src, err := r.Open(name)
	if err != nil {
		return "", err
	}
	defer src.Close()

	out, err := os.Create(target)
	if err != nil {
		return "", errors.Wrapf(err, errors.CodeIO, "create %s", target)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return "", errors.Wrapf(err, errors.CodeIO, "extract %q", name)
	}
	if err := out.Close(); err != nil {
		return "", errors.Wrapf(err, errors.CodeIO, "close %s", target)
	}
	return target, nil
}

// ExtractAll writes every entry below dest.
func (r *Reader) ExtractAll(dest string) error {
	for _, e := range r.entries {
		if _, err := r.Extract(e.Name, dest); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying file.
func (r *Reader) Close() error {
	return r.backend.close()
}

// safeJoin rejects entry names that would escape dest.
func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", errors.Formatf("archive entry %q escapes destination", name)
	}
	return target, nil
}
