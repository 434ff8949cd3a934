package archive

import (
	"archive/zip"
	"io"
)

type zipBackend struct {
	rc    *zip.ReadCloser
	files map[string]*zip.File
}

func openZip(p string) (*zipBackend, error) {
	rc, err := zip.OpenReader(p)
	if err != nil {
		return nil, err
	}
	b := &zipBackend{rc: rc, files: make(map[string]*zip.File, len(rc.File))}
	for _, f := range rc.File {
		b.files[normalizeName(f.Name)] = f
	}
	return b, nil
}

func (b *zipBackend) entries() []Entry {
	out := make([]Entry, 0, len(b.rc.File))
	for _, f := range b.rc.File {
		out = append(out, Entry{
			Name:  f.Name,
			IsDir: f.FileInfo().IsDir(),
			Size:  int64(f.UncompressedSize64),
		})
	}
	return out
}

func (b *zipBackend) open(name string) (io.ReadCloser, error) {
	f, ok := b.files[name]
	if !ok {
		return nil, errNoEntry
	}
	return f.Open()
}

func (b *zipBackend) close() error {
	return b.rc.Close()
}
