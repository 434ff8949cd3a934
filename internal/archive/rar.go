package archive

import (
	"io"

	"github.com/listenupapp/doujinshelf/internal/errors"
	"github.com/nwaples/rardecode/v2"
)

var errNoEntry = errors.New("entry not found")

// rarBackend reads headers once at open. RAR is a sequential format, so
// each open rescans the volume up to the requested entry.
type rarBackend struct {
	path    string
	headers []Entry
}

func openRar(p string) (*rarBackend, error) {
	r, err := rardecode.OpenReader(p)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	b := &rarBackend{path: p}
	for {
		header, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		b.headers = append(b.headers, Entry{
			Name:  header.Name,
			IsDir: header.IsDir,
			Size:  header.UnPackedSize,
		})
	}
	return b, nil
}

func (b *rarBackend) entries() []Entry {
	return b.headers
}

func (b *rarBackend) open(name string) (io.ReadCloser, error) {
	r, err := rardecode.OpenReader(b.path)
	if err != nil {
		return nil, err
	}
	for {
		header, err := r.Next()
		if err == io.EOF {
			r.Close()
			return nil, errNoEntry
		}
		if err != nil {
			r.Close()
			return nil, err
		}
		if !header.IsDir && normalizeName(header.Name) == name {
			return r, nil
		}
	}
}

func (b *rarBackend) close() error {
	return nil
}
