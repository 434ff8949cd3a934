// Package export writes the library as a JSON object keyed by gallery id.
package export

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/listenupapp/doujinshelf/internal/backup/stream"
	"github.com/listenupapp/doujinshelf/internal/domain"
	"github.com/listenupapp/doujinshelf/internal/errors"
	"github.com/listenupapp/doujinshelf/internal/store"
)

// Lister lists the galleries to export.
type Lister interface {
	ListGalleries(ctx context.Context, filter store.GalleryFilter) ([]*domain.Gallery, error)
}

// Hasher provides the sampled digests of a chapter.
type Hasher interface {
	Ensure(ctx context.Context, g *domain.Gallery, chapter int) (map[int]string, error)
}

// Options configures an export.
type Options struct {
	OutputPath string
	// IDs limits the export to these galleries. Empty exports everything.
	IDs []int64
}

// Result contains the outcome of an export. Unhashed counts galleries
// exported without page digests.
type Result struct {
	Path     string
	Size     int64
	Count    int
	Unhashed int
	Duration time.Duration
	Checksum string
}

// Exporter writes export files.
type Exporter struct {
	store  Lister
	hasher Hasher
	logger *slog.Logger
}

// New creates an Exporter. hasher may be nil, in which case identifiers
// carry only the page count.
func New(s Lister, hasher Hasher, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Exporter{store: s, hasher: hasher, logger: logger}
}

// Export writes an export file to opts.OutputPath.
func (e *Exporter) Export(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()

	// Write to temp file, rename on success
	tmpPath := opts.OutputPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeIO, "create export file %s", opts.OutputPath)
	}
	defer os.Remove(tmpPath)
	defer f.Close()

	hash := sha256.New()
	res, err := e.ExportTo(ctx, io.MultiWriter(f, hash), opts.IDs)
	if err != nil {
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "close export file")
	}
	if err := os.Rename(tmpPath, opts.OutputPath); err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "rename export file")
	}

	info, err := os.Stat(opts.OutputPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "stat export file")
	}
	res.Path = opts.OutputPath
	res.Size = info.Size()
	res.Checksum = hex.EncodeToString(hash.Sum(nil))
	res.Duration = time.Since(start)
	return res, nil
}

// ExportTo writes the export object to w.
func (e *Exporter) ExportTo(ctx context.Context, w io.Writer, ids []int64) (*Result, error) {
	galleries, err := e.store.ListGalleries(ctx, store.GalleryFilter{IDs: ids})
	if err != nil {
		return nil, err
	}

	res := &Result{}
	sw := stream.NewWriter(w)
	for _, g := range galleries {
		if err := ctx.Err(); err != nil {
			return nil, errors.Cancelled(err)
		}

		id, err := e.identifier(ctx, g)
		if err != nil {
			if errors.KindOf(err) == errors.KindCancellation {
				return nil, errors.Cancelled(err)
			}
			e.logger.Warn("exporting gallery without digests", "gallery_id", g.ID, "error", err)
			res.Unhashed++
		}
		if err := sw.Write(strconv.FormatInt(g.ID, 10), NewRecord(g, id)); err != nil {
			return nil, errors.Wrap(err, errors.CodeIO, "write export entry")
		}
	}
	if err := sw.Close(); err != nil {
		return nil, errors.Wrap(err, errors.CodeIO, "finish export")
	}

	res.Count = sw.Count()
	e.logger.Info("export written", "galleries", res.Count, "unhashed", res.Unhashed)
	return res, nil
}

// identifier returns the chapter-0 fingerprint of g. On error the page
// count is still filled in.
func (e *Exporter) identifier(ctx context.Context, g *domain.Gallery) (Identifier, error) {
	c, ok := g.Chapter(0)
	if !ok {
		return Identifier{}, errors.Consistencyf("gallery %d has no chapters", g.ID)
	}
	id := Identifier{Pages: c.Pages}
	if e.hasher == nil {
		return id, nil
	}
	digests, err := e.hasher.Ensure(ctx, g, 0)
	if err != nil {
		return id, err
	}
	id.Digests = digests
	return id, nil
}
